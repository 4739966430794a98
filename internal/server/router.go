package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mewsnet/mewsfeed/backend/internal/follows"
	"github.com/mewsnet/mewsfeed/backend/internal/licks"
	"github.com/mewsnet/mewsfeed/backend/internal/mews"
	"github.com/mewsnet/mewsfeed/backend/internal/store"
	"go.uber.org/zap"
)

const agentIDContextKey = "mewsfeed_agent_id"

var (
	errMissingTokenValidator = errors.New("token validator dependency required")
	errMissingMewsService    = errors.New("mews service dependency required")
	errMissingFollowsService = errors.New("follows service dependency required")
	errMissingLicksService   = errors.New("licks service dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// TokenValidator checks a bearer token and returns the agent identity it
// carries.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// Dependencies wires the remote-call surface to the engine services.
type Dependencies struct {
	TokenValidator TokenValidator
	MewsService    *mews.Service
	FollowsService *follows.Service
	LicksService   *licks.Service
	Logger         *zap.Logger
}

// NewHTTPHandler builds the remote-call surface. Every call is exposed
// under its stable function name so existing clients keep working.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenValidator == nil {
		return nil, errMissingTokenValidator
	}
	if deps.MewsService == nil {
		return nil, errMissingMewsService
	}
	if deps.FollowsService == nil {
		return nil, errMissingFollowsService
	}
	if deps.LicksService == nil {
		return nil, errMissingLicksService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:  deps.TokenValidator,
		mews:    deps.MewsService,
		follows: deps.FollowsService,
		licks:   deps.LicksService,
		logger:  logger,
	}

	calls := router.Group("/call")
	calls.Use(handler.authorizeRequest)
	calls.POST("/create_mew", handler.handleCreateMew)
	calls.POST("/get_mew", handler.handleGetMew)
	calls.POST("/mews_feed", handler.handleMewsFeed)
	calls.POST("/mews_by", handler.handleMewsBy)
	calls.POST("/follow", handler.handleFollow)
	calls.POST("/unfollow", handler.handleUnfollow)
	calls.POST("/followers", handler.handleFollowers)
	calls.POST("/following", handler.handleFollowing)
	calls.POST("/my_followers", handler.handleMyFollowers)
	calls.POST("/my_following", handler.handleMyFollowing)
	calls.POST("/lick_mew", handler.handleLickMew)
	calls.POST("/unlick_mew", handler.handleUnlickMew)
	calls.POST("/my_licks", handler.handleMyLicks)
	calls.POST("/get_feed_mew_and_context", handler.handleGetFeedMewAndContext)
	calls.POST("/get_mews_with_hashtag", handler.handleMewsWithHashtag)
	calls.POST("/get_mews_with_cashtag", handler.handleMewsWithCashtag)
	calls.POST("/get_mews_with_mention", handler.handleMewsWithMention)
	calls.POST("/get_dna_properties", handler.handleGetDnaProperties)

	return router, nil
}

type httpHandler struct {
	tokens  TokenValidator
	mews    *mews.Service
	follows *follows.Service
	licks   *licks.Service
	logger  *zap.Logger
}

type mewTypePayload struct {
	Kind string `json:"kind"`
	Of   string `json:"of,omitempty"`
}

type createMewPayload struct {
	Text    string         `json:"text"`
	Links   []string       `json:"links"`
	MewType mewTypePayload `json:"mew_type"`
}

type addressPayload struct {
	Address string `json:"address"`
}

type agentPayload struct {
	Agent string `json:"agent"`
}

type feedOptionsPayload struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor,omitempty"`
}

type tagPayload struct {
	Hashtag string `json:"hashtag,omitempty"`
	Cashtag string `json:"cashtag,omitempty"`
	Mention string `json:"mention,omitempty"`
}

type mewResponse struct {
	Address   string         `json:"address"`
	Author    string         `json:"author"`
	Text      string         `json:"text"`
	MewType   mewTypePayload `json:"mew_type"`
	Links     []string       `json:"links,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type feedMewResponse struct {
	Mew        mewResponse `json:"mew"`
	Licks      int         `json:"licks"`
	Replies    int         `json:"replies"`
	Requotes   int         `json:"requotes"`
	LickedByMe bool        `json:"licked_by_me"`
}

type feedPageResponse struct {
	Mews   []feedMewResponse `json:"mews"`
	Cursor string            `json:"cursor,omitempty"`
}

type dnaPropertiesResponse struct {
	MewCharactersMin *int `json:"mew_characters_min,omitempty"`
	MewCharactersMax *int `json:"mew_characters_max,omitempty"`
}

func (h *httpHandler) handleCreateMew(c *gin.Context) {
	agent := c.GetString(agentIDContextKey)
	var request createMewPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.mews.CreateMew(c.Request.Context(), agent, mews.CreateMewInput{
		Text:  request.Text,
		Links: request.Links,
		MewType: mews.MewType{
			Kind: mews.MewKind(request.MewType.Kind),
			Of:   request.MewType.Of,
		},
	})
	if err != nil {
		h.respondError(c, "create_mew", err)
		return
	}

	c.JSON(http.StatusOK, mewToResponse(created))
}

func (h *httpHandler) handleGetMew(c *gin.Context) {
	var request addressPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	mew, err := h.mews.GetMew(c.Request.Context(), request.Address)
	if err != nil {
		h.respondError(c, "get_mew", err)
		return
	}

	c.JSON(http.StatusOK, mewToResponse(mew))
}

func (h *httpHandler) handleMewsFeed(c *gin.Context) {
	agent := c.GetString(agentIDContextKey)
	var request feedOptionsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	page, err := h.mews.MewsFeed(c.Request.Context(), agent, mews.FeedOptions{
		Limit:  request.Limit,
		Cursor: request.Cursor,
	})
	if err != nil {
		h.respondError(c, "mews_feed", err)
		return
	}

	c.JSON(http.StatusOK, feedPageResponse{
		Mews:   feedMewsToResponse(page.Mews),
		Cursor: page.Cursor,
	})
}

func (h *httpHandler) handleMewsBy(c *gin.Context) {
	agent := c.GetString(agentIDContextKey)
	var request agentPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Agent == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	feedMews, err := h.mews.MewsBy(c.Request.Context(), agent, request.Agent)
	if err != nil {
		h.respondError(c, "mews_by", err)
		return
	}

	c.JSON(http.StatusOK, feedMewsToResponse(feedMews))
}

func (h *httpHandler) handleFollow(c *gin.Context) {
	h.handleFollowChange(c, "follow", h.follows.Follow)
}

func (h *httpHandler) handleUnfollow(c *gin.Context) {
	h.handleFollowChange(c, "unfollow", h.follows.Unfollow)
}

func (h *httpHandler) handleFollowChange(c *gin.Context, operation string, change func(ctx context.Context, self, target string) error) {
	agent := c.GetString(agentIDContextKey)
	var request agentPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Agent == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := change(c.Request.Context(), agent, request.Agent); err != nil {
		h.respondError(c, operation, err)
		return
	}

	c.JSON(http.StatusOK, nil)
}

func (h *httpHandler) handleFollowers(c *gin.Context) {
	h.handleAgentListing(c, "followers", h.follows.Followers)
}

func (h *httpHandler) handleFollowing(c *gin.Context) {
	h.handleAgentListing(c, "following", h.follows.Following)
}

func (h *httpHandler) handleAgentListing(c *gin.Context, operation string, listing func(ctx context.Context, agent string) ([]string, error)) {
	var request agentPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Agent == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	agents, err := listing(c.Request.Context(), request.Agent)
	if err != nil {
		h.respondError(c, operation, err)
		return
	}

	c.JSON(http.StatusOK, agents)
}

func (h *httpHandler) handleMyFollowers(c *gin.Context) {
	agent := c.GetString(agentIDContextKey)
	agents, err := h.follows.Followers(c.Request.Context(), agent)
	if err != nil {
		h.respondError(c, "my_followers", err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

func (h *httpHandler) handleMyFollowing(c *gin.Context) {
	agent := c.GetString(agentIDContextKey)
	agents, err := h.follows.Following(c.Request.Context(), agent)
	if err != nil {
		h.respondError(c, "my_following", err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

func (h *httpHandler) handleLickMew(c *gin.Context) {
	agent := c.GetString(agentIDContextKey)
	var request addressPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.licks.Lick(c.Request.Context(), agent, request.Address); err != nil {
		h.respondError(c, "lick_mew", err)
		return
	}

	c.JSON(http.StatusOK, nil)
}

func (h *httpHandler) handleUnlickMew(c *gin.Context) {
	agent := c.GetString(agentIDContextKey)
	var request addressPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.licks.Unlick(c.Request.Context(), agent, request.Address); err != nil {
		h.respondError(c, "unlick_mew", err)
		return
	}

	c.JSON(http.StatusOK, nil)
}

func (h *httpHandler) handleMyLicks(c *gin.Context) {
	agent := c.GetString(agentIDContextKey)
	addresses, err := h.licks.LicksBy(c.Request.Context(), agent)
	if err != nil {
		h.respondError(c, "my_licks", err)
		return
	}
	c.JSON(http.StatusOK, addresses)
}

func (h *httpHandler) handleGetFeedMewAndContext(c *gin.Context) {
	agent := c.GetString(agentIDContextKey)
	var request addressPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	feedMew, err := h.mews.GetFeedMewAndContext(c.Request.Context(), agent, request.Address)
	if err != nil {
		h.respondError(c, "get_feed_mew_and_context", err)
		return
	}

	c.JSON(http.StatusOK, feedMewToResponse(feedMew))
}

func (h *httpHandler) handleMewsWithHashtag(c *gin.Context) {
	h.handleMewsWithTag(c, mews.TagKindHashtag, func(p tagPayload) string { return p.Hashtag })
}

func (h *httpHandler) handleMewsWithCashtag(c *gin.Context) {
	h.handleMewsWithTag(c, mews.TagKindCashtag, func(p tagPayload) string { return p.Cashtag })
}

func (h *httpHandler) handleMewsWithMention(c *gin.Context) {
	h.handleMewsWithTag(c, mews.TagKindMention, func(p tagPayload) string { return p.Mention })
}

func (h *httpHandler) handleMewsWithTag(c *gin.Context, kind mews.TagKind, value func(tagPayload) string) {
	agent := c.GetString(agentIDContextKey)
	var request tagPayload
	if err := c.ShouldBindJSON(&request); err != nil || value(request) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	feedMews, err := h.mews.MewsWithTag(c.Request.Context(), agent, kind, value(request))
	if err != nil {
		h.respondError(c, "get_mews_with_"+string(kind), err)
		return
	}

	c.JSON(http.StatusOK, feedMewsToResponse(feedMews))
}

func (h *httpHandler) handleGetDnaProperties(c *gin.Context) {
	policy := h.mews.Policy()
	c.JSON(http.StatusOK, dnaPropertiesResponse{
		MewCharactersMin: policy.CharactersMin,
		MewCharactersMax: policy.CharactersMax,
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	agentID, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(agentIDContextKey, agentID)
	c.Next()
}

func (h *httpHandler) respondError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, mews.ErrMewTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"error": "mew_too_short"})
	case errors.Is(err, mews.ErrMewTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": "mew_too_long"})
	case errors.Is(err, follows.ErrSelfFollow):
		c.JSON(http.StatusBadRequest, gin.H{"error": "self_follow"})
	case errors.Is(err, mews.ErrMalformedInput),
		errors.Is(err, follows.ErrMissingAgent),
		errors.Is(err, licks.ErrMissingAgent),
		errors.Is(err, licks.ErrMissingAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_input"})
	case errors.Is(err, store.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, store.ErrUnavailable):
		h.logger.Error("store unavailable", zap.String("call", operation), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store_unavailable"})
	default:
		h.logger.Error("call failed", zap.String("call", operation), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func mewToResponse(mew mews.Mew) mewResponse {
	return mewResponse{
		Address: mew.Address,
		Author:  mew.Author,
		Text:    mew.Text,
		MewType: mewTypePayload{
			Kind: string(mew.MewType.Kind),
			Of:   mew.MewType.Of,
		},
		Links:     mew.Links,
		CreatedAt: mew.CreatedAt,
	}
}

func feedMewToResponse(feedMew mews.FeedMew) feedMewResponse {
	return feedMewResponse{
		Mew:        mewToResponse(feedMew.Mew),
		Licks:      feedMew.LickCount,
		Replies:    feedMew.ReplyCount,
		Requotes:   feedMew.RequoteCount,
		LickedByMe: feedMew.LickedByCaller,
	}
}

func feedMewsToResponse(feedMews []mews.FeedMew) []feedMewResponse {
	responses := make([]feedMewResponse, 0, len(feedMews))
	for _, feedMew := range feedMews {
		responses = append(responses, feedMewToResponse(feedMew))
	}
	return responses
}
