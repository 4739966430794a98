package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingDatabase = errors.New("database handle is required")

// RecordRow is the persisted shape of a Record.
type RecordRow struct {
	Address        string `gorm:"column:address;primaryKey;size:64;not null"`
	Author         string `gorm:"column:author;size:190;not null;index:idx_records_author_created,priority:1"`
	Content        []byte `gorm:"column:content;not null"`
	CreatedAtNanos int64  `gorm:"column:created_at_ns;not null;index:idx_records_author_created,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (RecordRow) TableName() string {
	return "records"
}

// LinkRow is the persisted shape of a Link. The unique index over
// (base, tag, target) is what makes link creation idempotent.
type LinkRow struct {
	LinkID         string `gorm:"column:link_id;primaryKey;size:36;not null"`
	Base           string `gorm:"column:base;size:190;not null;uniqueIndex:idx_links_edge,priority:1;index:idx_links_base_tag,priority:1"`
	Tag            string `gorm:"column:tag;size:32;not null;uniqueIndex:idx_links_edge,priority:2;index:idx_links_base_tag,priority:2;index:idx_links_target_tag,priority:2"`
	Target         string `gorm:"column:target;size:190;not null;uniqueIndex:idx_links_edge,priority:3;index:idx_links_target_tag,priority:1"`
	CreatedAtNanos int64  `gorm:"column:created_at_ns;not null"`
}

// TableName provides the explicit table binding for GORM.
func (LinkRow) TableName() string {
	return "links"
}

// SQLiteStoreConfig configures the GORM-backed store.
type SQLiteStoreConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// SQLiteStore implements Store on a GORM SQLite database.
type SQLiteStore struct {
	db     *gorm.DB
	clock  func() time.Time
	ids    IDProvider
	logger *zap.Logger
}

// NewSQLiteStore constructs a SQLiteStore.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteStore{db: cfg.Database, clock: clock, ids: ids, logger: logger}, nil
}

// CreateRecord persists the record and its links in one transaction.
func (s *SQLiteStore) CreateRecord(ctx context.Context, input RecordInput, links []LinkInput) (Record, error) {
	if err := validateRecordInput(input); err != nil {
		return Record{}, err
	}
	for _, link := range links {
		if err := validateLinkInput(link, true); err != nil {
			return Record{}, err
		}
	}

	createdAt := s.clock().UTC()
	address := DeriveAddress(input.Author, createdAt, input.Content)
	row := RecordRow{
		Address:        address,
		Author:         input.Author,
		Content:        input.Content,
		CreatedAtNanos: createdAt.UnixNano(),
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
		for _, link := range links {
			if err := s.createLinkRow(tx, link, address); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		s.logger.Error("record create failed",
			zap.String("author", input.Author),
			zap.Error(txErr))
		return Record{}, s.unavailable(txErr)
	}

	return recordFromRow(row), nil
}

// GetRecord fetches a record by address.
func (s *SQLiteStore) GetRecord(ctx context.Context, address string) (Record, error) {
	var row RecordRow
	err := s.db.WithContext(ctx).Where("address = ?", address).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, address)
	}
	if err != nil {
		return Record{}, s.unavailable(err)
	}
	return recordFromRow(row), nil
}

// ListRecordsByAuthor returns the author's records in creation order.
func (s *SQLiteStore) ListRecordsByAuthor(ctx context.Context, author string) ([]Record, error) {
	var rows []RecordRow
	err := s.db.WithContext(ctx).
		Where("author = ?", author).
		Order("created_at_ns ASC, address ASC").
		Find(&rows).Error
	if err != nil {
		return nil, s.unavailable(err)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromRow(row))
	}
	return records, nil
}

// CreateLink idempotently creates a link.
func (s *SQLiteStore) CreateLink(ctx context.Context, input LinkInput) (Link, error) {
	if err := validateLinkInput(input, false); err != nil {
		return Link{}, err
	}
	if err := s.createLinkRow(s.db.WithContext(ctx), input, ""); err != nil {
		return Link{}, s.unavailable(err)
	}
	var row LinkRow
	err := s.db.WithContext(ctx).
		Where("base = ? AND tag = ? AND target = ?", input.Base, input.Tag, input.Target).
		Take(&row).Error
	if err != nil {
		return Link{}, s.unavailable(err)
	}
	return linkFromRow(row), nil
}

// DeleteLink idempotently removes a link.
func (s *SQLiteStore) DeleteLink(ctx context.Context, base, tag, target string) error {
	err := s.db.WithContext(ctx).
		Where("base = ? AND tag = ? AND target = ?", base, tag, target).
		Delete(&LinkRow{}).Error
	if err != nil {
		return s.unavailable(err)
	}
	return nil
}

// ListLinks returns links from base with the given tag in creation order.
func (s *SQLiteStore) ListLinks(ctx context.Context, base, tag string) ([]Link, error) {
	return s.listLinks(ctx, "base = ? AND tag = ?", base, tag)
}

// ListBacklinks returns links pointing at target with the given tag in creation order.
func (s *SQLiteStore) ListBacklinks(ctx context.Context, target, tag string) ([]Link, error) {
	return s.listLinks(ctx, "target = ? AND tag = ?", target, tag)
}

func (s *SQLiteStore) listLinks(ctx context.Context, condition string, args ...any) ([]Link, error) {
	var rows []LinkRow
	err := s.db.WithContext(ctx).
		Where(condition, args...).
		Order("created_at_ns ASC, link_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, s.unavailable(err)
	}
	links := make([]Link, 0, len(rows))
	for _, row := range rows {
		links = append(links, linkFromRow(row))
	}
	return links, nil
}

func (s *SQLiteStore) createLinkRow(tx *gorm.DB, input LinkInput, recordAddress string) error {
	target := input.Target
	if target == "" {
		target = recordAddress
	}
	linkID, err := s.ids.NewID()
	if err != nil {
		return err
	}
	row := LinkRow{
		LinkID:         linkID,
		Base:           input.Base,
		Tag:            input.Tag,
		Target:         target,
		CreatedAtNanos: s.clock().UTC().UnixNano(),
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *SQLiteStore) unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func recordFromRow(row RecordRow) Record {
	return Record{
		Address:   row.Address,
		Author:    row.Author,
		Content:   row.Content,
		CreatedAt: time.Unix(0, row.CreatedAtNanos).UTC(),
	}
}

func linkFromRow(row LinkRow) Link {
	return Link{
		ID:        row.LinkID,
		Base:      row.Base,
		Tag:       row.Tag,
		Target:    row.Target,
		CreatedAt: time.Unix(0, row.CreatedAtNanos).UTC(),
	}
}
