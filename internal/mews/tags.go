package mews

import (
	"regexp"
	"strings"
)

// TagKind enumerates the token classes extracted from mew text.
type TagKind string

const (
	// TagKindHashtag is a # token: alphanumeric and underscore characters.
	TagKindHashtag TagKind = "hashtag"
	// TagKindCashtag is a $ token: alphabetic characters only.
	TagKindCashtag TagKind = "cashtag"
	// TagKindMention is an @ token naming an agent handle: alphanumeric and
	// underscore characters.
	TagKindMention TagKind = "mention"
)

// Tag is one extracted token. Value is stored case-folded so index lookups
// are case-insensitive.
type Tag struct {
	Kind  TagKind
	Value string
}

var (
	hashtagPattern = regexp.MustCompile(`#([A-Za-z0-9_]+)`)
	cashtagPattern = regexp.MustCompile(`\$([A-Za-z]+)`)
	mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)
)

// ExtractTags scans text for hashtags, cashtags and mentions and returns
// the distinct case-folded tokens in order of first appearance. Repeated
// tokens within one text yield a single tag.
func ExtractTags(text string) []Tag {
	tags := make([]Tag, 0)
	seen := make(map[string]struct{})
	appendMatches := func(kind TagKind, pattern *regexp.Regexp) {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			value := FoldTagValue(match[1])
			key := string(kind) + ":" + value
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			tags = append(tags, Tag{Kind: kind, Value: value})
		}
	}
	appendMatches(TagKindHashtag, hashtagPattern)
	appendMatches(TagKindCashtag, cashtagPattern)
	appendMatches(TagKindMention, mentionPattern)
	return tags
}

// FoldTagValue normalizes a tag token for index storage and lookup.
func FoldTagValue(value string) string {
	return strings.ToLower(value)
}

// tagIndexBase derives the reverse-index link base key for a tag.
func tagIndexBase(kind TagKind, value string) string {
	return string(kind) + ":" + value
}
