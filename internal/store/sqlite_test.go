package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&RecordRow{}, &LinkRow{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	sqlStore, err := NewSQLiteStore(SQLiteStoreConfig{
		Database: db,
		Clock:    steppingClock(time.Unix(1700000000, 0).UTC(), time.Second),
	})
	if err != nil {
		t.Fatalf("failed to construct store: %v", err)
	}
	return sqlStore
}

func TestSQLiteStoreRecordRoundTrip(t *testing.T) {
	sqlStore := newTestSQLiteStore(t)

	record, err := sqlStore.CreateRecord(context.Background(), RecordInput{
		Author:  "agent-alice",
		Content: []byte(`{"text":"hello"}`),
	}, nil)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	fetched, err := sqlStore.GetRecord(context.Background(), record.Address)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if fetched.Author != "agent-alice" {
		t.Fatalf("unexpected author: %s", fetched.Author)
	}
	if string(fetched.Content) != `{"text":"hello"}` {
		t.Fatalf("unexpected content: %s", fetched.Content)
	}
	if !fetched.CreatedAt.Equal(record.CreatedAt) {
		t.Fatalf("creation timestamp changed across round trip")
	}
}

func TestSQLiteStoreGetRecordMissingAddress(t *testing.T) {
	sqlStore := newTestSQLiteStore(t)

	_, err := sqlStore.GetRecord(context.Background(), "no-such-address")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestSQLiteStoreCreateRecordPersistsLinksAtomically(t *testing.T) {
	sqlStore := newTestSQLiteStore(t)

	record, err := sqlStore.CreateRecord(context.Background(), RecordInput{
		Author:  "agent-alice",
		Content: []byte(`{"text":"#go $gbp @bob"}`),
	}, []LinkInput{
		{Base: "hashtag:go", Tag: "hashtag"},
		{Base: "cashtag:gbp", Tag: "cashtag"},
		{Base: "mention:bob", Tag: "mention"},
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	for _, base := range []struct{ base, tag string }{
		{"hashtag:go", "hashtag"},
		{"cashtag:gbp", "cashtag"},
		{"mention:bob", "mention"},
	} {
		links, err := sqlStore.ListLinks(context.Background(), base.base, base.tag)
		if err != nil {
			t.Fatalf("unexpected list error: %v", err)
		}
		if len(links) != 1 {
			t.Fatalf("expected one %s link, got %d", base.tag, len(links))
		}
		if links[0].Target != record.Address {
			t.Fatalf("expected link target %s, got %s", record.Address, links[0].Target)
		}
	}
}

func TestSQLiteStoreLinkIdempotency(t *testing.T) {
	sqlStore := newTestSQLiteStore(t)
	input := LinkInput{Base: "agent-alice", Tag: "follow", Target: "agent-bob"}

	if _, err := sqlStore.CreateLink(context.Background(), input); err != nil {
		t.Fatalf("unexpected first create error: %v", err)
	}
	if _, err := sqlStore.CreateLink(context.Background(), input); err != nil {
		t.Fatalf("unexpected duplicate create error: %v", err)
	}

	links, err := sqlStore.ListLinks(context.Background(), "agent-alice", "follow")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected one link after duplicate create, got %d", len(links))
	}

	if err := sqlStore.DeleteLink(context.Background(), "agent-alice", "follow", "agent-bob"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if err := sqlStore.DeleteLink(context.Background(), "agent-alice", "follow", "agent-bob"); err != nil {
		t.Fatalf("deleting an absent link should succeed, got %v", err)
	}

	links, err = sqlStore.ListLinks(context.Background(), "agent-alice", "follow")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected no links after delete, got %d", len(links))
	}
}

func TestSQLiteStoreListBacklinks(t *testing.T) {
	sqlStore := newTestSQLiteStore(t)
	for _, follower := range []string{"agent-bob", "agent-carol"} {
		if _, err := sqlStore.CreateLink(context.Background(), LinkInput{Base: follower, Tag: "follow", Target: "agent-alice"}); err != nil {
			t.Fatalf("unexpected create error: %v", err)
		}
	}

	links, err := sqlStore.ListBacklinks(context.Background(), "agent-alice", "follow")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected two backlinks, got %d", len(links))
	}
	if links[0].Base != "agent-bob" || links[1].Base != "agent-carol" {
		t.Fatalf("unexpected backlink order: %s, %s", links[0].Base, links[1].Base)
	}
}
