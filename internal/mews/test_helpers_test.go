package mews

import (
	"context"
	"testing"
	"time"

	"github.com/mewsnet/mewsfeed/backend/internal/follows"
	"github.com/mewsnet/mewsfeed/backend/internal/licks"
	"github.com/mewsnet/mewsfeed/backend/internal/store"
)

type testFixture struct {
	service *Service
	follows *follows.Service
	licks   *licks.Service
	store   *store.MemoryStore
}

func steppingClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		value := current
		current = current.Add(step)
		return value
	}
}

func newTestFixture(t *testing.T, policy Policy) *testFixture {
	t.Helper()
	memStore := store.NewMemoryStore(store.MemoryStoreConfig{
		Clock: steppingClock(time.Unix(1700000000, 0).UTC(), time.Second),
	})
	followsService, err := follows.NewService(follows.ServiceConfig{Store: memStore})
	if err != nil {
		t.Fatalf("unexpected follows service error: %v", err)
	}
	licksService, err := licks.NewService(licks.ServiceConfig{Store: memStore})
	if err != nil {
		t.Fatalf("unexpected licks service error: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Store:   memStore,
		Follows: followsService,
		Licks:   licksService,
		Policy:  policy,
	})
	if err != nil {
		t.Fatalf("unexpected mews service error: %v", err)
	}
	return &testFixture{
		service: service,
		follows: followsService,
		licks:   licksService,
		store:   memStore,
	}
}

func (f *testFixture) mustCreateMew(t *testing.T, author, text string) Mew {
	t.Helper()
	mew, err := f.service.CreateMew(context.Background(), author, CreateMewInput{
		Text:    text,
		MewType: MewType{Kind: MewKindOriginal},
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	return mew
}

func (f *testFixture) mustFollow(t *testing.T, self, target string) {
	t.Helper()
	if err := f.follows.Follow(context.Background(), self, target); err != nil {
		t.Fatalf("unexpected follow error: %v", err)
	}
}
