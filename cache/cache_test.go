package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/richinex/scribe/model"
	"github.com/richinex/scribe/storage"
)

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store unreachable")
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("store unreachable")
}

func TestCacheMissOnAbsent(t *testing.T) {
	c := New(storage.NewMemoryStore(), nil)

	if _, ok := c.Get(context.Background(), "absent"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c := New(storage.NewMemoryStore(), nil)
	ctx := context.Background()

	resp := &model.Response{
		Content:  "cached answer",
		Model:    "gpt-4o",
		Provider: "openai",
		Usage:    model.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		OptimizationInfo: model.OptimizationInfo{
			Reason: "Within token limit",
			Method: model.OptimizationNone,
		},
	}
	c.Set(ctx, "k1", resp)

	got, ok := c.Get(ctx, "k1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Content != "cached answer" {
		t.Errorf("content lost: %q", got.Content)
	}
	if got.Usage.TotalTokens != 15 {
		t.Errorf("usage lost: %+v", got.Usage)
	}
	if got.OptimizationInfo.Reason != "Within token limit" {
		t.Errorf("optimization info lost: %+v", got.OptimizationInfo)
	}
}

func TestCacheStoreFailureIsMiss(t *testing.T) {
	c := New(failingStore{}, nil)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "any"); ok {
		t.Error("store failure must read as a miss")
	}

	// Write failure must not panic or surface an error.
	c.Set(ctx, "any", &model.Response{Content: "x"})
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, "bad", "{not json"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	c := New(store, nil)
	if _, ok := c.Get(ctx, "bad"); ok {
		t.Error("corrupt entry must read as a miss")
	}
}
