package memory

import (
	"context"
	"testing"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

func TestPositionStore(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()

	if _, ok, err := store.Restore(ctx, "space-1"); ok || err != nil {
		t.Fatalf("Expected nothing stored, got found=%v err=%v", ok, err)
	}

	if err := store.Save(ctx, "space-1", 3); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if err := store.Save(ctx, "space-1", 7); err != nil {
		t.Fatalf("Failed to overwrite: %v", err)
	}
	if err := store.Save(ctx, "space-2", 1); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	if index, ok, _ := store.Restore(ctx, "space-1"); !ok || index != 7 {
		t.Errorf("Expected 7, got %d (found=%v)", index, ok)
	}

	if err := store.Clear(ctx, "space-1"); err != nil {
		t.Fatalf("Failed to clear: %v", err)
	}
	if _, ok, _ := store.Restore(ctx, "space-1"); ok {
		t.Error("Expected space-1 cleared")
	}
	if index, ok, _ := store.Restore(ctx, "space-2"); !ok || index != 1 {
		t.Errorf("Expected space-2 untouched, got %d (found=%v)", index, ok)
	}

	if err := store.Save(ctx, "space-1", -1); !domain.IsValidationError(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}
