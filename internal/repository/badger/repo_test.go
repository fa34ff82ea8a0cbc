package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

func setupDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserRepoCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(setupDB(t))

	user := &domain.User{
		ID:           "u1",
		Handle:       "Alice",
		DisplayName:  "Alice A",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	got, err := repo.GetByHandle(ctx, "alice")
	if err != nil {
		t.Fatalf("Failed to get by handle: %v", err)
	}
	if got.ID != "u1" || got.PasswordHash != "hash" {
		t.Errorf("Expected stored user with password hash, got %+v", got)
	}

	dup := &domain.User{ID: "u2", Handle: "ALICE", PasswordHash: "x"}
	if err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("Expected ErrUserAlreadyExists, got %v", err)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepoUpdateMovesHandleIndex(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(setupDB(t))

	user := &domain.User{ID: "u1", Handle: "alice", PasswordHash: "h"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	user.Handle = "alice_2"
	if err := repo.Update(ctx, user); err != nil {
		t.Fatalf("Failed to update user: %v", err)
	}

	if exists, _ := repo.ExistsByHandle(ctx, "alice"); exists {
		t.Error("Expected old handle to be released")
	}
	if exists, _ := repo.ExistsByHandle(ctx, "alice_2"); !exists {
		t.Error("Expected new handle to be indexed")
	}

	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Failed to delete user: %v", err)
	}
	if exists, _ := repo.ExistsByHandle(ctx, "alice_2"); exists {
		t.Error("Expected handle index removed with the user")
	}
}

func TestUserRepoList(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(setupDB(t))

	for i := 0; i < 3; i++ {
		u := &domain.User{ID: fmt.Sprintf("u%d", i), Handle: fmt.Sprintf("user_%d", i), PasswordHash: "h"}
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}
	}

	var ids []string
	err := repo.List(ctx, func(u *domain.User) error {
		ids = append(ids, u.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to list users: %v", err)
	}
	if len(ids) != 3 || ids[0] != "u0" || ids[2] != "u2" {
		t.Errorf("Expected u0..u2 in order, got %v", ids)
	}
}

func TestReactionRepoPagesInArrivalOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewReactionRepo(setupDB(t))

	for i := 0; i < 20; i++ {
		r := &domain.Reaction{ID: fmt.Sprintf("r%d", i), SpaceID: "s1", UserID: "u1", Emoji: "🔥"}
		if err := repo.Append(ctx, r); err != nil {
			t.Fatalf("Failed to append reaction: %v", err)
		}
		if r.Seq != int64(i+1) {
			t.Fatalf("Expected seq %d, got %d", i+1, r.Seq)
		}
	}
	// another space must not leak into s1
	if err := repo.Append(ctx, &domain.Reaction{ID: "x", SpaceID: "s10", UserID: "u1", Emoji: "👍"}); err != nil {
		t.Fatalf("Failed to append reaction: %v", err)
	}

	page, hasMore, err := repo.ListAfter(ctx, "s1", 0, 8)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(page) != 8 || !hasMore || page[0].ID != "r0" || page[7].ID != "r7" {
		t.Fatalf("Unexpected first page: %d items, hasMore=%v", len(page), hasMore)
	}

	page, hasMore, err = repo.ListAfter(ctx, "s1", page[7].Seq, 8)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(page) != 8 || !hasMore || page[0].ID != "r8" {
		t.Fatalf("Unexpected second page: %d items, first %s", len(page), page[0].ID)
	}

	page, hasMore, err = repo.ListAfter(ctx, "s1", 16, 8)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(page) != 4 || hasMore {
		t.Errorf("Expected final page of 4 without more, got %d / %v", len(page), hasMore)
	}

	count, err := repo.Count(ctx, "s1")
	if err != nil || count != 20 {
		t.Errorf("Expected count 20, got %d (%v)", count, err)
	}
}

func TestReactionRepoConcurrentAppendsGetDistinctSeqs(t *testing.T) {
	ctx := context.Background()
	repo := NewReactionRepo(setupDB(t))

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.Append(ctx, &domain.Reaction{ID: fmt.Sprintf("r%d", i), SpaceID: "s1", UserID: "u", Emoji: "👏"})
		}(i)
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		if err != nil {
			failed++
		}
	}

	count, err := repo.Count(ctx, "s1")
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != n-failed {
		t.Errorf("Expected %d stored reactions, got %d", n-failed, count)
	}

	page, _, err := repo.ListAfter(ctx, "s1", 0, n)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	seen := make(map[int64]bool)
	for _, r := range page {
		if seen[r.Seq] {
			t.Fatalf("Duplicate seq %d", r.Seq)
		}
		seen[r.Seq] = true
	}
}

func TestFollowRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewFollowRepo(setupDB(t))

	if err := repo.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("Failed to follow: %v", err)
	}
	if err := repo.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("Follow should be idempotent: %v", err)
	}
	if err := repo.Follow(ctx, "c", "b"); err != nil {
		t.Fatalf("Failed to follow: %v", err)
	}

	if ok, _ := repo.IsFollowing(ctx, "a", "b"); !ok {
		t.Error("Expected a to follow b")
	}
	if ok, _ := repo.IsFollowing(ctx, "b", "a"); ok {
		t.Error("Expected follow to be directional")
	}

	set, err := repo.FollowingSet(ctx, "a", []string{"b", "c", "d"})
	if err != nil {
		t.Fatalf("Failed to get following set: %v", err)
	}
	if !set["b"] || set["c"] || set["d"] {
		t.Errorf("Unexpected following set: %v", set)
	}

	if n, _ := repo.CountFollowers(ctx, "b"); n != 2 {
		t.Errorf("Expected 2 followers, got %d", n)
	}

	if err := repo.Unfollow(ctx, "a", "b"); err != nil {
		t.Fatalf("Failed to unfollow: %v", err)
	}
	if ok, _ := repo.IsFollowing(ctx, "a", "b"); ok {
		t.Error("Expected edge removed")
	}
	if n, _ := repo.CountFollowers(ctx, "b"); n != 1 {
		t.Errorf("Expected 1 follower, got %d", n)
	}
}

func TestPositionRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewPositionRepo(setupDB(t))

	if _, err := repo.Get(ctx, "u1", "space-1"); !errors.Is(err, domain.ErrPositionNotFound) {
		t.Fatalf("Expected ErrPositionNotFound, got %v", err)
	}

	if err := repo.Put(ctx, "u1", &domain.ScrollPosition{FeedKey: "space-1", Index: 4}); err != nil {
		t.Fatalf("Failed to put: %v", err)
	}
	if err := repo.Put(ctx, "u1", &domain.ScrollPosition{FeedKey: "space-1", Index: 9}); err != nil {
		t.Fatalf("Failed to overwrite: %v", err)
	}

	pos, err := repo.Get(ctx, "u1", "space-1")
	if err != nil || pos.Index != 9 {
		t.Fatalf("Expected index 9, got %+v (%v)", pos, err)
	}

	if _, err := repo.Get(ctx, "u2", "space-1"); !errors.Is(err, domain.ErrPositionNotFound) {
		t.Errorf("Expected positions scoped per owner, got %v", err)
	}

	if err := repo.Put(ctx, "u1", &domain.ScrollPosition{FeedKey: "space-1", Index: -1}); !domain.IsValidationError(err) {
		t.Errorf("Expected validation error for negative index, got %v", err)
	}

	if err := repo.Delete(ctx, "u1", "space-1"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := repo.Delete(ctx, "u1", "space-1"); err != nil {
		t.Fatalf("Delete of missing entry should succeed: %v", err)
	}
	if _, err := repo.Get(ctx, "u1", "space-1"); !errors.Is(err, domain.ErrPositionNotFound) {
		t.Errorf("Expected ErrPositionNotFound after delete, got %v", err)
	}
}
