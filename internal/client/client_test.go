package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/amiyamandal-dev/spacesfeed/internal/app/apptest"
	"github.com/amiyamandal-dev/spacesfeed/internal/client"
	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/internal/feed"
	"github.com/amiyamandal-dev/spacesfeed/internal/media"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(apptest.New(t, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL string) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

// signUp registers handle and logs the returned client in as it
func signUp(t *testing.T, baseURL, handle, avatarURL string) (*client.Client, domain.UserSummary) {
	t.Helper()
	c := newClient(t, baseURL)
	ctx := context.Background()

	if _, err := c.Register(ctx, &domain.UserRegisterRequest{
		Handle:    handle,
		Password:  "password123",
		AvatarURL: avatarURL,
	}); err != nil {
		t.Fatalf("Failed to register %s: %v", handle, err)
	}
	resp, err := c.Login(ctx, handle, "password123")
	if err != nil {
		t.Fatalf("Failed to login %s: %v", handle, err)
	}
	return c, resp.User
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFeedControllerOverHTTP(t *testing.T) {
	var mediaHits atomic.Int32
	mediaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaHits.Add(1)
		w.Write([]byte("png"))
	}))
	defer mediaSrv.Close()

	srv := newServer(t)
	c, _ := signUp(t, srv.URL, "alice", mediaSrv.URL+"/avatars/alice.png")

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if _, err := c.PostReaction(ctx, "space-1", &domain.ReactionCreateRequest{Emoji: "👏"}); err != nil {
			t.Fatalf("Failed to post reaction: %v", err)
		}
	}

	warmer, err := media.NewWarmer(media.NewHTTPLoader(c.HTTPClient()), media.DefaultWarmerConfig(), nil)
	if err != nil {
		t.Fatalf("Failed to create warmer: %v", err)
	}
	defer warmer.Close()

	mock := clock.NewMock()
	newController := func() *feed.Controller {
		ctrl, err := feed.NewController("space-1", feed.DefaultOptions(), feed.ControllerDeps{
			Fetcher:    c.ReactionSource("space-1"),
			Positions:  c.Positions(),
			Prefetcher: warmer,
			Clock:      mock,
		})
		if err != nil {
			t.Fatalf("Failed to create controller: %v", err)
		}
		t.Cleanup(ctrl.Close)
		return ctrl
	}

	ctrl := newController()
	ctrl.Activate()
	ctrl.Wait()

	snap := ctrl.Snapshot()
	if len(snap.Items) != 8 || !snap.HasMoreData || snap.Cursor != "8" {
		t.Fatalf("Unexpected first page: %d items, has_more=%v, cursor=%q", len(snap.Items), snap.HasMoreData, snap.Cursor)
	}

	ctrl.ItemVisible(6)
	ctrl.Flush()
	mock.Add(500 * time.Millisecond)
	waitFor(t, "second page", func() bool { return len(ctrl.Snapshot().Items) == 16 })

	ctrl.ItemVisible(14)
	ctrl.Flush()
	mock.Add(500 * time.Millisecond)
	waitFor(t, "last page", func() bool { return len(ctrl.Snapshot().Items) == 20 })
	ctrl.Wait()

	snap = ctrl.Snapshot()
	if snap.HasMoreData {
		t.Error("Expected feed exhausted after 20 reactions")
	}
	for i, item := range snap.Items {
		if item.Position != int64(i+1) {
			t.Fatalf("Expected arrival order, item %d has position %d", i, item.Position)
		}
	}

	warmer.Wait()
	if mediaHits.Load() != 1 {
		t.Errorf("Expected the shared avatar warmed once, got %d loads", mediaHits.Load())
	}

	ctrl.Deactivate()
	ctrl.Wait()

	index, found, err := c.Positions().Restore(ctx, "space-1")
	if err != nil || !found || index != 14 {
		t.Fatalf("Expected stored index 14, got %d found=%v err=%v", index, found, err)
	}

	// a fresh screen only has the first page, so the restore is clamped
	var mu sync.Mutex
	scrolled := -1
	again := newController()
	again.Subscribe(func(e feed.Event) {
		if e.Kind == feed.EventScrollTo {
			mu.Lock()
			scrolled = e.Index
			mu.Unlock()
		}
	})
	again.Activate()
	again.Wait()

	mu.Lock()
	defer mu.Unlock()
	if scrolled != 7 {
		t.Errorf("Expected scroll to clamped index 7, got %d", scrolled)
	}
}

func TestSearchControllerOverHTTP(t *testing.T) {
	srv := newServer(t)
	alice, _ := signUp(t, srv.URL, "alice", "")
	_, bob := signUp(t, srv.URL, "bobcat", "")

	mock := clock.NewMock()
	sc, err := feed.NewSearchController(feed.DefaultOptions(), feed.SearchDeps{
		Fetcher: alice.Users(),
		Follows: alice.Users(),
		Clock:   mock,
	})
	if err != nil {
		t.Fatalf("Failed to create search controller: %v", err)
	}
	defer sc.Close()

	sc.ChangeQuery("bob")
	sc.Flush()
	mock.Add(500 * time.Millisecond)
	waitFor(t, "search results", func() bool { return len(sc.Snapshot().Results) == 1 })

	sc.ToggleFollow(bob.ID)
	sc.Wait()

	if snap := sc.Snapshot(); !snap.Results[0].IsFollowing || snap.Err != nil {
		t.Fatalf("Expected bob followed, got %+v", snap)
	}

	users, err := alice.Users().FetchByQuery(context.Background(), "bobcat")
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(users) != 1 || !users[0].IsFollowing {
		t.Errorf("Expected follow persisted on the server, got %+v", users)
	}
}

func TestClientMapsStatusCodes(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	alice, _ := signUp(t, srv.URL, "alice", "")
	anon := newClient(t, srv.URL)

	_, err := anon.Register(ctx, &domain.UserRegisterRequest{Handle: "alice", Password: "password123"})
	if !errors.Is(err, domain.ErrUserAlreadyExists) || !errors.Is(err, domain.ErrFetchFailed) {
		t.Errorf("Expected conflict, got %v", err)
	}

	_, err = anon.Login(ctx, "alice", "not-the-password")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected unauthorized, got %v", err)
	}

	_, err = anon.PostReaction(ctx, "space-1", &domain.ReactionCreateRequest{Emoji: "👏"})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected unauthorized posting anonymously, got %v", err)
	}

	_, err = alice.ReactionSource("space-1").FetchPage(ctx, "not-a-cursor", 8)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected invalid input for bad cursor, got %v", err)
	}

	_, found, err := alice.Positions().Restore(ctx, "space-9")
	if err != nil || found {
		t.Errorf("Expected missing position reported as not found, got found=%v err=%v", found, err)
	}

	if err := alice.Users().SetFollowing(ctx, "missing", true); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected not found following unknown user, got %v", err)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"success":false,"error":"warming up"}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":{"items":[{"id":"r1","position":1}],"next_cursor":"1","has_more":false}}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	page, err := c.ReactionSource("space-1").FetchPage(context.Background(), "", 8)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
	if len(page.Items) != 1 || page.NextCursor != "1" || page.HasMore {
		t.Errorf("Unexpected page: %+v", page)
	}
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.ReactionSource("space-1").FetchPage(context.Background(), "", 8)
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Errorf("Expected ErrFetchFailed, got %v", err)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	if _, err := client.New(client.Config{BaseURL: "::nope"}, nil); err == nil {
		t.Error("Expected error for invalid base url")
	}
}
