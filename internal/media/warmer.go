package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

// Loader fetches a media resource so that later reads are served warm
type Loader interface {
	Load(ctx context.Context, url string) error
}

// WarmerConfig tunes a Warmer
type WarmerConfig struct {
	// CacheSize is how many warmed URLs are remembered
	CacheSize int `mapstructure:"cache_size" validate:"min=1"`
	// Concurrency bounds simultaneous loads; hints beyond it are dropped
	Concurrency int `mapstructure:"concurrency" validate:"min=1,max=64"`
	// Timeout bounds a single load
	Timeout time.Duration `mapstructure:"timeout" validate:"mindur=1ms"`
}

// DefaultWarmerConfig returns the settings used by the feed screen
func DefaultWarmerConfig() WarmerConfig {
	return WarmerConfig{
		CacheSize:   256,
		Concurrency: 4,
		Timeout:     10 * time.Second,
	}
}

// Warmer turns prefetch hints into background loads of the items' media.
// Prefetch never blocks and never reports failures to the caller.
type Warmer struct {
	loader  Loader
	timeout time.Duration
	warmed  *lru.Cache[string, struct{}]
	group   errgroup.Group
	logger  *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWarmer creates a warmer backed by loader
func NewWarmer(loader Loader, cfg WarmerConfig, log *logger.Logger) (*Warmer, error) {
	if cfg.CacheSize < 1 || cfg.Concurrency < 1 || cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid warmer config: %+v", cfg)
	}
	if log == nil {
		log = logger.NewNop()
	}

	warmed, err := lru.New[string, struct{}](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create warm cache: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Warmer{
		loader:  loader,
		timeout: cfg.Timeout,
		warmed:  warmed,
		logger:  log.WithComponent("media-warmer"),
		ctx:     ctx,
		cancel:  cancel,
	}
	w.group.SetLimit(cfg.Concurrency)

	return w, nil
}

// Prefetch starts loading the media of items that have not been warmed yet
func (w *Warmer) Prefetch(items []domain.FeedItem) {
	for _, item := range items {
		url := item.MediaURL
		if url == "" {
			continue
		}
		if seen, _ := w.warmed.ContainsOrAdd(url, struct{}{}); seen {
			continue
		}

		if !w.group.TryGo(func() error {
			w.load(url)
			return nil
		}) {
			// saturated; a later hint will retry
			w.warmed.Remove(url)
			w.logger.Debug("Dropped prefetch hint", "url", url)
		}
	}
}

func (w *Warmer) load(url string) {
	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()

	if err := w.loader.Load(ctx, url); err != nil {
		w.warmed.Remove(url)
		w.logger.Debug("Media prefetch failed", "url", url, "error", err)
		return
	}
	w.logger.Debug("Media warmed", "url", url)
}

// IsWarm reports whether url has been loaded or is loading
func (w *Warmer) IsWarm(url string) bool {
	return w.warmed.Contains(url)
}

// Wait blocks until every started load has finished
func (w *Warmer) Wait() {
	_ = w.group.Wait()
}

// Close cancels in-flight loads and waits for them
func (w *Warmer) Close() {
	w.cancel()
	w.Wait()
}

// HTTPLoader loads media over HTTP and discards the body
type HTTPLoader struct {
	client *retryablehttp.Client
}

// NewHTTPLoader creates a loader on the given client
func NewHTTPLoader(client *retryablehttp.Client) *HTTPLoader {
	return &HTTPLoader{client: client}
}

// Load issues a GET for url and drains the response
func (l *HTTPLoader) Load(ctx context.Context, url string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build media request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to load media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("failed to load media: status %d", resp.StatusCode)
	}
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}
