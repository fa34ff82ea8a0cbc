package feed

import (
	"time"

	"github.com/amiyamandal-dev/spacesfeed/internal/validator"
)

// Options tune a controller. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	// PageSize is the number of items requested per fetch
	PageSize int `validate:"min=1,max=100"`

	// PrefetchAhead and PrefetchBehind size the warm-up neighborhood
	// around the visible item.
	PrefetchAhead  int `validate:"min=0,max=20"`
	PrefetchBehind int `validate:"min=0,max=20"`

	// LoadMoreThreshold is how close to the end a visible item must be
	// to trigger the next page.
	LoadMoreThreshold int `validate:"min=1"`

	LoadMoreDebounce time.Duration `validate:"mindur=0s"`
	SearchDebounce   time.Duration `validate:"mindur=0s"`
	FetchTimeout     time.Duration `validate:"mindur=1ms"`

	// MailboxSize is the initial capacity of the owner loop queue
	MailboxSize int `validate:"min=1"`
}

// DefaultOptions returns the tuning used by the reactions feed screen
func DefaultOptions() Options {
	return Options{
		PageSize:          8,
		PrefetchAhead:     3,
		PrefetchBehind:    2,
		LoadMoreThreshold: 3,
		LoadMoreDebounce:  500 * time.Millisecond,
		SearchDebounce:    500 * time.Millisecond,
		FetchTimeout:      15 * time.Second,
		MailboxSize:       64,
	}
}

// Validate checks the option ranges
func (o Options) Validate() error {
	return validator.ValidateStruct(o)
}

// Neighborhood returns the indices to warm around index: up to ahead
// items after it, then up to behind items before it. Indices outside
// [0, n) are skipped.
func Neighborhood(index, n, ahead, behind int) []int {
	out := make([]int, 0, ahead+behind)
	for i := index + 1; i <= index+ahead; i++ {
		if i >= 0 && i < n {
			out = append(out, i)
		}
	}
	for i := index - behind; i < index; i++ {
		if i >= 0 && i < n {
			out = append(out, i)
		}
	}
	return out
}

// clampIndex bounds index to [0, n-1]; n must be positive
func clampIndex(index, n int) int {
	if index < 0 {
		return 0
	}
	if index >= n {
		return n - 1
	}
	return index
}
