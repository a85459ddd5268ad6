package gallery

import "sync"

// Feed holds the page state for one view variant. The result page is
// replaced wholesale on each successful fetch; a failed fetch leaves the
// previous page in place. Each fetch takes a monotonically increasing token
// so a late response from an older fetch can never overwrite a newer one.
type Feed[T any] struct {
	mu      sync.Mutex
	seq     uint64
	loading bool
	items   []T
	total   int
	page    int
}

// FeedState is a point-in-time copy of a feed.
type FeedState[T any] struct {
	Items      []T  `json:"items"`
	TotalItems int  `json:"totalItems"`
	Page       int  `json:"page"`
	Loading    bool `json:"loading"`
}

// begin marks the feed loading and issues the fetch token.
func (f *Feed[T]) begin() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.loading = true
	return f.seq
}

// apply installs a fetch result. A stale token is discarded and the feed is
// left untouched; returns whether the result was applied.
func (f *Feed[T]) apply(token uint64, items []T, total, page int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token != f.seq {
		return false
	}
	f.loading = false
	f.items = items
	f.total = total
	f.page = page
	return true
}

// fail clears the loading flag if the failed fetch is still the latest one.
// The previous page state is kept either way.
func (f *Feed[T]) fail(token uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == f.seq {
		f.loading = false
	}
}

// State returns a copy of the feed's current state.
func (f *Feed[T]) State() FeedState[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]T, len(f.items))
	copy(items, f.items)
	return FeedState[T]{
		Items:      items,
		TotalItems: f.total,
		Page:       f.page,
		Loading:    f.loading,
	}
}
