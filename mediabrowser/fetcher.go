package mediabrowser

import (
	"context"
	"errors"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/rs/zerolog"
)

// fetcher keeps the loaded pages in step with the query held by the store.
// Source calls run on their own goroutine, results come back through
// runOnMain and are dropped when a newer fetch has started since.
type fetcher struct {
	store     *Store
	source    AssetSource
	log       zerolog.Logger
	runOnMain func(func())

	mu         sync.Mutex
	cancel     context.CancelFunc
	generation int

	ctx         context.Context
	stopCtx     context.CancelFunc
	unsubscribe func()

	// main thread only
	ready        bool
	stopped      bool
	fetched      bool
	lastKey      queryKey
	lastPage     int
	lastRendered int
}

func newFetcher(store *Store, source AssetSource, log zerolog.Logger) *fetcher {
	return &fetcher{
		store:        store,
		source:       source,
		log:          log,
		runOnMain:    fyne.Do,
		lastRendered: -1,
	}
}

// start loads the filter list and then the first page.
func (f *fetcher) start() {
	f.ctx, f.stopCtx = context.WithCancel(context.Background())
	f.unsubscribe = f.store.Subscribe(func(_, next State) {
		f.sync(next)
	})

	if f.source == nil {
		f.ready = true
		return
	}

	ctx := f.ctx
	go func() {
		filters, err := f.source.Filters(ctx)
		f.runOnMain(func() {
			if f.stopped {
				return
			}
			if err != nil {
				f.log.Warn().Err(err).Msg("could not load asset filters")
			} else {
				f.store.Dispatch(AssetsSetFilters(filters))
			}
			f.ready = true
			f.sync(f.store.State())
		})
	}()
}

func (f *fetcher) stop() {
	if f.stopped {
		return
	}
	f.stopped = true
	if f.unsubscribe != nil {
		f.unsubscribe()
	}
	if f.stopCtx != nil {
		f.stopCtx()
	}

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.generation++
	f.mu.Unlock()
}

func (f *fetcher) sync(s State) {
	if !f.ready || f.stopped {
		return
	}

	key, page := s.Assets.queryKey(), s.Assets.PageIndex
	if f.fetched && key == f.lastKey && page == f.lastPage {
		return
	}
	if key != f.lastKey {
		f.lastRendered = -1
	}
	f.fetched = true
	f.lastKey, f.lastPage = key, page
	f.fetch(s.Assets.Query())
}

func (f *fetcher) current(gen int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return gen == f.generation
}

func (f *fetcher) fetch(q Query) {
	if f.source == nil {
		return
	}

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(f.ctx)
	f.cancel = cancel
	f.generation++
	gen := f.generation
	f.mu.Unlock()

	f.store.Dispatch(assetsFetchStarted{pageIndex: q.PageIndex})
	f.log.Debug().
		Str("search", q.Search).
		Str("order", q.Order.Value).
		Int("page", q.PageIndex).
		Msg("fetching assets")

	go func() {
		defer cancel()
		page, err := f.source.Fetch(ctx, q)
		f.runOnMain(func() {
			if f.stopped || !f.current(gen) {
				f.log.Debug().Int("page", q.PageIndex).Msg("dropping stale asset page")
				return
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				f.log.Warn().Err(err).Int("page", q.PageIndex).Msg("asset fetch failed")
				f.store.Dispatch(assetsFetchFailed{pageIndex: q.PageIndex, err: err})
				return
			}
			f.store.Dispatch(assetsFetchCompleted{pageIndex: q.PageIndex, page: page})
			f.maybeLoadMore()
		})
	}()
}

// rendered records the highest index on screen and asks for the next page
// when it reaches past the loaded items.
func (f *fetcher) rendered(lastIndex int) {
	f.lastRendered = lastIndex
	f.maybeLoadMore()
}

func (f *fetcher) maybeLoadMore() {
	if f.stopped || f.lastRendered < 0 {
		return
	}
	a := f.store.State().Assets
	if a.Fetching || !a.HasMore() || a.Err != nil {
		return
	}
	if f.lastRendered >= len(a.Items)-1 {
		f.store.Dispatch(AssetsLoadNextPage())
	}
}
