package mediabrowser

import (
	"sync"
)

// State is the shared browser state read by the header and the views.
type State struct {
	Document *Document
	Assets   AssetsState
}

// AssetsState holds everything about the current asset listing.
type AssetsState struct {
	Fetching  bool
	Err       error
	View      ViewMode
	Filters   []Filter
	Filter    *Filter
	Orders    []Order
	Order     Order
	Search    string
	PageIndex int
	PageSize  int
	Items     []Item
	Total     int

	Selected   Selection
	LastPicked string

	// Revision is bumped to force a reload of the same query
	Revision int
}

// HasMore reports whether the source holds more items than are loaded.
func (a AssetsState) HasMore() bool {
	return len(a.Items) < a.Total
}

// Query returns the page request for the current state.
func (a AssetsState) Query() Query {
	q := Query{
		Search:    a.Search,
		Order:     a.Order,
		PageIndex: a.PageIndex,
		PageSize:  a.PageSize,
	}
	if a.Filter != nil {
		f := *a.Filter
		q.Filter = &f
	}
	return q
}

type queryKey struct {
	search    string
	filter    string
	hasFilter bool
	order     string
	revision  int
}

func (a AssetsState) queryKey() queryKey {
	k := queryKey{search: a.Search, order: a.Order.Value, revision: a.Revision}
	if a.Filter != nil {
		k.filter = a.Filter.Value
		k.hasFilter = true
	}
	return k
}

func (a *AssetsState) resetPaging() {
	a.PageIndex = 0
	a.Items = nil
	a.Total = 0
	a.Err = nil
}

// Intent is a requested state change. Intents are applied by the Store in
// the order they were dispatched.
type Intent interface {
	apply(s *State)
}

// Store serializes intents and notifies subscribers after each one.
type Store struct {
	mu          sync.Mutex
	state       State
	queue       []Intent
	dispatching bool

	subs    map[int]func(prev, next State)
	subIDs  []int
	nextSub int
}

func NewStore(initial State) *Store {
	return &Store{
		state: initial,
		subs:  make(map[int]func(prev, next State)),
	}
}

// State returns a snapshot of the current state. Slices inside the
// snapshot are never mutated by the store.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch queues in and applies it. An intent dispatched from a subscriber
// is applied after the current notification round completes.
func (s *Store) Dispatch(in Intent) {
	if in == nil {
		return
	}

	s.mu.Lock()
	s.queue = append(s.queue, in)
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true

	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]

		prev := s.state
		cur := prev
		next.apply(&cur)
		s.state = cur

		subs := make([]func(prev, next State), 0, len(s.subIDs))
		for _, id := range s.subIDs {
			subs = append(subs, s.subs[id])
		}

		s.mu.Unlock()
		for _, fn := range subs {
			fn(prev, cur)
		}
		s.mu.Lock()
	}

	s.dispatching = false
	s.mu.Unlock()
}

// Subscribe registers fn and returns a function removing it again.
func (s *Store) Subscribe(fn func(prev, next State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subIDs = append(s.subIDs, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			for i, v := range s.subIDs {
				if v == id {
					s.subIDs = append(s.subIDs[:i:i], s.subIDs[i+1:]...)
					break
				}
			}
		})
	}
}

// Intents

type setViewIntent struct{ view ViewMode }

// AssetsSetView switches between grid and table.
func AssetsSetView(view ViewMode) Intent { return setViewIntent{view: view} }

func (i setViewIntent) apply(s *State) {
	if i.view != GridView && i.view != TableView {
		return
	}
	s.Assets.View = i.view
}

type setFilterIntent struct{ filter Filter }

// AssetsSetFilter activates filter and restarts paging.
func AssetsSetFilter(filter Filter) Intent { return setFilterIntent{filter: filter} }

func (i setFilterIntent) apply(s *State) {
	if s.Assets.Filter != nil && *s.Assets.Filter == i.filter {
		return
	}
	f := i.filter
	s.Assets.Filter = &f
	s.Assets.resetPaging()
}

type setOrderIntent struct{ order Order }

// AssetsSetOrder activates order and restarts paging.
func AssetsSetOrder(order Order) Intent { return setOrderIntent{order: order} }

func (i setOrderIntent) apply(s *State) {
	if s.Assets.Order == i.order {
		return
	}
	s.Assets.Order = i.order
	s.Assets.resetPaging()
}

type setSearchIntent struct{ query string }

// AssetsSetSearch sets the free text query.
func AssetsSetSearch(query string) Intent { return setSearchIntent{query: query} }

func (i setSearchIntent) apply(s *State) {
	if s.Assets.Search == i.query {
		return
	}
	s.Assets.Search = i.query
	s.Assets.resetPaging()
}

type setFiltersIntent struct{ filters []Filter }

// AssetsSetFilters replaces the available filters. The first filter becomes
// active when none is.
func AssetsSetFilters(filters []Filter) Intent {
	return setFiltersIntent{filters: append([]Filter(nil), filters...)}
}

func (i setFiltersIntent) apply(s *State) {
	s.Assets.Filters = i.filters
	if s.Assets.Filter == nil && len(i.filters) > 0 {
		f := i.filters[0]
		s.Assets.Filter = &f
		s.Assets.resetPaging()
	}
}

type loadNextPageIntent struct{}

// AssetsLoadNextPage advances the page cursor when more items exist.
func AssetsLoadNextPage() Intent { return loadNextPageIntent{} }

func (loadNextPageIntent) apply(s *State) {
	if s.Assets.Fetching || !s.Assets.HasMore() {
		return
	}
	s.Assets.PageIndex++
}

type refreshIntent struct{}

// AssetsRefresh reloads the current query from the first page.
func AssetsRefresh() Intent { return refreshIntent{} }

func (refreshIntent) apply(s *State) {
	s.Assets.Revision++
	s.Assets.resetPaging()
}

type pickIntent struct {
	asset  Asset
	picked bool
}

// AssetsPick adds or removes a single asset from the selection.
func AssetsPick(asset Asset, picked bool) Intent { return pickIntent{asset: asset, picked: picked} }

func (i pickIntent) apply(s *State) {
	if i.picked {
		s.Assets.Selected = s.Assets.Selected.with(i.asset)
		s.Assets.LastPicked = i.asset.ID
		return
	}
	s.Assets.Selected = s.Assets.Selected.without(i.asset.ID)
}

type pickRangeIntent struct{ asset Asset }

// AssetsPickRange picks every loaded item between the last picked asset
// and asset, inclusive.
func AssetsPickRange(asset Asset) Intent { return pickRangeIntent{asset: asset} }

func (i pickRangeIntent) apply(s *State) {
	from, to := -1, -1
	for idx, it := range s.Assets.Items {
		if it.Asset.ID == s.Assets.LastPicked && s.Assets.LastPicked != "" {
			from = idx
		}
		if it.Asset.ID == i.asset.ID {
			to = idx
		}
	}
	if from < 0 || to < 0 {
		pickIntent{asset: i.asset, picked: true}.apply(s)
		return
	}
	if from > to {
		from, to = to, from
	}

	assets := make([]Asset, 0, to-from+1)
	for _, it := range s.Assets.Items[from : to+1] {
		assets = append(assets, it.Asset)
	}
	s.Assets.Selected = s.Assets.Selected.with(assets...)
	s.Assets.LastPicked = i.asset.ID
}

type pickSetIntent struct{ assets []Asset }

// AssetsPickSet replaces the selection.
func AssetsPickSet(assets []Asset) Intent {
	return pickSetIntent{assets: append([]Asset(nil), assets...)}
}

func (i pickSetIntent) apply(s *State) {
	s.Assets.Selected = NewSelection(i.assets...)
	if len(i.assets) > 0 {
		s.Assets.LastPicked = i.assets[len(i.assets)-1].ID
	}
}

type pickClearIntent struct{}

// AssetsPickClear empties the selection.
func AssetsPickClear() Intent { return pickClearIntent{} }

func (pickClearIntent) apply(s *State) {
	s.Assets.Selected = Selection{}
	s.Assets.LastPicked = ""
}

type documentSetIntent struct{ doc *Document }

// DocumentSet sets or clears the document assets are inserted into.
func DocumentSet(doc *Document) Intent {
	if doc == nil {
		return documentSetIntent{}
	}
	d := *doc
	return documentSetIntent{doc: &d}
}

func (i documentSetIntent) apply(s *State) {
	s.Document = i.doc
}

// fetch lifecycle, dispatched by the fetcher only

type assetsFetchStarted struct{ pageIndex int }

func (i assetsFetchStarted) apply(s *State) {
	if i.pageIndex != s.Assets.PageIndex {
		return
	}
	s.Assets.Fetching = true
	s.Assets.Err = nil
}

type assetsFetchCompleted struct {
	pageIndex int
	page      Page
}

func (i assetsFetchCompleted) apply(s *State) {
	if i.pageIndex != s.Assets.PageIndex {
		return
	}
	s.Assets.Fetching = false
	s.Assets.Err = nil

	var items []Item
	if i.pageIndex > 0 {
		items = make([]Item, len(s.Assets.Items), len(s.Assets.Items)+len(i.page.Assets))
		copy(items, s.Assets.Items)
	}
	for _, a := range i.page.Assets {
		items = append(items, Item{Asset: a})
	}
	s.Assets.Items = items
	s.Assets.Total = max(i.page.Total, len(items))
	// an empty page means the source ran out, whatever total it claims
	if len(i.page.Assets) == 0 {
		s.Assets.Total = len(items)
	}
}

type assetsFetchFailed struct {
	pageIndex int
	err       error
}

func (i assetsFetchFailed) apply(s *State) {
	if i.pageIndex != s.Assets.PageIndex {
		return
	}
	s.Assets.Fetching = false
	s.Assets.Err = i.err
}

type assetsReset struct {
	doc      *Document
	orders   []Order
	pageSize int
	view     ViewMode
}

func (i assetsReset) apply(s *State) {
	revision := s.Assets.Revision + 1
	view := i.view
	if view != TableView {
		view = GridView
	}
	pageSize := i.pageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	*s = State{
		Document: i.doc,
		Assets: AssetsState{
			View:     view,
			Orders:   i.orders,
			PageSize: pageSize,
			Revision: revision,
		},
	}
	if len(i.orders) > 0 {
		s.Assets.Order = i.orders[0]
	}
}
