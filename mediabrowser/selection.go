package mediabrowser

// Selection is an immutable set of picked assets keyed by asset ID.
// Insertion order is kept so the host receives assets in the order
// they were picked.
type Selection struct {
	order []string
	byID  map[string]Asset
}

// NewSelection builds a selection from assets, dropping duplicate IDs.
func NewSelection(assets ...Asset) Selection {
	var s Selection
	for _, a := range assets {
		s = s.with(a)
	}
	return s
}

// Contains reports whether the asset with id is selected.
func (s Selection) Contains(id string) bool {
	_, ok := s.byID[id]
	return ok
}

func (s Selection) Len() int {
	return len(s.order)
}

// Assets returns the selected assets in pick order.
func (s Selection) Assets() []Asset {
	out := make([]Asset, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s Selection) clone() Selection {
	c := Selection{
		order: make([]string, len(s.order)),
		byID:  make(map[string]Asset, len(s.byID)+1),
	}
	copy(c.order, s.order)
	for k, v := range s.byID {
		c.byID[k] = v
	}
	return c
}

func (s Selection) with(assets ...Asset) Selection {
	c := s.clone()
	for _, a := range assets {
		if a.ID == "" {
			continue
		}
		if _, ok := c.byID[a.ID]; !ok {
			c.order = append(c.order, a.ID)
		}
		c.byID[a.ID] = a
	}
	return c
}

func (s Selection) without(id string) Selection {
	if !s.Contains(id) {
		return s
	}
	c := s.clone()
	delete(c.byID, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return c
}

// idSet is the per-render membership index handed to cards
type idSet map[string]struct{}

func newIDSet(assets []Asset) idSet {
	set := make(idSet, len(assets))
	for _, a := range assets {
		set[a.ID] = struct{}{}
	}
	return set
}

func (s idSet) has(id string) bool {
	if id == "" {
		return false
	}
	_, ok := s[id]
	return ok
}
