package catalog

import (
	"slices"
	"sync"
	"time"
)

type FavoriteProduct struct {
	FoodProduct
	AddedAt time.Time `json:"addedAt"`
}

// FavoritesState is the persisted form of Favorites.
type FavoritesState struct {
	Items map[string]FavoriteProduct `json:"items"`
	Order []string                   `json:"order"`
}

// Favorites keeps starred products, most recently added first.
type Favorites struct {
	mu       sync.Mutex
	items    map[string]FavoriteProduct
	order    []string
	now      func() time.Time
	onChange func(FavoritesState)
}

func NewFavorites() *Favorites {
	return &Favorites{
		items: make(map[string]FavoriteProduct),
		now:   time.Now,
	}
}

func (f *Favorites) OnChange(fn func(FavoritesState)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = fn
}

// Add stars p and moves it to the front. Re-adding keeps the first AddedAt.
func (f *Favorites) Add(p FoodProduct) {
	f.mu.Lock()
	defer f.mu.Unlock()

	addedAt := f.now().UTC()
	if existing, ok := f.items[p.ID]; ok {
		addedAt = existing.AddedAt
	}
	f.items[p.ID] = FavoriteProduct{FoodProduct: p.clone(), AddedAt: addedAt}
	f.order = slices.DeleteFunc(f.order, func(id string) bool { return id == p.ID })
	f.order = slices.Insert(f.order, 0, p.ID)
	f.changed()
}

func (f *Favorites) Remove(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return false
	}
	delete(f.items, id)
	f.order = slices.DeleteFunc(f.order, func(o string) bool { return o == id })
	f.changed()
	return true
}

func (f *Favorites) IsFavorite(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[id]
	return ok
}

// List returns favorites in display order.
func (f *Favorites) List() []FavoriteProduct {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FavoriteProduct, 0, len(f.order))
	for _, id := range f.order {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out
}

func (f *Favorites) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = make(map[string]FavoriteProduct)
	f.order = nil
	f.changed()
}

func (f *Favorites) State() FavoritesState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

// Load restores persisted favorites. Ids in Order without an item are dropped.
func (f *Favorites) Load(state FavoritesState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = make(map[string]FavoriteProduct, len(state.Items))
	for id, item := range state.Items {
		f.items[id] = item
	}
	f.order = f.order[:0]
	for _, id := range state.Order {
		if _, ok := f.items[id]; ok && !slices.Contains(f.order, id) {
			f.order = append(f.order, id)
		}
	}
}

func (f *Favorites) stateLocked() FavoritesState {
	items := make(map[string]FavoriteProduct, len(f.items))
	for id, item := range f.items {
		items[id] = item
	}
	return FavoritesState{Items: items, Order: slices.Clone(f.order)}
}

func (f *Favorites) changed() {
	if f.onChange != nil {
		f.onChange(f.stateLocked())
	}
}
