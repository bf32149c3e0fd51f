package settings

import (
	"slices"
	"sync"
)

// Holder owns the live settings of the session.
type Holder struct {
	mu       sync.Mutex
	current  Settings
	onChange func(Settings)
}

func NewHolder(initial Settings) *Holder {
	return &Holder{current: Normalize(initial)}
}

func (h *Holder) OnChange(fn func(Settings)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

func (h *Holder) Get() Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return clone(h.current)
}

// Replace swaps all settings, normalising them first.
func (h *Holder) Replace(s Settings) {
	h.set(Normalize(s))
}

// Update merges a partial update. An empty meal list keeps the current meals.
func (h *Holder) Update(p Partial) Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = p.Apply(h.current)
	h.changed()
	return clone(h.current)
}

func (h *Holder) UpdateTargets(t PartialTargets) Settings {
	return h.Update(Partial{DailyTargets: &t})
}

func (h *Holder) SetTheme(theme Theme) Settings {
	return h.Update(Partial{Theme: &theme})
}

// SetMeals replaces the meal list; an empty list is ignored.
func (h *Holder) SetMeals(meals []string) Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(meals) > 0 {
		h.current.Meals = slices.Clone(meals)
		h.changed()
	}
	return clone(h.current)
}

func (h *Holder) set(s Settings) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = s
	h.changed()
}

func (h *Holder) changed() {
	if h.onChange != nil {
		h.onChange(clone(h.current))
	}
}
