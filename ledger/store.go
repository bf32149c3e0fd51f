package ledger

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-diary/nutrition"
)

// Store owns the ledger. Every read and write of entries and totals goes
// through it, and every mutation recomputes the affected totals before the
// lock is released.
type Store struct {
	mu          sync.Mutex
	logs        map[string]*DayLog
	currentDate string
	now         func() time.Time
	newID       func() string
	listeners   []Listener
}

type StoreOption func(*Store)

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) {
		s.newID = newID
	}
}

func WithCurrentDate(date string) StoreOption {
	return func(s *Store) {
		s.currentDate = date
	}
}

func WithListener(l Listener) StoreOption {
	return func(s *Store) {
		s.listeners = append(s.listeners, l)
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		logs:  make(map[string]*DayLog),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.currentDate == "" {
		s.currentDate = DateID(s.now())
	}
	return s
}

// Subscribe adds a listener after construction.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) SetDate(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentDate = date
}

func (s *Store) CurrentDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentDate
}

// Day returns a copy of the log for date (the current date when empty).
func (s *Store) Day(date string) (DayLog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[s.resolve(date)]
	if !ok {
		return DayLog{}, false
	}
	return log.clone(), true
}

// Logs returns a deep copy of the whole ledger.
func (s *Store) Logs() Logs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Load replaces the ledger with persisted data. Totals are recomputed so a
// stale or hand-edited payload can't break the totals invariant.
func (s *Store) Load(logs Logs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = make(map[string]*DayLog, len(logs))
	dates := make([]string, 0, len(logs))
	for date, l := range logs {
		c := l.clone()
		if c.Date == "" {
			c.Date = date
		}
		for i := range c.Entries {
			c.Entries[i].Nutrients = nutrition.Fill(c.Entries[i].Nutrients)
		}
		c.recomputeTotals()
		s.logs[date] = &c
		dates = append(dates, date)
	}
	slices.Sort(dates)
	s.notify(Change{Kind: LogsLoaded, Dates: dates})
}

// UpsertEntry saves an entry on in.Date (the current date when empty). An
// existing entry with the same id is replaced in place and keeps its
// original CreatedAt.
func (s *Store) UpsertEntry(in UpsertInput) MealEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := in.ID
	if id == "" {
		id = s.newID()
	}
	date := s.resolve(in.Date)
	log := s.ensure(date)

	createdAt := in.CreatedAt
	existing := log.indexOf(id)
	if existing >= 0 && !log.Entries[existing].CreatedAt.IsZero() {
		createdAt = log.Entries[existing].CreatedAt
	}
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	entry := MealEntry{
		ID:        id,
		ProductID: in.ProductID,
		Meal:      in.Meal,
		Portion:   in.Portion,
		Nutrients: nutrition.ComputeEntryNutrients(in.PerServing, in.ProductServing, in.Portion),
		CreatedAt: createdAt,
	}
	if existing >= 0 {
		log.Entries[existing] = entry
	} else {
		log.Entries = append(log.Entries, entry)
	}
	log.recomputeTotals()

	s.notify(Change{Kind: EntryUpserted, Dates: []string{date}, EntryID: id, Meal: entry.Meal})
	entry.Nutrients = entry.Nutrients.Clone()
	return entry
}

// RemoveEntry deletes an entry. It reports false, without touching anything,
// when the day or the entry does not exist.
func (s *Store) RemoveEntry(date, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	date = s.resolve(date)
	log, ok := s.logs[date]
	if !ok {
		return false
	}
	idx := log.indexOf(id)
	if idx < 0 {
		return false
	}
	log.Entries = slices.Delete(log.Entries, idx, idx+1)
	log.recomputeTotals()

	s.notify(Change{Kind: EntryRemoved, Dates: []string{date}, EntryID: id})
	return true
}

// MoveEntry relocates an entry to position targetIndex of targetMeal's
// section. Sections are views over one flat list, so the section index is
// translated to a flat index using the positions of targetMeal's entries
// once the moved entry has been taken out.
func (s *Store) MoveEntry(date, id, targetMeal string, targetIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	date = s.resolve(date)
	log, ok := s.logs[date]
	if !ok {
		return false
	}
	from := log.indexOf(id)
	if from < 0 {
		return false
	}

	entry := log.Entries[from]
	log.Entries = slices.Delete(log.Entries, from, from+1)
	entry.Meal = targetMeal

	at := insertPosition(log.Entries, targetMeal, max(0, targetIndex))
	log.Entries = slices.Insert(log.Entries, at, entry)
	log.recomputeTotals()

	s.notify(Change{Kind: EntryMoved, Dates: []string{date}, EntryID: id, Meal: targetMeal})
	return true
}

func insertPosition(entries []MealEntry, meal string, sectionIndex int) int {
	var positions []int
	for i, e := range entries {
		if e.Meal == meal {
			positions = append(positions, i)
		}
	}
	switch {
	case len(positions) == 0:
		return len(entries)
	case sectionIndex >= len(positions):
		return positions[len(positions)-1] + 1
	default:
		return positions[sectionIndex]
	}
}

// RenameMeal relabels every entry of from as to, across all days.
func (s *Store) RenameMeal(from, to string) bool {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" || from == to {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var touched []string
	for date, log := range s.logs {
		mutated := false
		for i := range log.Entries {
			if log.Entries[i].Meal == from {
				log.Entries[i].Meal = to
				mutated = true
			}
		}
		if mutated {
			log.recomputeTotals()
			touched = append(touched, date)
		}
	}
	if len(touched) == 0 {
		return false
	}
	slices.Sort(touched)
	s.notify(Change{Kind: MealRenamed, Dates: touched, From: from, To: to})
	return true
}

// RenameMeals applies several renames at once, so swapping two meal names
// does not merge their entries. Blank and identity pairs are ignored.
func (s *Store) RenameMeals(renames map[string]string) bool {
	mapping := make(map[string]string, len(renames))
	for from, to := range renames {
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if from == "" || to == "" || from == to {
			continue
		}
		mapping[from] = to
	}
	if len(mapping) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	touched := map[string][]string{}
	for date, log := range s.logs {
		mutated := map[string]bool{}
		for i := range log.Entries {
			if to, ok := mapping[log.Entries[i].Meal]; ok {
				mutated[log.Entries[i].Meal] = true
				log.Entries[i].Meal = to
			}
		}
		if len(mutated) > 0 {
			log.recomputeTotals()
			for from := range mutated {
				touched[from] = append(touched[from], date)
			}
		}
	}
	if len(touched) == 0 {
		return false
	}

	froms := make([]string, 0, len(touched))
	for from := range touched {
		froms = append(froms, from)
	}
	slices.Sort(froms)
	for _, from := range froms {
		dates := touched[from]
		slices.Sort(dates)
		s.notify(Change{Kind: MealRenamed, Dates: dates, From: from, To: mapping[from]})
	}
	return true
}

// RemoveMealEntries deletes every entry of meal, across all days.
func (s *Store) RemoveMealEntries(meal string) bool {
	meal = strings.TrimSpace(meal)
	if meal == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var touched []string
	for date, log := range s.logs {
		kept := slices.DeleteFunc(log.Entries, func(e MealEntry) bool { return e.Meal == meal })
		if len(kept) != len(log.Entries) {
			log.Entries = kept
			log.recomputeTotals()
			touched = append(touched, date)
		}
	}
	if len(touched) == 0 {
		return false
	}
	slices.Sort(touched)
	s.notify(Change{Kind: MealEntriesRemoved, Dates: touched, Meal: meal})
	return true
}

// SetGoal stores a nutrient goal for date, creating the day if needed.
func (s *Store) SetGoal(date string, goal nutrition.Nutrients) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date = s.resolve(date)
	log := s.ensure(date)
	g := goal.Clone()
	log.Goal = &g
	log.recomputeTotals()

	s.notify(Change{Kind: GoalSet, Dates: []string{date}})
}

// ClearDay empties a day's entries and totals. The day and its goal stay.
func (s *Store) ClearDay(date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	date = s.resolve(date)
	log, ok := s.logs[date]
	if !ok {
		return false
	}
	log.Entries = []MealEntry{}
	log.Totals = nutrition.Zero()

	s.notify(Change{Kind: DayCleared, Dates: []string{date}})
	return true
}

func (s *Store) resolve(date string) string {
	if date == "" {
		return s.currentDate
	}
	return date
}

func (s *Store) ensure(date string) *DayLog {
	if log, ok := s.logs[date]; ok {
		return log
	}
	log := newDayLog(date)
	s.logs[date] = log
	return log
}

func (s *Store) snapshot() Logs {
	out := make(Logs, len(s.logs))
	for k, v := range s.logs {
		out[k] = v.clone()
	}
	return out
}

// notify copies the whole ledger once per mutation, so a write costs
// O(all entries). Listeners persist the ledger as a single document and need
// the full copy anyway; fine at diary scale.
func (s *Store) notify(c Change) {
	if len(s.listeners) == 0 {
		return
	}
	snap := s.snapshot()
	for _, l := range s.listeners {
		l(c, snap)
	}
}
