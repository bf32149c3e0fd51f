package ledger

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billbatista/acasinha-diary/nutrition"
)

const day = "2024-03-10"

var (
	gram100 = nutrition.Serving{Value: 100, Unit: nutrition.UnitGram}
	apple   = nutrition.Nutrients{Calories: 52, Protein: 0.3, Carbs: 14, Fat: 0.2, Fiber: nutrition.Float(2.4)}
)

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	seq := 0
	base := []StoreOption{
		WithCurrentDate(day),
		WithClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("e%d", seq)
		}),
	}
	return NewStore(append(base, opts...)...)
}

func add(s *Store, id, meal string, grams float64) MealEntry {
	return s.UpsertEntry(UpsertInput{
		ID:             id,
		ProductID:      "apple",
		Meal:           meal,
		Portion:        nutrition.Serving{Value: grams, Unit: nutrition.UnitGram},
		PerServing:     apple,
		ProductServing: gram100,
	})
}

func ids(entries []MealEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func requireTotalsInvariant(t *testing.T, s *Store) {
	t.Helper()
	for date, log := range s.Logs() {
		items := make([]nutrition.Nutrients, len(log.Entries))
		for i, e := range log.Entries {
			items[i] = e.Nutrients
		}
		require.Equal(t, nutrition.Sum(items...), log.Totals, "totals drifted on %s", date)
	}
}

func TestUpsertEntry_GeneratesIDAndComputesNutrients(t *testing.T) {
	s := newTestStore(t)

	e := add(s, "", "Breakfast", 150)

	assert.Equal(t, "e1", e.ID)
	assert.Equal(t, 78.0, e.Nutrients.Calories)
	assert.Equal(t, 3.6, *e.Nutrients.Fiber)
	assert.Equal(t, 0.0, *e.Nutrients.Salt)

	log, ok := s.Day(day)
	require.True(t, ok)
	assert.Len(t, log.Entries, 1)
	assert.Equal(t, 78.0, log.Totals.Calories)
}

func TestUpsertEntry_IsIdempotentAndKeepsCreatedAt(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return now }))

	first := add(s, "x", "Breakfast", 100)
	now = now.Add(time.Hour)
	second := add(s, "x", "Breakfast", 100)
	third := s.UpsertEntry(UpsertInput{
		ID:             "x",
		ProductID:      "apple",
		Meal:           "Lunch",
		Portion:        nutrition.Serving{Value: 200, Unit: nutrition.UnitGram},
		PerServing:     apple,
		ProductServing: gram100,
		CreatedAt:      now.Add(time.Hour),
	})

	log, _ := s.Day("")
	require.Len(t, log.Entries, 1)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, first.CreatedAt, third.CreatedAt)
	assert.Equal(t, "Lunch", log.Entries[0].Meal)
	assert.Equal(t, 104.0, log.Totals.Calories)
}

func TestUpsertEntry_UsesCallerCreatedAtForNewEntries(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

	e := s.UpsertEntry(UpsertInput{ProductID: "p", Meal: "Lunch", Portion: gram100, PerServing: apple, ProductServing: gram100, CreatedAt: at})

	assert.Equal(t, at, e.CreatedAt)
}

func TestUpsertEntry_ExplicitDate(t *testing.T) {
	s := newTestStore(t)

	s.UpsertEntry(UpsertInput{Date: "2024-03-09", ProductID: "p", Meal: "Lunch", Portion: gram100, PerServing: apple, ProductServing: gram100})

	_, ok := s.Day(day)
	assert.False(t, ok)
	_, ok = s.Day("2024-03-09")
	assert.True(t, ok)
}

func TestRemoveEntry(t *testing.T) {
	s := newTestStore(t)
	add(s, "a", "Breakfast", 100)
	add(s, "b", "Breakfast", 50)

	assert.True(t, s.RemoveEntry("", "a"))
	assert.False(t, s.RemoveEntry("", "a"))
	assert.False(t, s.RemoveEntry("1999-01-01", "b"))

	log, _ := s.Day(day)
	assert.Equal(t, []string{"b"}, ids(log.Entries))
	assert.Equal(t, 26.0, log.Totals.Calories)
}

func TestMoveEntry_TranslatesSectionIndex(t *testing.T) {
	s := newTestStore(t)
	add(s, "a1", "A", 100)
	add(s, "a2", "A", 100)
	add(s, "b1", "B", 100)

	require.True(t, s.MoveEntry("", "a1", "B", 1))

	log, _ := s.Day(day)
	assert.Equal(t, []string{"b1", "a1"}, ids(log.Section("B")))
	assert.Equal(t, []string{"a2"}, ids(log.Section("A")))
	assert.Equal(t, []string{"a2", "b1", "a1"}, ids(log.Entries))
}

func TestMoveEntry_Positions(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		meal    string
		index   int
		want    []string
		section []string
	}{
		{"front of section", "b2", "A", 0, []string{"b2", "a1", "b1", "a2"}, []string{"b2", "a1", "a2"}},
		{"middle of section", "b2", "A", 1, []string{"a1", "b1", "b2", "a2"}, []string{"a1", "b2", "a2"}},
		{"past the end goes after last member", "a1", "B", 99, []string{"b1", "a2", "b2", "a1"}, []string{"b1", "b2", "a1"}},
		{"negative index is clamped", "a2", "B", -3, []string{"a1", "a2", "b1", "b2"}, []string{"a2", "b1", "b2"}},
		{"empty section appends", "a1", "C", 0, []string{"b1", "a2", "b2", "a1"}, []string{"a1"}},
		{"reorder within section", "a2", "A", 0, []string{"a2", "a1", "b1", "b2"}, []string{"a2", "a1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			add(s, "a1", "A", 100)
			add(s, "b1", "B", 100)
			add(s, "a2", "A", 100)
			add(s, "b2", "B", 100)

			require.True(t, s.MoveEntry(day, tt.id, tt.meal, tt.index))

			log, _ := s.Day(day)
			assert.Equal(t, tt.want, ids(log.Entries))
			assert.Equal(t, tt.section, ids(log.Section(tt.meal)))
		})
	}
}

func TestMoveEntry_MissingIsNoop(t *testing.T) {
	var changes int
	s := newTestStore(t, WithListener(func(Change, Logs) { changes++ }))
	add(s, "a", "A", 100)
	changes = 0

	assert.False(t, s.MoveEntry("", "nope", "B", 0))
	assert.False(t, s.MoveEntry("2000-01-01", "a", "B", 0))
	assert.Zero(t, changes)
}

func TestMoveEntry_PreservesMembership(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	meals := []string{"A", "B", "C"}
	s := newTestStore(t)
	for i := 0; i < 12; i++ {
		add(s, fmt.Sprintf("x%d", i), meals[rng.Intn(len(meals))], float64(10+i))
	}

	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("x%d", rng.Intn(12))
		meal := meals[rng.Intn(len(meals))]
		require.True(t, s.MoveEntry("", id, meal, rng.Intn(6)-1))

		log, _ := s.Day("")
		require.Len(t, log.Entries, 12)
		found := 0
		for _, e := range log.Entries {
			if e.ID == id {
				found++
				assert.Equal(t, meal, e.Meal)
			}
		}
		require.Equal(t, 1, found)
	}
	requireTotalsInvariant(t, s)
}

func TestRenameMeal_CascadesAcrossDays(t *testing.T) {
	s := newTestStore(t)
	dates := []string{"2024-03-08", "2024-03-09", "2024-03-10"}
	for _, d := range dates {
		s.SetDate(d)
		add(s, d+"-s", "Snacks", 30)
		add(s, d+"-l", "Lunch", 200)
	}
	before := s.Logs()

	var got Change
	s.Subscribe(func(c Change, _ Logs) { got = c })
	require.True(t, s.RenameMeal(" Snacks ", "Treats"))

	after := s.Logs()
	for _, d := range dates {
		require.Len(t, after[d].Entries, 2)
		assert.Equal(t, ids(before[d].Entries), ids(after[d].Entries))
		assert.Equal(t, "Treats", after[d].Entries[0].Meal)
		assert.Equal(t, before[d].Entries[0].Nutrients, after[d].Entries[0].Nutrients)
		assert.Equal(t, before[d].Totals, after[d].Totals)
	}
	assert.Equal(t, MealRenamed, got.Kind)
	assert.Equal(t, dates, got.Dates)
}

func TestRenameMeal_Noops(t *testing.T) {
	s := newTestStore(t)
	add(s, "a", "Lunch", 100)

	assert.False(t, s.RenameMeal("Lunch", "Lunch"))
	assert.False(t, s.RenameMeal("  ", "Dinner"))
	assert.False(t, s.RenameMeal("Lunch", ""))
	assert.False(t, s.RenameMeal("Brunch", "Dinner"))
}

func TestRenameMeals_SwapKeepsEntriesApart(t *testing.T) {
	s := newTestStore(t)
	add(s, "b", "Breakfast", 100)
	add(s, "l", "Lunch", 200)

	var changes []Change
	s.Subscribe(func(c Change, _ Logs) { changes = append(changes, c) })
	require.True(t, s.RenameMeals(map[string]string{"Breakfast": "Lunch", "Lunch": "Breakfast", "Dinner": "Supper", " ": "x"}))

	log, _ := s.Day(day)
	assert.Equal(t, []string{"b", "l"}, ids(log.Entries))
	assert.Equal(t, "Lunch", log.Entries[0].Meal)
	assert.Equal(t, "Breakfast", log.Entries[1].Meal)

	require.Len(t, changes, 2)
	assert.Equal(t, Change{Kind: MealRenamed, Dates: []string{day}, From: "Breakfast", To: "Lunch"}, changes[0])
	assert.Equal(t, "Lunch", changes[1].From)

	assert.False(t, s.RenameMeals(map[string]string{"Lunch": "Lunch"}))
}

func TestRemoveMealEntries_CascadesAcrossDays(t *testing.T) {
	s := newTestStore(t)
	for _, d := range []string{"2024-03-08", "2024-03-09"} {
		s.SetDate(d)
		add(s, d+"-s", "Snacks", 100)
		add(s, d+"-l", "Lunch", 100)
	}
	s.SetDate("2024-03-10")
	add(s, "only-lunch", "Lunch", 50)

	require.True(t, s.RemoveMealEntries("Snacks"))
	assert.False(t, s.RemoveMealEntries("Snacks"))

	for _, d := range []string{"2024-03-08", "2024-03-09"} {
		log, _ := s.Day(d)
		assert.Equal(t, []string{d + "-l"}, ids(log.Entries))
		assert.Equal(t, 52.0, log.Totals.Calories)
	}
	requireTotalsInvariant(t, s)
}

func TestSetGoalAndClearDay(t *testing.T) {
	s := newTestStore(t)
	goal := nutrition.Nutrients{Calories: 2000, Protein: 120}

	assert.False(t, s.ClearDay("2024-03-01"))
	_, ok := s.Day("2024-03-01")
	assert.False(t, ok, "clearing an absent day must not create it")

	s.SetGoal("2024-03-01", goal)
	log, ok := s.Day("2024-03-01")
	require.True(t, ok)
	assert.Empty(t, log.Entries)
	assert.Equal(t, nutrition.Zero(), log.Totals)

	s.SetDate("2024-03-01")
	add(s, "a", "Lunch", 100)
	require.True(t, s.ClearDay("2024-03-01"))

	log, ok = s.Day("2024-03-01")
	require.True(t, ok)
	assert.Empty(t, log.Entries)
	assert.Equal(t, nutrition.Zero(), log.Totals)
	require.NotNil(t, log.Goal)
	assert.Equal(t, 2000.0, log.Goal.Calories)
}

func TestLoad_RecomputesTotalsAndNotifies(t *testing.T) {
	var got []Change
	s := newTestStore(t, WithListener(func(c Change, _ Logs) { got = append(got, c) }))

	s.Load(Logs{
		"2024-02-01": {
			Entries: []MealEntry{{ID: "a", Meal: "Lunch", Nutrients: nutrition.Nutrients{Calories: 10}}},
			Totals:  nutrition.Nutrients{Calories: 999},
		},
	})

	log, ok := s.Day("2024-02-01")
	require.True(t, ok)
	assert.Equal(t, "2024-02-01", log.Date)
	assert.Equal(t, 10.0, log.Totals.Calories)
	require.Len(t, got, 1)
	assert.Equal(t, LogsLoaded, got[0].Kind)
}

func TestDay_ReturnsIsolatedCopy(t *testing.T) {
	s := newTestStore(t)
	add(s, "a", "Lunch", 100)

	log, _ := s.Day("")
	log.Entries[0].Meal = "Hacked"
	*log.Entries[0].Nutrients.Fiber = 1000

	fresh, _ := s.Day("")
	assert.Equal(t, "Lunch", fresh.Entries[0].Meal)
	assert.Equal(t, 2.4, *fresh.Entries[0].Nutrients.Fiber)
}

func TestTotalsInvariant_RandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	meals := []string{"Breakfast", "Lunch", "Snacks"}
	dates := []string{"2024-03-08", "2024-03-09", "2024-03-10"}
	s := newTestStore(t)

	for i := 0; i < 500; i++ {
		s.SetDate(dates[rng.Intn(len(dates))])
		id := fmt.Sprintf("id%d", rng.Intn(20))
		switch rng.Intn(7) {
		case 0, 1:
			add(s, id, meals[rng.Intn(len(meals))], float64(rng.Intn(300)+1))
		case 2:
			s.RemoveEntry("", id)
		case 3:
			s.MoveEntry("", id, meals[rng.Intn(len(meals))], rng.Intn(4))
		case 4:
			s.RenameMeal(meals[rng.Intn(len(meals))], meals[rng.Intn(len(meals))])
		case 5:
			if rng.Intn(10) == 0 {
				s.RemoveMealEntries(meals[rng.Intn(len(meals))])
			}
		case 6:
			if rng.Intn(10) == 0 {
				s.ClearDay("")
			}
		}
		requireTotalsInvariant(t, s)
	}
}

func TestUpsertEntry_ConcurrentSameIDKeepsOneEntry(t *testing.T) {
	s := newTestStore(t)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				add(s, "shared", "Lunch", float64(j+1))
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	log, _ := s.Day("")
	assert.Len(t, log.Entries, 1)
	requireTotalsInvariant(t, s)
}

func TestListener_GetsFullIsolatedSnapshot(t *testing.T) {
	var snaps []Logs
	s := newTestStore(t, WithListener(func(_ Change, l Logs) { snaps = append(snaps, l) }))

	add(s, "a", "Lunch", 100)
	s.SetDate("2024-03-11")
	add(s, "b", "Dinner", 50)

	require.Len(t, snaps, 2)
	assert.Len(t, snaps[0], 1)
	assert.Len(t, snaps[1], 2)

	snaps[1][day].Entries[0].Meal = "Hacked"
	log, _ := s.Day(day)
	assert.Equal(t, "Lunch", log.Entries[0].Meal)
}
