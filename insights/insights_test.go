package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billbatista/acasinha-diary/catalog"
	"github.com/billbatista/acasinha-diary/ledger"
	"github.com/billbatista/acasinha-diary/nutrition"
	"github.com/billbatista/acasinha-diary/settings"
)

func entry(id, product, meal string, cal float64) ledger.MealEntry {
	return ledger.MealEntry{
		ID:        id,
		ProductID: product,
		Meal:      meal,
		Nutrients: nutrition.Fill(nutrition.Nutrients{Calories: cal, Protein: cal / 10}),
	}
}

func day(date string, cal float64) ledger.DayLog {
	return ledger.DayLog{Date: date, Totals: nutrition.Fill(nutrition.Nutrients{Calories: cal})}
}

type products map[string]catalog.FoodProduct

func (p products) Get(id string) (catalog.FoodProduct, bool) {
	v, ok := p[id]
	return v, ok
}

func TestMealSections(t *testing.T) {
	log := ledger.DayLog{
		Date: "2024-03-01",
		Entries: []ledger.MealEntry{
			entry("a1", "p1", "Lunch", 100),
			entry("x1", "p2", "Brunch", 50),
			entry("b1", "p1", "Breakfast", 200),
			entry("a2", "p3", "Lunch", 30),
		},
	}

	got := MealSections(log, []string{"Breakfast", "Lunch", "Dinner"})

	require.Len(t, got, 4)
	assert.Equal(t, []string{"Breakfast", "Lunch", "Dinner", "Brunch"}, []string{got[0].Meal, got[1].Meal, got[2].Meal, got[3].Meal})
	require.Len(t, got[1].Entries, 2)
	assert.Equal(t, "a1", got[1].Entries[0].ID)
	assert.Equal(t, "a2", got[1].Entries[1].ID)
	assert.Equal(t, 130.0, got[1].Totals.Calories)
	assert.Empty(t, got[2].Entries)
	assert.Equal(t, 0.0, got[2].Totals.Calories)
}

func TestWeekly(t *testing.T) {
	logs := ledger.Logs{}
	for i, cal := range []float64{1000, 1500.4, 2100.6, 1900, 2500, 1800, 2000, 2200.5} {
		date := []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04", "2024-03-05", "2024-03-06", "2024-03-07", "2024-03-08"}[i]
		logs[date] = day(date, cal)
	}

	got := Weekly(logs, settings.MacroTargets{Calories: 2000}, 7)

	require.Len(t, got, 7)
	assert.Equal(t, "2024-03-02", got[0].Date)
	assert.Equal(t, "2024-03-08", got[6].Date)
	assert.Equal(t, WeeklyDay{Date: "2024-03-02", Calories: 1500, Goal: 2000, Variance: -500}, got[0])
	assert.Equal(t, WeeklyDay{Date: "2024-03-03", Calories: 2101, Goal: 2000, Variance: 101}, got[1])
	assert.Equal(t, 201, got[6].Variance)
}

func TestWeekly_Defaults(t *testing.T) {
	logs := ledger.Logs{"2024-03-01": day("2024-03-01", 1999.5)}

	got := Weekly(logs, settings.MacroTargets{}, 0)

	require.Len(t, got, 1)
	assert.Equal(t, DefaultCalorieGoal, got[0].Goal)
	assert.Equal(t, 2000, got[0].Calories)
	assert.Equal(t, 0, got[0].Variance)
	assert.Empty(t, Weekly(ledger.Logs{}, settings.MacroTargets{}, 7))
}

func TestWeekly_ExplicitZeroCalorieTargetKept(t *testing.T) {
	logs := ledger.Logs{"2024-03-01": day("2024-03-01", 500)}

	got := Weekly(logs, settings.MacroTargets{Calories: 0, Protein: 140}, 7)

	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].Goal)
	assert.Equal(t, 500, got[0].Variance)
}

func TestSummarize(t *testing.T) {
	days := []WeeklyDay{
		{Date: "2024-03-01", Calories: 2100, Goal: 2000},
		{Date: "2024-03-02", Calories: 1800, Goal: 2000},
		{Date: "2024-03-03", Calories: 2000, Goal: 2000},
		{Date: "2024-03-04", Calories: 1800, Goal: 2000},
	}

	s, ok := Summarize(days)

	require.True(t, ok)
	assert.Equal(t, WeeklySummary{Average: 1925, OnTargetDays: 3, BestDay: "2024-03-02", BestDayCalories: 1800, DaysCount: 4}, s)

	_, ok = Summarize(nil)
	assert.False(t, ok)
}

func TestTopFoods(t *testing.T) {
	logs := ledger.Logs{
		"2024-03-01": {Entries: []ledger.MealEntry{entry("1", "oats", "Breakfast", 150), entry("2", "apple", "Snacks", 80.4)}},
		"2024-03-02": {Entries: []ledger.MealEntry{entry("3", "oats", "Breakfast", 150), entry("4", "rice", "Lunch", 300)}},
		"2024-03-03": {Entries: []ledger.MealEntry{entry("5", "bread", "Lunch", 300), entry("6", "egg", "Lunch", 70), entry("7", "tea", "Snacks", 2)}},
	}
	catalogue := products{
		"oats":  {ID: "oats", Name: "Oats"},
		"rice":  {ID: "rice", Name: "Rice"},
		"bread": {ID: "bread", Name: "Bread"},
	}

	got := TopFoods(logs, catalogue, 0)

	require.Len(t, got, 5)
	assert.Equal(t, TopFood{ProductID: "bread", Name: "Bread", Calories: 300, Count: 1}, got[0])
	assert.Equal(t, TopFood{ProductID: "oats", Name: "Oats", Calories: 300, Count: 2}, got[1])
	assert.Equal(t, "rice", got[2].ProductID)
	assert.Equal(t, TopFood{ProductID: "apple", Name: UnknownProductName, Calories: 80, Count: 1}, got[3])
	assert.Equal(t, "egg", got[4].ProductID)

	assert.Len(t, TopFoods(logs, nil, 2), 2)
}

func TestMacroSplit(t *testing.T) {
	got := MacroSplit(nutrition.Nutrients{Protein: 50, Carbs: 100, Fat: 50})
	assert.Equal(t, []MacroShare{
		{Name: "Protein", Value: 50, Percent: 25},
		{Name: "Carbs", Value: 100, Percent: 50},
		{Name: "Fat", Value: 50, Percent: 25},
	}, got)

	thirds := MacroSplit(nutrition.Nutrients{Protein: 1, Carbs: 1, Fat: 1})
	assert.Equal(t, 33, thirds[0].Percent)

	assert.Empty(t, MacroSplit(nutrition.Nutrients{Calories: 500}))
}

func TestHistory(t *testing.T) {
	logs := ledger.Logs{
		"2024-03-02": day("2024-03-02", 1),
		"2024-02-28": day("2024-02-28", 2),
		"2024-03-10": day("2024-03-10", 3),
	}

	got := History(logs)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"2024-03-10", "2024-03-02", "2024-02-28"}, []string{got[0].Date, got[1].Date, got[2].Date})
}
