// Package insights holds read-only projections over the ledger. Nothing here
// is cached; every call recomputes from the logs it is given.
package insights

import (
	"cmp"
	"math"
	"slices"

	"github.com/billbatista/acasinha-diary/catalog"
	"github.com/billbatista/acasinha-diary/ledger"
	"github.com/billbatista/acasinha-diary/nutrition"
	"github.com/billbatista/acasinha-diary/settings"
)

const (
	DefaultWeeklyDays    = 7
	DefaultTopFoodsLimit = 5
	DefaultCalorieGoal   = 2000.0
	UnknownProductName   = "Unknown"
)

// Section is one meal's view of a day.
type Section struct {
	Meal    string              `json:"meal"`
	Entries []ledger.MealEntry  `json:"entries"`
	Totals  nutrition.Nutrients `json:"totals"`
}

// MealSections lists the configured meals in order, followed by any other
// meal found in the day's entries in first-seen order.
func MealSections(log ledger.DayLog, meals []string) []Section {
	names := slices.Clone(meals)
	for _, e := range log.Entries {
		if !slices.Contains(names, e.Meal) {
			names = append(names, e.Meal)
		}
	}

	out := make([]Section, 0, len(names))
	for _, meal := range names {
		entries := log.Section(meal)
		subtotals := make([]nutrition.Nutrients, len(entries))
		for i, e := range entries {
			subtotals[i] = e.Nutrients
		}
		out = append(out, Section{Meal: meal, Entries: entries, Totals: nutrition.Sum(subtotals...)})
	}
	return out
}

type WeeklyDay struct {
	Date     string  `json:"date"`
	Calories int     `json:"calories"`
	Goal     float64 `json:"goal"`
	Variance int     `json:"variance"`
}

// Weekly returns the last days logs by date, oldest first, each compared
// against the daily calorie target.
func Weekly(logs ledger.Logs, targets settings.MacroTargets, days int) []WeeklyDay {
	if days <= 0 {
		days = DefaultWeeklyDays
	}
	// all-zero targets were never set; a lone zero calorie target is kept
	goal := targets.Calories
	if targets == (settings.MacroTargets{}) {
		goal = DefaultCalorieGoal
	}

	dates := sortedDates(logs)
	if len(dates) > days {
		dates = dates[len(dates)-days:]
	}

	out := make([]WeeklyDay, 0, len(dates))
	for _, date := range dates {
		cal := logs[date].Totals.Calories
		out = append(out, WeeklyDay{
			Date:     date,
			Calories: roundInt(cal),
			Goal:     goal,
			Variance: roundInt(cal - goal),
		})
	}
	return out
}

type WeeklySummary struct {
	Average         int    `json:"average"`
	OnTargetDays    int    `json:"onTargetDays"`
	BestDay         string `json:"bestDay"`
	BestDayCalories int    `json:"bestDayCalories"`
	DaysCount       int    `json:"daysCount"`
}

// Summarize reports false when there are no days to summarize.
func Summarize(days []WeeklyDay) (WeeklySummary, bool) {
	if len(days) == 0 {
		return WeeklySummary{}, false
	}
	total := 0
	best := days[0]
	s := WeeklySummary{DaysCount: len(days)}
	for _, d := range days {
		total += d.Calories
		if float64(d.Calories) <= d.Goal {
			s.OnTargetDays++
		}
		if d.Calories < best.Calories {
			best = d
		}
	}
	s.Average = roundInt(float64(total) / float64(len(days)))
	s.BestDay = best.Date
	s.BestDayCalories = best.Calories
	return s, true
}

type TopFood struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Calories  int    `json:"calories"`
	Count     int    `json:"count"`
}

// ProductLookup resolves product names. *catalog.Cache satisfies it.
type ProductLookup interface {
	Get(id string) (catalog.FoodProduct, bool)
}

// TopFoods groups every entry ever logged by product and returns the ones
// with the most summed calories.
func TopFoods(logs ledger.Logs, products ProductLookup, limit int) []TopFood {
	if limit <= 0 {
		limit = DefaultTopFoodsLimit
	}

	type tally struct {
		id       string
		calories float64
		count    int
	}
	byProduct := map[string]*tally{}
	for _, log := range logs {
		for _, e := range log.Entries {
			t, ok := byProduct[e.ProductID]
			if !ok {
				t = &tally{id: e.ProductID}
				byProduct[e.ProductID] = t
			}
			t.calories += e.Nutrients.Calories
			t.count++
		}
	}

	tallies := make([]*tally, 0, len(byProduct))
	for _, t := range byProduct {
		tallies = append(tallies, t)
	}
	slices.SortFunc(tallies, func(a, b *tally) int {
		if c := cmp.Compare(b.calories, a.calories); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	if len(tallies) > limit {
		tallies = tallies[:limit]
	}

	out := make([]TopFood, 0, len(tallies))
	for _, t := range tallies {
		name := UnknownProductName
		if products != nil {
			if p, ok := products.Get(t.id); ok {
				name = p.Name
			}
		}
		out = append(out, TopFood{ProductID: t.id, Name: name, Calories: roundInt(t.calories), Count: t.count})
	}
	return out
}

type MacroShare struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Percent int     `json:"percent"`
}

// MacroSplit turns protein, carbs and fat into shares of their sum. It is
// empty when the sum is zero.
func MacroSplit(totals nutrition.Nutrients) []MacroShare {
	macros := []MacroShare{
		{Name: "Protein", Value: totals.Protein},
		{Name: "Carbs", Value: totals.Carbs},
		{Name: "Fat", Value: totals.Fat},
	}
	sum := 0.0
	for _, m := range macros {
		sum += m.Value
	}
	if sum == 0 {
		return []MacroShare{}
	}
	for i := range macros {
		macros[i].Percent = roundInt(macros[i].Value / sum * 100)
	}
	return macros
}

// History returns every day log, newest first.
func History(logs ledger.Logs) []ledger.DayLog {
	dates := sortedDates(logs)
	out := make([]ledger.DayLog, 0, len(dates))
	for i := len(dates) - 1; i >= 0; i-- {
		out = append(out, logs[dates[i]])
	}
	return out
}

func sortedDates(logs ledger.Logs) []string {
	dates := make([]string, 0, len(logs))
	for date := range logs {
		dates = append(dates, date)
	}
	slices.Sort(dates)
	return dates
}

// roundInt rounds half up, so -0.5 becomes 0.
func roundInt(v float64) int {
	return int(math.Floor(v + 0.5))
}
