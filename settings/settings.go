package settings

import (
	"slices"

	"github.com/billbatista/acasinha-diary/nutrition"
)

type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

var DefaultMeals = []string{"Breakfast", "Lunch", "Dinner", "Snacks"}

type MacroTargets struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

type Settings struct {
	Units              Units                 `json:"units"`
	DefaultServingUnit nutrition.ServingUnit `json:"defaultServingUnit"`
	DailyTargets       MacroTargets          `json:"dailyTargets"`
	Theme              Theme                 `json:"theme"`
	Meals              []string              `json:"meals"`
	FavoriteProductIDs []string              `json:"favoriteProductIds"`
}

func Default() Settings {
	return Settings{
		Units:              UnitsMetric,
		DefaultServingUnit: nutrition.UnitGram,
		DailyTargets: MacroTargets{
			Calories: 2100,
			Protein:  140,
			Carbs:    220,
			Fat:      70,
		},
		Theme:              ThemeSystem,
		Meals:              slices.Clone(DefaultMeals),
		FavoriteProductIDs: []string{},
	}
}

// PartialTargets is a targets update; nil fields are left alone.
type PartialTargets struct {
	Calories *float64 `json:"calories,omitempty"`
	Protein  *float64 `json:"protein,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty"`
	Fat      *float64 `json:"fat,omitempty"`
}

// Partial is a settings update, also used to read payloads that may miss
// fields. Nil pointers and empty slices leave the base value alone.
type Partial struct {
	Units              *Units                 `json:"units,omitempty"`
	DefaultServingUnit *nutrition.ServingUnit `json:"defaultServingUnit,omitempty"`
	DailyTargets       *PartialTargets        `json:"dailyTargets,omitempty"`
	Theme              *Theme                 `json:"theme,omitempty"`
	Meals              []string               `json:"meals,omitempty"`
	FavoriteProductIDs []string               `json:"favoriteProductIds,omitempty"`
}

func (t PartialTargets) Apply(base MacroTargets) MacroTargets {
	if t.Calories != nil {
		base.Calories = *t.Calories
	}
	if t.Protein != nil {
		base.Protein = *t.Protein
	}
	if t.Carbs != nil {
		base.Carbs = *t.Carbs
	}
	if t.Fat != nil {
		base.Fat = *t.Fat
	}
	return base
}

func (p Partial) Apply(base Settings) Settings {
	out := clone(base)
	if p.Units != nil {
		out.Units = *p.Units
	}
	if p.DefaultServingUnit != nil {
		out.DefaultServingUnit = *p.DefaultServingUnit
	}
	if p.DailyTargets != nil {
		out.DailyTargets = p.DailyTargets.Apply(out.DailyTargets)
	}
	if p.Theme != nil {
		out.Theme = *p.Theme
	}
	if len(p.Meals) > 0 {
		out.Meals = slices.Clone(p.Meals)
	}
	if p.FavoriteProductIDs != nil {
		out.FavoriteProductIDs = slices.Clone(p.FavoriteProductIDs)
	}
	return out
}

// Normalize fills blank fields from the defaults. An empty meal list falls
// back to the default meals and all-zero targets to the default targets.
func Normalize(s Settings) Settings {
	def := Default()
	out := clone(s)
	if out.Units == "" {
		out.Units = def.Units
	}
	if out.DefaultServingUnit == "" {
		out.DefaultServingUnit = def.DefaultServingUnit
	}
	if out.Theme == "" {
		out.Theme = def.Theme
	}
	if out.DailyTargets == (MacroTargets{}) {
		out.DailyTargets = def.DailyTargets
	}
	if len(out.Meals) == 0 {
		out.Meals = def.Meals
	}
	if out.FavoriteProductIDs == nil {
		out.FavoriteProductIDs = []string{}
	}
	return out
}

func clone(s Settings) Settings {
	s.Meals = slices.Clone(s.Meals)
	s.FavoriteProductIDs = slices.Clone(s.FavoriteProductIDs)
	return s
}
