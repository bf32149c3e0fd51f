package diary

import (
	"fmt"
	"strings"

	"github.com/billbatista/acasinha-diary/eventlogger"
	"github.com/billbatista/acasinha-diary/settings"
)

// MealChange is one row of the meal editor. Original is empty for a meal
// being added.
type MealChange struct {
	Original string `json:"original,omitempty"`
	Name     string `json:"name"`
}

// ReorganizeMeals replaces the meal list. Meals whose row was dropped lose
// their entries on every day; renamed meals carry their entries along.
func (s *Service) ReorganizeMeals(changes []MealChange) (settings.Settings, error) {
	if len(changes) == 0 {
		return settings.Settings{}, ErrNoMeals
	}
	names := sanitizeMealNames(changes)

	kept := map[string]bool{}
	for _, c := range changes {
		if o := strings.TrimSpace(c.Original); o != "" {
			kept[o] = true
		}
	}

	configured := map[string]bool{}
	var removed []string
	for _, meal := range s.settings.Get().Meals {
		configured[meal] = true
		if !kept[meal] {
			removed = append(removed, meal)
			s.ledger.RemoveMealEntries(meal)
		}
	}

	// rows pointing at a meal that isn't configured are treated as new
	renames := map[string]string{}
	for i, c := range changes {
		if o := strings.TrimSpace(c.Original); configured[o] && o != names[i] {
			renames[o] = names[i]
		}
	}
	s.ledger.RenameMeals(renames)

	updated := s.settings.SetMeals(names)
	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventMealsReorganized),
		eventlogger.WithTime(s.now().UTC()),
		eventlogger.WithData(map[string]any{"meals": names, "removed": removed, "renamed": renames}),
	))
	return updated, nil
}

// sanitizeMealNames trims names, fills blanks with "Meal N" and suffixes
// duplicates with " (2)", " (3)" and so on.
func sanitizeMealNames(changes []MealChange) []string {
	seen := map[string]bool{}
	out := make([]string, len(changes))
	for i, c := range changes {
		base := strings.TrimSpace(c.Name)
		if base == "" {
			base = fmt.Sprintf("Meal %d", i+1)
		}
		name := base
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s (%d)", base, n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}
