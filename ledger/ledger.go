package ledger

import (
	"errors"
	"time"

	"github.com/billbatista/acasinha-diary/nutrition"
)

// MealEntry is one logged consumption of a product. Nutrients is a snapshot
// taken when the entry was last saved and is never recomputed on read.
type MealEntry struct {
	ID        string              `json:"id"`
	ProductID string              `json:"productId"`
	Meal      string              `json:"meal"`
	Portion   nutrition.Serving   `json:"portion"`
	Nutrients nutrition.Nutrients `json:"nutrients"`
	CreatedAt time.Time           `json:"createdAt"`
}

// DayLog holds one calendar day. Entries order is the only ordering there is:
// a meal section is the sub-sequence of Entries with that Meal.
type DayLog struct {
	Date    string               `json:"date"`
	Entries []MealEntry          `json:"entries"`
	Totals  nutrition.Nutrients  `json:"totals"`
	Goal    *nutrition.Nutrients `json:"goal,omitempty"`
}

// Logs maps a YYYY-MM-DD date to its day log.
type Logs map[string]DayLog

// UpsertInput carries everything needed to save an entry. The caller resolves
// the product beforehand and passes its per-serving values and serving size.
type UpsertInput struct {
	ID             string
	Date           string
	ProductID      string
	Meal           string
	Portion        nutrition.Serving
	PerServing     nutrition.Nutrients
	ProductServing nutrition.Serving
	CreatedAt      time.Time
}

var (
	ErrBlankMeal    = errors.New("meal can't be blank")
	ErrBlankProduct = errors.New("product id can't be blank")
)

// Validate checks the input strictly. Store.UpsertEntry does not call it.
func (in UpsertInput) Validate() error {
	if in.ProductID == "" {
		return ErrBlankProduct
	}
	if in.Meal == "" {
		return ErrBlankMeal
	}
	if err := in.Portion.Validate(); err != nil {
		return err
	}
	return in.ProductServing.Validate()
}

func newDayLog(date string) *DayLog {
	return &DayLog{
		Date:    date,
		Entries: []MealEntry{},
		Totals:  nutrition.Zero(),
	}
}

func (d *DayLog) recomputeTotals() {
	items := make([]nutrition.Nutrients, len(d.Entries))
	for i, e := range d.Entries {
		items[i] = e.Nutrients
	}
	d.Totals = nutrition.Sum(items...)
}

func (d *DayLog) indexOf(id string) int {
	for i, e := range d.Entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Section returns the entries of one meal in flat order.
func (d DayLog) Section(meal string) []MealEntry {
	out := make([]MealEntry, 0)
	for _, e := range d.Entries {
		if e.Meal == meal {
			out = append(out, e)
		}
	}
	return out
}

func (d DayLog) clone() DayLog {
	out := DayLog{
		Date:    d.Date,
		Entries: make([]MealEntry, len(d.Entries)),
		Totals:  d.Totals.Clone(),
	}
	for i, e := range d.Entries {
		e.Nutrients = e.Nutrients.Clone()
		out.Entries[i] = e
	}
	if d.Goal != nil {
		g := d.Goal.Clone()
		out.Goal = &g
	}
	return out
}

// Clone deep-copies every day log.
func (l Logs) Clone() Logs {
	out := make(Logs, len(l))
	for k, v := range l {
		out[k] = v.clone()
	}
	return out
}
