package diary

import (
	"strings"
	"time"

	"github.com/billbatista/acasinha-diary/eventlogger"
	"github.com/billbatista/acasinha-diary/ledger"
)

const (
	EventProductSaved     = "product.saved"
	EventProductDeleted   = "product.deleted"
	EventImportCompleted  = "import.completed"
	EventMealsReorganized = "meals.reorganized"
)

// ledgerEvent turns a ledger change into an activity event. Ledger change
// kinds are used as event types as they are.
func ledgerEvent(c ledger.Change, at time.Time) eventlogger.Event {
	meta := map[string]string{}
	if c.EntryID != "" {
		meta["entry_id"] = c.EntryID
	}
	if c.Meal != "" {
		meta["meal"] = c.Meal
	}
	if c.From != "" {
		meta["from"] = c.From
		meta["to"] = c.To
	}

	date := ""
	switch len(c.Dates) {
	case 0:
	case 1:
		date = c.Dates[0]
	default:
		meta["dates"] = strings.Join(c.Dates, ",")
	}

	return eventlogger.NewEvent(
		eventlogger.WithType(string(c.Kind)),
		eventlogger.WithTime(at.UTC()),
		eventlogger.WithDate(date),
		eventlogger.WithMetadata(meta),
		eventlogger.WithData(map[string][]string{"dates": c.Dates}),
	)
}
