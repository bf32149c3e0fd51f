package ledger

type ChangeKind string

const (
	EntryUpserted      ChangeKind = "entry.upserted"
	EntryRemoved       ChangeKind = "entry.removed"
	EntryMoved         ChangeKind = "entry.moved"
	MealRenamed        ChangeKind = "meal.renamed"
	MealEntriesRemoved ChangeKind = "meal.entries_removed"
	GoalSet            ChangeKind = "day.goal_set"
	DayCleared         ChangeKind = "day.cleared"
	LogsLoaded         ChangeKind = "logs.loaded"
)

// Change describes one successful mutation. Dates lists every day it touched.
type Change struct {
	Kind    ChangeKind
	Dates   []string
	EntryID string
	Meal    string
	// set for MealRenamed
	From string
	To   string
}

// Listener is called after every mutation with a deep copy of the ledger.
// It runs while the store is locked, so it must not block or call back into
// the store.
type Listener func(Change, Logs)
