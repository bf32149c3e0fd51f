package persist

import (
	"context"
	"fmt"

	"github.com/billbatista/acasinha-diary/ledger"
	"github.com/billbatista/acasinha-diary/settings"
)

type migration struct {
	to  int
	run func(ctx context.Context, a *Adapter) error
}

// Each step must be safe to run again on data it already migrated.
var migrations = []migration{
	{to: 1, run: initCollections},
	{to: 2, run: backfillMeals},
	{to: 3, run: rewriteSettings},
}

// Ensure brings storage to CurrentVersion, running every step above the
// stored version in order. It must complete before the diary serves anything.
func (a *Adapter) Ensure(ctx context.Context) error {
	from, err := a.Version(ctx)
	if err != nil {
		return err
	}
	if from == CurrentVersion {
		return nil
	}
	if from > CurrentVersion {
		a.log.Warn().Int("stored", from).Int("current", CurrentVersion).Msg("storage is newer than this build, leaving it untouched")
		return nil
	}

	if err := a.migrate(ctx, from); err != nil {
		return err
	}
	if err := a.setVersion(ctx, CurrentVersion); err != nil {
		return err
	}
	a.log.Info().Int("from", from).Int("to", CurrentVersion).Msg("storage migrated")
	return nil
}

func (a *Adapter) migrate(ctx context.Context, from int) error {
	for _, m := range migrations {
		if from >= m.to {
			continue
		}
		if err := m.run(ctx, a); err != nil {
			return fmt.Errorf("migrating to version %d: %w", m.to, err)
		}
	}
	return nil
}

// initCollections creates whatever collection is missing. Existing data is kept.
func initCollections(ctx context.Context, a *Adapter) error {
	ok, err := a.exists(ctx, KeyDayLogs)
	if err != nil {
		return err
	}
	if !ok {
		if err := a.SaveDayLogs(ctx, ledger.Logs{}); err != nil {
			return err
		}
	}

	ok, err = a.exists(ctx, KeyCustomProducts)
	if err != nil {
		return err
	}
	if !ok {
		if err := a.SaveCustomProducts(ctx, nil); err != nil {
			return err
		}
	}

	ok, err = a.exists(ctx, KeySettings)
	if err != nil {
		return err
	}
	if !ok {
		return a.SaveSettings(ctx, settings.Default())
	}
	return nil
}

func backfillMeals(ctx context.Context, a *Adapter) error {
	s, err := a.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if len(s.Meals) == 0 {
		s.Meals = settings.DefaultMeals
	}
	return a.SaveSettings(ctx, s)
}

// rewriteSettings re-encodes settings so older raw or string forms end up
// in the envelope.
func rewriteSettings(ctx context.Context, a *Adapter) error {
	s, err := a.LoadSettings(ctx)
	if err != nil {
		return err
	}
	return a.SaveSettings(ctx, s)
}
