package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/billbatista/acasinha-diary/catalog"
	"github.com/billbatista/acasinha-diary/ledger"
	"github.com/billbatista/acasinha-diary/settings"
	"github.com/billbatista/acasinha-diary/storage"
)

const (
	KeyVersion        = "app:version"
	KeyDayLogs        = "dayLogs"
	KeyCustomProducts = "customProducts"
	KeySettings       = "settings"
	KeyFavorites      = "favorites"

	CurrentVersion = 3
)

var ErrBadVersion = errors.New("stored schema version is not a number")

// Adapter reads and writes the diary collections in a KV store.
type Adapter struct {
	kv  storage.KV
	log zerolog.Logger
	now func() time.Time
}

func New(kv storage.KV, log zerolog.Logger) *Adapter {
	return &Adapter{kv: kv, log: log, now: time.Now}
}

// Version returns the stored schema version, 0 when none was written.
func (a *Adapter) Version(ctx context.Context) (int, error) {
	raw, err := a.kv.Get(ctx, KeyVersion)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading version: %w", err)
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadVersion, raw)
	}
	return v, nil
}

func (a *Adapter) setVersion(ctx context.Context, v int) error {
	return a.setJSON(ctx, KeyVersion, v)
}

func (a *Adapter) LoadDayLogs(ctx context.Context) (ledger.Logs, error) {
	logs := ledger.Logs{}
	if err := a.getJSON(ctx, KeyDayLogs, &logs); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = ledger.Logs{}
	}
	return logs, nil
}

func (a *Adapter) SaveDayLogs(ctx context.Context, logs ledger.Logs) error {
	if logs == nil {
		logs = ledger.Logs{}
	}
	return a.setJSON(ctx, KeyDayLogs, logs)
}

func (a *Adapter) LoadCustomProducts(ctx context.Context) (map[string]catalog.FoodProduct, error) {
	products := map[string]catalog.FoodProduct{}
	if err := a.getJSON(ctx, KeyCustomProducts, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = map[string]catalog.FoodProduct{}
	}
	return products, nil
}

func (a *Adapter) SaveCustomProducts(ctx context.Context, products map[string]catalog.FoodProduct) error {
	if products == nil {
		products = map[string]catalog.FoodProduct{}
	}
	return a.setJSON(ctx, KeyCustomProducts, products)
}

// LoadSettings falls back to the defaults when nothing usable is stored.
func (a *Adapter) LoadSettings(ctx context.Context) (settings.Settings, error) {
	raw, err := a.kv.Get(ctx, KeySettings)
	if errors.Is(err, storage.ErrNotFound) {
		return settings.Default(), nil
	}
	if err != nil {
		return settings.Settings{}, fmt.Errorf("reading %s: %w", KeySettings, err)
	}
	s, ok := settings.Decode(raw)
	if !ok {
		a.log.Warn().Msg("stored settings unreadable, using defaults")
		return settings.Default(), nil
	}
	return s, nil
}

func (a *Adapter) SaveSettings(ctx context.Context, s settings.Settings) error {
	b, err := settings.Encode(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := a.kv.Set(ctx, KeySettings, b); err != nil {
		return fmt.Errorf("writing %s: %w", KeySettings, err)
	}
	return nil
}

func (a *Adapter) LoadFavorites(ctx context.Context) (catalog.FavoritesState, error) {
	var state catalog.FavoritesState
	if err := a.getJSON(ctx, KeyFavorites, &state); err != nil {
		return catalog.FavoritesState{}, err
	}
	return state, nil
}

func (a *Adapter) SaveFavorites(ctx context.Context, state catalog.FavoritesState) error {
	return a.setJSON(ctx, KeyFavorites, state)
}

// getJSON leaves dst untouched when the key is missing.
func (a *Adapter) getJSON(ctx context.Context, key string, dst any) error {
	raw, err := a.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

func (a *Adapter) setJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := a.kv.Set(ctx, key, b); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (a *Adapter) exists(ctx context.Context, key string) (bool, error) {
	_, err := a.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	return true, nil
}
