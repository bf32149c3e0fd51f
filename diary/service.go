// Package diary is the application layer: it owns the ledger, catalog and
// settings for one diary, keeps storage in sync and records activity.
package diary

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/billbatista/acasinha-diary/catalog"
	"github.com/billbatista/acasinha-diary/eventlogger"
	"github.com/billbatista/acasinha-diary/insights"
	"github.com/billbatista/acasinha-diary/ledger"
	"github.com/billbatista/acasinha-diary/nutrition"
	"github.com/billbatista/acasinha-diary/persist"
	"github.com/billbatista/acasinha-diary/settings"
)

var (
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
	ErrNoMeals     = errors.New("at least one meal is required")
)

// EventLog receives activity events. *eventlogger.Worker implements it.
type EventLog interface {
	Log(eventlogger.Event)
}

type Service struct {
	ledger    *ledger.Store
	products  *catalog.Cache
	favorites *catalog.Favorites
	settings  *settings.Holder

	adapter *persist.Adapter
	mirror  *persist.Mirror
	events  EventLog
	log     zerolog.Logger

	weeklyDays    int
	topFoodsLimit int
	now           func() time.Time
	ledgerOpts    []ledger.StoreOption
}

type Option func(*Service)

func WithWeeklyDays(n int) Option {
	return func(s *Service) {
		s.weeklyDays = n
	}
}

func WithTopFoodsLimit(n int) Option {
	return func(s *Service) {
		s.topFoodsLimit = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLedgerOptions passes options through to the ledger store.
func WithLedgerOptions(opts ...ledger.StoreOption) Option {
	return func(s *Service) {
		s.ledgerOpts = append(s.ledgerOpts, opts...)
	}
}

// New wires the in-memory stores to the mirror and the event log. Call Boot
// before serving anything.
func New(adapter *persist.Adapter, mirror *persist.Mirror, events EventLog, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		products:      catalog.NewCache(),
		favorites:     catalog.NewFavorites(),
		settings:      settings.NewHolder(settings.Default()),
		adapter:       adapter,
		mirror:        mirror,
		events:        events,
		log:           log,
		weeklyDays:    insights.DefaultWeeklyDays,
		topFoodsLimit: insights.DefaultTopFoodsLimit,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = ledger.NewStore(append([]ledger.StoreOption{ledger.WithClock(s.now)}, s.ledgerOpts...)...)
	if s.events == nil {
		s.events = discardEvents{}
	}

	s.ledger.Subscribe(s.onLedgerChange)
	s.products.OnChange(mirror.SaveCustomProducts)
	s.favorites.OnChange(mirror.SaveFavorites)
	s.settings.OnChange(mirror.SaveSettings)
	return s
}

// Boot migrates storage and loads every collection. Nothing else may run
// until it returns without error.
func (s *Service) Boot(ctx context.Context) error {
	if err := s.adapter.Ensure(ctx); err != nil {
		return fmt.Errorf("migrating storage: %w", err)
	}
	logs, err := s.adapter.LoadDayLogs(ctx)
	if err != nil {
		return err
	}
	products, err := s.adapter.LoadCustomProducts(ctx)
	if err != nil {
		return err
	}
	st, err := s.adapter.LoadSettings(ctx)
	if err != nil {
		return err
	}
	favs, err := s.adapter.LoadFavorites(ctx)
	if err != nil {
		return err
	}

	s.ledger.Load(logs)
	s.products.Replace(products)
	s.settings.Replace(st)
	s.favorites.Load(favs)

	s.log.Info().
		Int("days", len(logs)).
		Int("products", len(products)).
		Int("favorites", len(favs.Order)).
		Msg("diary loaded")
	return nil
}

func (s *Service) onLedgerChange(c ledger.Change, logs ledger.Logs) {
	s.mirror.SaveDayLogs(logs)
	if c.Kind == ledger.LogsLoaded {
		return
	}
	s.events.Log(ledgerEvent(c, s.now()))
}

// Today returns the date new entries default to.
func (s *Service) Today() string {
	return s.ledger.CurrentDate()
}

// SetToday moves the default date.
func (s *Service) SetToday(date string) error {
	if err := checkDate(date); err != nil {
		return err
	}
	s.ledger.SetDate(date)
	return nil
}

// Day returns the log for date, or an empty one when nothing was logged.
func (s *Service) Day(date string) (ledger.DayLog, error) {
	date, err := s.date(date)
	if err != nil {
		return ledger.DayLog{}, err
	}
	if log, ok := s.ledger.Day(date); ok {
		return log, nil
	}
	return ledger.DayLog{Date: date, Entries: []ledger.MealEntry{}, Totals: nutrition.Zero()}, nil
}

func (s *Service) Sections(date string) ([]insights.Section, error) {
	log, err := s.Day(date)
	if err != nil {
		return nil, err
	}
	return insights.MealSections(log, s.settings.Get().Meals), nil
}

// EntryInput is what a caller supplies to log a product.
type EntryInput struct {
	ID        string            `json:"id,omitempty"`
	ProductID string            `json:"productId"`
	Meal      string            `json:"meal"`
	Portion   nutrition.Serving `json:"portion"`
}

// LogEntry resolves the product and saves the entry on date. Reusing an id
// replaces that entry in place.
func (s *Service) LogEntry(date string, in EntryInput) (ledger.MealEntry, error) {
	date, err := s.date(date)
	if err != nil {
		return ledger.MealEntry{}, err
	}
	product, ok := s.products.Get(in.ProductID)
	if !ok {
		return ledger.MealEntry{}, catalog.ErrProductNotFound
	}

	up := ledger.UpsertInput{
		ID:             in.ID,
		Date:           date,
		ProductID:      product.ID,
		Meal:           strings.TrimSpace(in.Meal),
		Portion:        in.Portion,
		PerServing:     product.PerServing,
		ProductServing: product.ServingSize,
	}
	if err := up.Validate(); err != nil {
		return ledger.MealEntry{}, err
	}
	return s.ledger.UpsertEntry(up), nil
}

func (s *Service) RemoveEntry(date, id string) (bool, error) {
	date, err := s.date(date)
	if err != nil {
		return false, err
	}
	return s.ledger.RemoveEntry(date, id), nil
}

func (s *Service) MoveEntry(date, id, meal string, index int) (bool, error) {
	date, err := s.date(date)
	if err != nil {
		return false, err
	}
	meal = strings.TrimSpace(meal)
	if meal == "" {
		return false, ledger.ErrBlankMeal
	}
	return s.ledger.MoveEntry(date, id, meal, index), nil
}

func (s *Service) SetGoal(date string, goal nutrition.Nutrients) (ledger.DayLog, error) {
	date, err := s.date(date)
	if err != nil {
		return ledger.DayLog{}, err
	}
	s.ledger.SetGoal(date, goal)
	return s.Day(date)
}

func (s *Service) ClearDay(date string) (bool, error) {
	date, err := s.date(date)
	if err != nil {
		return false, err
	}
	return s.ledger.ClearDay(date), nil
}

func (s *Service) Product(id string) (catalog.FoodProduct, error) {
	p, ok := s.products.Get(id)
	if !ok {
		return catalog.FoodProduct{}, catalog.ErrProductNotFound
	}
	return p, nil
}

// Products lists the cache sorted by name, then id.
func (s *Service) Products() []catalog.FoodProduct {
	all := s.products.All()
	out := make([]catalog.FoodProduct, 0, len(all))
	for _, p := range all {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b catalog.FoodProduct) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// SaveProduct stores p. Entries already logged keep their nutrient snapshot.
func (s *Service) SaveProduct(p catalog.FoodProduct) (catalog.FoodProduct, error) {
	if p.Source == "" {
		p.Source = catalog.SourceCustom
	}
	if err := p.Validate(); err != nil {
		return catalog.FoodProduct{}, err
	}
	if p.Per100g != nil && p.PerServing == (nutrition.Nutrients{}) {
		if perServing, ok := nutrition.Per100gToPerServing(p.Per100g, p.ServingSize); ok {
			p.PerServing = perServing
		}
	}
	p.PerServing = nutrition.Fill(p.PerServing)
	s.products.Put(p)
	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventProductSaved),
		eventlogger.WithTime(s.now().UTC()),
		eventlogger.WithMetadata(map[string]string{"product_id": p.ID}),
		eventlogger.WithData(map[string]string{"name": p.Name, "source": string(p.Source)}),
	))
	return p, nil
}

func (s *Service) DeleteProduct(id string) bool {
	if !s.products.Remove(id) {
		return false
	}
	s.favorites.Remove(id)
	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventProductDeleted),
		eventlogger.WithTime(s.now().UTC()),
		eventlogger.WithMetadata(map[string]string{"product_id": id}),
	))
	return true
}

func (s *Service) Favorites() []catalog.FavoriteProduct {
	return s.favorites.List()
}

// AddFavorite stars a product that is already in the catalog.
func (s *Service) AddFavorite(id string) error {
	p, ok := s.products.Get(id)
	if !ok {
		return catalog.ErrProductNotFound
	}
	s.favorites.Add(p)
	return nil
}

func (s *Service) RemoveFavorite(id string) bool {
	return s.favorites.Remove(id)
}

func (s *Service) Settings() settings.Settings {
	return s.settings.Get()
}

// UpdateSettings merges p into the current settings. Meals are changed
// through ReorganizeMeals so the ledger follows along.
func (s *Service) UpdateSettings(p settings.Partial) settings.Settings {
	p.Meals = nil
	return s.settings.Update(p)
}

// Weekly returns the recent days against the calorie target, with a summary
// when there is at least one day.
func (s *Service) Weekly() ([]insights.WeeklyDay, *insights.WeeklySummary) {
	days := insights.Weekly(s.ledger.Logs(), s.settings.Get().DailyTargets, s.weeklyDays)
	summary, ok := insights.Summarize(days)
	if !ok {
		return days, nil
	}
	return days, &summary
}

func (s *Service) TopFoods(limit int) []insights.TopFood {
	if limit <= 0 {
		limit = s.topFoodsLimit
	}
	return insights.TopFoods(s.ledger.Logs(), s.products, limit)
}

func (s *Service) MacroSplit(date string) ([]insights.MacroShare, error) {
	log, err := s.Day(date)
	if err != nil {
		return nil, err
	}
	return insights.MacroSplit(log.Totals), nil
}

func (s *Service) History() []ledger.DayLog {
	return insights.History(s.ledger.Logs())
}

// Export flushes pending writes and returns the backup document.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	if err := s.mirror.Flush(ctx); err != nil {
		s.log.Warn().Err(err).Msg("pending writes failed before export")
	}
	return s.adapter.Export(ctx)
}

// Import replaces logs, products and settings with the document's. A payload
// that is not a JSON object changes nothing. When only some collections
// could be written the error says which, and memory still takes the whole
// document so the mirror can retry on the next write.
func (s *Service) Import(ctx context.Context, payload []byte) error {
	// older pending snapshots must not land after the import
	if err := s.mirror.Flush(ctx); err != nil {
		s.log.Warn().Err(err).Msg("pending writes failed before import")
	}
	doc, err := s.adapter.Import(ctx, payload)
	if errors.Is(err, persist.ErrInvalidImport) {
		return err
	}

	s.ledger.Load(doc.Logs)
	s.products.Replace(doc.CustomProducts)
	s.settings.Replace(doc.Settings)

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventImportCompleted),
		eventlogger.WithTime(s.now().UTC()),
		eventlogger.WithData(map[string]int{"days": len(doc.Logs), "products": len(doc.CustomProducts)}),
	))
	return err
}

// date validates a date, resolving blank to today.
func (s *Service) date(date string) (string, error) {
	if date == "" {
		return s.ledger.CurrentDate(), nil
	}
	if err := checkDate(date); err != nil {
		return "", err
	}
	return date, nil
}

func checkDate(date string) error {
	if _, err := ledger.ParseDate(date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

type discardEvents struct{}

func (discardEvents) Log(eventlogger.Event) {}
