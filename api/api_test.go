package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billbatista/acasinha-diary/catalog"
	"github.com/billbatista/acasinha-diary/diary"
	"github.com/billbatista/acasinha-diary/insights"
	"github.com/billbatista/acasinha-diary/ledger"
	"github.com/billbatista/acasinha-diary/persist"
	"github.com/billbatista/acasinha-diary/settings"
	"github.com/billbatista/acasinha-diary/storage/memory"
)

const today = "2024-03-10"

type failingHealth struct{}

func (failingHealth) HealthCheck(context.Context) error { return errors.New("down") }

func newServer(t *testing.T) (*httptest.Server, *diary.Service) {
	t.Helper()
	kv := memory.NewStore()
	adapter := persist.New(kv, zerolog.Nop())
	mirror := persist.NewMirror(adapter, zerolog.Nop())
	mirror.Start()
	t.Cleanup(func() { _ = mirror.Close() })

	svc := diary.New(adapter, mirror, nil, zerolog.Nop(),
		diary.WithClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }),
		diary.WithLedgerOptions(ledger.WithCurrentDate(today)),
	)
	require.NoError(t, svc.Boot(context.Background()))

	srv := httptest.NewServer(NewRouter(svc, kv, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, svc
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decodeBody[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func putOats(t *testing.T, srv *httptest.Server) {
	t.Helper()
	res := do(t, srv, http.MethodPut, "/products/oats", map[string]any{
		"name":        "Oats",
		"servingSize": map[string]any{"value": 40, "unit": "g"},
		"per100g":     map[string]any{"calories": 380, "protein": 13, "carbs": 60, "fat": 7},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t)
	res := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHealth_StorageDown(t *testing.T) {
	srv := httptest.NewServer(NewRouter(nil, failingHealth{}, zerolog.Nop()))
	defer srv.Close()

	res := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestEntries(t *testing.T) {
	srv, _ := newServer(t)
	putOats(t, srv)

	res := do(t, srv, http.MethodPost, "/days/"+today+"/entries", map[string]any{
		"productId": "oats", "meal": "Breakfast", "portion": map[string]any{"value": 80, "unit": "g"},
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	entry := decodeBody[ledger.MealEntry](t, res)
	assert.Equal(t, 304.0, entry.Nutrients.Calories)

	res = do(t, srv, http.MethodPut, "/days/"+today+"/entries/"+entry.ID, map[string]any{
		"productId": "oats", "meal": "Breakfast", "portion": map[string]any{"value": 40, "unit": "g"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = do(t, srv, http.MethodGet, "/days/"+today, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	day := decodeBody[ledger.DayLog](t, res)
	require.Len(t, day.Entries, 1)
	assert.Equal(t, 152.0, day.Totals.Calories)

	res = do(t, srv, http.MethodPost, "/days/"+today+"/entries/"+entry.ID+"/move", map[string]any{"meal": "Dinner", "index": 0})
	require.Equal(t, http.StatusOK, res.StatusCode)
	day = decodeBody[ledger.DayLog](t, res)
	assert.Equal(t, "Dinner", day.Entries[0].Meal)

	res = do(t, srv, http.MethodGet, "/days/"+today+"/sections", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	sections := decodeBody[[]insights.Section](t, res)
	require.Len(t, sections, 4)
	assert.Len(t, sections[2].Entries, 1)

	res = do(t, srv, http.MethodDelete, "/days/"+today+"/entries/"+entry.ID, nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	res = do(t, srv, http.MethodDelete, "/days/"+today+"/entries/"+entry.ID, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res = do(t, srv, http.MethodPost, "/days/"+today+"/entries/"+entry.ID+"/move", map[string]any{"meal": "Lunch"})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestEntries_BadRequests(t *testing.T) {
	srv, _ := newServer(t)
	putOats(t, srv)

	cases := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"malformed body", "/days/" + today + "/entries", "{", http.StatusBadRequest},
		{"bad date", "/days/yesterday/entries", map[string]any{"productId": "oats", "meal": "Lunch", "portion": map[string]any{"value": 1, "unit": "g"}}, http.StatusBadRequest},
		{"unknown product", "/days/" + today + "/entries", map[string]any{"productId": "nope", "meal": "Lunch", "portion": map[string]any{"value": 1, "unit": "g"}}, http.StatusNotFound},
		{"blank meal", "/days/" + today + "/entries", map[string]any{"productId": "oats", "meal": "", "portion": map[string]any{"value": 1, "unit": "g"}}, http.StatusBadRequest},
		{"zero portion", "/days/" + today + "/entries", map[string]any{"productId": "oats", "meal": "Lunch", "portion": map[string]any{"value": 0, "unit": "g"}}, http.StatusBadRequest},
		{"unknown unit", "/days/" + today + "/entries", map[string]any{"productId": "oats", "meal": "Lunch", "portion": map[string]any{"value": 1, "unit": "cup"}}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := do(t, srv, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, res.StatusCode)
		})
	}
}

func TestGoalAndClear(t *testing.T) {
	srv, svc := newServer(t)

	res := do(t, srv, http.MethodPut, "/days/"+today+"/goal", map[string]any{"calories": 1800, "protein": 120, "carbs": 200, "fat": 60})
	require.Equal(t, http.StatusOK, res.StatusCode)
	day := decodeBody[ledger.DayLog](t, res)
	require.NotNil(t, day.Goal)
	assert.Equal(t, 1800.0, day.Goal.Calories)

	res = do(t, srv, http.MethodDelete, "/days/"+today+"/entries", nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	got, err := svc.Day(today)
	require.NoError(t, err)
	assert.NotNil(t, got.Goal)
}

func TestProductsAndFavorites(t *testing.T) {
	srv, _ := newServer(t)
	putOats(t, srv)

	res := do(t, srv, http.MethodGet, "/products/oats", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	p := decodeBody[catalog.FoodProduct](t, res)
	assert.Equal(t, 152.0, p.PerServing.Calories)

	res = do(t, srv, http.MethodGet, "/products", nil)
	assert.Len(t, decodeBody[[]catalog.FoodProduct](t, res), 1)

	res = do(t, srv, http.MethodPut, "/products/bad", map[string]any{"name": "", "servingSize": map[string]any{"value": 1, "unit": "g"}})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = do(t, srv, http.MethodPost, "/favorites", map[string]any{"productId": "oats"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Len(t, decodeBody[[]catalog.FavoriteProduct](t, res), 1)

	res = do(t, srv, http.MethodPost, "/favorites", map[string]any{"productId": "nope"})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = do(t, srv, http.MethodDelete, "/favorites/oats", nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	res = do(t, srv, http.MethodDelete, "/favorites/oats", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = do(t, srv, http.MethodDelete, "/products/oats", nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	res = do(t, srv, http.MethodGet, "/products/oats", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestSettings(t *testing.T) {
	srv, _ := newServer(t)

	res := do(t, srv, http.MethodPatch, "/settings", map[string]any{"theme": "dark", "dailyTargets": map[string]any{"calories": 1900}})
	require.Equal(t, http.StatusOK, res.StatusCode)
	s := decodeBody[settings.Settings](t, res)
	assert.Equal(t, settings.ThemeDark, s.Theme)
	assert.Equal(t, 1900.0, s.DailyTargets.Calories)
	assert.Equal(t, 140.0, s.DailyTargets.Protein)

	res = do(t, srv, http.MethodPut, "/settings/meals", []map[string]any{{"original": "Breakfast", "name": "Morning"}, {"name": ""}})
	require.Equal(t, http.StatusOK, res.StatusCode)
	s = decodeBody[settings.Settings](t, res)
	assert.Equal(t, []string{"Morning", "Meal 2"}, s.Meals)

	res = do(t, srv, http.MethodPut, "/settings/meals", []map[string]any{})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = do(t, srv, http.MethodGet, "/settings", nil)
	assert.Equal(t, []string{"Morning", "Meal 2"}, decodeBody[settings.Settings](t, res).Meals)
}

func TestInsights(t *testing.T) {
	srv, _ := newServer(t)
	putOats(t, srv)
	res := do(t, srv, http.MethodPost, "/days/"+today+"/entries", map[string]any{
		"productId": "oats", "meal": "Lunch", "portion": map[string]any{"value": 40, "unit": "g"},
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res = do(t, srv, http.MethodGet, "/insights/weekly", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	weekly := decodeBody[struct {
		Days    []insights.WeeklyDay    `json:"days"`
		Summary *insights.WeeklySummary `json:"summary"`
	}](t, res)
	require.Len(t, weekly.Days, 1)
	require.NotNil(t, weekly.Summary)
	assert.Equal(t, 152, weekly.Summary.Average)

	res = do(t, srv, http.MethodGet, "/insights/top-foods?limit=3", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeBody[[]insights.TopFood](t, res), 1)

	res = do(t, srv, http.MethodGet, "/insights/top-foods?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = do(t, srv, http.MethodGet, "/insights/macros/"+today, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeBody[[]insights.MacroShare](t, res), 3)

	res = do(t, srv, http.MethodGet, "/insights/macros/2020-01-01", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, decodeBody[[]insights.MacroShare](t, res))

	res = do(t, srv, http.MethodGet, "/history", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeBody[[]ledger.DayLog](t, res), 1)
}

func TestExportImport(t *testing.T) {
	src, _ := newServer(t)
	putOats(t, src)

	res := do(t, src, http.MethodGet, "/export", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Disposition"), "attachment")
	var buf bytes.Buffer
	_, err := buf.ReadFrom(res.Body)
	require.NoError(t, err)

	dst, svc := newServer(t)
	res = do(t, dst, http.MethodPost, "/import", buf.String())
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	_, err = svc.Product("oats")
	assert.NoError(t, err)

	res = do(t, dst, http.MethodPost, "/import", "not json")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
