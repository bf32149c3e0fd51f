// Package api exposes the diary over HTTP as JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/billbatista/acasinha-diary/catalog"
	"github.com/billbatista/acasinha-diary/diary"
	"github.com/billbatista/acasinha-diary/ledger"
	"github.com/billbatista/acasinha-diary/middleware"
	"github.com/billbatista/acasinha-diary/nutrition"
	"github.com/billbatista/acasinha-diary/persist"
	"github.com/billbatista/acasinha-diary/settings"
)

const maxImportBytes = 32 << 20

var (
	errEntryNotFound    = errors.New("entry not found")
	errFavoriteNotFound = errors.New("favorite not found")
	errBadBody          = errors.New("invalid request body")
)

// HealthChecker reports whether storage is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type handler struct {
	svc    *diary.Service
	health HealthChecker
	log    zerolog.Logger
}

func NewRouter(svc *diary.Service, health HealthChecker, log zerolog.Logger) http.Handler {
	h := &handler{svc: svc, health: health, log: log}

	router := chi.NewRouter()
	router.Use(middleware.RequestID(log))
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", h.getHealth)

	router.Route("/days/{date}", func(r chi.Router) {
		r.Get("/", h.getDay)
		r.Get("/sections", h.getSections)
		r.Post("/entries", h.postEntry)
		r.Delete("/entries", h.clearDay)
		r.Put("/entries/{id}", h.putEntry)
		r.Delete("/entries/{id}", h.deleteEntry)
		r.Post("/entries/{id}/move", h.moveEntry)
		r.Put("/goal", h.putGoal)
	})

	router.Get("/products", h.listProducts)
	router.Get("/products/{id}", h.getProduct)
	router.Put("/products/{id}", h.putProduct)
	router.Delete("/products/{id}", h.deleteProduct)

	router.Get("/favorites", h.listFavorites)
	router.Post("/favorites", h.postFavorite)
	router.Delete("/favorites/{id}", h.deleteFavorite)

	router.Get("/settings", h.getSettings)
	router.Patch("/settings", h.patchSettings)
	router.Put("/settings/meals", h.putMeals)

	router.Get("/insights/weekly", h.getWeekly)
	router.Get("/insights/top-foods", h.getTopFoods)
	router.Get("/insights/macros/{date}", h.getMacros)
	router.Get("/history", h.getHistory)

	router.Get("/export", h.getExport)
	router.Post("/import", h.postImport)

	return router
}

func (h *handler) getHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.HealthCheck(r.Context()); err != nil {
			middleware.Logger(r.Context(), h.log).Error().Stack().Err(err).Msg("health check failed")
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Write([]byte("ok"))
}

func (h *handler) getDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.svc.Day(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (h *handler) getSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.svc.Sections(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

func (h *handler) postEntry(w http.ResponseWriter, r *http.Request) {
	var in diary.EntryInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	h.saveEntry(w, r, in, http.StatusCreated)
}

func (h *handler) putEntry(w http.ResponseWriter, r *http.Request) {
	var in diary.EntryInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	in.ID = chi.URLParam(r, "id")
	h.saveEntry(w, r, in, http.StatusOK)
}

func (h *handler) saveEntry(w http.ResponseWriter, r *http.Request, in diary.EntryInput, status int) {
	entry, err := h.svc.LogEntry(chi.URLParam(r, "date"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, entry)
}

func (h *handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.RemoveEntry(chi.URLParam(r, "date"), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		h.fail(w, r, errEntryNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	Meal  string `json:"meal"`
	Index int    `json:"index"`
}

func (h *handler) moveEntry(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	date := chi.URLParam(r, "date")
	ok, err := h.svc.MoveEntry(date, chi.URLParam(r, "id"), req.Meal, req.Index)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		h.fail(w, r, errEntryNotFound)
		return
	}
	day, err := h.svc.Day(date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (h *handler) putGoal(w http.ResponseWriter, r *http.Request) {
	var goal nutrition.Nutrients
	if err := decode(r, &goal); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := h.svc.SetGoal(chi.URLParam(r, "date"), goal)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (h *handler) clearDay(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.ClearDay(chi.URLParam(r, "date")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Products())
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Product(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) putProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.FoodProduct
	if err := decode(r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	p.ID = chi.URLParam(r, "id")
	saved, err := h.svc.SaveProduct(p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.svc.DeleteProduct(chi.URLParam(r, "id")) {
		h.fail(w, r, catalog.ErrProductNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Favorites())
}

type favoriteRequest struct {
	ProductID string `json:"productId"`
}

func (h *handler) postFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.AddFavorite(req.ProductID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.svc.Favorites())
}

func (h *handler) deleteFavorite(w http.ResponseWriter, r *http.Request) {
	if !h.svc.RemoveFavorite(chi.URLParam(r, "id")) {
		h.fail(w, r, errFavoriteNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

func (h *handler) patchSettings(w http.ResponseWriter, r *http.Request) {
	var p settings.Partial
	if err := decode(r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.UpdateSettings(p))
}

func (h *handler) putMeals(w http.ResponseWriter, r *http.Request) {
	var changes []diary.MealChange
	if err := decode(r, &changes); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.svc.ReorganizeMeals(changes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) getWeekly(w http.ResponseWriter, r *http.Request) {
	days, summary := h.svc.Weekly()
	writeJSON(w, http.StatusOK, map[string]any{"days": days, "summary": summary})
}

func (h *handler) getTopFoods(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a positive number", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.svc.TopFoods(limit))
}

func (h *handler) getMacros(w http.ResponseWriter, r *http.Request) {
	split, err := h.svc.MacroSplit(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, split)
}

func (h *handler) getHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.History())
}

func (h *handler) getExport(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Export(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="acasinha-diary-backup.json"`)
	w.Write(doc)
}

func (h *handler) postImport(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		h.fail(w, r, errBadBody)
		return
	}
	if err := h.svc.Import(r.Context(), payload); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps domain errors to a status. Anything unrecognised is logged and
// reported as a 500 without details.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadBody),
		errors.Is(err, diary.ErrInvalidDate),
		errors.Is(err, diary.ErrNoMeals),
		errors.Is(err, ledger.ErrBlankMeal),
		errors.Is(err, ledger.ErrBlankProduct),
		errors.Is(err, nutrition.ErrInvalidServing),
		errors.Is(err, nutrition.ErrUnknownUnit),
		errors.Is(err, catalog.ErrEmptyID),
		errors.Is(err, catalog.ErrEmptyName),
		errors.Is(err, persist.ErrInvalidImport):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, errEntryNotFound),
		errors.Is(err, errFavoriteNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		log := middleware.Logger(r.Context(), h.log)
		log.Error().Stack().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadBody
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
