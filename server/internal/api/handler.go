package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/tolerancevision/tolerancevision/pkg/aggregate"
	"github.com/tolerancevision/tolerancevision/pkg/export"
	"github.com/tolerancevision/tolerancevision/pkg/registry"
	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
	"github.com/tolerancevision/tolerancevision/pkg/types"
	"github.com/tolerancevision/tolerancevision/server/internal/alerts"
	"github.com/tolerancevision/tolerancevision/server/internal/events"
)

const (
	maxBodyBytes      = 1 << 20
	defaultEventLimit = 100
)

// Notifier is told about every successful mutation. The WebSocket hub
// implements it to push a fresh summary immediately.
type Notifier interface {
	Notify()
}

// AlertEngine evaluates rules after each mutation and lists current alerts.
type AlertEngine interface {
	Evaluate(sum aggregate.Summary)
	Active() []*alerts.Alert
}

// EventLog lists recent QC events, newest first.
type EventLog interface {
	List(limit int) []events.Event
}

// Options configures a Handler. Zero values are valid: no alerts, no events,
// no notifier, no history, no default limit.
type Options struct {
	Project      types.ProjectMetadata
	DefaultLimit float64
	Alerts       AlertEngine
	Events       events.Publisher
	Notifier     Notifier
	History      EventLog
	Now          func() time.Time
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads and mutates the registry and returns JSON responses.
type Handler struct {
	reg    *registry.Registry
	router *mux.Router

	alerts  AlertEngine
	events  events.Publisher
	notify  Notifier
	history EventLog
	now     func() time.Time

	mu           sync.RWMutex
	project      types.ProjectMetadata
	defaultLimit float64
}

// New creates a Handler wired to reg and registers all routes.
func New(reg *registry.Registry, opts Options) *Handler {
	h := &Handler{
		reg:          reg,
		router:       mux.NewRouter(),
		alerts:       opts.Alerts,
		events:       opts.Events,
		notify:       opts.Notifier,
		history:      opts.History,
		now:          opts.Now,
		project:      opts.Project,
		defaultLimit: opts.DefaultLimit,
	}
	if h.events == nil {
		h.events = events.Nop{}
	}
	if h.now == nil {
		h.now = time.Now
	}

	r := h.router.PathPrefix("/api/v1").Subrouter()

	r.HandleFunc("/floors", h.listFloors).Methods(http.MethodGet)
	r.HandleFunc("/floors", h.addFloor).Methods(http.MethodPost)
	r.HandleFunc("/floors/{floorID}", h.getFloor).Methods(http.MethodGet)
	r.HandleFunc("/floors/{floorID}", h.renameFloor).Methods(http.MethodPatch)
	r.HandleFunc("/floors/{floorID}", h.removeFloor).Methods(http.MethodDelete)

	r.HandleFunc("/floors/{floorID}/windows", h.listWindows).Methods(http.MethodGet)
	r.HandleFunc("/floors/{floorID}/windows", h.addWindow).Methods(http.MethodPost)
	r.HandleFunc("/floors/{floorID}/windows/{windowID}", h.getWindow).Methods(http.MethodGet)
	r.HandleFunc("/floors/{floorID}/windows/{windowID}", h.updateWindow).Methods(http.MethodPatch)
	r.HandleFunc("/floors/{floorID}/windows/{windowID}", h.removeWindow).Methods(http.MethodDelete)

	r.HandleFunc("/selection", h.getSelection).Methods(http.MethodGet)
	r.HandleFunc("/selection", h.setSelection).Methods(http.MethodPut)
	r.HandleFunc("/clear", h.clearAll).Methods(http.MethodPost)

	r.HandleFunc("/summary", h.summary).Methods(http.MethodGet)
	r.HandleFunc("/charts/floors", h.floorSeries).Methods(http.MethodGet)
	r.HandleFunc("/charts/distribution", h.distribution).Methods(http.MethodGet)

	r.HandleFunc("/project", h.getProject).Methods(http.MethodGet)
	r.HandleFunc("/project", h.putProject).Methods(http.MethodPut)
	r.HandleFunc("/settings", h.getSettings).Methods(http.MethodGet)
	r.HandleFunc("/settings", h.putSettings).Methods(http.MethodPut)

	r.HandleFunc("/export", h.export).Methods(http.MethodGet)
	r.HandleFunc("/evaluate", h.evaluate).Methods(http.MethodPost)
	r.HandleFunc("/alerts", h.listAlerts).Methods(http.MethodGet)
	r.HandleFunc("/events", h.listEvents).Methods(http.MethodGet)

	// The subrouter does the matching, so it needs its own copies.
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	h.router.NotFoundHandler = notFound
	h.router.MethodNotAllowedHandler = notAllowed
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notAllowed
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// SetProject replaces the project metadata.
func (h *Handler) SetProject(p types.ProjectMetadata) {
	h.mu.Lock()
	h.project = p
	h.mu.Unlock()
}

// Project returns the current project metadata.
func (h *Handler) Project() types.ProjectMetadata {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.project
}

// SetDefaultLimit changes the limit applied to windows submitted without one.
func (h *Handler) SetDefaultLimit(v float64) {
	h.mu.Lock()
	h.defaultLimit = v
	h.mu.Unlock()
}

// SetWarningMultiplier re-derives every window under k and runs the usual
// post-mutation hooks. It returns the number of windows whose status changed.
func (h *Handler) SetWarningMultiplier(ctx context.Context, k float64) int {
	changed := h.reg.SetWarningMultiplier(k)
	ev := events.New(events.Reclassified, h.now())
	ev.Changed = changed
	h.changed(ctx, ev)
	return changed
}

func (h *Handler) limitDefault() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.defaultLimit
}

// --- floors -----------------------------------------------------------------

// listFloors returns GET /api/v1/floors: all floors with their windows.
func (h *Handler) listFloors(w http.ResponseWriter, r *http.Request) {
	k := h.reg.WarningMultiplier()
	floors := h.reg.Floors()
	out := make([]FloorResponse, 0, len(floors))
	for _, f := range floors {
		out = append(out, toFloorResponse(f, k))
	}
	jsonResp(w, http.StatusOK, out)
}

// addFloor handles POST /api/v1/floors. The body is optional.
func (h *Handler) addFloor(w http.ResponseWriter, r *http.Request) {
	var req FloorRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}
	f := h.reg.AddFloor(strings.TrimSpace(req.Name))

	ev := events.New(events.FloorAdded, h.now())
	ev.FloorID, ev.FloorNumber = f.ID, f.Number
	h.changed(r.Context(), ev)

	jsonResp(w, http.StatusCreated, toFloorResponse(f, h.reg.WarningMultiplier()))
}

// getFloor returns GET /api/v1/floors/{floorID}.
func (h *Handler) getFloor(w http.ResponseWriter, r *http.Request) {
	f, ok := h.reg.Floor(mux.Vars(r)["floorID"])
	if !ok {
		writeErr(w, registry.ErrFloorNotFound)
		return
	}
	jsonResp(w, http.StatusOK, toFloorResponse(f, h.reg.WarningMultiplier()))
}

// renameFloor handles PATCH /api/v1/floors/{floorID}.
func (h *Handler) renameFloor(w http.ResponseWriter, r *http.Request) {
	var req FloorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	f, err := h.reg.RenameFloor(mux.Vars(r)["floorID"], strings.TrimSpace(req.Name))
	if err != nil {
		writeErr(w, err)
		return
	}

	ev := events.New(events.FloorRenamed, h.now())
	ev.FloorID, ev.FloorNumber = f.ID, f.Number
	h.changed(r.Context(), ev)

	jsonResp(w, http.StatusOK, toFloorResponse(f, h.reg.WarningMultiplier()))
}

// removeFloor handles DELETE /api/v1/floors/{floorID}.
func (h *Handler) removeFloor(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["floorID"]
	if err := h.reg.RemoveFloor(id); err != nil {
		writeErr(w, err)
		return
	}

	ev := events.New(events.FloorRemoved, h.now())
	ev.FloorID = id
	h.changed(r.Context(), ev)

	w.WriteHeader(http.StatusNoContent)
}

// --- windows ----------------------------------------------------------------

// listWindows returns GET /api/v1/floors/{floorID}/windows.
func (h *Handler) listWindows(w http.ResponseWriter, r *http.Request) {
	f, ok := h.reg.Floor(mux.Vars(r)["floorID"])
	if !ok {
		writeErr(w, registry.ErrFloorNotFound)
		return
	}
	jsonResp(w, http.StatusOK, toFloorResponse(f, h.reg.WarningMultiplier()).Windows)
}

// addWindow handles POST /api/v1/floors/{floorID}/windows.
func (h *Handler) addWindow(w http.ResponseWriter, r *http.Request) {
	floorID := mux.Vars(r)["floorID"]
	if _, ok := h.reg.Floor(floorID); !ok {
		writeErr(w, registry.ErrFloorNotFound)
		return
	}

	var req WindowRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := req.Input(h.limitDefault())
	in.Code = strings.TrimSpace(in.Code)
	if err := tolerance.Validate(in); err != nil {
		writeErr(w, err)
		return
	}

	duplicate := h.reg.CodeInUse(floorID, in.Code, "")
	win, err := h.reg.AddWindow(floorID, in)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.windowChanged(r.Context(), win)

	resp := toWindowResponse(win, h.reg.WarningMultiplier())
	if duplicate {
		resp.Warnings = append(resp.Warnings, duplicateWarning(in.Code))
	}
	jsonResp(w, http.StatusCreated, resp)
}

// getWindow returns GET /api/v1/floors/{floorID}/windows/{windowID}.
func (h *Handler) getWindow(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if _, ok := h.reg.Floor(v["floorID"]); !ok {
		writeErr(w, registry.ErrFloorNotFound)
		return
	}
	win, ok := h.reg.Window(v["floorID"], v["windowID"])
	if !ok {
		writeErr(w, registry.ErrWindowNotFound)
		return
	}
	jsonResp(w, http.StatusOK, toWindowResponse(win, h.reg.WarningMultiplier()))
}

// updateWindow handles PATCH /api/v1/floors/{floorID}/windows/{windowID}.
// The merged input must pass the same validation as a new window.
func (h *Handler) updateWindow(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	floorID, windowID := v["floorID"], v["windowID"]

	if _, ok := h.reg.Floor(floorID); !ok {
		writeErr(w, registry.ErrFloorNotFound)
		return
	}
	if _, ok := h.reg.Window(floorID, windowID); !ok {
		writeErr(w, registry.ErrWindowNotFound)
		return
	}

	var req PatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code != nil {
		trimmed := strings.TrimSpace(*req.Code)
		req.Code = &trimmed
	}
	// The merged input is validated under the registry lock so a concurrent
	// edit cannot slip between the check and the write.
	win, duplicate, err := h.reg.UpdateWindowChecked(floorID, windowID, req.Patch(), tolerance.Validate)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.windowChanged(r.Context(), win)

	resp := toWindowResponse(win, h.reg.WarningMultiplier())
	if duplicate {
		resp.Warnings = append(resp.Warnings, duplicateWarning(win.Code))
	}
	jsonResp(w, http.StatusOK, resp)
}

// removeWindow handles DELETE /api/v1/floors/{floorID}/windows/{windowID}.
func (h *Handler) removeWindow(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if err := h.reg.RemoveWindow(v["floorID"], v["windowID"]); err != nil {
		writeErr(w, err)
		return
	}

	ev := events.New(events.WindowRemoved, h.now())
	ev.FloorID, ev.WindowID = v["floorID"], v["windowID"]
	h.changed(r.Context(), ev)

	w.WriteHeader(http.StatusNoContent)
}

// --- selection and clear ----------------------------------------------------

// getSelection returns GET /api/v1/selection: the current floor.
func (h *Handler) getSelection(w http.ResponseWriter, r *http.Request) {
	idx, f := h.reg.Current()
	jsonResp(w, http.StatusOK, SelectionResponse{Index: idx, Floor: toFloorResponse(f, h.reg.WarningMultiplier())})
}

// setSelection handles PUT /api/v1/selection.
func (h *Handler) setSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.reg.Select(req.Index); err != nil {
		writeErr(w, err)
		return
	}
	h.notifyOnly()
	h.getSelection(w, r)
}

// clearAll handles POST /api/v1/clear: discards every floor and window.
func (h *Handler) clearAll(w http.ResponseWriter, r *http.Request) {
	h.reg.ClearAll()
	h.changed(r.Context(), events.New(events.ProjectCleared, h.now()))
	h.summary(w, r)
}

// --- read models ------------------------------------------------------------

// summary returns GET /api/v1/summary.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, BuildSummary(h.reg, h.now()))
}

// floorSeries returns GET /api/v1/charts/floors.
func (h *Handler) floorSeries(w http.ResponseWriter, r *http.Request) {
	series := aggregate.FloorSeries(h.reg.Floors())
	out := make([]SeriesPointResponse, 0, len(series))
	for _, p := range series {
		out = append(out, SeriesPointResponse{Label: p.Label, Pass: p.Pass, Warning: p.Warning, Fail: p.Fail, Total: p.Total})
	}
	jsonResp(w, http.StatusOK, out)
}

// distribution returns GET /api/v1/charts/distribution.
func (h *Handler) distribution(w http.ResponseWriter, r *http.Request) {
	parts := aggregate.Distribution(h.reg.Floors())
	out := make([]SliceResponse, 0, len(parts))
	for _, s := range parts {
		out = append(out, SliceResponse{Name: s.Name, Key: s.Key, Value: s.Value, Percentage: s.Percentage})
	}
	jsonResp(w, http.StatusOK, out)
}

// --- project and settings ---------------------------------------------------

// getProject returns GET /api/v1/project.
func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, ProjectResponse{ProjectMetadata: h.Project(), FloorCount: h.reg.FloorCount()})
}

// putProject handles PUT /api/v1/project.
func (h *Handler) putProject(w http.ResponseWriter, r *http.Request) {
	var req types.ProjectMetadata
	if !decodeBody(w, r, &req) {
		return
	}
	h.SetProject(req)
	h.getProject(w, r)
}

// getSettings returns GET /api/v1/settings.
func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, SettingsResponse{
		WarningMultiplier: h.reg.WarningMultiplier(),
		DefaultLimit:      h.limitDefault(),
	})
}

// putSettings handles PUT /api/v1/settings. Changing k re-derives every window.
func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	k := req.WarningMultiplier
	if math.IsNaN(k) || math.IsInf(k, 0) || k < 1 {
		jsonErr(w, http.StatusUnprocessableEntity, "warning_multiplier must be a finite number >= 1")
		return
	}
	changed := h.SetWarningMultiplier(r.Context(), k)
	jsonResp(w, http.StatusOK, SettingsResponse{
		WarningMultiplier: h.reg.WarningMultiplier(),
		DefaultLimit:      h.limitDefault(),
		Reclassified:      changed,
	})
}

// --- export, evaluate, alerts -----------------------------------------------

// export returns GET /api/v1/export?format=json|csv.
func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		jsonErr(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q: want json|csv", format))
		return
	}

	now := h.now()
	rep, err := export.Build(h.Project(), h.reg.Floors(), now)
	if err != nil {
		writeErr(w, err)
		return
	}

	if format == "json" {
		jsonResp(w, http.StatusOK, toExportResponse(rep))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="window-qc-%s.csv"`, now.Format("20060102")))
	if err := export.WriteCSV(w, rep); err != nil {
		slog.Error("api: csv export failed", "err", err)
	}
}

// evaluate handles POST /api/v1/evaluate: a stateless preview of one window.
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req WindowRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := req.Input(h.limitDefault())
	if err := tolerance.Validate(in); err != nil {
		writeErr(w, err)
		return
	}
	k := h.reg.WarningMultiplier()
	jsonResp(w, http.StatusOK, evaluationResponse(in, tolerance.Evaluate(in, k), k))
}

// listAlerts returns GET /api/v1/alerts: firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []struct{}{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// listEvents returns GET /api/v1/events?limit=N: recent QC events, newest first.
func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonErr(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	if h.history == nil {
		jsonResp(w, http.StatusOK, []events.Event{})
		return
	}
	jsonResp(w, http.StatusOK, h.history.List(limit))
}

// --- hooks ------------------------------------------------------------------

func (h *Handler) windowChanged(ctx context.Context, win registry.Window) {
	f, _ := h.reg.Floor(win.FloorID)
	h.changed(ctx, events.ForWindow(f, win, h.now()))
}

// changed publishes evs, re-evaluates alerts and notifies the hub.
func (h *Handler) changed(ctx context.Context, evs ...events.Event) {
	for _, ev := range evs {
		if err := h.events.Publish(ctx, ev); err != nil {
			slog.Warn("api: publish event failed", "type", ev.Type, "err", err)
		}
	}
	if h.alerts != nil {
		h.alerts.Evaluate(aggregate.Summarize(h.reg.Floors()))
	}
	h.notifyOnly()
}

func (h *Handler) notifyOnly() {
	if h.notify != nil {
		h.notify.Notify()
	}
}

// --- helpers ----------------------------------------------------------------

func duplicateWarning(code string) string {
	return fmt.Sprintf("code %q is already used on this floor", code)
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeErr maps domain errors to HTTP status codes.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrFloorNotFound), errors.Is(err, registry.ErrWindowNotFound):
		jsonErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tolerance.ErrInvalidInput):
		jsonResp(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "validation failed",
			Details: strings.Split(err.Error(), "\n"),
		})
	case errors.Is(err, registry.ErrInvalidLimit),
		errors.Is(err, registry.ErrIndexOutOfRange),
		errors.Is(err, export.ErrIncompleteProject),
		errors.Is(err, export.ErrNoWindows):
		jsonErr(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("api: unexpected error", "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
