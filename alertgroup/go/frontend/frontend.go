// Package frontend serves the HTTP API of the alert grouping service.
package frontend

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.skia.org/alertgroups/alertgroup/go/anomalystore"
	"go.skia.org/alertgroups/alertgroup/go/groupstore"
	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/httputils"
	"go.skia.org/alertgroups/go/sklog"
)

const (
	defaultDatabaseTimeout = time.Minute
	tickTimeout            = 30 * time.Minute
)

// Scheduler runs workflow passes.
type Scheduler interface {
	Tick(ctx context.Context) error
	ProcessGroup(ctx context.Context, groupID string) (string, error)
}

// Ingester accepts newly detected anomalies.
type Ingester interface {
	AddToUngrouped(ctx context.Context, anomaly *types.Anomaly) error
}

// Frontend holds the HTTP handlers.
type Frontend struct {
	scheduler Scheduler
	ingester  Ingester
	groups    groupstore.Store
	anomalies anomalystore.Store
}

// New returns a new *Frontend.
func New(scheduler Scheduler, ingester Ingester, groups groupstore.Store, anomalies anomalystore.Store) *Frontend {
	return &Frontend{
		scheduler: scheduler,
		ingester:  ingester,
		groups:    groups,
		anomalies: anomalies,
	}
}

// RegisterHandlers registers the api handlers for their respective routes.
func (f *Frontend) RegisterHandlers(router *chi.Mux) {
	router.Get("/healthz", httputils.HealthCheckHandler)
	router.Post("/_/alert_groups/update", f.updateHandler)
	router.Get("/_/alert_groups/{id}", f.groupHandler)
	router.Get("/_/alert_groups/{id}/anomalies", f.groupAnomaliesHandler)
	router.Post("/_/alert_groups/{id}/process", f.processHandler)
	router.Post("/_/anomalies/ungrouped", f.ungroupedHandler)
}

// Handler returns the router with all handlers registered, wrapped with
// request logging.
func (f *Frontend) Handler() http.Handler {
	router := chi.NewRouter()
	f.RegisterHandlers(router)
	return httputils.LoggingRequestResponse(router)
}

// UpdateResponse is the JSON response of the update handler.
type UpdateResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		sklog.Errorf("Failed to write JSON response: %s", err)
	}
}

// updateHandler runs one pass over every active group.
func (f *Frontend) updateHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), tickTimeout)
	defer cancel()
	if err := f.scheduler.Tick(ctx); err != nil {
		httputils.ReportError(w, err, "Failed to update alert groups.", http.StatusInternalServerError)
		return
	}
	writeJSON(w, UpdateResponse{Status: "ok"})
}

// groupHandler returns a single group.
func (f *Frontend) groupHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultDatabaseTimeout)
	defer cancel()
	f.writeGroup(ctx, w, chi.URLParam(r, "id"))
}

func (f *Frontend) writeGroup(ctx context.Context, w http.ResponseWriter, id string) {
	g, err := f.groups.Get(ctx, id)
	if err != nil {
		httputils.ReportError(w, err, "Failed to load alert group.", http.StatusInternalServerError)
		return
	}
	if g == nil {
		http.Error(w, "Alert group not found.", http.StatusNotFound)
		return
	}
	writeJSON(w, g)
}

// groupAnomaliesHandler returns the anomalies the group last recorded as its
// members.
func (f *Frontend) groupAnomaliesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultDatabaseTimeout)
	defer cancel()
	g, err := f.groups.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httputils.ReportError(w, err, "Failed to load alert group.", http.StatusInternalServerError)
		return
	}
	if g == nil {
		http.Error(w, "Alert group not found.", http.StatusNotFound)
		return
	}
	anomalies, err := f.anomalies.GetMulti(ctx, g.Anomalies)
	if err != nil {
		httputils.ReportError(w, err, "Failed to load anomalies.", http.StatusInternalServerError)
		return
	}
	writeJSON(w, anomalies)
}

// processHandler runs one workflow pass over a single group and returns the
// group as it was written.
func (f *Frontend) processHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultDatabaseTimeout)
	defer cancel()
	id := chi.URLParam(r, "id")
	g, err := f.groups.Get(ctx, id)
	if err != nil {
		httputils.ReportError(w, err, "Failed to load alert group.", http.StatusInternalServerError)
		return
	}
	if g == nil {
		http.Error(w, "Alert group not found.", http.StatusNotFound)
		return
	}
	if _, err := f.scheduler.ProcessGroup(ctx, id); err != nil {
		httputils.ReportError(w, err, "Failed to process alert group.", http.StatusInternalServerError)
		return
	}
	f.writeGroup(ctx, w, id)
}

// ungroupedHandler stores a newly detected anomaly in the Ungrouped group.
func (f *Frontend) ungroupedHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultDatabaseTimeout)
	defer cancel()
	var a types.Anomaly
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		httputils.ReportError(w, err, "Failed to decode JSON.", http.StatusBadRequest)
		return
	}
	if err := anomalystore.Validate(&a); err != nil {
		httputils.ReportError(w, err, "Invalid anomaly.", http.StatusBadRequest)
		return
	}
	if err := f.ingester.AddToUngrouped(ctx, &a); err != nil {
		httputils.ReportError(w, err, "Failed to store anomaly.", http.StatusInternalServerError)
		return
	}
	writeJSON(w, &a)
}
