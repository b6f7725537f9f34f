/*
handlers.go - HTTP API handlers for the punch clock system

PURPOSE:
  Exposes the punch validation engine and labor aggregation engine via
  REST API. Handles HTTP request/response, JSON serialization, and
  delegates to domain logic.

ENDPOINTS:
  Punches:
    POST   /api/punches                  Submit a geolocated punch
    GET    /api/punches/{employeeID}     Punch history for one employee

  Status:
    GET    /api/status                   Batch active status
    GET    /api/roster                   Directory roster with live status

  Labor:
    GET    /api/labor/summary            Hours/cost aggregation (cached)

  Sites:
    GET    /api/sites                    List geofenced sites
    POST   /api/sites                    Create/update a site

  Admin:
    POST   /api/admin/punch-pairs        Insert a complete punch pair
    DELETE /api/admin/punches/{id}       Delete one ledger entry
    GET    /api/admin/changes/{employeeID} Audit trail

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Ledger and site persistence
  - Validator: Punch state machine
  - Aggregator: Labor roll-ups
  - Results: Short-TTL cache fronting the aggregator

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (validator, aggregator, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation and geofence errors, invalid input
  - 404: Resource not found
  - 409: State conflicts (clock-out with no open shift)
  - 503: Directory upstream unavailable with no cached snapshot
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/punchclock/cache"
	"github.com/warp/punchclock/labor"
	"github.com/warp/punchclock/punch"
	"github.com/warp/punchclock/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// DefaultHistoryWindow bounds the punch history query when the caller
// supplies no range.
const DefaultHistoryWindow = 7 * 24 * time.Hour

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Validator  *punch.Validator
	Status     *punch.StatusResolver
	Aggregator *labor.Aggregator
	Directory  *cache.DirectoryCache
	Results    *cache.ResultCache

	// ResultTTL bounds how stale a served labor summary may be.
	ResultTTL time.Duration

	Log *logrus.Logger
}

// NewHandler wires a handler from its collaborators.
func NewHandler(store *sqlite.Store, validator *punch.Validator, status *punch.StatusResolver, agg *labor.Aggregator, dir *cache.DirectoryCache, results *cache.ResultCache, resultTTL time.Duration, log *logrus.Logger) *Handler {
	return &Handler{
		Store:      store,
		Validator:  validator,
		Status:     status,
		Aggregator: agg,
		Directory:  dir,
		Results:    results,
		ResultTTL:  resultTTL,
		Log:        log,
	}
}

// =============================================================================
// PUNCH HANDLERS
// =============================================================================

// SubmitPunch runs one punch attempt through the validation state machine.
func (h *Handler) SubmitPunch(w http.ResponseWriter, r *http.Request) {
	var req SubmitPunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	siteIDs := make([]punch.SiteID, len(req.SiteIDs))
	for i, s := range req.SiteIDs {
		siteIDs[i] = punch.SiteID(s)
	}

	result, err := h.Validator.Submit(r.Context(), punch.SubmitRequest{
		EmployeeID:       punch.EmployeeID(req.EmployeeID),
		CandidateSiteIDs: siteIDs,
		Kind:             punch.PunchKind(req.Kind),
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		InjuryFlag:       req.InjuryFlag,
		Signature:        req.Signature,
	})
	if err != nil {
		writeDomainError(w, "Punch rejected", err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmitPunchResponse{
		Events:     toPunchEventDTOs(result.CreatedEvents),
		AutoClosed: result.AutoClosed,
	})
}

// ListPunches returns one employee's ledger entries in a time range.
// Defaults to the trailing week when from/to are absent.
func (h *Handler) ListPunches(w http.ResponseWriter, r *http.Request) {
	employeeID := punch.EmployeeID(chi.URLParam(r, "employeeID"))

	to := time.Now().UTC()
	from := to.Add(-DefaultHistoryWindow)
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from (use RFC3339)", err)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to (use RFC3339)", err)
			return
		}
	}

	events, err := h.Store.LoadRange(r.Context(), []punch.EmployeeID{employeeID}, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load punches", err)
		return
	}

	writeJSON(w, http.StatusOK, toPunchEventDTOs(events))
}

// =============================================================================
// STATUS HANDLERS
// =============================================================================

// BatchStatus resolves the clocked-in state of many employees in one
// ledger query. employee_ids is comma separated; empty means everyone
// in the directory. site_id restricts "active" to shifts at that site.
func (h *Handler) BatchStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteFilter := punch.SiteID(r.URL.Query().Get("site_id"))

	var ids []punch.EmployeeID
	if raw := r.URL.Query().Get("employee_ids"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				ids = append(ids, punch.EmployeeID(s))
			}
		}
	} else {
		employees, err := h.Directory.GetAll(ctx)
		if err != nil {
			writeDomainError(w, "Failed to resolve directory", err)
			return
		}
		for id := range employees {
			ids = append(ids, id)
		}
	}

	statuses, err := h.Status.BatchActiveStatus(ctx, ids, siteFilter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve status", err)
		return
	}

	dtos := make([]ActiveStatusDTO, 0, len(ids))
	for _, id := range ids {
		dtos = append(dtos, toActiveStatusDTO(id, statuses[id]))
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].EmployeeID < dtos[j].EmployeeID })

	writeJSON(w, http.StatusOK, dtos)
}

// Roster joins directory identity with live punch status.
func (h *Handler) Roster(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteFilter := punch.SiteID(r.URL.Query().Get("site_id"))

	employees, err := h.Directory.GetAll(ctx)
	if err != nil {
		writeDomainError(w, "Failed to resolve directory", err)
		return
	}

	ids := make([]punch.EmployeeID, 0, len(employees))
	for id := range employees {
		ids = append(ids, id)
	}

	statuses, err := h.Status.BatchActiveStatus(ctx, ids, siteFilter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve status", err)
		return
	}

	entries := make([]RosterEntryDTO, 0, len(ids))
	for _, id := range ids {
		st := statuses[id]
		e := RosterEntryDTO{
			EmployeeID:  string(id),
			DisplayName: employees[id].DisplayName,
			IsActive:    st.IsActive,
		}
		if st.IsActive {
			e.SiteID = string(st.SiteID)
			e.ClockInAt = st.ClockInAt.UTC().Format(time.RFC3339Nano)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].DisplayName != entries[j].DisplayName {
			return entries[i].DisplayName < entries[j].DisplayName
		}
		return entries[i].EmployeeID < entries[j].EmployeeID
	})

	writeJSON(w, http.StatusOK, entries)
}

// =============================================================================
// LABOR HANDLERS
// =============================================================================

// LaborSummary serves a cached labor aggregation. Identical queries
// within the TTL share one computation; concurrent misses for the same
// key collapse to a single aggregator run.
func (h *Handler) LaborSummary(w http.ResponseWriter, r *http.Request) {
	q, err := parseLaborQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid labor query", err)
		return
	}

	key := cache.Key("labor",
		string(q.Level), string(q.SiteID), string(q.EmployeeID),
		q.StartDate.Format("2006-01-02"), q.EndDate.Format("2006-01-02"),
		q.Timezone,
	)

	v, err := h.Results.GetOrCompute(r.Context(), key, h.ResultTTL, func(ctx context.Context) (any, error) {
		return h.Aggregator.Compute(ctx, q)
	})
	if err != nil {
		writeDomainError(w, "Failed to aggregate labor", err)
		return
	}

	result, ok := v.(*labor.AggregateResult)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Unexpected cache entry type", nil)
		return
	}

	writeJSON(w, http.StatusOK, toLaborSummaryDTO(result))
}

func parseLaborQuery(r *http.Request) (labor.Query, error) {
	qs := r.URL.Query()

	q := labor.Query{
		Level:      labor.ScopeLevel(qs.Get("level")),
		SiteID:     punch.SiteID(qs.Get("site_id")),
		EmployeeID: punch.EmployeeID(qs.Get("employee_id")),
		Timezone:   qs.Get("timezone"),
	}
	if q.Level == "" {
		q.Level = labor.ScopeCompany
	}
	if q.Timezone == "" {
		q.Timezone = "UTC"
	}

	switch q.Level {
	case labor.ScopeCompany:
	case labor.ScopeSite:
		if q.SiteID == "" {
			return q, errors.New("site_id is required for level=site")
		}
	case labor.ScopeEmployee:
		if q.EmployeeID == "" {
			return q, errors.New("employee_id is required for level=employee")
		}
	default:
		return q, errors.New("level must be company, site, or employee")
	}

	var err error
	if q.StartDate, err = time.Parse("2006-01-02", qs.Get("start_date")); err != nil {
		return q, errors.New("start_date is required (use YYYY-MM-DD)")
	}
	if q.EndDate, err = time.Parse("2006-01-02", qs.Get("end_date")); err != nil {
		return q, errors.New("end_date is required (use YYYY-MM-DD)")
	}
	return q, nil
}

// =============================================================================
// SITE HANDLERS
// =============================================================================

// ListSites returns every geofenced site.
func (h *Handler) ListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.Store.ListSites(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sites", err)
		return
	}

	dtos := make([]SiteDTO, len(sites))
	for i, s := range sites {
		dtos[i] = SiteDTO{
			ID:           string(s.ID),
			CenterLat:    s.CenterLat,
			CenterLng:    s.CenterLng,
			RadiusMeters: s.RadiusMeters,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSite upserts a site boundary and refreshes the validator's
// geofence index so the change applies to the next punch.
func (h *Handler) CreateSite(w http.ResponseWriter, r *http.Request) {
	var req SiteDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Site id is required", nil)
		return
	}
	if req.RadiusMeters <= 0 {
		writeError(w, http.StatusBadRequest, "Radius must be positive", nil)
		return
	}
	if req.CenterLat < -90 || req.CenterLat > 90 || req.CenterLng < -180 || req.CenterLng > 180 {
		writeError(w, http.StatusBadRequest, "Center is out of range", nil)
		return
	}

	site := punch.Site{
		ID:           punch.SiteID(req.ID),
		CenterLat:    req.CenterLat,
		CenterLng:    req.CenterLng,
		RadiusMeters: req.RadiusMeters,
	}
	if err := h.Store.SaveSite(r.Context(), site); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save site", err)
		return
	}

	sites, err := h.Store.ListSites(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload sites", err)
		return
	}
	h.Validator.SetGeofence(punch.NewGeofenceIndex(sites))

	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// AdminCreatePair inserts a complete clock-in/clock-out pair on behalf
// of an administrator, bypassing geofence and state-machine checks.
// The cached labor summaries are dropped so the correction is visible
// on the next query.
func (h *Handler) AdminCreatePair(w http.ResponseWriter, r *http.Request) {
	var req AdminPairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" || req.SiteID == "" || req.AdminID == "" {
		writeError(w, http.StatusBadRequest, "employee_id, site_id and admin_id are required", nil)
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "A reason is required for admin corrections", nil)
		return
	}

	clockIn, err := time.Parse(time.RFC3339, req.ClockIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid clock_in (use RFC3339)", err)
		return
	}
	clockOut, err := time.Parse(time.RFC3339, req.ClockOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid clock_out (use RFC3339)", err)
		return
	}
	if !clockOut.After(clockIn) {
		writeError(w, http.StatusBadRequest, "clock_out must be after clock_in", nil)
		return
	}

	in := punch.PunchEvent{
		EmployeeID:       punch.EmployeeID(req.EmployeeID),
		SiteID:           punch.SiteID(req.SiteID),
		Kind:             punch.ClockIn,
		Timestamp:        clockIn.UTC(),
		AdminNote:        req.Reason,
		CreatedByAdminID: req.AdminID,
	}
	out := in
	out.Kind = punch.ClockOut
	out.Timestamp = clockOut.UTC()

	events, err := h.Store.AdminCreatePair(r.Context(), in, out, req.AdminID, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to create punch pair", err)
		return
	}

	h.Results.Clear()

	writeJSON(w, http.StatusCreated, SubmitPunchResponse{Events: toPunchEventDTOs(events)})
}

// AdminDeletePunch removes one ledger entry with an audit trail and
// drops the cached labor summaries.
func (h *Handler) AdminDeletePunch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid punch id", err)
		return
	}

	var req AdminDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.AdminID == "" || req.Reason == "" {
		writeError(w, http.StatusBadRequest, "admin_id and reason are required", nil)
		return
	}

	if err := h.Store.AdminDeleteEvent(r.Context(), punch.EventID(id), req.AdminID, req.Reason); err != nil {
		writeDomainError(w, "Failed to delete punch", err)
		return
	}

	h.Results.Clear()

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AdminChanges returns the audit trail for one employee, newest first.
func (h *Handler) AdminChanges(w http.ResponseWriter, r *http.Request) {
	employeeID := punch.EmployeeID(chi.URLParam(r, "employeeID"))

	changes, err := h.Store.AdminChanges(r.Context(), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load audit trail", err)
		return
	}

	dtos := make([]AdminChangeDTO, len(changes))
	for i, c := range changes {
		dtos[i] = AdminChangeDTO{
			ID:         c.ID,
			AdminID:    c.AdminID,
			EmployeeID: string(c.EmployeeID),
			Action:     c.Action,
			Reason:     c.Reason,
			EventIDs:   c.EventIDs,
			CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func toActiveStatusDTO(id punch.EmployeeID, st punch.ActiveStatus) ActiveStatusDTO {
	dto := ActiveStatusDTO{
		EmployeeID: string(id),
		IsActive:   st.IsActive,
	}
	if st.IsActive {
		dto.SiteID = string(st.SiteID)
		dto.ClockInAt = st.ClockInAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain error classes onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case punch.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case punch.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case punch.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, punch.ErrUpstreamUnavailable):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
