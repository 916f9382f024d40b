package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/reconciliation"
	"github.com/fortuna/roster/internal/render"
	"github.com/fortuna/roster/internal/roster"
	"github.com/fortuna/roster/internal/service"
	"github.com/fortuna/roster/internal/store/resilient"
)

const headerIdempotencyKey = "Idempotency-Key"

// EventReader returns recently published events, newest first.
type EventReader interface {
	Recent(ctx context.Context, count int64) ([]roster.Event, error)
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	svc      *service.RosterService
	renderer *render.Renderer
	audit    *reconciliation.Engine
	events   EventReader
	logger   *zap.Logger
}

// NewHandler creates a new handler. audit and events may be nil.
func NewHandler(svc *service.RosterService, renderer *render.Renderer, audit *reconciliation.Engine, events EventReader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:      svc,
		renderer: renderer,
		audit:    audit,
		events:   events,
		logger:   logger,
	}
}

// HealthCheck reports whether the service and its database are reachable.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, database, code := "healthy", "ok", http.StatusOK
	if err := h.svc.Ping(r.Context()); err != nil {
		status, database, code = "degraded", "unreachable", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]string{
		"status":   status,
		"service":  "roster",
		"database": database,
	})
}

type rosterResponse struct {
	Groups       map[roster.Group][]roster.Player `json:"groups"`
	Values       map[roster.Group]float64         `json:"values"`
	Balances     map[roster.Group]float64         `json:"balances"`
	Transactions []roster.Transaction             `json:"transactions"`
}

func newRosterResponse(snap roster.Snapshot) rosterResponse {
	resp := rosterResponse{
		Groups:       make(map[roster.Group][]roster.Player, 3),
		Values:       make(map[roster.Group]float64, 3),
		Balances:     make(map[roster.Group]float64, 2),
		Transactions: snap.Transactions,
	}
	for _, g := range []roster.Group{roster.GroupTeamA, roster.GroupTeamB, roster.GroupFormer} {
		players := snap.Players(g)
		resp.Groups[g] = roster.SortByPosition(players)
		resp.Values[g] = roster.GroupValue(players)
	}
	for _, team := range roster.ActiveTeams {
		resp.Balances[team] = snap.Balance(team)
	}
	if resp.Transactions == nil {
		resp.Transactions = []roster.Transaction{}
	}
	return resp
}

// GetRoster returns the in-memory roster.
func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newRosterResponse(h.svc.Snapshot()))
}

type loadResponse struct {
	Failed            bool              `json:"failed"`
	DatabaseReachable bool              `json:"database_reachable,omitempty"`
	Dropped           int               `json:"dropped"`
	Errors            map[string]string `json:"errors,omitempty"`
}

// ReloadRoster re-reads everything from the store.
func (h *Handler) ReloadRoster(w http.ResponseWriter, r *http.Request) {
	report := h.svc.Load(r.Context())

	resp := loadResponse{
		Failed:            report.Failed(),
		DatabaseReachable: report.DatabaseReachable,
		Dropped:           report.Dropped,
	}
	if errs := report.Errors(); len(errs) > 0 {
		resp.Errors = make(map[string]string, len(errs))
		for source, err := range errs {
			resp.Errors[source] = err.Error()
		}
	}

	status := http.StatusOK
	if resp.Failed {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

// ResetRoster clears the in-memory roster.
func (h *Handler) ResetRoster(w http.ResponseWriter, r *http.Request) {
	h.svc.Reset(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{"message": "roster reset"})
}

// CreatePlayer adds a player. Adding to an active team is a purchase.
func (h *Handler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	p, err := decodePlayer(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid player", err, errors.Is(err, roster.ErrUnknownGroup))
		return
	}

	plan, err := h.svc.CreatePlayer(r.Context(), p)
	if err != nil {
		h.fail(w, "Failed to create player", err)
		return
	}
	respondJSON(w, http.StatusCreated, plan)
}

// UpdatePlayer edits name, position and value of a player.
func (h *Handler) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	p, err := decodePlayer(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid player", err, errors.Is(err, roster.ErrUnknownGroup))
		return
	}
	p.ID = mux.Vars(r)["playerID"]

	saved, err := h.svc.SavePlayer(r.Context(), p)
	if err != nil {
		h.fail(w, "Failed to save player", err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

// DeletePlayer removes a former player.
func (h *Handler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePlayer(r.Context(), mux.Vars(r)["playerID"]); err != nil {
		h.fail(w, "Failed to delete player", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transferRequest struct {
	Team string `json:"team"`
}

// TransferPlayer moves a player between groups. An unknown player id is a
// no-op that still answers 200.
func (h *Handler) TransferPlayer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body", err, false)
			return
		}
	} else {
		req.Team = r.FormValue("team")
	}

	team, err := roster.ParseGroup(req.Team)
	if err != nil {
		h.fail(w, "Transfer failed", err)
		return
	}

	plan, err := h.svc.Transfer(r.Context(), mux.Vars(r)["playerID"], team, r.Header.Get(headerIdempotencyKey))
	if err != nil {
		h.fail(w, "Transfer failed", err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

type transactionRequest struct {
	Team   string  `json:"team"`
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
	Info   string  `json:"info"`
}

// RecordTransaction posts a ledger entry and moves the team balance.
func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err, false)
		return
	}

	team, err := roster.ParseGroup(req.Team)
	if err != nil {
		h.fail(w, "Failed to record transaction", err)
		return
	}

	plan, err := h.svc.RecordTransaction(r.Context(), team, roster.TransactionType(req.Type), req.Amount, req.Info)
	if err != nil {
		h.fail(w, "Failed to record transaction", err)
		return
	}
	respondJSON(w, http.StatusCreated, plan)
}

// GetAudit runs the reconciliation check against the store.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respondError(w, http.StatusNotImplemented, "Audit not configured", nil, false)
		return
	}
	report, err := h.audit.Audit(r.Context())
	if err != nil {
		h.fail(w, "Audit failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"consistent": report.Consistent(),
		"report":     report,
		"stats":      h.audit.GetStats(),
	})
}

// GetEvents returns recently published roster events.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		respondError(w, http.StatusNotImplemented, "Event stream not configured", nil, false)
		return
	}

	count := int64(20) // default
	if s := r.URL.Query().Get("count"); s != "" {
		if c, err := strconv.ParseInt(s, 10, 64); err == nil && c > 0 && c <= 500 {
			count = c
		}
	}

	events, err := h.events.Recent(r.Context(), count)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Failed to read events", err, false)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

type playerRequest struct {
	Name     string             `json:"name"`
	Position roster.Position    `json:"position"`
	Value    roster.MarketValue `json:"value"`
	Team     string             `json:"team"`
}

// decodePlayer reads a player from a JSON body or a submitted form. The
// value may be given as text. An omitted team is left empty, edits keep the
// current group.
func decodePlayer(r *http.Request) (roster.Player, error) {
	var req playerRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return roster.Player{}, fmt.Errorf("decoding player: %w", err)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return roster.Player{}, fmt.Errorf("parsing form: %w", err)
		}
		req.Name = r.PostForm.Get("name")
		req.Position = roster.Position(r.PostForm.Get("position"))
		req.Value = roster.MarketValue(roster.ParseValue(r.PostForm.Get("value")))
		req.Team = r.PostForm.Get("team")
	}

	p := roster.Player{
		Name:     strings.TrimSpace(req.Name),
		Position: roster.Position(strings.TrimSpace(string(req.Position))),
		Value:    req.Value,
	}
	if strings.TrimSpace(req.Team) != "" {
		team, err := roster.ParseGroup(req.Team)
		if err != nil {
			return roster.Player{}, err
		}
		p.Team = team
	}
	return p, nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// fail maps a service error to its response.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status, alert := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
	}
	respondError(w, status, message, err, alert)
}

// statusFor maps an error to an HTTP status. alert marks business rule
// violations the page shows to the user.
func statusFor(err error) (status int, alert bool) {
	var partial *service.PartialApplyError
	switch {
	case errors.Is(err, roster.ErrInsufficientFunds),
		errors.Is(err, roster.ErrPlayerOnActiveTeam):
		return http.StatusConflict, true
	case errors.Is(err, roster.ErrUnknownGroup),
		errors.Is(err, roster.ErrUnknownTeam),
		errors.Is(err, roster.ErrInvalidPlayer),
		errors.Is(err, roster.ErrInvalidTransaction):
		return http.StatusBadRequest, true
	case errors.Is(err, roster.ErrPlayerNotFound):
		return http.StatusNotFound, false
	case errors.Is(err, service.ErrRequestInProgress):
		return http.StatusConflict, false
	case errors.Is(err, service.ErrRequestKeyReused):
		return http.StatusUnprocessableEntity, false
	case errors.Is(err, resilient.ErrUnavailable):
		return http.StatusServiceUnavailable, false
	case errors.As(err, &partial):
		return http.StatusInternalServerError, true
	default:
		return http.StatusInternalServerError, false
	}
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error, alert bool) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
		"alert":  alert,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
