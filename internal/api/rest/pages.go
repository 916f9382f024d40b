package rest

import (
	"bytes"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/render"
	"github.com/fortuna/roster/internal/roster"
)

// Page serves the roster page. A failed last load shows the error banner.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	var banner *render.Banner
	if report, ok := h.svc.LastLoad(); ok && report.Failed() {
		banner = render.LoadErrorBanner(report.DatabaseReachable)
	}
	h.renderPage(w, http.StatusOK, banner)
}

// SubmitCreatePlayer handles the add-player form.
func (h *Handler) SubmitCreatePlayer(w http.ResponseWriter, r *http.Request) {
	p, err := decodePlayer(r)
	if err == nil {
		_, err = h.svc.CreatePlayer(r.Context(), p)
	}
	h.afterSubmit(w, r, err)
}

// SubmitEditPlayer handles the edit form of a player.
func (h *Handler) SubmitEditPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := decodePlayer(r)
	if err == nil {
		p.ID = mux.Vars(r)["playerID"]
		_, err = h.svc.SavePlayer(r.Context(), p)
	}
	h.afterSubmit(w, r, err)
}

// SubmitDeletePlayer handles the delete button of a former player.
func (h *Handler) SubmitDeletePlayer(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeletePlayer(r.Context(), mux.Vars(r)["playerID"])
	h.afterSubmit(w, r, err)
}

// SubmitTransfer handles the move buttons.
func (h *Handler) SubmitTransfer(w http.ResponseWriter, r *http.Request) {
	team, err := roster.ParseGroup(r.FormValue("team"))
	if err == nil {
		_, err = h.svc.Transfer(r.Context(), mux.Vars(r)["playerID"], team, r.Header.Get(headerIdempotencyKey))
	}
	h.afterSubmit(w, r, err)
}

// afterSubmit redirects back to the page, or re-renders it with an alert.
func (h *Handler) afterSubmit(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	status, _ := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("form action failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	h.renderPage(w, status, render.AlertBanner(err))
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, banner *render.Banner) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, h.svc.Snapshot(), banner); err != nil {
		h.logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
