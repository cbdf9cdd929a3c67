package handler

import (
	"medisched/internal/triage/service"
	"medisched/pkg/auth"
	httputil "medisched/pkg/http"
	"medisched/pkg/logger"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type recommendRequest struct {
	Symptoms []string `json:"symptoms"`
}

type TriageHandler struct {
	service service.TriageService
	log     *logger.Logger
}

func NewTriageHandler(service service.TriageService, log *logger.Logger) *TriageHandler {
	return &TriageHandler{
		service: service,
		log:     log,
	}
}

func (h *TriageHandler) Suggest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	suggestions := h.service.Suggest(r.URL.Query().Get("query"))
	if err := httputil.WriteSuccess(w, suggestions); err != nil {
		h.log.Error("failed to write success response", "handler", "Suggest", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TriageHandler) Recommend(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req recommendRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Recommend", err)
		return
	}

	p, _ := auth.FromContext(r.Context())
	rec, err := h.service.Recommend(r.Context(), p, req.Symptoms)
	if err != nil {
		h.writeError(w, "Recommend", err)
		return
	}

	if err := httputil.WriteSuccess(w, rec); err != nil {
		h.log.Error("failed to write success response", "handler", "Recommend", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TriageHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *TriageHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/triage/suggestions", h.Suggest)
	router.POST("/api/v1/triage/recommend", h.Recommend)
}
