package handler

import (
	"medisched/internal/timeslots/service"
	"medisched/pkg/auth"
	"medisched/pkg/calendar"
	apperrors "medisched/pkg/errors"
	httputil "medisched/pkg/http"
	"medisched/pkg/logger"
	"medisched/pkg/model"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

type TimeSlotHandler struct {
	service service.TimeSlotService
	log     *logger.Logger
}

func NewTimeSlotHandler(service service.TimeSlotService, log *logger.Logger) *TimeSlotHandler {
	return &TimeSlotHandler{
		service: service,
		log:     log,
	}
}

func (h *TimeSlotHandler) Request(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.SlotRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Request", err)
		return
	}

	p, _ := auth.FromContext(r.Context())
	slots, err := h.service.RequestSlots(r.Context(), p, &req)
	if err != nil {
		h.writeError(w, "Request", err)
		return
	}

	if err := httputil.WriteCreated(w, slots); err != nil {
		h.log.Error("failed to write created response", "handler", "Request", "operation", "WriteCreated", "error", err)
	}
}

func (h *TimeSlotHandler) ListPending(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListPending", err)
		return
	}

	p, _ := auth.FromContext(r.Context())
	slots, total, err := h.service.ListPending(r.Context(), p, limit, offset)
	if err != nil {
		h.writeError(w, "ListPending", err)
		return
	}

	if err := httputil.WritePaginated(w, slots, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListPending", "operation", "WritePaginated", "error", err)
	}
}

func (h *TimeSlotHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, _ := auth.FromContext(r.Context())
	slot, err := h.service.GetByID(r.Context(), p, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TimeSlotHandler) Approve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, _ := auth.FromContext(r.Context())
	slot, err := h.service.Approve(r.Context(), p, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Approve", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "Approve", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TimeSlotHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, _ := auth.FromContext(r.Context())
	if err := h.service.Reject(r.Context(), p, ps.ByName("id")); err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	if err := httputil.WriteNoContent(w); err != nil {
		h.log.Error("failed to write no content response", "handler", "Reject", "operation", "WriteNoContent", "error", err)
	}
}

func (h *TimeSlotHandler) MarkUnavailable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, _ := auth.FromContext(r.Context())
	slot, err := h.service.MarkUnavailable(r.Context(), p, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "MarkUnavailable", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkUnavailable", "operation", "WriteSuccess", "error", err)
	}
}

// ListForDoctor accepts optional "day" (weekday name) and comma separated
// "status" query parameters.
func (h *TimeSlotHandler) ListForDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	filter := model.SlotFilter{DoctorID: ps.ByName("doctor_id")}
	query := r.URL.Query()

	if day := query.Get("day"); day != "" {
		d, err := calendar.ParseWeekday(day)
		if err != nil {
			h.writeError(w, "ListForDoctor", apperrors.InvalidInput(err.Error()))
			return
		}
		filter.DayOfWeek = &d
	}
	if status := query.Get("status"); status != "" {
		for _, s := range strings.Split(status, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, s)
			}
		}
	}

	p, _ := auth.FromContext(r.Context())
	slots, err := h.service.ListForDoctor(r.Context(), p, filter)
	if err != nil {
		h.writeError(w, "ListForDoctor", err)
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "ListForDoctor", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TimeSlotHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *TimeSlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/timeslots/requests", h.Request)
	router.GET("/api/v1/timeslots/requests/pending", h.ListPending)
	router.GET("/api/v1/timeslots/id/:id", h.GetByID)
	router.POST("/api/v1/timeslots/id/:id/approve", h.Approve)
	router.POST("/api/v1/timeslots/id/:id/reject", h.Reject)
	router.POST("/api/v1/timeslots/id/:id/unavailable", h.MarkUnavailable)
	router.GET("/api/v1/timeslots/doctor/:doctor_id", h.ListForDoctor)
}
