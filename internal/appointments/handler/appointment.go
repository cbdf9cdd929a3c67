package handler

import (
	"context"
	"medisched/internal/appointments/events"
	"medisched/internal/appointments/service"
	"medisched/pkg/auth"
	"medisched/pkg/calendar"
	apperrors "medisched/pkg/errors"
	httputil "medisched/pkg/http"
	"medisched/pkg/logger"
	"medisched/pkg/middleware"
	"medisched/pkg/model"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

// WebhookPrefix is served without a bearer token; requests are signed instead.
const WebhookPrefix = "/internal/v1/"

type AppointmentHandler struct {
	service       service.AppointmentService
	webhookSecret string
	log           *logger.Logger
}

func NewAppointmentHandler(service service.AppointmentService, webhookSecret string, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service:       service,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Book", err)
		return
	}

	p, _ := auth.FromContext(r.Context())
	view, err := h.service.RequestBooking(r.Context(), p, &req)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteCreated(w, view); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "operation", "WriteCreated", "error", err)
	}
}

func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, _ := auth.FromContext(r.Context())
	view, err := h.service.GetByID(r.Context(), p, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var patch model.AppointmentUpdate
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	p, _ := auth.FromContext(r.Context())
	view, err := h.service.RescheduleOrUpdate(r.Context(), p, ps.ByName("id"), &patch)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) Transition(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body model.StatusTransition
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(w, "Transition", err)
		return
	}

	p, _ := auth.FromContext(r.Context())
	view, err := h.service.TransitionStatus(r.Context(), p, ps.ByName("id"), body.Status)
	if err != nil {
		h.writeError(w, "Transition", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "Transition", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, _ := auth.FromContext(r.Context())
	view, err := h.service.Cancel(r.Context(), p, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.list(w, r, "ListMine", model.AppointmentFilter{}, h.service.ListMine)
}

func (h *AppointmentHandler) ListForDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.list(w, r, "ListForDoctor", model.AppointmentFilter{DoctorID: ps.ByName("doctor_id")}, h.service.ListForDoctor)
}

func (h *AppointmentHandler) ListByPatient(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.list(w, r, "ListByPatient", model.AppointmentFilter{PatientID: ps.ByName("patient_id")}, h.service.ListByPatient)
}

func (h *AppointmentHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, _ := auth.FromContext(r.Context())
	stats, err := h.service.Stats(r.Context(), p, r.URL.Query().Get("doctor_id"))
	if err != nil {
		h.writeError(w, "Stats", err)
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "Stats", "operation", "WriteSuccess", "error", err)
	}
}

// PrescriptionCompleted is the signed webhook twin of the Kafka consumer.
func (h *AppointmentHandler) PrescriptionCompleted(w http.ResponseWriter, r *http.Request) {
	var event events.PrescriptionCompleted
	if err := httputil.DecodeJSON(r, &event); err != nil {
		h.writeError(w, "PrescriptionCompleted", err)
		return
	}
	if event.AppointmentID == "" || event.PrescriptionID == "" {
		h.writeError(w, "PrescriptionCompleted", apperrors.InvalidInput("appointment_id and prescription_id are required"))
		return
	}

	view, err := h.service.CompleteFromPrescription(r.Context(), events.PrescriptionActor, event.AppointmentID, event.PrescriptionID)
	if err != nil {
		h.writeError(w, "PrescriptionCompleted", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "PrescriptionCompleted", "operation", "WriteSuccess", "error", err)
	}
}

type listFunc func(ctx context.Context, p *auth.Principal, filter model.AppointmentFilter, limit int, offset int64) ([]*model.AppointmentView, int64, error)

// list reads the optional "date" (YYYY-MM-DD) and comma separated "status"
// query parameters shared by every listing.
func (h *AppointmentHandler) list(w http.ResponseWriter, r *http.Request, name string, filter model.AppointmentFilter, fn listFunc) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	query := r.URL.Query()
	if value := query.Get("date"); value != "" {
		date, err := time.Parse(calendar.DateLayout, value)
		if err != nil {
			h.writeError(w, name, apperrors.InvalidInput("invalid date parameter: "+value))
			return
		}
		date = calendar.Normalize(date)
		filter.Date = &date
	}
	if status := query.Get("status"); status != "" {
		for _, s := range strings.Split(status, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, s)
			}
		}
	}

	p, _ := auth.FromContext(r.Context())
	views, total, err := fn(r.Context(), p, filter, limit, offset)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WritePaginated(w, views, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", name, "operation", "WritePaginated", "error", err)
	}
}

func (h *AppointmentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/appointments", h.Book)
	router.GET("/api/v1/appointments/mine", h.ListMine)
	router.GET("/api/v1/appointments/stats", h.Stats)
	router.GET("/api/v1/appointments/id/:id", h.GetByID)
	router.PATCH("/api/v1/appointments/id/:id", h.Update)
	router.POST("/api/v1/appointments/id/:id/status", h.Transition)
	router.POST("/api/v1/appointments/id/:id/cancel", h.Cancel)
	router.GET("/api/v1/appointments/doctor/:doctor_id", h.ListForDoctor)
	router.GET("/api/v1/appointments/patient/:patient_id", h.ListByPatient)

	signed := middleware.SignatureVerification(h.webhookSecret, h.log)
	router.Handler(http.MethodPost, WebhookPrefix+"prescriptions/completed", signed(http.HandlerFunc(h.PrescriptionCompleted)))
}
