package presentation

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kudaline/dispatch-service/internal/application"
	"github.com/kudaline/dispatch-service/internal/domain"
	"github.com/kudaline/dispatch-service/internal/geo"
	"github.com/kudaline/dispatch-service/internal/presentation/helpers"
)

type DispatchHandler struct {
	svc *application.Lifecycle
}

func NewDispatchHandler(svc *application.Lifecycle) *DispatchHandler {
	return &DispatchHandler{svc: svc}
}

func (h *DispatchHandler) Register(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
	r.Get("/orders/{id}", h.GetOrder)
	r.Post("/orders/{id}/status", h.AdvanceStatus)
	r.Post("/orders/{id}/feedback", h.RiderFeedback)
	r.Post("/orders/{id}/assign", h.Assign)
	r.Get("/riders/{id}/orders/active", h.RiderActiveOrders)
	r.Get("/riders/{id}/orders/assigned", h.RiderAssignedOrders)
}

type destinationDTO struct {
	Location       geo.PointInput `json:"location"`
	RecipientName  string         `json:"recipient_name"`
	RecipientPhone string         `json:"recipient_phone"`
}

type createOrderDTO struct {
	PayerID        uuid.UUID        `json:"payer_id"`
	Pickup         geo.PointInput   `json:"pickup"`
	Destinations   []destinationDTO `json:"destinations"`
	SenderName     string           `json:"sender_name"`
	SenderPhone    string           `json:"sender_phone"`
	RecipientName  string           `json:"recipient_name"`
	RecipientPhone string           `json:"recipient_phone"`
	VehicleClass   string           `json:"vehicle_class"`
	Urgent         bool             `json:"urgent"`
}

func (h *DispatchHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var dto createOrderDTO
	if err := helpers.DecodeJSON(r.Body, &dto); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	in := application.CreateOrderInput{
		PayerID:        dto.PayerID,
		Pickup:         dto.Pickup.Point,
		SenderName:     dto.SenderName,
		SenderPhone:    dto.SenderPhone,
		RecipientName:  dto.RecipientName,
		RecipientPhone: dto.RecipientPhone,
		VehicleClass:   dto.VehicleClass,
		Urgent:         dto.Urgent,
	}
	for _, d := range dto.Destinations {
		in.Destinations = append(in.Destinations, application.DestinationInput{
			Point:          d.Location.Point,
			RecipientName:  d.RecipientName,
			RecipientPhone: d.RecipientPhone,
		})
	}

	order, err := h.svc.CreateOrder(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, order)
}

func (h *DispatchHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, view)
}

type advanceDTO struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *DispatchHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var dto advanceDTO
	if err := helpers.DecodeJSON(r.Body, &dto); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	status, err := domain.ParseStatus(strings.ToUpper(strings.TrimSpace(dto.Status)))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.svc.Advance(r.Context(), id, status, dto.Note); err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type feedbackDTO struct {
	RiderID  uuid.UUID `json:"rider_id"`
	Accepted bool      `json:"accepted"`
}

func (h *DispatchHandler) RiderFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var dto feedbackDTO
	if err := helpers.DecodeJSON(r.Body, &dto); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if dto.RiderID == uuid.Nil {
		helpers.HttpError(w, http.StatusBadRequest, "rider_id is required")
		return
	}
	if err := h.svc.HandleFeedback(r.Context(), dto.RiderID, id, dto.Accepted); err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *DispatchHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.svc.AssignRider(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *DispatchHandler) RiderActiveOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	orders, err := h.svc.ActiveOrdersForRider(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, orders)
}

func (h *DispatchHandler) RiderAssignedOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	orders, err := h.svc.AssignedOrdersForRider(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, orders)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		helpers.HttpError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		helpers.HttpError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		helpers.HttpError(w, http.StatusNotFound, err.Error())
	case domain.IsConflict(err):
		helpers.HttpError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrExternalService):
		helpers.HttpError(w, http.StatusBadGateway, err.Error())
	default:
		helpers.HttpError(w, http.StatusInternalServerError, "internal error")
	}
}
