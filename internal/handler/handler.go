// Package handler содержит HTTP-обработчики API сервиса смартпарк.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mmeshcher/smartpark-system/internal/geo"
	"github.com/mmeshcher/smartpark-system/internal/middleware"
	"github.com/mmeshcher/smartpark-system/internal/model"
	"github.com/mmeshcher/smartpark-system/internal/registry"
	"github.com/mmeshcher/smartpark-system/internal/service"
	"github.com/mmeshcher/smartpark-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(login, password string) error
	AuthenticateUser(login, password string) (string, error)

	Zones() []model.Spot
	AddZone(data registry.SpotData) model.Spot
	DeleteZone(id int64) error
	Payments() []model.Payment

	Snapshot() service.FlowSnapshot
	RequestParking(dest model.Coordinate, forcedID int64) error
	LockSpot(user string) error
	StartNavigation() error
	CompleteParking() error
	ResetFlow()
	VacateSpot()
	CompletePayment(user string, card model.Card) (model.Payment, error)
	CancelPayment()
}

// Geo определяет контракт геосервиса: геокодирование и маршрутизация.
type Geo interface {
	Search(ctx context.Context, query string) ([]geo.Candidate, error)
	Route(ctx context.Context, start, end model.Coordinate) (*geo.Route, error)
}

// Handler реализует HTTP-обработчики API сервиса смартпарк.
type Handler struct {
	service        Service
	geo            Geo
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	ws             http.Handler
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов. geo и ws могут
// быть nil, соответствующие маршруты тогда отвечают 503.
func NewHandler(s Service, g Geo, logger *zap.Logger, auth *middleware.AuthMiddleware, ws http.Handler) *Handler {
	return &Handler{
		service:        s,
		geo:            g,
		logger:         logger,
		authMiddleware: auth,
		ws:             ws,
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.RegisterUser(req.Login, req.Password); err != nil {
		if errors.Is(err, registry.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, req.Login, model.RoleCustomer)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	role, err := h.service.AuthenticateUser(req.Login, req.Password)
	if err != nil {
		if errors.Is(err, registry.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, req.Login, role)
	w.WriteHeader(http.StatusOK)
}

// GetZones возвращает полный список парковочных зон.
func (h *Handler) GetZones(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Zones())
}

type zoneRequest struct {
	Name  string  `json:"name"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Total int     `json:"total"`
	Price float64 `json:"price"`
}

// AddZone создаёт новую зону. Доступно только администратору.
func (h *Handler) AddZone(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Total <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	spot := h.service.AddZone(registry.SpotData{
		Name:  req.Name,
		Lat:   req.Lat,
		Lng:   req.Lng,
		Total: req.Total,
		Price: req.Price,
	})

	h.writeJSON(w, http.StatusCreated, spot)
}

// DeleteZone удаляет зону по идентификатору. Защищённая зона отвечает 409.
func (h *Handler) DeleteZone(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	id, err := strconv.ParseInt(pathID(r), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteZone(id); err != nil {
		switch {
		case errors.Is(err, registry.ErrZoneProtected):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, registry.ErrZoneNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("delete zone error", zap.Error(err), zap.Int64("zoneID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetPayments возвращает локальный журнал платежей.
func (h *Handler) GetPayments(w http.ResponseWriter, r *http.Request) {
	payments := h.service.Payments()
	if len(payments) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, payments)
}

// GetFlow возвращает снимок состояния сценария бронирования.
func (h *Handler) GetFlow(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Snapshot())
}

type flowRequest struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Query  string  `json:"query"`
	SpotID int64   `json:"spot_id"`
}

// RequestParking запускает поиск зоны у точки назначения. Точка задаётся
// координатами либо текстовым запросом, который геокодируется.
func (h *Handler) RequestParking(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	dest := model.Coordinate{Lat: req.Lat, Lng: req.Lng}
	if req.Query != "" {
		if h.geo == nil {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		candidates, err := h.geo.Search(r.Context(), req.Query)
		if err != nil {
			h.logger.Error("geocode error", zap.Error(err), zap.String("query", req.Query))
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
			return
		}
		if len(candidates) == 0 {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		dest = model.Coordinate{Lat: candidates[0].Lat, Lng: candidates[0].Lng}
	}

	if err := h.service.RequestParking(dest, req.SpotID); err != nil {
		h.flowError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, h.service.Snapshot())
}

// LockSpot бронирует рекомендованную зону за текущим пользователем.
func (h *Handler) LockSpot(w http.ResponseWriter, r *http.Request) {
	login, _, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.service.LockSpot(login); err != nil {
		h.flowError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.service.Snapshot())
}

// StartNavigation начинает движение к забронированной зоне.
func (h *Handler) StartNavigation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.StartNavigation(); err != nil {
		h.flowError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.Snapshot())
}

// CompleteParking фиксирует прибытие на место.
func (h *Handler) CompleteParking(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CompleteParking(); err != nil {
		h.flowError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.Snapshot())
}

// ResetFlow сбрасывает сценарий в исходное состояние.
func (h *Handler) ResetFlow(w http.ResponseWriter, r *http.Request) {
	h.service.ResetFlow()
	h.writeJSON(w, http.StatusOK, h.service.Snapshot())
}

// VacateSpot освобождает занятое место.
func (h *Handler) VacateSpot(w http.ResponseWriter, r *http.Request) {
	h.service.VacateSpot()
	h.writeJSON(w, http.StatusOK, h.service.Snapshot())
}

// CompletePayment подтверждает оплату премиум-доступа платёжной картой.
func (h *Handler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	var card model.Card
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	login, _, _ := middleware.GetUserFromContext(r.Context())

	payment, err := h.service.CompletePayment(login, card)
	if err != nil {
		if isCardError(err) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error("complete payment error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, payment)
}

// CancelPayment закрывает платёжное окно без оплаты.
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	h.service.CancelPayment()
	h.writeJSON(w, http.StatusOK, h.service.Snapshot())
}

// GetRoute возвращает маршрут между двумя точками для отображения на карте.
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	if h.geo == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	start, ok1 := coordinateParam(r, "from_lat", "from_lng")
	end, ok2 := coordinateParam(r, "to_lat", "to_lng")
	if !ok1 || !ok2 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	route, err := h.geo.Route(r.Context(), start, end)
	if err != nil {
		h.logger.Error("route error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusOK, route)
}

func coordinateParam(r *http.Request, latKey, lngKey string) (model.Coordinate, bool) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get(latKey), 64)
	lng, err2 := strconv.ParseFloat(r.URL.Query().Get(lngKey), 64)
	if err1 != nil || err2 != nil {
		return model.Coordinate{}, false
	}
	return model.Coordinate{Lat: lat, Lng: lng}, true
}

func (h *Handler) flowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrWrongState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrUserRequired):
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	default:
		h.logger.Error("flow action error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func isCardError(err error) bool {
	return errors.Is(err, validation.ErrCardName) ||
		errors.Is(err, validation.ErrCardNumber) ||
		errors.Is(err, validation.ErrCardExpiry) ||
		errors.Is(err, validation.ErrCardCVV)
}

func (h *Handler) isAdmin(r *http.Request) bool {
	_, role, ok := middleware.GetUserFromContext(r.Context())
	return ok && role == model.RoleAdmin
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}
