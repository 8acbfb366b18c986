// AngelaMos | 2026
// handler.go

package vehicle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/smarttaxi/user-service/internal/core"
	"github.com/smarttaxi/user-service/internal/middleware"
	"github.com/smarttaxi/user-service/internal/user"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
	now       func() time.Time
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
		now:       time.Now,
	}
}

// RegisterRoutes mounts the fleet registry on a router scoped to
// /vehicles behind the authenticator. Reading a single vehicle needs any
// valid token; everything else is for administrators.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/{vehicleID}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAnyRole(user.RoleAdmin))

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/{vehicleID}", h.Update)
		r.Post("/{vehicleID}/verify", h.Verify)
		r.Post("/{vehicleID}/activate", h.Activate)
		r.Post("/{vehicleID}/deactivate", h.Deactivate)
		r.Get("/{vehicleID}/drivers", h.ListDrivers)
		r.Post("/{vehicleID}/drivers/{userID}", h.AssociateDriver)
		r.Delete("/{vehicleID}/drivers/{userID}", h.RemoveDriver)
	})
}

// RegisterUserRoutes adds GET /{userID}/vehicles to a router scoped to
// /users.
func (h *Handler) RegisterUserRoutes(r chi.Router) {
	r.Get("/{userID}/vehicles", h.ListForUser)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	v, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToVehicleResponse(v, h.now()))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "vehicleID", "invalid vehicle id")
	if !ok {
		return
	}

	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToVehicleResponse(v, h.now()))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	isActive, err := parseBoolQuery(r, "is_active")
	if err != nil {
		core.BadRequest(w, "is_active must be true or false")
		return
	}
	isVerified, err := parseBoolQuery(r, "is_verified")
	if err != nil {
		core.BadRequest(w, "is_verified must be true or false")
		return
	}

	params := ListVehiclesParams{
		Page:        parseIntQuery(r, "page", 1),
		PageSize:    parseIntQuery(r, "page_size", defaultPageSize),
		Search:      q.Get("search"),
		VehicleType: q.Get("type"),
		IsActive:    isActive,
		IsVerified:  isVerified,
	}
	params.Normalize()

	vehicles, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToVehicleResponseList(vehicles, h.now()),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "vehicleID", "invalid vehicle id")
	if !ok {
		return
	}

	var req UpdateVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	v, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToVehicleResponse(v, h.now()))
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Verify)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Activate)
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Deactivate)
}

func (h *Handler) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, id int64) (*Vehicle, error),
) {
	id, ok := idParam(w, r, "vehicleID", "invalid vehicle id")
	if !ok {
		return
	}

	v, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToVehicleResponse(v, h.now()))
}

func (h *Handler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "vehicleID", "invalid vehicle id")
	if !ok {
		return
	}

	drivers, err := h.service.ListDrivers(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, drivers)
}

func (h *Handler) AssociateDriver(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := idParam(w, r, "vehicleID", "invalid vehicle id")
	if !ok {
		return
	}
	userID, ok := idParam(w, r, "userID", "invalid user id")
	if !ok {
		return
	}

	if err := h.service.AssociateDriver(r.Context(), vehicleID, userID); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) RemoveDriver(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := idParam(w, r, "vehicleID", "invalid vehicle id")
	if !ok {
		return
	}
	userID, ok := idParam(w, r, "userID", "invalid user id")
	if !ok {
		return
	}

	if err := h.service.RemoveDriver(r.Context(), vehicleID, userID); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(w, r, "userID", "invalid user id")
	if !ok {
		return
	}
	identity, _ := middleware.GetIdentity(r.Context())

	vehicles, err := h.service.ListForUser(r.Context(), identity, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToVehicleResponseList(vehicles, h.now()))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDriverNotFound):
		core.NotFound(w, "driver")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "vehicle")
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("license plate"))
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "insufficient permissions")
	default:
		core.InternalServerError(w, err)
	}
}

func idParam(w http.ResponseWriter, r *http.Request, key, msg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		core.BadRequest(w, msg)
		return 0, false
	}
	return id, true
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}

func parseBoolQuery(r *http.Request, key string) (*bool, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return nil, err
	}

	return &parsed, nil
}
