package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/manyminds/api2go"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/apperrors"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/planner"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/ports"
)

// Handler provides HTTP handlers for the appmanager demo service.
type Handler struct {
	planner *planner.Planner
	store   ports.AppStore
	logger  *slog.Logger
}

// NewHandler builds a Handler over p and s.
func NewHandler(p *planner.Planner, s ports.AppStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{planner: p, store: s, logger: logger}
}

// Routes returns the fully wired router: JSON:API reads under /api/v1, and
// the install/update/delete actions under /apps.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(jsonContentType)

	r.Get("/health", h.handleHealth)

	jsonAPI := api2go.NewAPIWithResolver("v1", api2go.NewStaticResolver("/api"))
	jsonAPI.ContentType = "application/vnd.api+json"
	jsonAPI.AddResource(AppInstanceResource{}, InstanceResource{Store: h.store})
	r.Mount("/api", jsonAPI.Handler())

	r.Route("/apps", func(r chi.Router) {
		r.Post("/", h.handleInstallApp)
		r.Patch("/{instanceId}", h.handleUpdateApp)
		r.Delete("/{instanceId}", h.handleDeleteApp)
	})

	return r
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type installRequest struct {
	AppID      string         `json:"appId"`
	Alias      string         `json:"alias"`
	Properties map[string]any `json:"properties"`
	Language   string         `json:"language"`
}

// instanceView is the plain-JSON response shape for the imperative
// install/update/delete endpoints. AppInstanceResource cannot be reused here
// directly: its InstanceID field is tagged json:"-" so api2go's JSON:API
// marshaling doesn't duplicate the id into the attributes object, which
// would otherwise also hide it from these plain encoding/json responses.
type instanceView struct {
	InstanceID   string               `json:"instanceId"`
	AppID        string               `json:"appId"`
	Alias        string               `json:"alias"`
	Properties   map[string]any       `json:"properties"`
	Dependencies []DependencyResource `json:"dependencies,omitempty"`
}

func toInstanceView(res AppInstanceResource) instanceView {
	return instanceView{
		InstanceID:   res.InstanceID,
		AppID:        res.AppID,
		Alias:        res.Alias,
		Properties:   res.Properties,
		Dependencies: res.Dependencies,
	}
}

type updateValuesResponse struct {
	Root              *instanceView  `json:"root,omitempty"`
	CreatedOrModified []instanceView `json:"createdOrModified"`
	Deleted           []instanceView `json:"deleted"`
	Warnings          []string       `json:"warnings,omitempty"`
}

func toResponse(values domain.UpdateValues) updateValuesResponse {
	resp := updateValuesResponse{Warnings: values.Warnings}
	if values.Root != nil {
		root := toInstanceView(FromDomain(*values.Root))
		resp.Root = &root
	}
	for _, instance := range values.CreatedOrModified {
		resp.CreatedOrModified = append(resp.CreatedOrModified, toInstanceView(FromDomain(instance)))
	}
	for _, instance := range values.Deleted {
		resp.Deleted = append(resp.Deleted, toInstanceView(FromDomain(instance)))
	}
	return resp
}

func (h *Handler) handleInstallApp(w http.ResponseWriter, r *http.Request) {
	var req installRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := r.Context()
	app, err := h.store.GetAppByID(ctx, req.AppID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	properties, err := domain.PropertiesFromMap(req.Properties)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user := r.Header.Get("X-Capability-Token")
	values, err := h.planner.InstallApp(ctx, user, req.Alias, properties, app, languageOrDefault(req.Language))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(values))
}

type updateRequest struct {
	AppID      string         `json:"appId"`
	Alias      string         `json:"alias"`
	Properties map[string]any `json:"properties"`
	Language   string         `json:"language"`
}

func (h *Handler) handleUpdateApp(w http.ResponseWriter, r *http.Request) {
	instanceID, err := uuid.Parse(chi.URLParam(r, "instanceId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := r.Context()
	existing, found, err := h.store.GetInstanceByID(ctx, instanceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, apperrors.ErrInstanceNotFound)
		return
	}
	app, err := h.store.GetAppByID(ctx, existing.AppID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	properties, err := domain.PropertiesFromMap(req.Properties)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	alias := req.Alias
	if alias == "" {
		alias = existing.Alias
	}
	user := r.Header.Get("X-Capability-Token")
	values, err := h.planner.UpdateApp(ctx, user, existing, alias, existing.Properties.MergeOverride(properties), app, languageOrDefault(req.Language))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(values))
}

func (h *Handler) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	instanceID, err := uuid.Parse(chi.URLParam(r, "instanceId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := r.Context()
	existing, found, err := h.store.GetInstanceByID(ctx, instanceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, apperrors.ErrInstanceNotFound)
		return
	}
	language := languageOrDefault(r.URL.Query().Get("language"))
	user := r.Header.Get("X-Capability-Token")
	values, err := h.planner.DeleteApp(ctx, user, existing, language)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(values))
}

func languageOrDefault(lang string) domain.Language {
	if lang == "" {
		return domain.LanguageEN
	}
	return domain.Language(lang)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrAppNotFound), errors.Is(err, apperrors.ErrInstanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrNotCompatible), errors.Is(err, apperrors.ErrNotInstallable), errors.Is(err, apperrors.ErrPolicyDenied):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
