package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"risk-service/internal/service"
	"risk-service/internal/util"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrganizationHandler handles HTTP requests for organization operations
type OrganizationHandler struct {
	orgService *service.OrganizationService
	logger     *zap.Logger
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(orgService *service.OrganizationService, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		orgService: orgService,
		logger:     logger,
	}
}

// RegisterRoutes registers all organization routes
func (h *OrganizationHandler) RegisterRoutes(router chi.Router) {
	router.Route("/organizations", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/declarations/high-impact", h.HighImpactDeclarations)

		r.Route("/{orgID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/declaration", h.DeclareBreach)
			r.Get("/declaration", h.GetDeclaration)
			r.Delete("/declaration", h.DeleteDeclaration)
		})
	})
}

// Create handles organization creation
// @Summary Create an organization
// @Description Create an organization; re-creating an existing id returns the stored record
// @Tags organizations
// @Accept json
// @Produce json
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Router /organizations [post]
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req struct {
		OrgID string `json:"org_id"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	org, created, err := h.orgService.Create(ctx, req.OrgID, req.Name)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to create organization")
		return
	}

	status := http.StatusCreated
	message := "Organization created successfully"
	if !created {
		status = http.StatusOK
		message = "Organization already exists"
	}

	respondWithJSON(w, h.logger, status, successResponse(org, message))
	h.logger.Info("Organization created via HTTP",
		util.String("org_id", org.OrgID),
		util.Bool("created", created),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Create"),
	)
}

// List handles organization listing
// @Summary List organizations
// @Tags organizations
// @Produce json
// @Success 200 {object} Response
// @Router /organizations [get]
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgService.List(r.Context())
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to list organizations")
		return
	}

	response := successResponse(orgs, "Organizations retrieved successfully")
	response.Meta = &Meta{Total: len(orgs)}
	respondWithJSON(w, h.logger, http.StatusOK, response)
}

// Get handles organization retrieval
// @Summary Get organization
// @Tags organizations
// @Produce json
// @Param orgID path string true "Organization ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /organizations/{orgID} [get]
func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.orgService.Get(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to get organization")
		return
	}
	if org == nil {
		respondWithError(w, h.logger, http.StatusNotFound, errors.New("organization not found"), "Organization not found")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(org, "Organization retrieved successfully"))
}

// DeclareBreach handles declaration upsert
// @Summary Declare breach category
// @Description Store the organization's single breach declaration, replacing any previous one
// @Tags organizations
// @Accept json
// @Produce json
// @Param orgID path string true "Organization ID"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /organizations/{orgID}/declaration [put]
func (h *OrganizationHandler) DeclareBreach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := chi.URLParam(r, "orgID")

	var req service.DeclareBreachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	decl, err := h.orgService.DeclareBreach(ctx, orgID, &req)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to declare breach")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(decl, "Breach declared successfully"))
	h.logger.Info("Breach declared via HTTP",
		util.String("org_id", orgID),
		util.String("category", string(decl.Category)),
		util.Int("effect_weight", decl.EffectWeight),
		util.String("method", "DeclareBreach"),
	)
}

// GetDeclaration handles declaration retrieval
// @Summary Get declaration
// @Tags organizations
// @Produce json
// @Param orgID path string true "Organization ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /organizations/{orgID}/declaration [get]
func (h *OrganizationHandler) GetDeclaration(w http.ResponseWriter, r *http.Request) {
	decl, err := h.orgService.GetDeclaration(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to get declaration")
		return
	}
	if decl == nil {
		respondWithError(w, h.logger, http.StatusNotFound, errors.New("declaration not found"), "Declaration not found")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(decl, "Declaration retrieved successfully"))
}

// DeleteDeclaration handles declaration deletion
// @Summary Delete declaration
// @Tags organizations
// @Produce json
// @Param orgID path string true "Organization ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /organizations/{orgID}/declaration [delete]
func (h *OrganizationHandler) DeleteDeclaration(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	if err := h.orgService.DeleteDeclaration(r.Context(), orgID); err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to delete declaration")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(nil, "Declaration deleted successfully"))
	h.logger.Info("Declaration deleted via HTTP",
		util.String("org_id", orgID),
		util.String("method", "DeleteDeclaration"),
	)
}

// HighImpactDeclarations handles high-impact declaration queries
// @Summary List high-impact declarations
// @Description Declarations whose effect weight meets or exceeds the threshold
// @Tags organizations
// @Produce json
// @Param threshold query int false "Minimum effect weight (default: 70)"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /organizations/declarations/high-impact [get]
func (h *OrganizationHandler) HighImpactDeclarations(w http.ResponseWriter, r *http.Request) {
	threshold := 70
	if thresholdStr := r.URL.Query().Get("threshold"); thresholdStr != "" {
		parsed, err := strconv.Atoi(thresholdStr)
		if err != nil || parsed < 0 || parsed > 100 {
			respondWithError(w, h.logger, http.StatusBadRequest, errors.New("invalid threshold"), "Threshold must be between 0 and 100")
			return
		}
		threshold = parsed
	}

	decls, err := h.orgService.HighImpactDeclarations(r.Context(), threshold)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to list high-impact declarations")
		return
	}

	response := successResponse(decls, "High-impact declarations retrieved successfully")
	response.Meta = &Meta{Total: len(decls)}
	respondWithJSON(w, h.logger, http.StatusOK, response)
}
