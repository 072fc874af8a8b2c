package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"risk-service/internal/models"
	"risk-service/internal/service"
	"risk-service/internal/util"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SubjectHandler handles HTTP requests for subject operations
type SubjectHandler struct {
	subjectService *service.SubjectService
	deviceService  *service.DeviceService
	scoreService   *service.ScoreService
	logger         *zap.Logger
}

// NewSubjectHandler creates a new subject handler
func NewSubjectHandler(
	subjectService *service.SubjectService,
	deviceService *service.DeviceService,
	scoreService *service.ScoreService,
	logger *zap.Logger,
) *SubjectHandler {
	return &SubjectHandler{
		subjectService: subjectService,
		deviceService:  deviceService,
		scoreService:   scoreService,
		logger:         logger,
	}
}

// RegisterRoutes registers all subject routes
func (h *SubjectHandler) RegisterRoutes(router chi.Router) {
	router.Route("/subjects", func(r chi.Router) {
		r.Post("/", h.Register)
		r.Get("/", h.List)

		r.Route("/{externalID}", func(r chi.Router) {
			r.Get("/", h.GetByExternal)
			r.Put("/", h.UpdateProfile)
			r.Delete("/", h.Delete)
			r.Get("/risk", h.RiskProfile)
			r.Get("/score-history", h.ScoreHistory)
			r.Post("/devices", h.ObserveDevice)
			r.Get("/devices", h.ListDevices)
			r.Get("/device-risk", h.DeviceRisk)
		})
	})
}

// Register handles subject registration
// @Summary Register a subject
// @Description Register a subject by external identifier; repeated registration returns the existing record
// @Tags subjects
// @Accept json
// @Produce json
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Router /subjects [post]
func (h *SubjectHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	req.RemoteAddr = clientAddr(r)

	subject, created, err := h.subjectService.Register(ctx, &req)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to register subject")
		return
	}

	status := http.StatusCreated
	message := "Subject registered successfully"
	if !created {
		status = http.StatusOK
		message = "Subject already registered"
	}

	respondWithJSON(w, h.logger, status, successResponse(subject, message))
	h.logger.Info("Subject registered via HTTP",
		util.String("subject_id", subject.SubjectID),
		util.Bool("created", created),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Register"),
	)
}

// List handles subject listing
// @Summary List subjects
// @Tags subjects
// @Produce json
// @Success 200 {object} Response
// @Router /subjects [get]
func (h *SubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.subjectService.List(r.Context())
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to list subjects")
		return
	}

	response := successResponse(subjects, "Subjects retrieved successfully")
	response.Meta = &Meta{Total: len(subjects)}
	respondWithJSON(w, h.logger, http.StatusOK, response)
}

// GetByExternal handles subject retrieval by external identifier
// @Summary Get subject
// @Description Get a subject by external identifier, recording a device observation for the caller
// @Tags subjects
// @Produce json
// @Param externalID path string true "External identifier"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /subjects/{externalID} [get]
func (h *SubjectHandler) GetByExternal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, err := h.subjectService.GetByExternal(ctx, chi.URLParam(r, "externalID"), clientAddr(r))
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to get subject")
		return
	}
	if subject == nil {
		respondWithError(w, h.logger, http.StatusNotFound, errors.New("subject not found"), "Subject not found")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(subject, "Subject retrieved successfully"))
}

// UpdateProfile handles subject profile updates
// @Summary Update subject profile
// @Tags subjects
// @Accept json
// @Produce json
// @Param externalID path string true "External identifier"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /subjects/{externalID} [put]
func (h *SubjectHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, ok := h.resolveSubject(w, r)
	if !ok {
		return
	}

	var req struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	updated, err := h.subjectService.UpdateProfile(ctx, subject.SubjectID, req.FullName, req.Email)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to update subject")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(updated, "Subject updated successfully"))
	h.logger.Info("Subject profile updated via HTTP",
		util.String("subject_id", subject.SubjectID),
		util.String("method", "UpdateProfile"),
	)
}

// Delete handles subject deletion
// @Summary Delete subject
// @Description Delete a subject and its device fingerprints
// @Tags subjects
// @Produce json
// @Param externalID path string true "External identifier"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /subjects/{externalID} [delete]
func (h *SubjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, ok := h.resolveSubject(w, r)
	if !ok {
		return
	}

	if err := h.subjectService.Delete(ctx, subject.SubjectID); err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to delete subject")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(nil, "Subject deleted successfully"))
	h.logger.Info("Subject deleted via HTTP",
		util.String("subject_id", subject.SubjectID),
		util.String("method", "Delete"),
	)
}

// RiskProfile handles the aggregate risk view
// @Summary Get risk profile
// @Description Composite score, device risk, and fingerprints for a subject
// @Tags subjects
// @Produce json
// @Param externalID path string true "External identifier"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /subjects/{externalID}/risk [get]
func (h *SubjectHandler) RiskProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, ok := h.resolveSubject(w, r)
	if !ok {
		return
	}

	profile, err := h.scoreService.Profile(ctx, subject.SubjectID)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to build risk profile")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(profile, "Risk profile retrieved successfully"))
}

// ScoreHistory handles score history retrieval
// @Summary Get score history
// @Tags subjects
// @Produce json
// @Param externalID path string true "External identifier"
// @Param limit query int false "Maximum rows (default: 50)"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /subjects/{externalID}/score-history [get]
func (h *SubjectHandler) ScoreHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, ok := h.resolveSubject(w, r)
	if !ok {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > 1000 {
			respondWithError(w, h.logger, http.StatusBadRequest, errors.New("invalid limit"), "Limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}

	history, err := h.scoreService.History(ctx, subject.SubjectID, limit)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to get score history")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(history, "Score history retrieved successfully"))
}

// ObserveDevice handles an explicit device observation
// @Summary Observe device
// @Description Record a device observation for the subject from a network address
// @Tags subjects
// @Accept json
// @Produce json
// @Param externalID path string true "External identifier"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /subjects/{externalID}/devices [post]
func (h *SubjectHandler) ObserveDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, ok := h.resolveSubject(w, r)
	if !ok {
		return
	}

	var req struct {
		NetworkAddress string `json:"network_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if req.NetworkAddress == "" {
		req.NetworkAddress = clientAddr(r)
	}

	fp, err := h.deviceService.Observe(ctx, subject.SubjectID, req.NetworkAddress)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to observe device")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(fp, "Device observed successfully"))
	h.logger.Debug("Device observed via HTTP",
		util.String("subject_id", subject.SubjectID),
		util.String("network_address", req.NetworkAddress),
		util.String("method", "ObserveDevice"),
	)
}

// ListDevices handles device fingerprint listing
// @Summary List devices
// @Tags subjects
// @Produce json
// @Param externalID path string true "External identifier"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /subjects/{externalID}/devices [get]
func (h *SubjectHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, ok := h.resolveSubject(w, r)
	if !ok {
		return
	}

	devices, err := h.deviceService.ListDevices(ctx, subject.SubjectID)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to list devices")
		return
	}

	response := successResponse(devices, "Devices retrieved successfully")
	response.Meta = &Meta{Total: len(devices)}
	respondWithJSON(w, h.logger, http.StatusOK, response)
}

// DeviceRisk handles the aggregate device risk
// @Summary Get device risk
// @Description Bounded aggregate device risk for the subject
// @Tags subjects
// @Produce json
// @Param externalID path string true "External identifier"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /subjects/{externalID}/device-risk [get]
func (h *SubjectHandler) DeviceRisk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, ok := h.resolveSubject(w, r)
	if !ok {
		return
	}

	risk, err := h.deviceService.AggregateRisk(ctx, subject.SubjectID)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to aggregate device risk")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(map[string]interface{}{
		"subject_id":  subject.SubjectID,
		"device_risk": risk,
	}, "Device risk retrieved successfully"))
}

// resolveSubject loads the subject named in the URL, writing the error
// response itself when the subject does not exist.
func (h *SubjectHandler) resolveSubject(w http.ResponseWriter, r *http.Request) (*models.Subject, bool) {
	subject, err := h.subjectService.GetByExternal(r.Context(), chi.URLParam(r, "externalID"), "")
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to resolve subject")
		return nil, false
	}
	if subject == nil {
		respondWithError(w, h.logger, http.StatusNotFound, errors.New("subject not found"), "Subject not found")
		return nil, false
	}
	return subject, true
}

// clientAddr extracts the caller's address without the port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
