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

// EventHandler handles HTTP requests for breach event operations
type EventHandler struct {
	eventService   *service.BreachEventService
	subjectService *service.SubjectService
	logger         *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(
	eventService *service.BreachEventService,
	subjectService *service.SubjectService,
	logger *zap.Logger,
) *EventHandler {
	return &EventHandler{
		eventService:   eventService,
		subjectService: subjectService,
		logger:         logger,
	}
}

// RegisterRoutes registers all event routes
func (h *EventHandler) RegisterRoutes(router chi.Router) {
	router.Route("/events", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Post("/manual", h.CreateManual)
		r.Get("/unresolved", h.ListUnresolved)
		r.Get("/search", h.Search)
		r.Get("/subject/{externalID}", h.ListForSubject)
		r.Get("/organization/{orgID}", h.ListForOrganization)

		r.Route("/{eventID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/resolve", h.Resolve)
		})
	})
}

// Create handles breach event creation
// @Summary Create a breach event
// @Description Record a breach event; the effect weight is resolved and frozen at creation
// @Tags events
// @Accept json
// @Produce json
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /events [post]
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, false)
}

// CreateManual handles manually entered breach events
// @Summary Create a manual breach event
// @Description Record an operator-entered breach event
// @Tags events
// @Accept json
// @Produce json
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /events/manual [post]
func (h *EventHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, true)
}

func (h *EventHandler) create(w http.ResponseWriter, r *http.Request, manual bool) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	req.ManualEntry = manual

	// The subject may be named by external identifier; resolve it first.
	subject, err := h.subjectService.GetByExternal(ctx, req.SubjectID, "")
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to resolve subject")
		return
	}
	if subject != nil {
		req.SubjectID = subject.SubjectID
	}

	event, err := h.eventService.CreateEvent(ctx, &req)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to create breach event")
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, successResponse(event, "Breach event created successfully"))
	h.logger.Info("Breach event created via HTTP",
		util.String("event_id", event.EventID),
		util.String("subject_id", event.SubjectID),
		util.String("org_id", event.OrgID),
		util.String("category", string(event.Category)),
		util.Int("effect_weight", event.EffectWeight),
		util.Bool("manual_entry", manual),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Create"),
	)
}

// Get handles event retrieval
// @Summary Get breach event
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /events/{eventID} [get]
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventService.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to get breach event")
		return
	}
	if event == nil {
		respondWithError(w, h.logger, http.StatusNotFound, errors.New("event not found"), "Event not found")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(event, "Event retrieved successfully"))
}

// Resolve handles event resolution
// @Summary Resolve breach event
// @Description Transition an open event to CLOSED; absent or already-closed events are a no-op
// @Tags events
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} Response
// @Router /events/{eventID}/resolve [post]
func (h *EventHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID := chi.URLParam(r, "eventID")

	var req struct {
		ResolutionNotes string `json:"resolution_notes"`
	}
	if r.Body != nil {
		// An empty body resolves without notes.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	event, err := h.eventService.ResolveEvent(ctx, eventID, req.ResolutionNotes)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to resolve breach event")
		return
	}
	if event == nil {
		respondWithJSON(w, h.logger, http.StatusOK, successResponse(nil, "No open event to resolve"))
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(event, "Event resolved successfully"))
	h.logger.Info("Breach event resolved via HTTP",
		util.String("event_id", event.EventID),
		util.String("method", "Resolve"),
	)
}

// ListUnresolved handles open event listing
// @Summary List unresolved events
// @Tags events
// @Produce json
// @Success 200 {object} Response
// @Router /events/unresolved [get]
func (h *EventHandler) ListUnresolved(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventService.ListUnresolved(r.Context())
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to list unresolved events")
		return
	}

	response := successResponse(events, "Unresolved events retrieved successfully")
	response.Meta = &Meta{Total: len(events)}
	respondWithJSON(w, h.logger, http.StatusOK, response)
}

// Search handles full-text event search
// @Summary Search events
// @Tags events
// @Produce json
// @Param q query string true "Search query"
// @Param limit query int false "Maximum hits (default: 50)"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /events/search [get]
func (h *EventHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > 1000 {
			respondWithError(w, h.logger, http.StatusBadRequest, errors.New("invalid limit"), "Limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}

	events, err := h.eventService.Search(r.Context(), query, limit)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to search events")
		return
	}

	response := successResponse(events, "Events retrieved successfully")
	response.Meta = &Meta{Total: len(events)}
	respondWithJSON(w, h.logger, http.StatusOK, response)
}

// ListForSubject handles per-subject event listing
// @Summary List events for subject
// @Tags events
// @Produce json
// @Param externalID path string true "External identifier"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /events/subject/{externalID} [get]
func (h *EventHandler) ListForSubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, err := h.subjectService.GetByExternal(ctx, chi.URLParam(r, "externalID"), "")
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to resolve subject")
		return
	}
	if subject == nil {
		respondWithError(w, h.logger, http.StatusNotFound, errors.New("subject not found"), "Subject not found")
		return
	}

	events, err := h.eventService.ListForSubject(ctx, subject.SubjectID)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to list events")
		return
	}

	response := successResponse(events, "Events retrieved successfully")
	response.Meta = &Meta{Total: len(events)}
	respondWithJSON(w, h.logger, http.StatusOK, response)
}

// ListForOrganization handles per-organization event listing
// @Summary List events for organization
// @Tags events
// @Produce json
// @Param orgID path string true "Organization ID"
// @Success 200 {object} Response
// @Router /events/organization/{orgID} [get]
func (h *EventHandler) ListForOrganization(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventService.ListForOrganization(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to list events")
		return
	}

	response := successResponse(events, "Events retrieved successfully")
	response.Meta = &Meta{Total: len(events)}
	respondWithJSON(w, h.logger, http.StatusOK, response)
}
