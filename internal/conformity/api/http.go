package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/coc-admin/platform/internal/conformity/domain"
	"github.com/coc-admin/platform/internal/conformity/service"
	"github.com/coc-admin/platform/internal/shared/auth"
	"github.com/coc-admin/platform/internal/shared/errors"
	"github.com/coc-admin/platform/internal/shared/events"
	"github.com/coc-admin/platform/internal/shared/metrics"
	"github.com/coc-admin/platform/internal/shared/types"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Handler provides HTTP handlers for the conformity module
type Handler struct {
	engine *service.Engine
	cases  domain.Repository
	agents domain.AgentRepository
	bus    events.EventBus
	logger *zap.Logger

	// enforceRoles applies token roles; off in development
	enforceRoles bool
}

// NewHandler creates a new conformity handler
func NewHandler(
	engine *service.Engine,
	cases domain.Repository,
	agents domain.AgentRepository,
	bus events.EventBus,
	logger *zap.Logger,
	enforceRoles bool,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine:       engine,
		cases:        cases,
		agents:       agents,
		bus:          bus,
		logger:       logger.Named("api"),
		enforceRoles: enforceRoles,
	}
}

// Routes registers the conformity routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	applicants := h.requireRoles(auth.RoleImporter, auth.RoleExporter, auth.RoleAdmin)
	reviewers := h.requireRoles(auth.RoleAgent, auth.RoleSupervisor, auth.RoleAdmin)
	supervisors := h.requireRoles(auth.RoleSupervisor, auth.RoleAdmin)

	r.Route("/cases", func(r chi.Router) {
		r.Get("/", h.ListCases)
		r.With(applicants).Post("/", h.SubmitCase)
		r.Get("/number/{caseNumber}", h.GetCaseByNumber)

		r.Route("/{caseID}", func(r chi.Router) {
			r.Get("/", h.GetCase)
			r.Get("/delay", h.GetDelay)
			r.Get("/events", h.GetEvents)

			r.With(reviewers).Post("/start", h.StartReview)
			r.With(reviewers).Post("/items/{index}/opinion", h.RecordOpinion)
			r.With(reviewers).Post("/finalize", h.Finalize)
			r.With(supervisors).Post("/reassign", h.Reassign)
		})
	})

	r.Post("/documents/validate", h.ValidateDocuments)
	r.Get("/stats", h.GetStats)

	r.Route("/offices", func(r chi.Router) {
		r.Get("/", h.ListOffices)
		r.Get("/{office}/agents", h.ListOfficeAgents)
	})

	r.Route("/agents", func(r chi.Router) {
		r.Get("/", h.ListAgents)
		r.With(supervisors).Post("/", h.RegisterAgent)
		r.Get("/{agentID}", h.GetAgent)
		r.With(supervisors).Put("/{agentID}/availability", h.SetAvailability)
	})

	return r
}

// --- Request/Response types ---

type SubmitCaseRequest struct {
	ApplicantID   types.ID             `json:"applicant_id,omitempty"`
	ApplicantRole domain.ApplicantRole `json:"applicant_role"`
	Items         []domain.Item        `json:"items"`
	Documents     domain.Documents     `json:"documents"`
}

type ValidateDocumentsRequest struct {
	Items     []domain.Item    `json:"items"`
	Documents domain.Documents `json:"documents"`
}

type RecordOpinionRequest struct {
	Opinion domain.Opinion `json:"opinion"`
	Comment string         `json:"comment"`
}

type ReassignRequest struct {
	AgentID types.ID `json:"agent_id"`
}

type RegisterAgentRequest struct {
	Name   string        `json:"name"`
	Office domain.Office `json:"office"`
}

type AvailabilityRequest struct {
	Available *bool `json:"available"`
	OnLeave   *bool `json:"on_leave"`
}

type DelayResponse struct {
	CaseID    types.ID      `json:"case_id"`
	Office    domain.Office `json:"office"`
	ItemCount int           `json:"item_count"`
	Days      int           `json:"days"`
}

type ReassignResponse struct {
	Case         *domain.Case              `json:"case"`
	Reassignment domain.ReassignmentRecord `json:"reassignment"`
}

type OfficeResponse struct {
	Code   domain.Office `json:"code"`
	Factor float64       `json:"factor"`
	Agents int           `json:"agents"`
}

type StatsResponse struct {
	domain.Stats
	Engine service.EngineStats `json:"engine"`
}

// --- Case handlers ---

func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ListFilter{
		Search: q.Get("search"),
		Limit:  defaultPageSize,
	}

	if s := q.Get("status"); s != "" {
		status := domain.CaseStatus(s)
		if !status.Valid() {
			writeError(w, errors.BadRequest("unknown status "+strconv.Quote(s)))
			return
		}
		filter.Status = &status
	}
	if o := q.Get("office"); o != "" {
		office, err := domain.ParseOffice(o)
		if err != nil {
			writeError(w, errors.BadRequest(err.Error()))
			return
		}
		filter.Office = &office
	}
	if a := q.Get("agent_id"); a != "" {
		id, err := types.ParseID(a)
		if err != nil {
			writeError(w, errors.BadRequest("invalid agent_id"))
			return
		}
		filter.AgentID = &id
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			filter.Limit = min(n, maxPageSize)
		}
	}
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	// Applicants only see their own cases
	if user := auth.GetUser(r.Context()); h.enforceRoles && user != nil && !h.isStaff(user) {
		filter.ApplicantID = &user.ID
	}

	cases, total, err := h.cases.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":   cases,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *Handler) SubmitCase(w http.ResponseWriter, r *http.Request) {
	var req SubmitCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	applicantID := req.ApplicantID
	role := req.ApplicantRole
	if user := auth.GetUser(r.Context()); user != nil {
		applicantID = user.ID
		if role == "" {
			switch {
			case user.HasRole(auth.RoleImporter):
				role = domain.ApplicantImporter
			case user.HasRole(auth.RoleExporter):
				role = domain.ApplicantExporter
			}
		}
	}
	if applicantID.IsZero() {
		// For development without auth
		applicantID = types.NewID()
	}

	c, err := h.engine.Submit(r.Context(), service.SubmitRequest{
		ApplicantID:   applicantID,
		ApplicantRole: role,
		Items:         req.Items,
		Documents:     req.Documents,
	})
	if err != nil {
		h.recordRejection(err)
		h.writeError(w, err)
		return
	}

	metrics.RecordCaseSubmitted(string(c.Office))
	metrics.RecordRotation(h.engine.Stats().RotationCounter)
	h.refreshAgentLoad(r.Context(), c.AgentID)
	h.publishCaseEvents(r.Context(), c)

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) GetCaseByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "caseNumber")
	if _, _, err := domain.ParseCaseNumber(number); err != nil {
		writeError(w, errors.BadRequest(err.Error()))
		return
	}

	c, err := h.cases.FindByCaseNumber(r.Context(), number)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.canRead(r, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) GetDelay(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, DelayResponse{
		CaseID:    c.ID,
		Office:    c.Office,
		ItemCount: len(c.Items),
		Days:      c.EstimatedDelay(),
	})
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  c.Events,
		"total": len(c.Events),
	})
}

func (h *Handler) StartReview(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.assignedCase(w, r)
	if !ok {
		return
	}

	c, err := h.engine.StartReview(r.Context(), caseID, actorID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.publishCaseEvents(r.Context(), c)
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) RecordOpinion(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.assignedCase(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, errors.BadRequest("item index must be an integer"))
		return
	}

	var req RecordOpinionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	opinion, err := domain.ParseOpinion(string(req.Opinion))
	if err != nil {
		h.writeError(w, err)
		return
	}

	c, err := h.engine.RecordOpinion(r.Context(), caseID, index, opinion, req.Comment, actorID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.publishCaseEvents(r.Context(), c)
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.assignedCase(w, r)
	if !ok {
		return
	}

	c, err := h.engine.Finalize(r.Context(), caseID, actorID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if c.Decision != nil {
		metrics.RecordCaseClosed(string(c.Office), string(*c.Decision))
	}
	h.refreshAgentLoad(r.Context(), c.AgentID)
	h.publishCaseEvents(r.Context(), c)

	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Reassign(w http.ResponseWriter, r *http.Request) {
	caseID, err := types.ParseID(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid case ID"))
		return
	}

	var req ReassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AgentID.IsZero() {
		writeError(w, errors.BadRequest("agent_id is required"))
		return
	}

	c, record, err := h.engine.Reassign(r.Context(), caseID, req.AgentID, actorID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	fromOffice := ""
	if from := h.refreshAgentLoad(r.Context(), record.FromAgentID); from != nil {
		fromOffice = string(from.Office)
	}
	h.refreshAgentLoad(r.Context(), record.AgentID)
	metrics.RecordReassignment(fromOffice, string(c.Office))
	h.publishCaseEvents(r.Context(), c)

	writeJSON(w, http.StatusOK, ReassignResponse{Case: c, Reassignment: record})
}

// --- Reference handlers ---

// ValidateDocuments is a dry run of the submission document check
func (h *Handler) ValidateDocuments(w http.ResponseWriter, r *http.Request) {
	var req ValidateDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	writeJSON(w, http.StatusOK, domain.ValidateDocuments(req.Items, req.Documents))
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	cases, _, err := h.cases.List(r.Context(), domain.ListFilter{})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Stats:  domain.ComputeStats(cases),
		Engine: h.engine.Stats(),
	})
}

func (h *Handler) ListOffices(w http.ResponseWriter, r *http.Request) {
	offices := h.engine.Offices()
	response := make([]OfficeResponse, 0, len(offices))
	for _, o := range offices {
		roster, err := h.agents.Roster(r.Context(), o)
		if err != nil {
			h.writeError(w, err)
			return
		}
		response = append(response, OfficeResponse{Code: o, Factor: o.Factor(), Agents: len(roster)})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}

func (h *Handler) ListOfficeAgents(w http.ResponseWriter, r *http.Request) {
	office, err := domain.ParseOffice(chi.URLParam(r, "office"))
	if err != nil {
		writeError(w, errors.BadRequest(err.Error()))
		return
	}

	roster, err := h.agents.Roster(r.Context(), office)
	if err != nil {
		h.writeError(w, err)
		return
	}
	domain.SortByLoad(roster)

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  roster,
		"total": len(roster),
	})
}

// --- Agent handlers ---

func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.ListAgents(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  agents,
		"total": len(agents),
	})
}

func (h *Handler) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req RegisterAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	agent, err := domain.NewAgent(req.Name, req.Office)
	if err != nil {
		writeError(w, errors.BadRequest(err.Error()))
		return
	}
	if err := h.agents.SaveAgent(r.Context(), agent); err != nil {
		h.writeError(w, err)
		return
	}

	metrics.RecordAgentLoad(string(agent.Office), agent.Name, agent.Load)
	h.publishAgentEvent(r.Context(), "agent.registered", agent)

	writeJSON(w, http.StatusCreated, agent)
}

func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid agent ID"))
		return
	}

	agent, err := h.agents.FindAgent(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, agent)
}

func (h *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid agent ID"))
		return
	}

	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if req.Available == nil && req.OnLeave == nil {
		writeError(w, errors.BadRequest("available or on_leave is required"))
		return
	}

	agent, err := h.agents.FindAgent(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if req.Available != nil {
		agent.Available = *req.Available
	}
	if req.OnLeave != nil {
		agent.OnLeave = *req.OnLeave
	}
	if err := h.agents.SaveAgent(r.Context(), agent); err != nil {
		h.writeError(w, err)
		return
	}

	h.publishAgentEvent(r.Context(), "agent.updated", agent)
	writeJSON(w, http.StatusOK, agent)
}

// --- Helpers ---

func (h *Handler) requireRoles(roles ...string) func(http.Handler) http.Handler {
	if !h.enforceRoles {
		return func(next http.Handler) http.Handler { return next }
	}
	return auth.RequireRoles(roles...)
}

func (h *Handler) isStaff(user *auth.User) bool {
	return user.HasRole(auth.RoleAgent) || user.IsSupervisor()
}

// canRead lets staff read every case and applicants only their own. A token
// holding neither role reads nothing.
func (h *Handler) canRead(r *http.Request, c *domain.Case) bool {
	if !h.enforceRoles {
		return true
	}
	user := auth.GetUser(r.Context())
	if user == nil {
		return false
	}
	return h.isStaff(user) || (user.IsApplicant() && c.ApplicantID == user.ID)
}

func (h *Handler) loadCase(w http.ResponseWriter, r *http.Request) (*domain.Case, bool) {
	id, err := types.ParseID(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid case ID"))
		return nil, false
	}

	c, err := h.engine.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	if !h.canRead(r, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return nil, false
	}
	return c, true
}

// assignedCase parses the case ID and, for agents, checks that the case is
// assigned to them. Supervisors may act on any case.
func (h *Handler) assignedCase(w http.ResponseWriter, r *http.Request) (types.ID, bool) {
	id, err := types.ParseID(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid case ID"))
		return "", false
	}

	user := auth.GetUser(r.Context())
	if !h.enforceRoles || user == nil || user.IsSupervisor() {
		return id, true
	}

	c, err := h.engine.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return "", false
	}
	if c.AgentID != user.ID {
		writeError(w, errors.Forbidden("case is assigned to another agent"))
		return "", false
	}
	return id, true
}

func actorID(ctx context.Context) types.ID {
	if user := auth.GetUser(ctx); user != nil {
		return user.ID
	}
	return ""
}

func actorRole(ctx context.Context) string {
	if user := auth.GetUser(ctx); user != nil {
		return user.PrimaryRole()
	}
	return ""
}

// refreshAgentLoad reads the agent and exports its load. Failures only
// affect the gauge.
func (h *Handler) refreshAgentLoad(ctx context.Context, id types.ID) *domain.Agent {
	if id.IsZero() {
		return nil
	}
	agent, err := h.agents.FindAgent(ctx, id)
	if err != nil {
		h.logger.Warn("failed to read agent load", zap.String("agent_id", id.String()), zap.Error(err))
		return nil
	}
	metrics.RecordAgentLoad(string(agent.Office), agent.Name, agent.Load)
	return agent
}

func (h *Handler) recordRejection(err error) {
	var docErr *service.DocumentsError
	switch {
	case stderrors.As(err, &docErr):
		metrics.RecordSubmissionRejected(metrics.RejectDocuments)
	case stderrors.Is(err, domain.ErrNoAgentAvailable):
		metrics.RecordSubmissionRejected(metrics.RejectNoAgent)
	case stderrors.Is(err, domain.ErrInvalidSubmission):
		metrics.RecordSubmissionRejected(metrics.RejectInvalid)
	}
}

// publishCaseEvents drains the case's pending domain events onto the bus.
// A failed publish is logged; the case change itself is already stored.
func (h *Handler) publishCaseEvents(ctx context.Context, c *domain.Case) {
	pending := c.GetDomainEvents()
	if h.bus == nil {
		return
	}

	for _, e := range pending {
		data := map[string]any{
			"case_id":     c.ID,
			"case_number": c.CaseNumber,
			"status":      c.Status,
			"office":      c.Office,
			"agent_id":    c.AgentID,
			"description": e.CaseEvent.Description,
		}
		for k, v := range e.CaseEvent.Data {
			if _, taken := data[k]; !taken {
				data[k] = v
			}
		}

		actor := e.CaseEvent.ActorID
		if actor.IsZero() {
			actor = actorID(ctx)
		}

		event := events.NewEvent("case."+e.Type, "conformity", data).
			WithStream(c.ID.String()).
			WithActor(actor, actorRole(ctx)).
			WithCorrelation(middleware.GetReqID(ctx))
		h.publish(ctx, event)
	}
}

func (h *Handler) publishAgentEvent(ctx context.Context, eventType string, agent *domain.Agent) {
	if h.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "conformity", map[string]any{
		"agent_id":  agent.ID,
		"name":      agent.Name,
		"office":    agent.Office,
		"available": agent.Available,
		"on_leave":  agent.OnLeave,
	}).
		WithStream(agent.ID.String()).
		WithActor(actorID(ctx), actorRole(ctx)).
		WithCorrelation(middleware.GetReqID(ctx))
	h.publish(ctx, event)
}

func (h *Handler) publish(ctx context.Context, event events.Event) {
	if err := h.bus.Publish(ctx, event); err != nil {
		metrics.RecordEventPublishFailure(event.Type)
		h.logger.Warn("failed to publish event",
			zap.String("type", event.Type),
			zap.String("stream_id", event.StreamID),
			zap.Error(err))
	}
}

// toAppError maps engine and domain errors to API errors
func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var docErr *service.DocumentsError
	if stderrors.As(err, &docErr) {
		return errors.Validation("missing required documents", docErr.Errors)
	}

	switch {
	case stderrors.Is(err, domain.ErrNoAgentAvailable):
		return errors.Rule("NO_AGENT_AVAILABLE", err)
	case stderrors.Is(err, domain.ErrAgentUnavailable):
		return errors.Rule("AGENT_UNAVAILABLE", err)
	case stderrors.Is(err, domain.ErrIncompleteReview):
		return errors.Rule("INCOMPLETE_REVIEW", err)
	case stderrors.Is(err, domain.ErrOpinionAlreadySet):
		return errors.Rule("OPINION_ALREADY_SET", err)
	case stderrors.Is(err, domain.ErrCaseClosed):
		return errors.Rule("CASE_CLOSED", err)
	case stderrors.Is(err, domain.ErrSameAgent):
		return errors.Rule("SAME_AGENT", err)
	case stderrors.Is(err, domain.ErrInvalidStatus):
		return errors.Rule("INVALID_STATUS", err)
	case stderrors.Is(err, domain.ErrNumbersExhausted):
		return errors.Rule("CASE_NUMBERS_EXHAUSTED", err)
	case stderrors.Is(err, domain.ErrInvalidSubmission),
		stderrors.Is(err, domain.ErrInvalidOpinion),
		stderrors.Is(err, domain.ErrItemNotFound),
		stderrors.Is(err, domain.ErrUnknownOffice):
		return errors.BadRequest(err.Error())
	}

	return errors.Internal(err)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	appErr := toAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeError(w, appErr)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus)

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"error":   appErr.Message,
		"code":    appErr.Code,
		"details": appErr.Details,
	})
}
