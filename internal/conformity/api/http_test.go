package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/coc-admin/platform/internal/conformity/domain"
	"github.com/coc-admin/platform/internal/conformity/infrastructure"
	"github.com/coc-admin/platform/internal/conformity/service"
	"github.com/coc-admin/platform/internal/shared/auth"
	"github.com/coc-admin/platform/internal/shared/events"
	"github.com/coc-admin/platform/internal/shared/types"
)

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, pattern, consumerName string, handler events.Handler) error {
	return nil
}

func (b *recordingBus) Close() {}

func (b *recordingBus) Health() error { return nil }

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.events))
	for _, e := range b.events {
		names = append(names, e.Type)
	}
	return names
}

type testServer struct {
	handler http.Handler
	bus     *recordingBus
	agents  *infrastructure.MemoryAgentRepository
	cases   *infrastructure.MemoryCaseRepository
}

func agent(office domain.Office, name string, available bool) domain.Agent {
	return domain.Agent{
		ID:        types.NewDeterministicID(string(office), name),
		Name:      name,
		Office:    office,
		Available: available,
	}
}

var (
	awa   = agent(domain.OfficeTUV, "Awa", true)
	binta = agent(domain.OfficeTUV, "Binta", true)
	cheik = agent(domain.OfficeTUV, "Cheik", false)
)

func newTestServer(t *testing.T, enforceRoles bool, agents ...domain.Agent) *testServer {
	t.Helper()
	rotator, err := domain.NewOfficeRotator([]domain.Office{domain.OfficeTUV})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	numberer, _ := domain.NewSequenceNumberer("")

	s := &testServer{
		bus:    &recordingBus{},
		agents: infrastructure.NewMemoryAgentRepository(agents...),
		cases:  infrastructure.NewMemoryCaseRepository(),
	}
	engine, err := service.NewEngine(service.EngineConfig{
		Rotator:  rotator,
		Numberer: numberer,
		Cases:    s.cases,
		Agents:   s.agents,
		Now:      func() time.Time { return time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	s.handler = NewHandler(engine, s.cases, s.agents, s.bus, nil, enforceRoles).Routes()
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any, user *auth.User) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Expected JSON body, got %q: %v", rec.Body.String(), err)
	}
	return v
}

func submitBody() SubmitCaseRequest {
	return SubmitCaseRequest{
		ApplicantRole: domain.ApplicantExporter,
		Items: []domain.Item{
			{ProductName: "Poupée", Category: domain.CategoryToys, Quantity: 200, Unit: "pcs"},
			{ProductName: "Savon", Category: domain.CategoryCosmetics, Quantity: 50, Unit: "kg"},
		},
		Documents: domain.Documents{
			domain.DocumentInvoice:            {Type: domain.DocumentInvoice, FileName: "facture.pdf"},
			domain.DocumentTechnicalDatasheet: {Type: domain.DocumentTechnicalDatasheet, FileName: "fiche.pdf"},
		},
	}
}

type listBody[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func TestCaseLifecycle(t *testing.T) {
	s := newTestServer(t, false, awa)

	rec := s.do(t, http.MethodPost, "/cases", submitBody(), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	c := decode[domain.Case](t, rec)
	if c.AgentID != awa.ID || c.Office != domain.OfficeTUV || c.Status != domain.CaseStatusSubmitted {
		t.Fatalf("Expected SUBMITTED case assigned to Awa at TUV, got %+v", c)
	}
	if c.CaseNumber != "COC-2026-000001" {
		t.Errorf("Expected COC-2026-000001, got %s", c.CaseNumber)
	}

	base := "/cases/" + c.ID.String()
	if rec := s.do(t, http.MethodPost, base+"/start", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on start, got %d: %s", rec.Code, rec.Body.String())
	}

	opinions := []domain.Opinion{domain.OpinionConforme, domain.OpinionConformeAvecReserve}
	for i, o := range opinions {
		path := base + "/items/" + strconv.Itoa(i) + "/opinion"
		if rec := s.do(t, http.MethodPost, path, RecordOpinionRequest{Opinion: o}, nil); rec.Code != http.StatusOK {
			t.Fatalf("Expected 200 on opinion %d, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	rec = s.do(t, http.MethodPost, base+"/finalize", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on finalize, got %d: %s", rec.Code, rec.Body.String())
	}
	closed := decode[domain.Case](t, rec)
	if closed.Status != domain.CaseStatusClosed || closed.Decision == nil || *closed.Decision != domain.DecisionConformeAvecReserve {
		t.Errorf("Expected CLOSED with CONFORME_AVEC_RESERVE, got %s %v", closed.Status, closed.Decision)
	}

	a, _ := s.agents.FindAgent(context.Background(), awa.ID)
	if a.Load != 0 {
		t.Errorf("Expected load released to 0, got %d", a.Load)
	}

	expected := []string{
		"case.submitted", "case.assigned", "case.review_started",
		"case.item_reviewed", "case.item_reviewed", "case.closed",
	}
	got := s.bus.types()
	if len(got) != len(expected) {
		t.Fatalf("Expected events %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Event %d: expected %s, got %s", i, expected[i], got[i])
		}
	}
	if s.bus.events[0].StreamID != c.ID.String() {
		t.Errorf("Expected events on the case stream, got %q", s.bus.events[0].StreamID)
	}
}

func TestSubmitMissingDocuments(t *testing.T) {
	s := newTestServer(t, false, awa)
	body := submitBody()
	body.Documents = domain.Documents{}

	rec := s.do(t, http.MethodPost, "/cases", body, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", rec.Code)
	}
	e := decode[errorBody](t, rec)
	if e.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %s", e.Code)
	}
	if errs, _ := e.Details["errors"].([]any); len(errs) != 2 {
		t.Errorf("Expected 2 document errors, got %v", e.Details["errors"])
	}
	if len(s.bus.types()) != 0 {
		t.Errorf("Expected no events, got %v", s.bus.types())
	}
}

func TestSubmitNoAgentAvailable(t *testing.T) {
	s := newTestServer(t, false, cheik)

	rec := s.do(t, http.MethodPost, "/cases", submitBody(), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", rec.Code)
	}
	if e := decode[errorBody](t, rec); e.Code != "NO_AGENT_AVAILABLE" {
		t.Errorf("Expected NO_AGENT_AVAILABLE, got %s", e.Code)
	}

	list := decode[map[string]any](t, s.do(t, http.MethodGet, "/cases", nil, nil))
	if list["total"] != float64(0) {
		t.Errorf("Expected no persisted case, got total %v", list["total"])
	}
}

func TestSubmitInvalidItems(t *testing.T) {
	s := newTestServer(t, false, awa)
	body := submitBody()
	body.Items[1].Quantity = 0

	rec := s.do(t, http.MethodPost, "/cases", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestFinalizeIncompleteReview(t *testing.T) {
	s := newTestServer(t, false, awa)
	c := decode[domain.Case](t, s.do(t, http.MethodPost, "/cases", submitBody(), nil))
	base := "/cases/" + c.ID.String()

	s.do(t, http.MethodPost, base+"/start", nil, nil)
	s.do(t, http.MethodPost, base+"/items/0/opinion", RecordOpinionRequest{Opinion: domain.OpinionNonConforme}, nil)

	rec := s.do(t, http.MethodPost, base+"/finalize", nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", rec.Code)
	}
	if e := decode[errorBody](t, rec); e.Code != "INCOMPLETE_REVIEW" {
		t.Errorf("Expected INCOMPLETE_REVIEW, got %s", e.Code)
	}

	current := decode[domain.Case](t, s.do(t, http.MethodGet, base, nil, nil))
	if current.Status != domain.CaseStatusInProgress {
		t.Errorf("Expected case to stay IN_PROGRESS, got %s", current.Status)
	}
}

func TestRecordOpinionErrors(t *testing.T) {
	s := newTestServer(t, false, awa)
	c := decode[domain.Case](t, s.do(t, http.MethodPost, "/cases", submitBody(), nil))
	base := "/cases/" + c.ID.String()
	s.do(t, http.MethodPost, base+"/start", nil, nil)
	s.do(t, http.MethodPost, base+"/items/0/opinion", RecordOpinionRequest{Opinion: domain.OpinionConforme}, nil)

	tests := []struct {
		name     string
		path     string
		opinion  domain.Opinion
		expected int
	}{
		{"index out of range", base + "/items/7/opinion", domain.OpinionConforme, http.StatusBadRequest},
		{"not an index", base + "/items/x/opinion", domain.OpinionConforme, http.StatusBadRequest},
		{"unknown opinion", base + "/items/1/opinion", "PEUT_ETRE", http.StatusBadRequest},
		{"missing opinion", base + "/items/1/opinion", "", http.StatusBadRequest},
		{"lowercase opinion", base + "/items/1/opinion", "conforme", http.StatusBadRequest},
		{"already reviewed", base + "/items/0/opinion", domain.OpinionNonConforme, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, RecordOpinionRequest{Opinion: tt.opinion}, nil)
			if rec.Code != tt.expected {
				t.Errorf("Expected %d, got %d: %s", tt.expected, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestReassign(t *testing.T) {
	s := newTestServer(t, false, awa, binta, cheik)
	c := decode[domain.Case](t, s.do(t, http.MethodPost, "/cases", submitBody(), nil))
	base := "/cases/" + c.ID.String()

	rec := s.do(t, http.MethodPost, base+"/reassign", ReassignRequest{AgentID: cheik.ID}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", rec.Code)
	}
	if e := decode[errorBody](t, rec); e.Code != "AGENT_UNAVAILABLE" {
		t.Errorf("Expected AGENT_UNAVAILABLE, got %s", e.Code)
	}

	target := binta.ID
	if c.AgentID == binta.ID {
		target = awa.ID
	}
	rec = s.do(t, http.MethodPost, base+"/reassign", ReassignRequest{AgentID: target}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[ReassignResponse](t, rec)
	if resp.Reassignment.AgentID != target || resp.Case.AgentID != target {
		t.Errorf("Expected case moved to %s, got %+v", target, resp.Reassignment)
	}

	from, _ := s.agents.FindAgent(context.Background(), c.AgentID)
	to, _ := s.agents.FindAgent(context.Background(), target)
	if from.Load != 0 || to.Load != 1 {
		t.Errorf("Expected loads 0 and 1, got %d and %d", from.Load, to.Load)
	}

	if rec := s.do(t, http.MethodPost, base+"/reassign", ReassignRequest{}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without agent_id, got %d", rec.Code)
	}
}

func TestGetDelayAndEvents(t *testing.T) {
	s := newTestServer(t, false, awa)
	c := decode[domain.Case](t, s.do(t, http.MethodPost, "/cases", submitBody(), nil))

	delay := decode[DelayResponse](t, s.do(t, http.MethodGet, "/cases/"+c.ID.String()+"/delay", nil, nil))
	if delay.Days != 2 || delay.ItemCount != 2 {
		t.Errorf("Expected 2 days for 2 items at TUV, got %+v", delay)
	}

	timeline := decode[map[string]any](t, s.do(t, http.MethodGet, "/cases/"+c.ID.String()+"/events", nil, nil))
	if timeline["total"] != float64(2) {
		t.Errorf("Expected submitted and assigned events, got %v", timeline["total"])
	}

	byNumber := s.do(t, http.MethodGet, "/cases/number/"+c.CaseNumber, nil, nil)
	if byNumber.Code != http.StatusOK {
		t.Errorf("Expected 200 by number, got %d", byNumber.Code)
	}
	if rec := s.do(t, http.MethodGet, "/cases/number/ABC", nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed number, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/cases/"+types.NewID().String(), nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown case, got %d", rec.Code)
	}
}

func TestListCasesFilters(t *testing.T) {
	s := newTestServer(t, false, awa)
	s.do(t, http.MethodPost, "/cases", submitBody(), nil)

	tests := []struct {
		query    string
		expected int
		total    float64
	}{
		{"?status=SUBMITTED", http.StatusOK, 1},
		{"?status=CLOSED", http.StatusOK, 0},
		{"?office=TUV&search=poup", http.StatusOK, 1},
		{"?search=ciment", http.StatusOK, 0},
		{"?status=DONE", http.StatusBadRequest, 0},
		{"?office=XYZ", http.StatusBadRequest, 0},
		{"?agent_id=nope", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/cases"+tt.query, nil, nil)
			if rec.Code != tt.expected {
				t.Fatalf("Expected %d, got %d", tt.expected, rec.Code)
			}
			if tt.expected == http.StatusOK {
				if body := decode[map[string]any](t, rec); body["total"] != tt.total {
					t.Errorf("Expected total %v, got %v", tt.total, body["total"])
				}
			}
		})
	}
}

func TestValidateDocumentsDryRun(t *testing.T) {
	s := newTestServer(t, false, awa)
	body := ValidateDocumentsRequest{
		Items: []domain.Item{{ProductName: "Poupée", Category: domain.CategoryToys, Quantity: 1}},
		Documents: domain.Documents{
			domain.DocumentInvoice: {Type: domain.DocumentInvoice, FileName: "facture.pdf"},
		},
	}

	result := decode[domain.ValidationResult](t, s.do(t, http.MethodPost, "/documents/validate", body, nil))
	if result.Valid || len(result.Errors) != 1 {
		t.Errorf("Expected one missing datasheet error, got %+v", result)
	}
}

func TestStatsAndOffices(t *testing.T) {
	s := newTestServer(t, false, awa, cheik)
	s.do(t, http.MethodPost, "/cases", submitBody(), nil)

	stats := decode[StatsResponse](t, s.do(t, http.MethodGet, "/stats", nil, nil))
	if stats.Total != 1 || stats.PendingItems != 2 || stats.Engine.Submitted != 1 || stats.Engine.RotationCounter != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	offices := decode[listBody[OfficeResponse]](t, s.do(t, http.MethodGet, "/offices", nil, nil))
	if offices.Total != 1 || offices.Data[0].Code != domain.OfficeTUV || offices.Data[0].Agents != 2 {
		t.Errorf("Expected TUV with 2 agents, got %+v", offices.Data)
	}

	roster := decode[listBody[domain.Agent]](t, s.do(t, http.MethodGet, "/offices/TUV/agents", nil, nil))
	if roster.Total != 2 || roster.Data[0].Load > roster.Data[1].Load {
		t.Errorf("Expected roster sorted by load, got %+v", roster.Data)
	}
}

func TestAgentManagement(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/agents", RegisterAgentRequest{Name: "Djibril", Office: domain.OfficeSGS}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[domain.Agent](t, rec)
	if !created.Available || created.Load != 0 {
		t.Errorf("Expected available agent without load, got %+v", created)
	}

	onLeave := true
	rec = s.do(t, http.MethodPut, "/agents/"+created.ID.String()+"/availability", AvailabilityRequest{OnLeave: &onLeave}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if updated := decode[domain.Agent](t, rec); !updated.OnLeave || updated.Eligible() {
		t.Errorf("Expected agent on leave, got %+v", updated)
	}

	if rec := s.do(t, http.MethodPost, "/agents", RegisterAgentRequest{Name: "X", Office: "NOPE"}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown office, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPut, "/agents/"+created.ID.String()+"/availability", AvailabilityRequest{}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty update, got %d", rec.Code)
	}

	expected := []string{"agent.registered", "agent.updated"}
	if got := s.bus.types(); len(got) != 2 || got[0] != expected[0] || got[1] != expected[1] {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestRoleEnforcement(t *testing.T) {
	s := newTestServer(t, true, awa, binta)
	importer := &auth.User{ID: types.NewID(), Roles: []string{auth.RoleImporter}}
	other := &auth.User{ID: types.NewID(), Roles: []string{auth.RoleImporter}}

	if rec := s.do(t, http.MethodPost, "/cases", submitBody(), nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without user, got %d", rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/cases", submitBody(), importer)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	c := decode[domain.Case](t, rec)
	if c.ApplicantID != importer.ID {
		t.Errorf("Expected applicant from token, got %s", c.ApplicantID)
	}
	base := "/cases/" + c.ID.String()

	if rec := s.do(t, http.MethodGet, base, nil, importer); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for the applicant, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, base, nil, other); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for another applicant, got %d", rec.Code)
	}
	roleless := &auth.User{ID: importer.ID}
	if rec := s.do(t, http.MethodGet, base, nil, roleless); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a token without applicant role, got %d", rec.Code)
	}
	if list := decode[map[string]any](t, s.do(t, http.MethodGet, "/cases", nil, other)); list["total"] != float64(0) {
		t.Errorf("Expected other applicant to list nothing, got %v", list["total"])
	}

	assignee := &auth.User{ID: c.AgentID, Roles: []string{auth.RoleAgent}}
	notAssignee := &auth.User{ID: awa.ID, Roles: []string{auth.RoleAgent}}
	if c.AgentID == awa.ID {
		notAssignee.ID = binta.ID
	}

	if rec := s.do(t, http.MethodPost, base+"/start", nil, importer); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for applicant starting review, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, base+"/start", nil, notAssignee); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for another agent, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, base+"/start", nil, assignee); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for assigned agent, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, base+"/reassign", ReassignRequest{AgentID: notAssignee.ID}, assignee); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for agent reassigning, got %d", rec.Code)
	}

	supervisor := &auth.User{ID: types.NewID(), Roles: []string{auth.RoleSupervisor}}
	if rec := s.do(t, http.MethodPost, base+"/reassign", ReassignRequest{AgentID: notAssignee.ID}, supervisor); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for supervisor reassigning, got %d", rec.Code)
	}
}
