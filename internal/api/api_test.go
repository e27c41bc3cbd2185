package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/ai"
	"fitcoach/backend/internal/api"
	"fitcoach/backend/internal/config"
	"fitcoach/backend/internal/repository/backend"
	"fitcoach/backend/internal/repository/sqlstore"
	"fitcoach/backend/internal/service"
	"fitcoach/backend/internal/testhelpers"
)

const testSecret = "test-secret"

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *backend.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlstore.Open(t.Context(), sqlstore.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	store := backend.NewSQLStore(db)
	t.Cleanup(func() { _ = store.Close() })

	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	serializer := service.NewProgramSerializer(store.Programs, store.Schedules)
	// No completer: the gateway answers with its mocked payload.
	gateway := ai.NewGateway(store.Usage, nil, config.AIConfig{BudgetUSD: 5, CostPer1KTokens: 0.03, Timeout: time.Second}, logger)

	services := api.Services{
		Auth: service.NewAuthService(store.Users, testSecret, time.Hour, logger),
		Programs: service.NewProgramService(store.Transactor, store.Programs, store.Schedules, store.Enrollments,
			store.Personalizations, serializer, nil, logger),
		Coach:    service.NewCoachService(store.Users, store.Programs, store.Enrollments, logger),
		Training: service.NewTrainingService(store.Enrollments, store.Schedules, store.Personalizations, logger),
		Personalization: service.NewPersonalizationManager(store.Transactor, store.Enrollments, store.Injuries,
			store.Personalizations, serializer, gateway, service.NewDeterministicLogic(), logger),
	}

	router := gin.New()
	api.SetupRoutes(router, testSecret, services, logger)
	return &testServer{t: t, router: router, store: store}
}

// do sends a JSON request and decodes a JSON response into out when out is not nil.
func (s *testServer) do(method, path, token string, body any, out any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

// signup registers a user and returns its id and token.
func (s *testServer) signup(name, role string) (string, string) {
	s.t.Helper()
	email := name + "@example.com"
	var user api.UserResponse
	rec := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": name, "email": email, "password": "password123", "role": role,
	}, &user)
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("register %s: %d %s", name, rec.Code, rec.Body.String())
	}

	var login api.LoginResponse
	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": "password123"}, &login)
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s: %d %s", name, rec.Code, rec.Body.String())
	}
	return user.ID, login.Token
}

type message struct {
	Message string `json:"message"`
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, want, rec.Body.String())
	}
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)
	coachID, coachToken := s.signup("coach", "coach")
	_, athleteToken := s.signup("athlete", "athlete")

	var me map[string]string
	expectStatus(t, s.do(http.MethodGet, "/api/v1/me", coachToken, nil, &me), http.StatusOK)
	if me["userId"] != coachID || me["role"] != "coach" {
		t.Errorf("/me = %v", me)
	}

	var msg message
	rec := s.do(http.MethodGet, "/api/v1/training/week", "", nil, &msg)
	expectStatus(t, rec, http.StatusUnauthorized)
	if msg.Message == "" {
		t.Error("401 without message")
	}
	expectStatus(t, s.do(http.MethodGet, "/api/v1/training/week", "garbage", nil, nil), http.StatusUnauthorized)
	expectStatus(t, s.do(http.MethodGet, "/api/v1/programs", athleteToken, nil, nil), http.StatusForbidden)
	expectStatus(t, s.do(http.MethodGet, "/api/v1/coach/athletes", athleteToken, nil, nil), http.StatusForbidden)

	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "coach@example.com", "password": "wrong-password"}, nil)
	expectStatus(t, rec, http.StatusUnauthorized)
	rec = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "x", "email": "coach@example.com", "password": "password123", "role": "coach",
	}, nil)
	expectStatus(t, rec, http.StatusBadRequest)
	if rec.Header().Get(api.RequestIDHeader) == "" {
		t.Error("response without request id")
	}
}

var strengthProgram = gin.H{
	"title":       "Strength Builder",
	"description": "Two weeks",
	"days": []gin.H{
		{"dayNumber": 1, "blocks": []gin.H{{"title": "Main", "type": "strength", "exercises": []gin.H{
			{"name": "Squat", "sets": 3, "reps": 10},
			{"name": "Plank", "time": "45s"},
		}}}},
		{"dayNumber": 8, "blocks": []gin.H{{"title": "Heavy", "type": "strength", "exercises": []gin.H{
			{"name": "Deadlift", "sets": 5, "reps": 5},
		}}}},
	},
}

func TestProgramEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("coach", "coach")

	var created service.ProgramDetail
	expectStatus(t, s.do(http.MethodPost, "/api/v1/programs", token, strengthProgram, &created), http.StatusCreated)
	if created.ID == "" || len(created.Days) != 2 {
		t.Fatalf("created = %+v", created)
	}
	if ex := created.Days[0].Blocks[0].Exercises[1]; ex.Sets != 1 || ex.Time == nil {
		t.Errorf("Plank = %+v, want default sets and a time", ex)
	}

	var msg message
	expectStatus(t, s.do(http.MethodPost, "/api/v1/programs", token, strengthProgram, &msg), http.StatusBadRequest)
	if msg.Message != service.ErrDuplicateProgramTitle.Error() {
		t.Errorf("duplicate message = %q", msg.Message)
	}
	expectStatus(t, s.do(http.MethodPost, "/api/v1/programs", token, gin.H{"title": ""}, nil), http.StatusBadRequest)

	var list []map[string]any
	expectStatus(t, s.do(http.MethodGet, "/api/v1/programs", token, nil, &list), http.StatusOK)
	if len(list) != 1 || list[0]["lastEditDate"] == nil {
		t.Errorf("list = %v", list)
	}

	expectStatus(t, s.do(http.MethodPut, "/api/v1/programs/"+created.ID, token, gin.H{"title": "Renamed"}, nil), http.StatusOK)

	rec := s.do(http.MethodGet, "/api/v1/programs/"+created.ID+"/weeks/1/export", token, nil, nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("Content-Type") != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("export content type = %q", rec.Header().Get("Content-Type"))
	}
	expectStatus(t, s.do(http.MethodGet, "/api/v1/programs/"+created.ID+"/weeks/x/export", token, nil, nil), http.StatusBadRequest)

	_, otherToken := s.signup("other", "coach")
	expectStatus(t, s.do(http.MethodGet, "/api/v1/programs/"+created.ID, otherToken, nil, nil), http.StatusNotFound)

	expectStatus(t, s.do(http.MethodDelete, "/api/v1/programs/"+created.ID, token, nil, nil), http.StatusOK)
	expectStatus(t, s.do(http.MethodGet, "/api/v1/programs/"+created.ID, token, nil, nil), http.StatusNotFound)
}

func TestCoachAssignmentAndWeeklyPlan(t *testing.T) {
	s := newTestServer(t)
	_, coachToken := s.signup("coach", "coach")
	athleteID, athleteToken := s.signup("athlete", "athlete")

	expectStatus(t, s.do(http.MethodGet, "/api/v1/training/week", athleteToken, nil, nil), http.StatusNotFound)

	var program service.ProgramDetail
	expectStatus(t, s.do(http.MethodPost, "/api/v1/programs", coachToken, strengthProgram, &program), http.StatusCreated)

	var found []api.UserResponse
	expectStatus(t, s.do(http.MethodGet, "/api/v1/coach/search?query=ath", coachToken, nil, &found), http.StatusOK)
	if len(found) != 1 || found[0].ID != athleteID {
		t.Fatalf("search = %+v", found)
	}
	expectStatus(t, s.do(http.MethodGet, "/api/v1/coach/search", coachToken, nil, &found), http.StatusOK)
	if len(found) != 0 {
		t.Errorf("empty search = %+v", found)
	}

	assign := gin.H{"athleteId": athleteID, "programId": program.ID}
	expectStatus(t, s.do(http.MethodPost, "/api/v1/coach/assign", coachToken, assign, nil), http.StatusNotFound)
	expectStatus(t, s.do(http.MethodPost, "/api/v1/coach/athletes/"+athleteID, coachToken, nil, nil), http.StatusOK)
	expectStatus(t, s.do(http.MethodPost, "/api/v1/coach/athletes/"+athleteID, coachToken, nil, nil), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodPost, "/api/v1/coach/athletes/unknown", coachToken, nil, nil), http.StatusNotFound)

	var msg message
	expectStatus(t, s.do(http.MethodPost, "/api/v1/coach/assign", coachToken, assign, &msg), http.StatusOK)
	if msg.Message != "Program assigned successfully" {
		t.Errorf("assign message = %q", msg.Message)
	}
	expectStatus(t, s.do(http.MethodPost, "/api/v1/coach/assign", coachToken, assign, &msg), http.StatusOK)
	if msg.Message != "Program already assigned" {
		t.Errorf("second assign message = %q", msg.Message)
	}

	var athletes []service.AthleteSummary
	expectStatus(t, s.do(http.MethodGet, "/api/v1/coach/athletes", coachToken, nil, &athletes), http.StatusOK)
	if len(athletes) != 1 || len(athletes[0].AssignedPrograms) != 1 || athletes[0].AssignedPrograms[0].Name != "Strength Builder" {
		t.Errorf("athletes = %+v", athletes)
	}

	var week struct {
		WeekNumber int `json:"weekNumber"`
		Days       []struct {
			DayNumber int `json:"dayNumber"`
			Blocks    []struct {
				Title string `json:"title"`
				Order int    `json:"order"`
			} `json:"blocks"`
		} `json:"days"`
	}
	expectStatus(t, s.do(http.MethodGet, "/api/v1/training/week", athleteToken, nil, &week), http.StatusOK)
	if week.WeekNumber != 1 || len(week.Days) != 1 || week.Days[0].Blocks[0].Title != "Main" {
		t.Errorf("week = %+v", week)
	}

	expectStatus(t, s.do(http.MethodPost, "/api/v1/coach/unassign", coachToken, assign, nil), http.StatusOK)
	expectStatus(t, s.do(http.MethodGet, "/api/v1/training/week", athleteToken, nil, nil), http.StatusNotFound)
	expectStatus(t, s.do(http.MethodDelete, "/api/v1/coach/athletes/"+athleteID, coachToken, nil, nil), http.StatusOK)
}

func TestPersonalizationEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, coachToken := s.signup("coach", "coach")
	athleteID, athleteToken := s.signup("athlete", "athlete")

	var program service.ProgramDetail
	expectStatus(t, s.do(http.MethodPost, "/api/v1/programs", coachToken, strengthProgram, &program), http.StatusCreated)
	expectStatus(t, s.do(http.MethodPost, "/api/v1/coach/athletes/"+athleteID, coachToken, nil, nil), http.StatusOK)
	expectStatus(t, s.do(http.MethodPost, "/api/v1/coach/assign", coachToken, gin.H{"athleteId": athleteID, "programId": program.ID}, nil), http.StatusOK)

	expectStatus(t, s.do(http.MethodPost, "/api/v1/ai/adapt-injury", athleteToken, gin.H{}, nil), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodPost, "/api/v1/ai/adapt-injury", athleteToken,
		gin.H{"injury": gin.H{"description": "sore knee", "affectedBodyParts": []string{"knee"}, "severity": "medium"}}, nil), http.StatusOK)

	// The mocked gateway payload is not a program, so the deterministic fallback is stored.
	var doc struct {
		Title string `json:"title"`
		Weeks []any  `json:"weeks"`
	}
	expectStatus(t, s.do(http.MethodPost, "/api/v1/ai/reschedule", athleteToken, gin.H{"missedWorkoutId": "w1"}, &doc), http.StatusOK)
	if doc.Title != "Strength Builder" || len(doc.Weeks) != 1 {
		t.Errorf("reschedule = %+v", doc)
	}

	var cancelled map[string]any
	expectStatus(t, s.do(http.MethodPost, "/api/v1/ai/cancel-injury", athleteToken, nil, &cancelled), http.StatusOK)
	if cancelled["resolvedInjuries"] != float64(1) || cancelled["removedPersonalizations"] != float64(1) {
		t.Errorf("cancel-injury = %v", cancelled)
	}

	var rec struct {
		ProgramID string `json:"programId"`
	}
	expectStatus(t, s.do(http.MethodPost, "/api/v1/ai/recommend-program", athleteToken,
		gin.H{"profile": gin.H{"age": 30, "gender": "female", "goals": []string{"strength"}, "availabilityPerWeek": 3}}, &rec), http.StatusOK)
	if rec.ProgramID != service.DefaultProgramID {
		t.Errorf("programId = %q", rec.ProgramID)
	}
	expectStatus(t, s.do(http.MethodPost, "/api/v1/ai/recommend-program", athleteToken, gin.H{}, nil), http.StatusBadRequest)

	// Spend the whole budget: generation is refused with 503.
	if _, err := s.store.Usage.Add(t.Context(), 1, 5, 5); err != nil {
		t.Fatal(err)
	}
	var msg message
	expectStatus(t, s.do(http.MethodPost, "/api/v1/ai/reschedule", athleteToken, gin.H{"missedWorkoutId": "w1"}, &msg), http.StatusServiceUnavailable)
	if msg.Message != ai.ErrBudgetExceeded.Error() {
		t.Errorf("budget message = %q", msg.Message)
	}
}
