package router_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studycycle/backend/internal/alarm"
	"studycycle/backend/internal/clock"
	"studycycle/backend/internal/db"
	"studycycle/backend/internal/handler"
	"studycycle/backend/internal/logger"
	"studycycle/backend/internal/repository"
	"studycycle/backend/internal/router"
	"studycycle/backend/internal/service"
	"studycycle/backend/internal/store"
	"studycycle/backend/migrations"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type cycleState struct {
	Status          string `json:"status"`
	TimeLeftSeconds int    `json:"timeLeftSeconds"`
	CurrentIndex    int    `json:"currentIndex"`
	TotalBlocks     int    `json:"totalBlocks"`
	HistoryLength   int    `json:"historyLength"`
	Progress        []struct {
		SubjectID string `json:"subjectId"`
		Minutes   int    `json:"minutes"`
	} `json:"progress"`
}

type stateEnvelope struct {
	State cycleState `json:"state"`
}

type planEnvelope struct {
	Plan struct {
		Blocks []struct {
			Type        string `json:"type"`
			SubjectName string `json:"subjectName"`
		} `json:"blocks"`
		TotalSeconds int `json:"totalSeconds"`
	} `json:"plan"`
}

type subjectEnvelope struct {
	Subject struct {
		ID string `json:"id"`
	} `json:"subject"`
}

type historyEnvelope struct {
	Sessions []struct {
		Status  string `json:"status"`
		Skipped bool   `json:"skipped"`
	} `json:"sessions"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestCycleSkipAndPrevious(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "user1@example.com", "123456")

	status, body := requestJSON(t, engine, http.MethodPost, "/api/subjects", user.Token, map[string]interface{}{
		"name":            "Math",
		"color":           "#ff0000",
		"timeGoalMinutes": 100,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on subject create, got %d: %s", status, string(body))
	}
	var subject subjectEnvelope
	if err := json.Unmarshal(body, &subject); err != nil {
		t.Fatalf("unmarshal subject: %v", err)
	}

	status, body = requestJSON(t, engine, http.MethodGet, "/api/cycle/plan", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on plan, got %d: %s", status, string(body))
	}
	var plan planEnvelope
	if err := json.Unmarshal(body, &plan); err != nil {
		t.Fatalf("unmarshal plan: %v", err)
	}
	if len(plan.Plan.Blocks) != 3 {
		t.Fatalf("expected study, break, study; got %d blocks", len(plan.Plan.Blocks))
	}
	if plan.Plan.Blocks[0].SubjectName != "Math" || plan.Plan.Blocks[2].SubjectName != "Math" {
		t.Fatalf("unexpected subject names: %+v", plan.Plan.Blocks)
	}
	if plan.Plan.TotalSeconds != 2*50*60+10*60 {
		t.Fatalf("unexpected total seconds %d", plan.Plan.TotalSeconds)
	}

	state := cycleCommand(t, engine, user.Token, "start", http.StatusOK)
	if state.Status != "running" {
		t.Fatalf("expected running after start, got %s", state.Status)
	}

	status, body = requestJSON(t, engine, http.MethodPost, "/api/cycle/start", user.Token, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 when starting twice, got %d", status)
	}
	if code := errorCode(t, body); code != "invalid_state" {
		t.Fatalf("expected invalid_state, got %s", code)
	}

	state = cycleCommand(t, engine, user.Token, "pause", http.StatusOK)
	if state.Status != "paused" {
		t.Fatalf("expected paused, got %s", state.Status)
	}
	if state.TimeLeftSeconds <= 0 || state.TimeLeftSeconds > 50*60 {
		t.Fatalf("unexpected time left %d", state.TimeLeftSeconds)
	}

	state = cycleCommand(t, engine, user.Token, "skip", http.StatusOK)
	if state.Status != "idle" || state.CurrentIndex != 1 {
		t.Fatalf("expected idle on block 1 after skip, got %s on %d", state.Status, state.CurrentIndex)
	}
	if got := progressOf(state, subject.Subject.ID); got != 50 {
		t.Fatalf("expected 50 minutes credited, got %d", got)
	}

	state = cycleCommand(t, engine, user.Token, "previous", http.StatusOK)
	if state.CurrentIndex != 0 || state.HistoryLength != 0 {
		t.Fatalf("expected back on block 0 with no history, got %d/%d", state.CurrentIndex, state.HistoryLength)
	}
	if got := progressOf(state, subject.Subject.ID); got != 0 {
		t.Fatalf("expected progress undone, got %d", got)
	}

	status, _ = requestJSON(t, engine, http.MethodPost, "/api/cycle/previous", user.Token, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 without history, got %d", status)
	}

	history := waitForHistory(t, engine, user.Token)
	if history.Sessions[0].Status != "skipped" || !history.Sessions[0].Skipped {
		t.Fatalf("expected skipped session, got %+v", history.Sessions[0])
	}
}

func TestCycleEmptyPlanAndIsolation(t *testing.T) {
	engine := setupTestEngine(t)
	user1 := registerUser(t, engine, "user1@example.com", "123456")
	user2 := registerUser(t, engine, "user2@example.com", "123456")

	status, body := requestJSON(t, engine, http.MethodPost, "/api/subjects", user1.Token, map[string]interface{}{
		"name":            "Physics",
		"timeGoalMinutes": 50,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on subject create, got %d: %s", status, string(body))
	}

	status, body = requestJSON(t, engine, http.MethodPost, "/api/cycle/start", user2.Token, nil)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty plan, got %d: %s", status, string(body))
	}
	if code := errorCode(t, body); code != "invalid_plan" {
		t.Fatalf("expected invalid_plan, got %s", code)
	}

	state := cycleCommand(t, engine, user1.Token, "start", http.StatusOK)
	if state.TotalBlocks != 1 {
		t.Fatalf("expected a single block, got %d", state.TotalBlocks)
	}

	status, body = requestJSON(t, engine, http.MethodGet, "/api/cycle/state", user2.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on state, got %d", status)
	}
	var other stateEnvelope
	if err := json.Unmarshal(body, &other); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if other.State.Status != "idle" || other.State.TotalBlocks != 0 {
		t.Fatalf("user2 should see an idle empty cycle, got %+v", other.State)
	}
}

func TestResetCyclePicksUpNewSubjects(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "user1@example.com", "123456")

	state := cycleCommand(t, engine, user.Token, "state", http.StatusOK)
	if state.TotalBlocks != 0 {
		t.Fatalf("expected empty plan, got %d blocks", state.TotalBlocks)
	}

	status, body := requestJSON(t, engine, http.MethodPost, "/api/subjects", user.Token, map[string]interface{}{
		"name":            "History",
		"timeGoalMinutes": 25,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, string(body))
	}

	status, _ = requestJSON(t, engine, http.MethodPut, "/api/settings", user.Token, map[string]interface{}{
		"studyDurationMinutes": 25,
		"shortBreakMinutes":    5,
		"longBreakMinutes":     15,
		"longBreakInterval":    4,
		"soundEnabled":         false,
		"soundId":              "chime",
		"soundDurationSeconds": 1.5,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on settings update, got %d", status)
	}

	state = cycleCommand(t, engine, user.Token, "reset-cycle", http.StatusOK)
	if state.TotalBlocks != 1 || state.TimeLeftSeconds != 25*60 {
		t.Fatalf("expected one 25 minute block, got %d blocks with %ds", state.TotalBlocks, state.TimeLeftSeconds)
	}
}

func TestSettingsValidation(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "user1@example.com", "123456")

	status, body := requestJSON(t, engine, http.MethodGet, "/api/settings", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var resp struct {
		Settings struct {
			StudyDurationMinutes int    `json:"studyDurationMinutes"`
			SoundID              string `json:"soundId"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal settings: %v", err)
	}
	if resp.Settings.StudyDurationMinutes != 50 || resp.Settings.SoundID != "bell" {
		t.Fatalf("unexpected defaults: %+v", resp.Settings)
	}

	status, _ = requestJSON(t, engine, http.MethodPut, "/api/settings", user.Token, map[string]interface{}{
		"studyDurationMinutes": 0,
		"shortBreakMinutes":    5,
		"longBreakMinutes":     15,
		"longBreakInterval":    4,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero study duration, got %d", status)
	}
}

func TestShutdownEndsEventStreams(t *testing.T) {
	engine, cycleService := setupTestApp(t)
	user := registerUser(t, engine, "stream@example.com", "123456")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := router.NewServer(listener.Addr().String(), engine, cycleService.Close)
	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(listener)
	}()

	req, err := http.NewRequest(http.MethodGet, "http://"+listener.Addr().String()+"/api/cycle/events", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+user.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open event stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for event stream, got %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read first event: %v", err)
	}
	if line != "event:state\n" {
		t.Fatalf("expected initial state event, got %q", line)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown with an open stream: %v", err)
	}
	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("expected ErrServerClosed, got %v", err)
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		t.Fatalf("drain closed stream: %v", err)
	}
}

func TestEventStreamAcceptsQueryToken(t *testing.T) {
	engine, cycleService := setupTestApp(t)
	user := registerUser(t, engine, "query@example.com", "123456")

	server := httptest.NewServer(engine)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/cycle/events?access_token=" + user.Token)
	if err != nil {
		t.Fatalf("open event stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d", resp.StatusCode)
	}
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil || line != "event:state\n" {
		t.Fatalf("expected initial state event, got %q (%v)", line, err)
	}
	cycleService.Close()

	status, _ := requestJSON(t, engine, http.MethodPost, "/api/cycle/start?access_token="+user.Token, "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("query token must not authorize commands, got %d", status)
	}
}

func TestResetBlockCancelsRunningSession(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "cancel@example.com", "123456")

	status, body := requestJSON(t, engine, http.MethodPost, "/api/subjects", user.Token, map[string]interface{}{
		"name":            "History",
		"timeGoalMinutes": 50,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on subject create, got %d: %s", status, string(body))
	}

	cycleCommand(t, engine, user.Token, "start", http.StatusOK)
	state := cycleCommand(t, engine, user.Token, "reset-block", http.StatusOK)
	if state.Status != "idle" || state.CurrentIndex != 0 {
		t.Fatalf("expected idle on block 0 after reset, got %s on %d", state.Status, state.CurrentIndex)
	}

	history := waitForHistory(t, engine, user.Token)
	if len(history.Sessions) != 1 || history.Sessions[0].Status != "cancelled" || history.Sessions[0].Skipped {
		t.Fatalf("expected one cancelled session, got %+v", history.Sessions)
	}
}

func TestMeReturnsCurrentUser(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "Me@Example.com ", "123456")

	status, body := requestJSON(t, engine, http.MethodGet, "/api/auth/me", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on me, got %d: %s", status, string(body))
	}
	var resp struct {
		User struct {
			ID           string `json:"id"`
			Email        string `json:"email"`
			PasswordHash string `json:"passwordHash"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if resp.User.ID != user.User.ID || resp.User.Email != "me@example.com" || resp.User.PasswordHash != "" {
		t.Fatalf("unexpected user %+v", resp.User)
	}

	status, body = requestJSON(t, engine, http.MethodGet, "/api/auth/me", "not-a-token", nil)
	if status != http.StatusUnauthorized || errorCode(t, body) != "unauthorized" {
		t.Fatalf("expected 401 unauthorized for a bad token, got %d: %s", status, string(body))
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	engine := setupTestEngine(t)
	status, _ := requestJSON(t, engine, http.MethodGet, "/api/cycle/state", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
}

func TestCORSPreflight(t *testing.T) {
	engine := setupTestEngine(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/subjects/abc", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	recorder := httptest.NewRecorder()

	engine.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
	if got := recorder.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Last-Event-ID") {
		t.Fatalf("expected Last-Event-ID to be allowed, got %s", got)
	}
}

func setupTestEngine(t *testing.T) http.Handler {
	t.Helper()
	engine, _ := setupTestApp(t)
	return engine
}

func setupTestApp(t *testing.T) (http.Handler, *service.CycleService) {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	if _, err := db.RunMigrations(database, migrations.Files); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	log := logger.Discard()
	userRepo := repository.NewUserRepository(database)
	subjectRepo := repository.NewSubjectRepository(database)
	settingsRepo := repository.NewSettingsRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	snapshotRepo := repository.NewSnapshotRepository(database)

	authService := service.NewAuthService(userRepo, settingsRepo, "test-secret", 24*time.Hour)
	subjectService := service.NewSubjectService(subjectRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	sessionService := service.NewSessionService(sessionRepo)
	cycleService := service.NewCycleService(
		subjectService,
		settingsService,
		store.NewSQL(snapshotRepo),
		service.NewSessionRecorder(sessionRepo),
		alarm.NewLog(log),
		clock.System{},
		service.CycleOptions{AutoAdvance: true, PersistEvery: 5, TickInterval: time.Second, RecorderRetries: 1},
		log,
	)
	t.Cleanup(cycleService.Close)

	engine := router.New(authService, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Subject:  handler.NewSubjectHandler(subjectService),
		Settings: handler.NewSettingsHandler(settingsService),
		Cycle:    handler.NewCycleHandler(cycleService),
		Session:  handler.NewSessionHandler(sessionService),
	}, []string{"http://localhost:5173"})
	return engine, cycleService
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s failed with status %d: %s", email, status, string(body))
	}
	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token for user %s", email)
	}
	return resp
}

// cycleCommand posts a cycle command, or reads the state for "state".
func cycleCommand(t *testing.T, server http.Handler, token, command string, want int) cycleState {
	t.Helper()
	method := http.MethodPost
	if command == "state" {
		method = http.MethodGet
	}
	status, body := requestJSON(t, server, method, "/api/cycle/"+command, token, nil)
	if status != want {
		t.Fatalf("%s: expected %d, got %d: %s", command, want, status, string(body))
	}
	var resp stateEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal %s response: %v", command, err)
	}
	return resp.State
}

func progressOf(state cycleState, subjectID string) int {
	for _, p := range state.Progress {
		if p.SubjectID == subjectID {
			return p.Minutes
		}
	}
	return 0
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp apiErrorEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal error response: %v", err)
	}
	return resp.Error.Code
}

// waitForHistory polls until the recorder worker has closed a session.
func waitForHistory(t *testing.T, server http.Handler, token string) historyEnvelope {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		status, body := requestJSON(t, server, http.MethodGet, "/api/sessions/history?limit=10", token, nil)
		if status != http.StatusOK {
			t.Fatalf("expected 200 for history, got %d", status)
		}
		var history historyEnvelope
		if err := json.Unmarshal(body, &history); err != nil {
			t.Fatalf("unmarshal history: %v", err)
		}
		if len(history.Sessions) > 0 && history.Sessions[0].Status != "running" {
			return history
		}
		if time.Now().After(deadline) {
			t.Fatalf("no finished session recorded, got %+v", history.Sessions)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
