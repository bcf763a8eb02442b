package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/data/db"
	"github.com/yungbote/courseforge/internal/generation"
	httpH "github.com/yungbote/courseforge/internal/http/handlers"
	"github.com/yungbote/courseforge/internal/llm/provider"
	"github.com/yungbote/courseforge/internal/llm/router"
	"github.com/yungbote/courseforge/internal/repos"
	"github.com/yungbote/courseforge/internal/services"
)

type fakeRouter struct {
	mu    sync.Mutex
	tiers []router.Tier
	last  []provider.Message
	out   string
	err   error
}

func (f *fakeRouter) Route(_ context.Context, tier router.Tier, messages []provider.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tiers = append(f.tiers, tier)
	f.last = messages
	return f.out, f.err
}

func (f *fakeRouter) Endpoints(tier router.Tier) []string {
	if tier == router.TierFast {
		return []string{"groq", "huggingface"}
	}
	return []string{"groq-70b", "openrouter", "google"}
}

type fakeAgents struct {
	questions []generation.Question
	err       error
}

func (f *fakeAgents) PersonalizationQuestions(context.Context, []string) ([]generation.Question, error) {
	return f.questions, f.err
}

func (f *fakeAgents) SuggestedAnswers(_ context.Context, q string, _ []string) ([]string, error) {
	return []string{"answer to " + q}, f.err
}

func (f *fakeAgents) Blueprint(context.Context, []string, []generation.PersonalizationAnswer) ([]generation.ChapterPlanItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []generation.ChapterPlanItem{{Number: 1, Title: "Intro"}}, nil
}

type generateFunc func(ctx context.Context, req generation.Request, progress generation.ProgressFunc, persist generation.PersistFunc) (*generation.Course, error)

func (f generateFunc) Generate(ctx context.Context, req generation.Request, progress generation.ProgressFunc, persist generation.PersistFunc) (*generation.Course, error) {
	return f(ctx, req, progress, persist)
}

func oneChapter(release <-chan struct{}) generateFunc {
	return func(ctx context.Context, req generation.Request, progress generation.ProgressFunc, persist generation.PersistFunc) (*generation.Course, error) {
		if release != nil {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		ch := generation.Chapter{ID: "chapter-1", Number: 1, Title: "Intro", Modules: []generation.Module{{ID: "ch1-m1", Title: "Basics"}}}
		progress(generation.Progress{Phase: "Chapter 1: Intro", Current: 0, Total: 1})
		if err := persist(ctx, ch); err != nil {
			return nil, err
		}
		progress(generation.Progress{Phase: "Chapter 1: Intro", Current: 1, Total: 1})
		return &generation.Course{ID: req.CourseID, Title: "The Complete Guide to Go", Chapters: []generation.Chapter{ch}}, nil
	}
}

type testEnv struct {
	engine *gin.Engine
	chat   *fakeRouter
	agents *fakeAgents
}

func newTestEnv(t *testing.T, gen services.CourseGenerator) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dbs, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: "file:" + uuid.NewString() + "?mode=memory&cache=shared"}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = dbs.Close() })
	if err := db.AutoMigrateAll(dbs.DB()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	courses := repos.NewCourseRepo(dbs.DB(), nil)
	runs := repos.NewCourseGenerationRunRepo(dbs.DB(), nil)
	bus := services.NewMemoryProgressBus(nil)
	genSvc := services.NewCourseGenerationService(nil, gen, courses, runs, bus, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = genSvc.Shutdown(ctx)
	})

	env := &testEnv{chat: &fakeRouter{out: "generated"}, agents: &fakeAgents{}}
	env.engine = NewRouter(RouterConfig{
		ChatHandler:          httpH.NewChatHandler(nil, env.chat),
		CourseHandler:        httpH.NewCourseHandler(nil, env.agents, services.NewCourseService(nil, courses), genSvc),
		GenerationRunHandler: httpH.NewGenerationRunHandler(nil, genSvc, bus),
		HealthHandler: httpH.NewHealthHandler(map[string]httpH.ReadinessCheck{
			"database": func(context.Context) error { return dbs.Ping() },
		}),
	})
	return env
}

func (e *testEnv) do(method, path, body, user string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestChatEndpoint(t *testing.T) {
	env := newTestEnv(t, oneChapter(nil))

	cases := []struct {
		name, body string
		status     int
		wantErr    string
	}{
		{"missing messages", `{"tier":"fast"}`, 400, "Messages array is required"},
		{"messages not a list", `{"messages":"hi"}`, 400, "Messages array is required"},
		{"null messages", `{"messages":null}`, 400, "Messages array is required"},
		{"invalid json", `{`, 400, "Messages array is required"},
		{"unknown role", `{"messages":[{"role":"robot","content":"x"}]}`, 400, "Messages array is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/chat", tc.body, "")
			if rec.Code != tc.status {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			var out map[string]string
			decode(t, rec, &out)
			if out["error"] != tc.wantErr {
				t.Fatalf("error = %q", out["error"])
			}
		})
	}

	rec := env.do(http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}],"tier":"fast"}`, "")
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var ok map[string]string
	decode(t, rec, &ok)
	if ok["content"] != "generated" {
		t.Fatalf("body = %v", ok)
	}

	for _, body := range []string{
		`{"messages":[{"role":"user","content":"hi"}]}`,
		`{"messages":[{"role":"user","content":"hi"}],"tier":"turbo"}`,
		`{"messages":[{"role":"user","content":"hi"}],"tier":7}`,
	} {
		env.do(http.MethodPost, "/api/chat", body, "")
	}
	want := []router.Tier{router.TierFast, router.TierPowerful, router.TierPowerful, router.TierPowerful}
	if len(env.chat.tiers) != len(want) {
		t.Fatalf("tiers = %v", env.chat.tiers)
	}
	for i := range want {
		if env.chat.tiers[i] != want[i] {
			t.Fatalf("tiers = %v, want %v", env.chat.tiers, want)
		}
	}

	env.chat.err = &router.AllProvidersFailedError{Tier: router.TierPowerful, Failures: []*provider.CallError{
		{Endpoint: "groq-70b", Err: errors.New("rate limited")},
		{Endpoint: "google", Err: errors.New("boom")},
	}}
	rec = env.do(http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`, "")
	if rec.Code != 500 {
		t.Fatalf("status = %d", rec.Code)
	}
	var failed map[string]string
	decode(t, rec, &failed)
	if failed["error"] != env.chat.err.Error() {
		t.Fatalf("error = %q", failed["error"])
	}
}

func TestChatPreflight(t *testing.T) {
	env := newTestEnv(t, oneChapter(nil))

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)
	if rec.Code != 200 || rec.Body.Len() != 0 || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight = %d %q %v", rec.Code, rec.Body.String(), rec.Header())
	}

	rec = env.do(http.MethodOptions, "/api/chat", "", "")
	if rec.Code != 200 || rec.Body.Len() != 0 {
		t.Fatalf("bare OPTIONS = %d %q", rec.Code, rec.Body.String())
	}
}

func TestProvidersAndHealth(t *testing.T) {
	env := newTestEnv(t, oneChapter(nil))
	rec := env.do(http.MethodGet, "/api/providers", "", "")
	var out struct {
		Tiers map[string][]string `json:"tiers"`
	}
	decode(t, rec, &out)
	if len(out.Tiers["fast"]) != 2 || out.Tiers["powerful"][2] != "google" {
		t.Fatalf("providers = %+v", out)
	}
	if rec := env.do(http.MethodGet, "/healthz", "", ""); rec.Code != 200 {
		t.Fatalf("healthz = %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/readyz", "", ""); rec.Code != 200 {
		t.Fatalf("readyz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestIntakeEndpoints(t *testing.T) {
	env := newTestEnv(t, oneChapter(nil))
	env.agents.questions = []generation.Question{{ID: "q1", Question: "Level?"}}

	rec := env.do(http.MethodPost, "/api/courses/questions", `{"topics":["Go"]}`, "")
	var q struct {
		Questions []generation.Question `json:"questions"`
	}
	decode(t, rec, &q)
	if rec.Code != 200 || len(q.Questions) != 1 {
		t.Fatalf("questions = %d %s", rec.Code, rec.Body.String())
	}

	if rec := env.do(http.MethodPost, "/api/courses/suggested-answers", `{"topics":["Go"]}`, ""); rec.Code != 400 {
		t.Fatalf("missing question status = %d", rec.Code)
	}
	rec = env.do(http.MethodPost, "/api/courses/suggested-answers", `{"question":"Level?","topics":["Go"]}`, "")
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), "answer to Level?") {
		t.Fatalf("answers = %d %s", rec.Code, rec.Body.String())
	}

	env.agents.err = &router.AllProvidersFailedError{Tier: router.TierPowerful}
	rec = env.do(http.MethodPost, "/api/courses/blueprint", `{"topics":["Go"]}`, "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("blueprint failure status = %d", rec.Code)
	}
	var env2 struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, rec, &env2)
	if env2.Error.Code != "providers_failed" {
		t.Fatalf("code = %q", env2.Error.Code)
	}
}

func TestCourseGenerationFlow(t *testing.T) {
	env := newTestEnv(t, oneChapter(nil))

	if rec := env.do(http.MethodPost, "/api/courses", `{"topics":["Go"]}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}
	if rec := env.do(http.MethodPost, "/api/courses", `{"topics":[" "]}`, "u1"); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty topics status = %d", rec.Code)
	}

	rec := env.do(http.MethodPost, "/api/courses", `{"topics":["Go"],"answers":[{"question":"Level?","answer":"New"}]}`, "u1")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("create status = %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Run struct {
			ID string `json:"id"`
		} `json:"run"`
		CourseID string `json:"course_id"`
	}
	decode(t, rec, &created)

	deadline := time.Now().Add(5 * time.Second)
	var run struct {
		Run struct {
			Status  string `json:"status"`
			Current int    `json:"current"`
			Total   int    `json:"total"`
		} `json:"run"`
	}
	for {
		rec := env.do(http.MethodGet, "/api/generation-runs/"+created.Run.ID, "", "u1")
		decode(t, rec, &run)
		if run.Run.Status == "succeeded" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run never succeeded: %s", rec.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if run.Run.Current != 1 || run.Run.Total != 1 {
		t.Fatalf("run = %+v", run.Run)
	}

	rec = env.do(http.MethodGet, "/api/courses/"+created.CourseID, "", "u1")
	var course struct {
		Course struct {
			Status   string `json:"status"`
			Title    string `json:"title"`
			Chapters []struct {
				Number int `json:"number"`
			} `json:"chapters"`
		} `json:"course"`
	}
	decode(t, rec, &course)
	if course.Course.Status != "ready" || course.Course.Title != "The Complete Guide to Go" || len(course.Course.Chapters) != 1 {
		t.Fatalf("course = %s", rec.Body.String())
	}

	if rec := env.do(http.MethodGet, "/api/courses/"+created.CourseID, "", "u2"); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign course status = %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/api/courses/not-a-uuid", "", "u1"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}
	rec = env.do(http.MethodGet, "/api/courses", "", "u1")
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), created.CourseID) {
		t.Fatalf("list = %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/generation-runs/"+created.Run.ID+"/events", "", "u1")
	if !strings.Contains(rec.Body.String(), "event: done") {
		t.Fatalf("finished run events = %q", rec.Body.String())
	}
	// the run leaves the active set just after its outcome is recorded
	deadline = time.Now().Add(2 * time.Second)
	for {
		rec := env.do(http.MethodPost, "/api/generation-runs/"+created.Run.ID+"/cancel", "", "u1")
		if rec.Code == http.StatusConflict {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("cancel finished run status = %d", rec.Code)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGenerationEventsStream(t *testing.T) {
	release := make(chan struct{})
	env := newTestEnv(t, oneChapter(release))
	srv := httptest.NewServer(env.engine)
	defer srv.Close()

	rec := env.do(http.MethodPost, "/api/courses", `{"topics":["Go"]}`, "u1")
	var created struct {
		Run struct {
			ID string `json:"id"`
		} `json:"run"`
	}
	decode(t, rec, &created)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/generation-runs/"+created.Run.ID+"/events", nil)
	req.Header.Set("X-User-Id", "u1")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	var events []string
	released := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "event: ") {
			continue
		}
		events = append(events, strings.TrimPrefix(line, "event: "))
		if !released {
			close(release)
			released = true
		}
	}
	if len(events) < 3 || events[0] != "progress" || events[len(events)-1] != "done" {
		t.Fatalf("events = %v", events)
	}
	sawChapter := false
	for _, ev := range events {
		if ev == "chapter" {
			sawChapter = true
		}
	}
	if !sawChapter {
		t.Fatalf("no chapter event in %v", events)
	}
}
