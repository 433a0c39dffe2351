package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

var dbSeq atomic.Int64

type testAPI struct {
	t       *testing.T
	srv     *httptest.Server
	admin   string
	student string
	other   string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:apitest%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", dbSeq.Add(1))
	conn, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	events := syncx.NewEventRepo(conn, "test")
	users := auth.NewUserStore(conn)
	authSvc := auth.NewAuthService("test-secret", time.Hour)
	cfg := config.Config{
		Mode:               config.ModeOnline,
		EnableLocalAuth:    true,
		EnableRegistration: true,
		EnableGuestAuth:    true,
		CORSOriginsOnline:  []string{"http://localhost:3000"},
	}
	h := NewRouter(Deps{
		Config:  cfg,
		DB:      conn,
		Quizzes: quiz.NewService(quiz.NewSQLStore(conn, events)),
		Users:   users,
		Auth:    authSvc,
		Events:  events,
		Log:     logger.Nop(),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	token := func(name, role string) string {
		u, err := users.Create(ctx, name, name+"-password", role)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		tok, err := authSvc.IssueJWT(u.ID, role)
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}
	return &testAPI{
		t:       t,
		srv:     srv,
		admin:   token("admin", "admin"),
		student: token("alice", "student"),
		other:   token("bob", "student"),
	}
}

func (a *testAPI) do(method, path, token string, body any, out any) int {
	a.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	if err != nil {
		a.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			a.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type builtQuiz struct {
	id        int64
	questions map[grading.QuestionType]quiz.Question
}

func (a *testAPI) buildQuiz() builtQuiz {
	a.t.Helper()
	var q quiz.Quiz
	if code := a.do("POST", "/quizzes", a.admin, map[string]any{"title": "Mixed"}, &q); code != http.StatusCreated {
		a.t.Fatalf("create quiz: %d", code)
	}
	out := builtQuiz{id: q.ID, questions: map[grading.QuestionType]quiz.Question{}}
	add := func(body map[string]any) {
		a.t.Helper()
		var qq quiz.Question
		if code := a.do("POST", fmt.Sprintf("/quizzes/%d/questions", q.ID), a.admin, body, &qq); code != http.StatusCreated {
			a.t.Fatalf("add %v: %d", body["type"], code)
		}
		out.questions[qq.Type] = qq
	}
	add(map[string]any{"text": "Primes?", "type": "multiple-choice", "options": []map[string]any{
		{"text": "2", "is_correct": true}, {"text": "4"}, {"text": "5", "is_correct": true},
	}})
	add(map[string]any{"text": "Water is wet.", "type": "true-false", "options": []map[string]any{
		{"text": "True", "is_correct": true}, {"text": "False"},
	}})
	add(map[string]any{"text": "Capital of Italy?", "type": "text", "options": []map[string]any{{"text": "Rome"}}})
	add(map[string]any{"text": "Order these", "type": "correct-order", "options": []map[string]any{
		{"text": "one"}, {"text": "two"}, {"text": "three"},
	}})
	add(map[string]any{"text": "Match", "type": "match-pairs", "options": []map[string]any{
		{"left_text": "cat", "right_text": "meow"}, {"left_text": "dog", "right_text": "woof"},
	}})
	return out
}

func (b builtQuiz) opt(t grading.QuestionType, i int) int64 { return b.questions[t].Options[i].ID }

func (b builtQuiz) perfectAnswers() []map[string]any {
	mc, tf, txt := b.questions[grading.MultipleChoice], b.questions[grading.TrueFalse], b.questions[grading.Text]
	ord, mp := b.questions[grading.CorrectOrder], b.questions[grading.MatchPairs]
	return []map[string]any{
		{"questionId": mc.ID, "questionType": "multiple-choice", "rawAnswer": []int64{b.opt(grading.MultipleChoice, 0), b.opt(grading.MultipleChoice, 2)}},
		{"questionId": tf.ID, "questionType": "true-false", "rawAnswer": b.opt(grading.TrueFalse, 0)},
		{"questionId": txt.ID, "questionType": "text", "rawAnswer": " rome "},
		{"questionId": ord.ID, "questionType": "correct-order", "rawAnswer": []map[string]any{
			{"stepOptionId": b.opt(grading.CorrectOrder, 2), "position": 3},
			{"stepOptionId": b.opt(grading.CorrectOrder, 0), "position": 1},
			{"stepOptionId": b.opt(grading.CorrectOrder, 1), "position": 2},
		}},
		{"questionId": mp.ID, "questionType": "match-pairs", "rawAnswer": []map[string]any{
			{"leftOptionId": b.opt(grading.MatchPairs, 0), "rightOptionId": b.opt(grading.MatchPairs, 0)},
			{"leftOptionId": b.opt(grading.MatchPairs, 1), "rightOptionId": b.opt(grading.MatchPairs, 1)},
		}},
	}
}

func TestQuizFlow(t *testing.T) {
	api := newTestAPI(t)
	b := api.buildQuiz()

	// student view hides answer keys
	var view quiz.Quiz
	if code := api.do("GET", fmt.Sprintf("/quizzes/%d", b.id), api.student, nil, &view); code != 200 {
		t.Fatalf("get quiz: %d", code)
	}
	for _, q := range view.Questions {
		for _, o := range q.Options {
			if o.IsCorrect || (q.Type == grading.Text && o.Text != "") {
				t.Fatalf("student view leaks answers for question %d", q.ID)
			}
		}
	}

	var sub submitResp
	code := api.do("POST", fmt.Sprintf("/quizzes/%d/attempts", b.id), api.student, map[string]any{"answers": b.perfectAnswers()}, &sub)
	if code != http.StatusCreated {
		t.Fatalf("submit: %d", code)
	}
	if sub.Attempt.Score != 5 || sub.Attempt.Total != 5 || sub.Attempt.Percentage != 100 {
		t.Fatalf("attempt = %+v", sub.Attempt)
	}

	var res resultsResp
	if code := api.do("GET", fmt.Sprintf("/attempts/%d/results", sub.Attempt.ID), api.student, nil, &res); code != 200 {
		t.Fatalf("results: %d", code)
	}
	if !res.Complete || len(res.Questions) != 5 {
		t.Fatalf("results = %+v", res)
	}
	for _, q := range res.Questions {
		if !q.ResponseCorrect {
			t.Fatalf("question %d (%s) reconstructed as incorrect", q.QuestionID, q.Type)
		}
	}

	foreign := api.body("GET", fmt.Sprintf("/attempts/%d/results", sub.Attempt.ID), api.other)
	missing := api.body("GET", fmt.Sprintf("/attempts/%d/results", sub.Attempt.ID+1000), api.other)
	if foreign.code != http.StatusNotFound || missing.code != http.StatusNotFound {
		t.Fatalf("foreign results: %d, missing results: %d", foreign.code, missing.code)
	}
	if want := fmt.Sprintf("attempt %d not found", sub.Attempt.ID); !strings.Contains(foreign.text, want) {
		t.Fatalf("foreign body = %q", foreign.text)
	}
	if code := api.do("GET", fmt.Sprintf("/attempts/%d/results", sub.Attempt.ID), api.admin, nil, nil); code != 200 {
		t.Fatalf("admin results: %d", code)
	}

	var latest resultsResp
	if code := api.do("GET", fmt.Sprintf("/quizzes/%d/attempts/latest", b.id), api.student, nil, &latest); code != 200 || latest.Attempt.ID != sub.Attempt.ID {
		t.Fatalf("latest: %d %+v", code, latest.Attempt)
	}
	if code := api.do("GET", fmt.Sprintf("/quizzes/%d/attempts/latest", b.id), api.other, nil, nil); code != http.StatusNotFound {
		t.Fatalf("latest without attempts: %d", code)
	}

	var mine []quiz.Attempt
	if code := api.do("GET", "/attempts?user_id=someone-else", api.student, nil, &mine); code != 200 || len(mine) != 1 {
		t.Fatalf("students only list their own attempts: %d %+v", code, mine)
	}

	if code := api.do("GET", fmt.Sprintf("/quizzes/%d/report", b.id), api.student, nil, nil); code != http.StatusForbidden {
		t.Fatalf("student report: %d", code)
	}
	var report []quiz.ReportEntry
	if code := api.do("GET", fmt.Sprintf("/quizzes/%d/report", b.id), api.admin, nil, &report); code != 200 || len(report) != 1 {
		t.Fatalf("report: %d %+v", code, report)
	}

	var events []syncx.Event
	if code := api.do("GET", "/admin/events", api.admin, nil, &events); code != 200 || len(events) != 1 {
		t.Fatalf("events: %d %+v", code, events)
	}
}

func TestSubmitErrors(t *testing.T) {
	api := newTestAPI(t)
	b := api.buildQuiz()
	tf := b.questions[grading.TrueFalse]

	tests := []struct {
		name    string
		path    string
		answers []map[string]any
		want    int
	}{
		{"foreign option", fmt.Sprintf("/quizzes/%d/attempts", b.id),
			[]map[string]any{{"questionId": tf.ID, "rawAnswer": 999999}}, http.StatusBadRequest},
		{"type tag mismatch", fmt.Sprintf("/quizzes/%d/attempts", b.id),
			[]map[string]any{{"questionId": tf.ID, "questionType": "text", "rawAnswer": "x"}}, http.StatusBadRequest},
		{"missing question id", fmt.Sprintf("/quizzes/%d/attempts", b.id),
			[]map[string]any{{"rawAnswer": 1}}, http.StatusBadRequest},
		{"unknown quiz", "/quizzes/987654/attempts", nil, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code := api.do("POST", tc.path, api.student, map[string]any{"answers": tc.answers}, nil); code != tc.want {
				t.Fatalf("status %d, want %d", code, tc.want)
			}
		})
	}

	var events []syncx.Event
	api.do("GET", "/admin/events", api.admin, nil, &events)
	if len(events) != 0 {
		t.Fatalf("rejected submissions must not emit events: %+v", events)
	}
}

func TestAuthoringGuards(t *testing.T) {
	api := newTestAPI(t)
	b := api.buildQuiz()

	if code := api.do("POST", "/quizzes", api.student, map[string]any{"title": "x"}, nil); code != http.StatusForbidden {
		t.Fatalf("student create: %d", code)
	}
	if code := api.do("POST", "/quizzes", "", map[string]any{"title": "x"}, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous create: %d", code)
	}
	if code := api.do("POST", "/quizzes", api.admin, map[string]any{"title": ""}, nil); code != http.StatusBadRequest {
		t.Fatalf("blank title: %d", code)
	}
	txt := b.questions[grading.Text]
	if code := api.do("PUT", fmt.Sprintf("/questions/%d", txt.ID), api.admin, map[string]any{
		"text": "Capital?", "type": "true-false",
		"options": []map[string]any{{"text": "True", "is_correct": true}, {"text": "False"}},
	}, nil); code != http.StatusBadRequest {
		t.Fatalf("type change: %d", code)
	}
	if code := api.do("POST", fmt.Sprintf("/quizzes/%d/questions", b.id), api.admin, map[string]any{
		"text": "Essay", "type": "essay", "options": []map[string]any{{"text": "x"}},
	}, nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("unsupported type: %d", code)
	}

	// deactivating hides the quiz from students and blocks submission
	if code := api.do("PATCH", fmt.Sprintf("/quizzes/%d", b.id), api.admin, map[string]any{"active": false}, nil); code != 200 {
		t.Fatalf("deactivate: %d", code)
	}
	if code := api.do("GET", fmt.Sprintf("/quizzes/%d", b.id), api.student, nil, nil); code != http.StatusNotFound {
		t.Fatalf("inactive quiz visible: %d", code)
	}
	var list []quiz.Quiz
	if code := api.do("GET", "/quizzes", api.student, nil, &list); code != 200 || len(list) != 0 {
		t.Fatalf("student list: %d %+v", code, list)
	}
	if code := api.do("POST", fmt.Sprintf("/quizzes/%d/attempts", b.id), api.student, map[string]any{"answers": b.perfectAnswers()}, nil); code != http.StatusBadRequest {
		t.Fatalf("submit to inactive quiz: %d", code)
	}
}

func TestUserEndpoints(t *testing.T) {
	api := newTestAPI(t)

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if code := api.do("POST", "/auth/register", "", map[string]any{"username": "carol", "password": "carol password"}, &tok); code != http.StatusCreated {
		t.Fatalf("register: %d", code)
	}
	if code := api.do("POST", "/auth/login", "", map[string]any{"username": "carol", "password": "carol password"}, &tok); code != 200 || tok.AccessToken == "" {
		t.Fatalf("login: %d", code)
	}
	if code := api.do("GET", "/users", tok.AccessToken, nil, nil); code != http.StatusForbidden {
		t.Fatalf("student list users: %d", code)
	}
	if code := api.do("POST", "/users/change-password", tok.AccessToken, map[string]any{
		"old_password": "carol password", "new_password": "carol password 2",
	}, nil); code != http.StatusNoContent {
		t.Fatalf("change password: %d", code)
	}

	var users []auth.User
	if code := api.do("GET", "/users", api.admin, nil, &users); code != 200 || len(users) != 4 {
		t.Fatalf("list users: %d %d", code, len(users))
	}
	var bulk map[string]int
	if code := api.do("POST", "/users/bulk", api.admin, []map[string]any{
		{"username": "dave", "password": "dave password"},
		{"username": "carol", "role": "admin"},
	}, &bulk); code != 200 || bulk["inserted"] != 1 || bulk["updated"] != 1 {
		t.Fatalf("bulk: %d %+v", code, bulk)
	}
	var carol auth.User
	for _, u := range users {
		if u.Username == "carol" {
			carol = u
		}
	}
	if code := api.do("PUT", "/users/"+carol.ID+"/role", api.admin, map[string]any{"role": "student"}, nil); code != 200 {
		t.Fatalf("set role: %d", code)
	}
	if code := api.do("PUT", "/users/"+carol.ID+"/role", api.admin, map[string]any{"role": "teacher"}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad role: %d", code)
	}
}

func TestParseUsersCSV(t *testing.T) {
	rows, err := parseUsersCSV(bytes.NewBufferString("Username, Role ,password\nalice,student,pw1\nbob,,\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].Username != "alice" || rows[0].Password != "pw1" || rows[1].Role != "" {
		t.Fatalf("rows = %+v", rows)
	}
	if _, err := parseUsersCSV(bytes.NewBufferString("id,role\n1,student\n")); err == nil {
		t.Fatalf("missing username column accepted")
	}
}

func TestHealthAndGuest(t *testing.T) {
	api := newTestAPI(t)
	if code := api.do("GET", "/healthz", "", nil, nil); code != http.StatusOK {
		t.Fatalf("healthz: %d", code)
	}
	if code := api.do("GET", "/readyz", "", nil, nil); code != http.StatusOK {
		t.Fatalf("readyz: %d", code)
	}

	var guest struct {
		AccessToken string `json:"access_token"`
	}
	if code := api.do("POST", "/auth/guest", "", nil, &guest); code != http.StatusCreated || guest.AccessToken == "" {
		t.Fatalf("guest login: %d", code)
	}
	if code := api.do("GET", "/quizzes", guest.AccessToken, nil, nil); code != http.StatusOK {
		t.Fatalf("guest list quizzes: %d", code)
	}
	if code := api.do("GET", "/users", guest.AccessToken, nil, nil); code != http.StatusForbidden {
		t.Fatalf("guest list users: %d", code)
	}
}

type rawResp struct {
	code int
	text string
}

// body performs a request without a JSON body and returns status and raw text.
func (a *testAPI) body(method, path, token string) rawResp {
	a.t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, nil)
	if err != nil {
		a.t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		a.t.Fatal(err)
	}
	return rawResp{code: resp.StatusCode, text: string(b)}
}
