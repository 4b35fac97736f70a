package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/askbot/internal/api"
)

type recordedRequest struct {
	Method  string
	Path    string
	Body    string
	Auth    string
	Session string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

// newTestServer answers "METHOD /path" keys from responses. Requests without
// a session header are given "sess-new".
func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		sid := r.Header.Get(api.SessionHeader)
		ts.requests = append(ts.requests, recordedRequest{
			Method:  r.Method,
			Path:    r.URL.RequestURI(),
			Body:    body.String(),
			Auth:    r.Header.Get("Authorization"),
			Session: sid,
		})
		if sid == "" {
			sid = "sess-new"
		}
		w.Header().Set(api.SessionHeader, sid)

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

// captureOutput redirects stdout and stderr for the duration of the test.
func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	oldOut, oldErr, oldColor := stdout, stderr, noColor
	var out, errOut bytes.Buffer
	stdout, stderr, noColor = &out, &errOut, true
	t.Cleanup(func() { stdout, stderr, noColor = oldOut, oldErr, oldColor })
	return &out, &errOut
}

func TestAsk_AdoptsSessionID(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/ask": `{"kind":"content","lang":"fr","response":"Demandez votre extrait.","type":"text","score":0.82}`,
	})
	client := ts.client()

	a, err := client.ask(ctx, "extrait de naissance")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if a.Kind != "content" || a.Text != "Demandez votre extrait." {
		t.Errorf("answer = %+v", a)
	}
	if client.sessionID != "sess-new" {
		t.Errorf("sessionID = %q, want sess-new", client.sessionID)
	}

	if _, err := client.ask(ctx, "en anglais"); err != nil {
		t.Fatalf("second ask: %v", err)
	}
	if len(ts.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(ts.requests))
	}
	if ts.requests[0].Session != "" {
		t.Errorf("first request carried session %q", ts.requests[0].Session)
	}
	if ts.requests[1].Session != "sess-new" {
		t.Errorf("second request session = %q, want sess-new", ts.requests[1].Session)
	}

	var body api.AskRequest
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body.Question != "extrait de naissance" {
		t.Errorf("question = %q", body.Question)
	}
}

func TestAsk_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"question must not be empty","type":"invalid_request_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, httpClient: ts.Client()}
	_, err := client.ask(ctx, "   ")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "question must not be empty") {
		t.Errorf("error = %v, want server message", err)
	}
}

func TestAskLoop_SharesSession(t *testing.T) {
	out, _ := captureOutput(t)
	ts := newTestServer(t, map[string]string{
		"POST /api/ask": `{"kind":"default","lang":"fr","response":"Désolé."}`,
	})
	client := ts.client()

	in := strings.NewReader("bonjour\n\n  \nau revoir\nexit\nignored\n")
	if err := askLoop(ctx, client, in); err != nil {
		t.Fatalf("askLoop: %v", err)
	}

	if len(ts.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(ts.requests))
	}
	if ts.requests[1].Session != "sess-new" {
		t.Errorf("second question session = %q, want sess-new", ts.requests[1].Session)
	}
	if got := strings.Count(out.String(), "Désolé."); got != 2 {
		t.Errorf("printed %d answers, want 2:\n%s", got, out.String())
	}
}

func TestAskLoop_ContinuesAfterError(t *testing.T) {
	_, errOut := captureOutput(t)
	client := newTestServer(t, nil).client()

	if err := askLoop(ctx, client, strings.NewReader("one\ntwo\n")); err != nil {
		t.Fatalf("askLoop: %v", err)
	}
	if got := strings.Count(errOut.String(), "not found"); got != 2 {
		t.Errorf("reported %d errors, want 2:\n%s", got, errOut.String())
	}
}

func TestPrintAnswer_Clarification(t *testing.T) {
	out, _ := captureOutput(t)

	var a answer
	if err := json.Unmarshal([]byte(`{
		"kind":"clarification","lang":"fr","score":0.41,
		"clarification_options":[
			{"response_id":3,"category":"Eau","preview":"Vous pouvez contester..."},
			{"response_id":4,"category":"Eau","preview":"Payez en ligne..."}
		]}`), &a); err != nil {
		t.Fatal(err)
	}
	printAnswer(a)

	s := out.String()
	if !strings.Contains(s, "1. [Eau] Vous pouvez contester...") || !strings.Contains(s, "2. [Eau] Payez en ligne...") {
		t.Errorf("unexpected output:\n%s", s)
	}
}

func TestPrintAnswer_File(t *testing.T) {
	out, errOut := captureOutput(t)

	printAnswer(answer{Kind: "category", Lang: "fr", Category: "Casier judiciaire", FileURL: "/files/casier.pdf", Score: 0.7})

	if !strings.Contains(out.String(), "file: /files/casier.pdf") {
		t.Errorf("stdout = %q, want file url", out.String())
	}
	if strings.Contains(out.String(), "...") {
		t.Errorf("file answer should not print placeholder text: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "category=Casier judiciaire") {
		t.Errorf("stderr = %q, want category", errOut.String())
	}
}

func TestPrintAnswer_FollowUpMarker(t *testing.T) {
	_, errOut := captureOutput(t)

	printAnswer(answer{Kind: "content", Lang: "en", Text: "Go to your regional court.", FollowUp: true})

	if !strings.Contains(errOut.String(), "content/en") || !strings.Contains(errOut.String(), "follow-up") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestListHistory(t *testing.T) {
	out, _ := captureOutput(t)
	ts := newTestServer(t, map[string]string{
		"GET /admin/interactions": `[
			{"id":"i1","created_at":"2026-01-01T10:00:00Z","session_id":"abcdef0123456789","query":"bonjour","lang":"fr","kind":"intent","score":0.9}
		]`,
	})

	if err := listHistory(ctx, ts.client(), 5, "abcdef0123456789"); err != nil {
		t.Fatalf("listHistory: %v", err)
	}

	r := ts.requests[0]
	if r.Path != "/admin/interactions?limit=5&session_id=abcdef0123456789" {
		t.Errorf("path = %q", r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
	s := out.String()
	if !strings.Contains(s, "abcdef01") || !strings.Contains(s, "bonjour") || strings.Contains(s, "abcdef0123456789") {
		t.Errorf("unexpected output:\n%s", s)
	}
}

func TestListHistory_Empty(t *testing.T) {
	out, _ := captureOutput(t)
	ts := newTestServer(t, map[string]string{"GET /admin/interactions": `[]`})

	if err := listHistory(ctx, ts.client(), 20, ""); err != nil {
		t.Fatalf("listHistory: %v", err)
	}
	if ts.requests[0].Path != "/admin/interactions?limit=20" {
		t.Errorf("path = %q", ts.requests[0].Path)
	}
	if !strings.Contains(out.String(), "No interactions found.") {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if result := colorize(colorRed, "test"); strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	if result := colorize(colorRed, "test"); !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"embedding service unavailable","type":"api_error"}}`))
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	var v map[string]any
	err = decodeJSON(resp, &v)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "embedding service unavailable") {
		t.Errorf("error = %v", err)
	}
}

func TestDecodeJSON_PlainErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	err = decodeJSON(resp, &struct{}{})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %v, want body text", err)
	}
}

func TestCountLabel(t *testing.T) {
	if got := countLabel(3, 100); got != "3" {
		t.Errorf("countLabel(3) = %q", got)
	}
	if got := countLabel(100, 100); got != "100+" {
		t.Errorf("countLabel(100) = %q", got)
	}
}

func TestLanguagesLabel(t *testing.T) {
	if got := languagesLabel(nil); got != "none yet" {
		t.Errorf("languagesLabel(nil) = %q", got)
	}
	if got := languagesLabel([]string{"fr", "ar"}); got != "fr, ar" {
		t.Errorf("languagesLabel = %q", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "WARN": "WARN", "bogus": "INFO", "": "INFO"}
	for in, want := range cases {
		if got := parseLogLevel(in).String(); got != want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
