package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/assure/inspectd/internal/config"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.RequestURI(),
			ContentType: r.Header.Get("Content-Type"),
			Body:        body.String(),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":"not found"}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		httpClient: ts.server.Client(),
	}
}

// use points the CLI at the test server and captures command output.
func (ts *testServer) use(t *testing.T) *bytes.Buffer {
	t.Helper()
	oldClient, oldOut := newAPIClient, stdout
	var out bytes.Buffer
	newAPIClient = func() (*apiClient, error) { return ts.client(), nil }
	stdout = &out
	t.Cleanup(func() {
		newAPIClient, stdout = oldClient, oldOut
		rootCmd.SetArgs(nil)
	})
	return &out
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

var ctx = context.Background()

func TestAskCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/ask/rep-1": `{"success":true,"question_id":"q-1","answer":"Replace the breaker.","issue_type":"electrical",
			"referrals":[{"id":"c-1","name":"Bright Electric","specialty":"electrical","rating":4.8,"phone":"555-0100"}]}`,
	})
	out := ts.use(t)

	if err := execute(t, "ask", "rep-1", "is", "the", "panel", "safe?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["question"] != "is the panel safe?" {
		t.Errorf("question = %q, want the joined arguments", body["question"])
	}

	got := out.String()
	if !strings.Contains(got, "Replace the breaker.") {
		t.Errorf("output missing answer: %q", got)
	}
	if !strings.Contains(got, "Bright Electric") {
		t.Errorf("output missing referral: %q", got)
	}
}

func TestAskCommand_ServerError(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.use(t)

	err := execute(t, "ask", "missing", "anything?")
	if err == nil {
		t.Fatal("expected error for unknown report")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want it to mention 404", err.Error())
	}
}

func TestUploadCommand(t *testing.T) {
	var (
		gotFile    string
		gotContent string
		gotAddress string
		gotName    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload" {
			w.WriteHeader(404)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(400)
			w.Write([]byte(`{"error":"No file provided"}`))
			return
		}
		data, _ := io.ReadAll(f)
		gotFile, gotContent = hdr.Filename, string(data)
		gotAddress = r.FormValue("address")
		gotName = r.FormValue("customer_name")
		w.Write([]byte(`{"success":true,"report_id":"rep-9","share_token":"tok","summary":"Roof needs work.","address":"12 Elm St","message":"Report uploaded successfully"}`))
	}))
	defer srv.Close()

	ts := &testServer{server: srv}
	out := ts.use(t)

	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, "upload", path, "--address", "12 Elm St", "--customer-name", "Sam Lee"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotFile != "report.pdf" {
		t.Errorf("filename = %q, want report.pdf", gotFile)
	}
	if gotContent != "%PDF-1.4 test" {
		t.Errorf("content = %q", gotContent)
	}
	if gotAddress != "12 Elm St" || gotName != "Sam Lee" {
		t.Errorf("form fields = %q, %q", gotAddress, gotName)
	}
	if !strings.Contains(out.String(), "rep-9") || !strings.Contains(out.String(), "Roof needs work.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestUploadCommand_MissingFile(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.use(t)

	err := execute(t, "upload", filepath.Join(t.TempDir(), "nope.pdf"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(ts.requests) != 0 {
		t.Errorf("expected no requests, got %d", len(ts.requests))
	}
}

func TestCacheCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/cache-status": `{"size":2,"capacity":10,"report_ids":["rep-a","rep-b"]}`,
	})
	out := ts.use(t)

	if err := execute(t, "cache"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	a, b := strings.Index(got, "rep-a"), strings.Index(got, "rep-b")
	if a < 0 || b < 0 || a > b {
		t.Errorf("output should list rep-a before rep-b, got %q", got)
	}
}

func TestContractorsAdd_MissingName(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.use(t)

	err := execute(t, "contractors", "add", "--specialty", "plumbing")
	if err == nil {
		t.Fatal("expected error for missing name")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
	if len(ts.requests) != 0 {
		t.Errorf("expected no requests, got %d", len(ts.requests))
	}
}

func TestContractorsAdd(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/admin/contractors": `{"success":true,"contractor_id":"c-42"}`,
	})
	ts.use(t)

	err := execute(t, "contractors", "add",
		"--name", "Bright Electric",
		"--specialty", "electrical",
		"--zip-codes", "62704,62701",
		"--rating", "4.8",
		"--licensed",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["name"] != "Bright Electric" || body["zip_codes"] != "62704,62701" {
		t.Errorf("body = %v", body)
	}
	if body["rating"] != 4.8 {
		t.Errorf("rating = %v, want 4.8", body["rating"])
	}
	if body["is_licensed"] != true {
		t.Errorf("is_licensed = %v, want true", body["is_licensed"])
	}
	if _, ok := body["phone"]; ok {
		t.Error("unset flags should not be sent")
	}
}

func TestContractorsRemove(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /api/admin/contractors/c-42": `{"success":true}`,
	})
	ts.use(t)

	if err := execute(t, "contractors", "remove", "c-42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ts.requests) != 1 || ts.requests[0].Method != http.MethodDelete {
		t.Fatalf("requests = %+v", ts.requests)
	}
}

func TestLeadsSetStatus(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PUT /api/admin/leads/l-1": `{"success":true}`,
	})
	ts.use(t)

	if err := execute(t, "leads", "set-status", "l-1", "contacted", "--notes", "left voicemail"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["status"] != "contacted" || body["notes"] != "left voicemail" {
		t.Errorf("body = %v", body)
	}
}

func TestLeadsList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/admin/leads": `{"total_leads":1,"leads":[{"id":"l-1","contractor_name":"Bright Electric","issue_type":"electrical","customer_name":"N/A","status":"pending","created_at":"2026-01-02T03:04:05Z"}]}`,
	})
	out := ts.use(t)

	if err := execute(t, "leads", "list"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Bright Electric") || !strings.Contains(out.String(), "pending") {
		t.Errorf("output = %q", out.String())
	}
}

func TestStatusCommand_Running(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"healthy","cache":{"size":1,"capacity":10}}`,
	})

	resp, err := ts.client().get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var h healthResponse
	if err := decodeJSON(resp, &h); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if h.Status != "healthy" || h.Cache.Capacity != 10 {
		t.Errorf("health = %+v", h)
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	_, err := ts.client().get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		w.Write([]byte(`{"error":"Report not found"}`))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, httpClient: ts.Client()}

	resp, err := client.get(ctx, "/api/conversations/nope")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if err.Error() != "server returned 404: Report not found" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4000
	cfg.Cache.Capacity = 3

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := map[string]bool{}
	for _, k := range keys {
		found[k.Key+"="+k.Value] = true
	}
	if !found["server.port=4000"] {
		t.Error("expected to find server.port=4000 in ShowAll output")
	}
	if !found["cache.capacity=3"] {
		t.Error("expected to find cache.capacity=3 in ShowAll output")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPIDFile(t *testing.T) {
	path := pidFilePath(filepath.Join(t.TempDir(), "data"))
	if err := writePIDFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error after removal")
	}
}
