package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/RenatoCabral2022/binaural-studio/internal/diagnostics"
	"github.com/RenatoCabral2022/binaural-studio/internal/middleware"
	"github.com/RenatoCabral2022/binaural-studio/internal/model"
	"github.com/RenatoCabral2022/binaural-studio/internal/processing"
	"github.com/RenatoCabral2022/binaural-studio/internal/studio"
	"github.com/RenatoCabral2022/binaural-studio/internal/upload"
)

// switchProcessor fails while fail is set and otherwise delegates to the mock.
type switchProcessor struct {
	mock *processing.MockClient
	fail atomic.Bool
}

func (s *switchProcessor) Process(ctx context.Context, req processing.Request) (*model.ProcessResponse, error) {
	if s.fail.Load() {
		return nil, errors.New("upstream exploded")
	}
	return s.mock.Process(ctx, req)
}

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	proc   *switchProcessor
	studio *studio.Studio
	diag   *diagnostics.Ring
}

const testDiagToken = "diag-token"

type envOptions struct {
	maxVisitors int
	maxUpload   int64
	mock        *processing.MockClient // nil uses an instant mock
	diagToken   string
}

func newTestEnv(t *testing.T, maxVisitors int, maxUpload int64) *testEnv {
	return newTestEnvWith(t, envOptions{maxVisitors: maxVisitors, maxUpload: maxUpload, diagToken: testDiagToken})
}

func newTestEnvWith(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	mock := opts.mock
	if mock == nil {
		mock = &processing.MockClient{}
	}
	proc := &switchProcessor{mock: mock}
	diag := diagnostics.New(16)
	s := studio.New(studio.Config{MaxVisitors: opts.maxVisitors}, proc, diag, logger)
	h := NewHandlers(s, diag, opts.maxUpload, logger)

	srv := httptest.NewServer(NewRouter(h, RouterOptions{
		AllowedOrigins:   []string{"*"},
		DiagnosticsToken: opts.diagToken,
	}, logger))
	t.Cleanup(srv.Close)
	t.Cleanup(s.Shutdown)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{
		srv:    srv,
		client: &http.Client{Jar: jar},
		proc:   proc,
		studio: s,
		diag:   diag,
	}
}

// multipartBody builds an upload. An empty fileName omits the audio part.
func multipartBody(t *testing.T, fileName string, data []byte, dimensionality string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		fw, err := mw.CreateFormFile(processing.FieldAudio, fileName)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	if dimensionality != "" {
		mw.WriteField(processing.FieldDimensionality, dimensionality)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) post(t *testing.T, path, fileName, dimensionality string) (*http.Response, string) {
	t.Helper()
	body, ct := multipartBody(t, fileName, []byte("ID3 fake mp3"), dimensionality)
	resp, err := e.client.Post(e.srv.URL+path, ct, body)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func TestIndexRendersIdleForm(t *testing.T) {
	env := newTestEnv(t, 8, 1<<20)

	resp, err := env.client.Get(env.srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	page := string(body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, want := range []string{
		"Music Dimensional Processor",
		`accept="audio/*"`,
		`min="2"`,
		`max="16"`,
		`value="4"`,
		"Dimensionality (2D → 16D): 4D",
		upload.ButtonIdleLabel,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page, "<audio") {
		t.Error("expected no players before processing")
	}
	if got := strings.Count(page, `class="bar"`); got != 32 {
		t.Errorf("expected 32 bars, got %d", got)
	}
	if env.studio.Count() != 0 {
		t.Errorf("expected page view not to allocate a form, got %d", env.studio.Count())
	}
}

func TestPageViewsDoNotExhaustCapacity(t *testing.T) {
	env := newTestEnv(t, 2, 1<<20)

	for i := 0; i < 5; i++ {
		resp, err := http.Get(env.srv.URL + "/")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("cookie-less GET %d: expected 200, got %d", i, resp.StatusCode)
		}
	}

	resp, _ := env.post(t, "/process", "song.mp3", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected a real visitor to be served, got %d", resp.StatusCode)
	}
	if env.studio.Count() != 1 {
		t.Errorf("expected only the uploading visitor registered, got %d", env.studio.Count())
	}
}

func TestProcessWithoutFile(t *testing.T) {
	env := newTestEnv(t, 8, 1<<20)

	resp, page := env.post(t, "/process", "", "6")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if !strings.Contains(page, upload.MissingFileMessage) {
		t.Error("expected missing-file warning")
	}
	if len(env.proc.mock.Requests()) != 0 {
		t.Error("expected no upstream request")
	}
}

func TestProcessRendersPlayers(t *testing.T) {
	env := newTestEnv(t, 8, 1<<20)

	resp, page := env.post(t, "/process", "song.mp3", "8")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, page)
	}
	for _, want := range []string{
		upload.OriginalHeading,
		upload.MixedHeading,
		`src="data:audio/mp3;base64,QQ=="`,
		`src="data:audio/mp3;base64,Qg=="`,
		"Selected: song.mp3",
		"Dimensionality (2D → 16D): 8D",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}

	reqs := env.proc.mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 upstream request, got %d", len(reqs))
	}
	if reqs[0].Dimensionality != 8 || reqs[0].FileName != "song.mp3" {
		t.Errorf("unexpected request: %+v", reqs[0])
	}
	if reqs[0].ContentType != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %q", reqs[0].ContentType)
	}
}

func TestProcessFailureKeepsPlayers(t *testing.T) {
	env := newTestEnv(t, 8, 1<<20)

	if resp, _ := env.post(t, "/process", "song.mp3", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected first run to succeed, got %d", resp.StatusCode)
	}

	env.proc.fail.Store(true)
	resp, page := env.post(t, "/process", "", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if !strings.Contains(page, upload.ProcessingErrorMessage) {
		t.Error("expected processing alert")
	}
	if strings.Contains(page, "upstream exploded") {
		t.Error("upstream detail leaked to the page")
	}
	if !strings.Contains(page, `src="data:audio/mp3;base64,QQ=="`) {
		t.Error("expected previous players to remain")
	}
	if env.diag.Total() != 1 {
		t.Errorf("expected one diagnostic, got %d", env.diag.Total())
	}
}

func TestProcessBadDimensionality(t *testing.T) {
	env := newTestEnv(t, 8, 1<<20)

	resp, _ := env.post(t, "/process", "song.mp3", "lots")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if len(env.proc.mock.Requests()) != 0 {
		t.Error("expected no upstream request")
	}
}

func TestProcessUploadTooLarge(t *testing.T) {
	env := newTestEnv(t, 8, 1024)

	body, ct := multipartBody(t, "big.mp3", bytes.Repeat([]byte{0xff}, 4096), "4")
	resp, err := env.client.Post(env.srv.URL+"/process", ct, body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}

func TestAPIProcessAndState(t *testing.T) {
	env := newTestEnv(t, 8, 1<<20)

	resp, body := env.post(t, "/api/v1/process", "song.wav", "20")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var result model.ProcessResult
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatal(err)
	}
	if result.Original != "data:audio/mp3;base64,QQ==" || result.Mixed != "data:audio/mp3;base64,Qg==" {
		t.Errorf("unexpected result: %+v", result)
	}

	stateResp, err := env.client.Get(env.srv.URL + "/api/v1/state")
	if err != nil {
		t.Fatal(err)
	}
	defer stateResp.Body.Close()
	var state model.StateResponse
	if err := json.NewDecoder(stateResp.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if state.FileName != "song.wav" {
		t.Errorf("expected song.wav, got %q", state.FileName)
	}
	if state.Dimensionality != 16 {
		t.Errorf("expected clamped 16, got %d", state.Dimensionality)
	}
	if state.Loading || state.ButtonLabel != upload.ButtonIdleLabel {
		t.Errorf("expected idle state, got %+v", state)
	}
	if len(state.Players) != 2 || state.Players[1].Heading != upload.MixedHeading {
		t.Errorf("unexpected players: %+v", state.Players)
	}
}

func TestAPIProcessErrors(t *testing.T) {
	env := newTestEnv(t, 8, 1<<20)

	resp, body := env.post(t, "/api/v1/process", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var e model.ErrorResponse
	json.Unmarshal([]byte(body), &e)
	if e.Error != upload.MissingFileMessage {
		t.Errorf("expected missing-file message, got %q", e.Error)
	}

	env.proc.fail.Store(true)
	resp, body = env.post(t, "/api/v1/process", "song.mp3", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	json.Unmarshal([]byte(body), &e)
	if e.Error != upload.ProcessingErrorMessage {
		t.Errorf("expected processing message, got %q", e.Error)
	}
}

func TestAPICapacity(t *testing.T) {
	env := newTestEnv(t, 1, 1<<20)

	if _, err := env.studio.Get("someone-else"); err != nil {
		t.Fatal(err)
	}

	resp, body := env.post(t, "/api/v1/process", "song.mp3", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", resp.StatusCode, body)
	}

	stateResp, err := env.client.Get(env.srv.URL + "/api/v1/state")
	if err != nil {
		t.Fatal(err)
	}
	stateResp.Body.Close()
	if stateResp.StatusCode != http.StatusOK {
		t.Errorf("expected state reads to work at capacity, got %d", stateResp.StatusCode)
	}
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t, 8, 1<<20)

	env.post(t, "/api/v1/process", "song.mp3", "")
	if env.studio.Count() != 1 {
		t.Fatalf("expected one visitor, got %d", env.studio.Count())
	}

	req, _ := http.NewRequest(http.MethodDelete, env.srv.URL+"/api/v1/session", nil)
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if env.studio.Count() != 0 {
		t.Errorf("expected visitor removed, got %d", env.studio.Count())
	}
}

func TestHealthAndDiagnostics(t *testing.T) {
	env := newTestEnv(t, 8, 1<<20)

	resp, err := http.Get(env.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var health healthResponse
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || health.Status != "ok" || health.Visitors != 0 {
		t.Errorf("unexpected health reply %d %+v", resp.StatusCode, health)
	}

	env.proc.fail.Store(true)
	env.post(t, "/api/v1/process", "a.mp3", "")
	env.post(t, "/api/v1/process", "", "")

	resp, err = http.Get(env.srv.URL + "/debug/diagnostics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/debug/diagnostics?limit=5", nil)
	req.Header.Set("Authorization", "Bearer "+testDiagToken)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var diag diagnosticsResponse
	if err := json.Unmarshal(raw, &diag); err != nil {
		t.Fatal(err)
	}

	u, _ := url.Parse(env.srv.URL)
	for _, c := range env.client.Jar.Cookies(u) {
		if c.Name == middleware.VisitorCookie && strings.Contains(string(raw), c.Value) {
			t.Error("diagnostics expose the visitor cookie")
		}
	}
	if diag.Total != 2 || len(diag.Entries) != 2 {
		t.Fatalf("expected 2 entries, got total=%d len=%d", diag.Total, len(diag.Entries))
	}
	if !strings.Contains(diag.Entries[0].Message, "upstream exploded") {
		t.Errorf("expected upstream detail in diagnostics, got %q", diag.Entries[0].Message)
	}
}

func TestDiagnosticsDisabledWithoutToken(t *testing.T) {
	env := newTestEnvWith(t, envOptions{maxVisitors: 8, maxUpload: 1 << 20})

	resp, err := http.Get(env.srv.URL + "/debug/diagnostics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAPIProcessSuperseded(t *testing.T) {
	mock := &processing.MockClient{Gate: make(chan struct{})}
	env := newTestEnvWith(t, envOptions{maxVisitors: 8, maxUpload: 1 << 20, mock: mock, diagToken: testDiagToken})

	// Pick up the visitor cookie so both uploads share one form.
	first, err := env.client.Get(env.srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	first.Body.Close()

	type reply struct {
		status int
		body   string
	}
	send := func(body io.Reader, ct string, out chan<- reply) {
		resp, err := env.client.Post(env.srv.URL+"/api/v1/process", ct, body)
		if err != nil {
			out <- reply{status: -1, body: err.Error()}
			return
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		out <- reply{status: resp.StatusCode, body: string(b)}
	}
	waitRequests := func(n int) {
		deadline := time.Now().Add(2 * time.Second)
		for len(mock.Requests()) < n && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if len(mock.Requests()) < n {
			t.Fatalf("expected %d upstream requests", n)
		}
	}

	oldBody, oldType := multipartBody(t, "old.mp3", []byte("ID3"), "")
	newBody, newType := multipartBody(t, "new.mp3", []byte("ID3"), "")

	stale := make(chan reply, 1)
	go send(oldBody, oldType, stale)
	waitRequests(1)

	fresh := make(chan reply, 1)
	go send(newBody, newType, fresh)
	waitRequests(2)

	if r := <-stale; r.status != http.StatusConflict {
		t.Fatalf("expected 409 for the stale upload, got %d: %s", r.status, r.body)
	}

	mock.Gate <- struct{}{}
	r := <-fresh
	if r.status != http.StatusOK {
		t.Fatalf("expected 200 for the newer upload, got %d: %s", r.status, r.body)
	}

	stateResp, err := env.client.Get(env.srv.URL + "/api/v1/state")
	if err != nil {
		t.Fatal(err)
	}
	defer stateResp.Body.Close()
	var state model.StateResponse
	json.NewDecoder(stateResp.Body).Decode(&state)
	if state.FileName != "new.mp3" || state.Loading || len(state.Players) != 2 {
		t.Errorf("expected the newer upload to own the state, got %+v", state)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, 8, 1<<20)

	resp, err := http.Get(env.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "binaural_") {
		t.Error("expected binaural metrics exposed")
	}
}
