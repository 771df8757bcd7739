package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spigell/resume-analyzer/internal/ai"
	"github.com/spigell/resume-analyzer/internal/analysis"
	"github.com/spigell/resume-analyzer/internal/document"

	"go.uber.org/zap"
)

type stubRunner struct {
	inputs []analysis.Input
	err    error
}

func (s *stubRunner) Run(_ context.Context, in analysis.Input) (*analysis.Result, error) {
	s.inputs = append(s.inputs, in)
	if s.err != nil {
		return nil, s.err
	}
	if len(in.Document) == 0 {
		return nil, document.ErrEmptyInput
	}
	return &analysis.Result{
		Action:  in.Action,
		Heading: in.Action.Heading(),
		Text:    "**Match: 85%**\n\nMissing keywords: Kafka <script>alert(1)</script>",
		Preview: &document.Payload{MIMEType: document.MIMETypeJPEG, Data: "AAAA", Width: 10, Height: 20},
	}, nil
}

func multipartBody(t *testing.T, fields map[string]string, resume []byte) (*bytes.Buffer, string) {
	t.Helper()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if resume != nil {
		part, err := w.CreateFormFile("resume", "resume.pdf")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(resume)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &b, w.FormDataContentType()
}

func do(t *testing.T, h http.Handler, method, path string, fields map[string]string, resume []byte) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if fields == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		body, ct := multipartBody(t, fields, resume)
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", ct)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndexRendersForm(t *testing.T) {
	srv := NewServer(&stubRunner{}, Config{}, zap.NewNop())
	rec := do(t, srv.Router(), http.MethodGet, "/", nil, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	body := rec.Body.String()
	for _, a := range ai.Actions() {
		if !strings.Contains(body, fmt.Sprintf(`value="%s"`, a.String())) || !strings.Contains(body, a.Label()) {
			t.Fatalf("missing button for %s", a)
		}
	}
	if !strings.Contains(body, "Paste the job description here:") {
		t.Fatalf("missing job description field")
	}
}

func TestFormSubmitRendersResult(t *testing.T) {
	runner := &stubRunner{}
	srv := NewServer(runner, Config{}, zap.NewNop())

	rec := do(t, srv.Router(), http.MethodPost, "/", map[string]string{
		"job_description": "Senior Backend Engineer, Go and distributed systems",
		"action":          ai.PercentageMatch.String(),
	}, []byte("%PDF-1.4"))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d: %s", rec.Code, rec.Body.String())
	}

	if len(runner.inputs) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.inputs))
	}
	in := runner.inputs[0]
	if in.Action != ai.PercentageMatch || string(in.Document) != "%PDF-1.4" || in.JobDescription == "" {
		t.Fatalf("unexpected input: %+v", in)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "<strong>Match: 85%</strong>") {
		t.Fatalf("expected rendered markdown in body: %s", body)
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Fatalf("raw html from the model must not be rendered")
	}
	if !strings.Contains(body, `src="data:image/jpeg;base64,AAAA"`) {
		t.Fatalf("expected page preview in body")
	}
	if !strings.Contains(body, "Senior Backend Engineer, Go and distributed systems</textarea>") {
		t.Fatalf("expected job description to be kept in the form")
	}
}

func TestFormSubmitWithoutResume(t *testing.T) {
	runner := &stubRunner{}
	srv := NewServer(runner, Config{}, zap.NewNop())

	rec := do(t, srv.Router(), http.MethodPost, "/", map[string]string{
		"job_description": "anything",
		"action":          ai.TellMeAboutResume.String(),
	}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), analysis.MessageNoDocument) {
		t.Fatalf("expected upload message in body")
	}
}

func TestFormSubmitUnknownAction(t *testing.T) {
	runner := &stubRunner{}
	srv := NewServer(runner, Config{}, zap.NewNop())

	rec := do(t, srv.Router(), http.MethodPost, "/", map[string]string{"action": "summarize"}, []byte("%PDF"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if len(runner.inputs) != 0 {
		t.Fatalf("pipeline must not run for unknown action")
	}
}

func TestEvaluateJSONStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		resume []byte
		status int
	}{
		{name: "ok", resume: []byte("%PDF"), status: http.StatusOK},
		{name: "no resume", status: http.StatusBadRequest},
		{name: "unreadable", resume: []byte("x"), err: fmt.Errorf("%w: no pages", document.ErrUnreadableDocument), status: http.StatusUnprocessableEntity},
		{name: "unavailable", resume: []byte("%PDF"), err: fmt.Errorf("%w: boom", ai.ErrServiceUnavailable), status: http.StatusBadGateway},
		{name: "bad response", resume: []byte("%PDF"), err: ai.ErrServiceResponse, status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := NewServer(&stubRunner{err: tt.err}, Config{}, zap.NewNop())
			rec := do(t, srv.Router(), http.MethodPost, "/api/evaluate", map[string]string{
				"action": ai.ImproveSkills.String(),
			}, tt.resume)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}

			var payload map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("invalid json: %v", err)
			}

			if tt.status == http.StatusOK {
				if payload["heading"] != "Skill Improvement Suggestions" || payload["action"] != "improve-skills" || payload["response"] == "" {
					t.Fatalf("unexpected payload: %v", payload)
				}
				return
			}
			if payload["error"] == "" {
				t.Fatalf("expected error message, got %v", payload)
			}
		})
	}
}

func TestUploadLimit(t *testing.T) {
	srv := NewServer(&stubRunner{}, Config{MaxUploadBytes: 1024}, zap.NewNop())

	rec := do(t, srv.Router(), http.MethodPost, "/api/evaluate", map[string]string{
		"action": ai.PercentageMatch.String(),
	}, bytes.Repeat([]byte("a"), 4096))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized upload, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := NewServer(&stubRunner{}, Config{}, nil)
	rec := do(t, srv.Router(), http.MethodGet, "/health", nil, nil)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}
