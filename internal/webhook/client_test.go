package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var testSubmission = Submission{
	RecordingLink: "https://fathom.video/share/abc",
	FathomSummary: "Candidate introduced themselves.",
	UniqueCode:    "U2FsdGVkX1+code",
}

func TestSubmitPostsPayload(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != contentType {
			t.Errorf("expected content type %q, got %q", contentType, ct)
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("expected no authorization header, got %q", auth)
		}

		raw, _ := io.ReadAll(r.Body)
		var body map[string]string
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		want := map[string]string{
			"recordingLink": testSubmission.RecordingLink,
			"fathomSummary": testSubmission.FathomSummary,
			"unique_code":   testSubmission.UniqueCode,
		}
		if diff := cmp.Diff(want, body); diff != "" {
			t.Errorf("body mismatch (-want +got):\n%s", diff)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Workflow was started","id":42,"run":"abc"}`))
	}))
	defer srv.Close()

	receipt, err := New(nil, srv.URL, time.Second).Submit(context.Background(), testSubmission)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one call, got %d", calls.Load())
	}

	want := &Receipt{ID: "42", Message: "Workflow was started", Extra: map[string]interface{}{"run": "abc"}}
	if diff := cmp.Diff(want, receipt); diff != "" {
		t.Fatalf("receipt mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitAcceptsAny2xx(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "created", status: http.StatusCreated},
		{name: "no content", status: http.StatusNoContent},
		{name: "plain text", status: http.StatusOK, body: "Workflow was started"},
		{name: "json array", status: http.StatusOK, body: `[{"ok":true}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			receipt, err := New(nil, srv.URL, time.Second).Submit(context.Background(), testSubmission)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if receipt == nil {
				t.Fatal("expected a receipt")
			}
		})
	}
}

func TestSubmitBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow not active", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(nil, srv.URL, time.Second).Submit(context.Background(), testSubmission)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", statusErr.StatusCode)
	}
	if statusErr.Error() != "bad status: 404 Not Found" {
		t.Fatalf("unexpected message %q", statusErr.Error())
	}
}

func TestSubmitTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(nil, url, time.Second).Submit(context.Background(), testSubmission)
	if err == nil {
		t.Fatal("expected transport error")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Fatalf("expected a transport error, got %v", err)
	}
}

func TestSubmitHonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(nil, srv.URL, 5*time.Second).Submit(ctx, testSubmission)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	c := New(nil, "", 0)
	if c.URL != DefaultURL {
		t.Fatalf("expected default url, got %q", c.URL)
	}
	if c.HTTPClient.Timeout != DefaultTimeout {
		t.Fatalf("expected default timeout, got %s", c.HTTPClient.Timeout)
	}
}
