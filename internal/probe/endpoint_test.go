package probe

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEndpointPostTimeout(t *testing.T) {
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

	ep := NewEndpoint(EndpointConfig{Name: "slow", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, quietLogger())
	res := ep.Post(context.Background(), "/initialize", nil, true)

	if res.Outcome != OutcomeTransport {
		t.Fatalf("Expected transport failure on timeout, got %+v", res)
	}
	if res.Record != nil || res.Status() != 0 {
		t.Errorf("Expected no record, got %+v", res.Record)
	}
}

func TestEndpointPostHonorsContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewEndpoint(EndpointConfig{Name: "p", BaseURL: srv.URL}, quietLogger()).Post(ctx, "/x", nil, false)
	if res.Outcome != OutcomeTransport || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("Expected canceled transport failure, got %+v", res)
	}
}

func TestEndpointPostTrimsBaseAndSetsContentType(t *testing.T) {
	t.Parallel()

	var gotPath, gotType, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotCustom = r.Header.Get("X-Probe")
		_, _ = w.Write([]byte(`[1,2]`))
	}))
	defer srv.Close()

	ep := NewEndpoint(EndpointConfig{
		Name:    "p",
		BaseURL: srv.URL + "/",
		Headers: map[string]string{"X-Probe": "yes"},
	}, quietLogger())
	res := ep.Post(context.Background(), "/chat-step", map[string]int{"a": 1}, true)

	if !res.OK() {
		t.Fatalf("Expected success, got %+v", res)
	}
	if gotPath != "/chat-step" {
		t.Errorf("Expected /chat-step, got %q", gotPath)
	}
	if gotType != "application/json" {
		t.Errorf("Expected JSON content type, got %q", gotType)
	}
	if gotCustom != "yes" {
		t.Errorf("Expected custom header, got %q", gotCustom)
	}
	if string(res.Record.JSON) != "[1,2]" {
		t.Errorf("Expected raw body kept, got %s", res.Record.JSON)
	}
	if res.Duration <= 0 {
		t.Errorf("Expected positive duration, got %v", res.Duration)
	}
}

func TestEndpointNonOKIsStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
	}{
		{"created", http.StatusCreated},
		{"unauthorized", http.StatusUnauthorized},
		{"server error", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("nope"))
			}))
			defer srv.Close()

			res := NewEndpoint(EndpointConfig{Name: "p", BaseURL: srv.URL}, quietLogger()).Post(context.Background(), "/x", nil, true)
			if res.Outcome != OutcomeStatus || !errors.Is(res.Err, ErrUnexpectedStatus) {
				t.Fatalf("Expected status error, got %+v", res)
			}
			if res.Record.Body != "nope" || res.Status() != tt.status {
				t.Errorf("Unexpected record %+v", res.Record)
			}
		})
	}
}

func TestTranscriptWithoutColor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr := NewTranscript(&buf, false)
	tr.Heading("Section", true)
	tr.Success("fine")
	tr.Failure("broken")
	tr.JSON("Body", []byte(`{"html":"<b>","n":1}`))

	want := "\n=== Section ===\n✅ fine\n❌ broken\nBody: {\n  \"html\": \"<b>\",\n  \"n\": 1\n}\n"
	if buf.String() != want {
		t.Fatalf("Unexpected transcript:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestTranscriptWithColor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewTranscript(&buf, true).Success("fine")
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("Expected ANSI escape, got %q", buf.String())
	}
}

func TestTranscriptJSONKeepsOrderAndPrecision(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewTranscript(&buf, false).JSON("Body", []byte(`{"reply":"hi","conversation_id":"x","id":12345678901234567890,"ratio":1.50}`))

	want := "Body: {\n  \"reply\": \"hi\",\n  \"conversation_id\": \"x\",\n  \"id\": 12345678901234567890,\n  \"ratio\": 1.50\n}\n"
	if buf.String() != want {
		t.Fatalf("Unexpected transcript:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestTranscriptJSONFallsBackToRaw(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewTranscript(&buf, false).JSON("Body", []byte(`{oops`))
	if buf.String() != "Body: {oops\n" {
		t.Fatalf("Unexpected transcript %q", buf.String())
	}
}
