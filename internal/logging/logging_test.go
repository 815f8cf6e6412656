package logging

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/versefinder/core/refparse"
)

// captureLogOutput redirects the global logger to a buffer while f runs.
func captureLogOutput(level Level, format Format, f func()) string {
	var buf bytes.Buffer

	old := GetLogger()
	SetLogger(NewLogger(&buf, level, format))
	defer SetLogger(old)

	f()
	return buf.String()
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"text", FormatText, false},
		{"", FormatText, false},
		{"xml", FormatText, true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		wantDebug bool
		wantWarn  bool
	}{
		{"debug", LevelDebug, true, true},
		{"info", LevelInfo, false, true},
		{"warn", LevelWarn, false, true},
		{"error", LevelError, false, false},
		{"invalid falls back to info", Level(999), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.level, FormatJSON)
			logger.Debug("debug message")
			logger.Warn("warn message")

			out := buf.String()
			if got := strings.Contains(out, "debug message"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "warn message"); got != tt.wantWarn {
				t.Errorf("warn logged = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestNewLoggerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, LevelInfo, FormatJSON).Info("timestamp test")

	out := buf.String()
	// RFC3339 carries a "T" between date and time
	if !strings.Contains(out, `"time":"`) || !strings.Contains(out, "T") {
		t.Errorf("expected RFC3339 timestamp, got %s", out)
	}

	buf.Reset()
	NewLogger(&buf, LevelInfo, FormatText).Info("text message", "key", "value")
	if !strings.Contains(buf.String(), "key=value") {
		t.Errorf("expected text output, got %s", buf.String())
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("GetRequestID(empty) = %q, want empty", got)
	}

	ctx = WithRequestID(ctx, "req-42")
	if got := GetRequestID(ctx); got != "req-42" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-42")
	}

	output := captureLogOutput(LevelInfo, FormatJSON, func() {
		InfoContext(ctx, "with id")
	})
	if !strings.Contains(output, `"request_id":"req-42"`) {
		t.Errorf("expected request_id in output, got %s", output)
	}
}

func TestLoggingFunctions(t *testing.T) {
	output := captureLogOutput(LevelDebug, FormatJSON, func() {
		Debug("debug msg")
		Info("info msg")
		Warn("warn msg")
		Error("error msg")
		ErrorContext(context.Background(), "error ctx msg")
	})

	for _, want := range []string{"debug msg", "info msg", "warn msg", "error msg", "error ctx msg"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestEventHelpers(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
		want []string
	}{
		{
			name: "ServerStartup",
			fn:   func() { ServerStartup("api", "http", 8081) },
			want: []string{"server_startup", `"port":8081`},
		},
		{
			name: "ProviderError",
			fn: func() {
				ProviderError(context.Background(), "sqlite", "Jn 3:16", errors.New("boom"))
			},
			want: []string{"provider_error", `"ref":"Jn 3:16"`, "boom"},
		},
		{
			name: "ConfigReload ok",
			fn:   func() { ConfigReload("/etc/versefinder.yaml", nil, "books", 4) },
			want: []string{"config_reload", `"books":4`},
		},
		{
			name: "ConfigReload failed",
			fn:   func() { ConfigReload("/etc/versefinder.yaml", errors.New("bad yaml")) },
			want: []string{`"level":"ERROR"`, "bad yaml"},
		},
		{
			name: "WebSocketEvent",
			fn:   func() { WebSocketEvent(context.Background(), "connect", "remote", "1.2.3.4") },
			want: []string{"websocket_event", "connect"},
		},
		{
			name: "SecurityEvent",
			fn:   func() { SecurityEvent("rate_limited", "api") },
			want: []string{"security_event", `"level":"WARN"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(LevelDebug, FormatJSON, tt.fn)
			for _, w := range tt.want {
				if !strings.Contains(output, w) {
					t.Errorf("expected output to contain %s, got %s", w, output)
				}
			}
		})
	}
}

func TestDiagnosticSink(t *testing.T) {
	ctx := WithRequestID(context.Background(), "diag-1")

	output := captureLogOutput(LevelInfo, FormatJSON, func() {
		res := refparse.Parse("Jn3:16--18", refparse.DefaultRegistry(), refparse.Options{
			Sink: DiagnosticSink(ctx),
		})
		if len(res.References) != 1 {
			t.Errorf("got %d references, want 1", len(res.References))
		}
	})

	for _, want := range []string{`"level":"WARN"`, `"kind":"repeated-punctuation"`, `"book":"Jn"`, `"request_id":"diag-1"`, `"cluster":"--"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %s, got %s", want, output)
		}
	}
}

func TestStatusRecorder(t *testing.T) {
	recorder := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: recorder, status: http.StatusOK}

	sr.WriteHeader(http.StatusCreated)
	sr.WriteHeader(http.StatusInternalServerError)
	if sr.status != http.StatusCreated {
		t.Errorf("status = %d, want %d", sr.status, http.StatusCreated)
	}

	n, err := sr.Write([]byte("data"))
	if err != nil || n != 4 {
		t.Errorf("Write() = %d, %v", n, err)
	}
	sr.Write([]byte("more"))
	if sr.bytes != 8 {
		t.Errorf("bytes = %d, want 8", sr.bytes)
	}

	if _, _, err := sr.Hijack(); err == nil {
		t.Error("Hijack() on a recorder should fail")
	}
}

func TestValidRequestID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"req-123", true},
		{"a.b_c-D9", true},
		{"", false},
		{"has space", false},
		{"new\nline", false},
		{"quote\"", false},
		{strings.Repeat("x", maxRequestIDLen), true},
		{strings.Repeat("x", maxRequestIDLen+1), false},
	}

	for _, tt := range tests {
		if got := validRequestID(tt.id); got != tt.want {
			t.Errorf("validRequestID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		check  func(t *testing.T, id string)
	}{
		{
			name: "generates uuid",
			check: func(t *testing.T, id string) {
				if _, err := uuid.Parse(id); err != nil {
					t.Errorf("request ID %q is not a UUID: %v", id, err)
				}
			},
		},
		{
			name:   "keeps client id",
			header: "existing-req-id-123",
			check: func(t *testing.T, id string) {
				if id != "existing-req-id-123" {
					t.Errorf("request ID = %q, want existing-req-id-123", id)
				}
			},
		},
		{
			name:   "replaces malformed client id",
			header: "bad id\twith tab",
			check: func(t *testing.T, id string) {
				if _, err := uuid.Parse(id); err != nil {
					t.Errorf("request ID %q is not a UUID", id)
				}
			},
		},
		{
			name:   "replaces oversized client id",
			header: strings.Repeat("x", maxRequestIDLen+1),
			check: func(t *testing.T, id string) {
				if _, err := uuid.Parse(id); err != nil {
					t.Errorf("request ID %q is not a UUID", id)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = GetRequestID(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/parse", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			w := httptest.NewRecorder()
			RequestIDMiddleware(handler).ServeHTTP(w, req)

			id := w.Header().Get("X-Request-ID")
			if id != ctxID {
				t.Errorf("header id %q != context id %q", id, ctxID)
			}
			tt.check(t, id)
		})
	}
}

func TestCombinedMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodPost, "/lookup", nil)
	w := httptest.NewRecorder()

	output := captureLogOutput(LevelInfo, FormatJSON, func() {
		CombinedMiddleware(handler).ServeHTTP(w, req)
	})

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	for _, want := range []string{"http_request", `"method":"POST"`, `"path":"/lookup"`, `"status_code":200`, `"bytes":2`, "request_id"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %s, got %s", want, output)
		}
	}
}
