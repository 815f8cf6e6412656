package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/internal/content"
)

// envelope mirrors APIResponse with the payload left raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

// echoProvider returns one line per reference and fails for book Mt.
func echoProvider() content.ProviderFunc {
	return func(ctx context.Context, ref refparse.Reference) ([]string, error) {
		if ref.Book == "Mt" {
			return nil, errors.NewNotFound("verses", ref.String())
		}
		return []string{"text of " + ref.String()}, nil
	}
}

func newTestServer(t *testing.T, cfg Config, withProvider bool) *Server {
	t.Helper()
	if cfg.Version == "" {
		cfg.Version = "test"
	}
	var resolver *content.Resolver
	if withProvider {
		cfg.Provider = "sqlite"
		resolver = content.NewResolver(echoProvider(), 2)
	}
	parser := StaticParser{
		Reg:     refparse.DefaultRegistry(),
		Options: refparse.Options{DotSeparator: true},
	}
	s := New(cfg, parser, resolver)
	t.Cleanup(s.Close)
	return s
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return w, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("failed to decode data %s: %v", env.Data, err)
	}
}

func parseURL(query string) string {
	return "/parse?" + url.Values{"q": {query}}.Encode()
}

func TestHandleRoot(t *testing.T) {
	h := newTestServer(t, Config{}, false).Handler()

	w, env := doRequest(t, h, http.MethodGet, "/", "")
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("GET / = %d, success=%v", w.Code, env.Success)
	}
	var data map[string]interface{}
	decodeData(t, env, &data)
	if data["name"] != "versefinder API" || data["version"] != "test" {
		t.Errorf("unexpected root data: %v", data)
	}

	w, env = doRequest(t, h, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("GET /nope = %d, %+v", w.Code, env.Error)
	}
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name         string
		withProvider bool
		wantProvider string
	}{
		{"without provider", false, "none"},
		{"with provider", true, "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, Config{}, tt.withProvider).Handler()
			w, env := doRequest(t, h, http.MethodGet, "/health", "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var info HealthInfo
			decodeData(t, env, &info)
			if info.Status != "healthy" || info.Books != 4 || info.Provider != tt.wantProvider {
				t.Errorf("health = %+v", info)
			}
		})
	}

	h := newTestServer(t, Config{}, false).Handler()
	if w, _ := doRequest(t, h, http.MethodPost, "/health", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health = %d, want 405", w.Code)
	}
}

func TestHandleBooks(t *testing.T) {
	h := newTestServer(t, Config{}, false).Handler()

	w, env := doRequest(t, h, http.MethodGet, "/books", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var books []refparse.Book
	decodeData(t, env, &books)

	var codes []string
	for _, b := range books {
		codes = append(codes, b.Code)
	}
	if want := []string{"Ddd", "Jn", "Mc", "Mt"}; !reflect.DeepEqual(codes, want) {
		t.Errorf("codes = %v, want %v", codes, want)
	}
	if env.Meta == nil || env.Meta.Total != 4 {
		t.Errorf("meta = %+v, want total 4", env.Meta)
	}
}

func TestHandleParse(t *testing.T) {
	h := newTestServer(t, Config{}, false).Handler()

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   []ReferenceInfo
	}{
		{
			name:   "GET single range",
			method: http.MethodGet,
			target: parseURL("Jn 3:16-18"),
			want: []ReferenceInfo{
				{Display: "Jn 3:16-18", Book: "Jn", OSISID: "John.3.16-18", Chapter: 3, Start: 16, End: 18},
			},
		},
		{
			name:   "POST with dot separator",
			method: http.MethodPost,
			target: "/parse",
			body:   `{"query": "Jn3:16-18,20; Mt5.3-12"}`,
			want: []ReferenceInfo{
				{Display: "Jn 3:16-18", Book: "Jn", OSISID: "John.3.16-18", Chapter: 3, Start: 16, End: 18},
				{Display: "Jn 3:20", Book: "Jn", OSISID: "John.3.20", Chapter: 3, Start: 20, End: 20},
				{Display: "Mt 5:3-12", Book: "Mt", OSISID: "Matt.5.3-12", Chapter: 5, Start: 3, End: 12},
			},
		},
		{
			name:   "chapter range without OSIS name",
			method: http.MethodGet,
			target: parseURL("Ddd 49-60"),
			want: []ReferenceInfo{
				{Display: "Ddd 49", Book: "Ddd", Chapter: 49},
				{Display: "Ddd 50", Book: "Ddd", Chapter: 50},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doRequest(t, h, tt.method, tt.target, tt.body)
			if w.Code != http.StatusOK || !env.Success {
				t.Fatalf("status = %d, error = %+v", w.Code, env.Error)
			}
			var data ParseResponse
			decodeData(t, env, &data)
			if !reflect.DeepEqual(data.References, tt.want) {
				t.Errorf("references = %+v, want %+v", data.References, tt.want)
			}
			if data.Message != "" {
				t.Errorf("message = %q, want none", data.Message)
			}
			if env.Meta.Total != len(tt.want) {
				t.Errorf("meta total = %d, want %d", env.Meta.Total, len(tt.want))
			}
		})
	}
}

func TestHandleParseNoReferences(t *testing.T) {
	h := newTestServer(t, Config{}, false).Handler()

	w, env := doRequest(t, h, http.MethodGet, parseURL("hello world"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var data ParseResponse
	decodeData(t, env, &data)
	if data.Message != noReferencesMessage {
		t.Errorf("message = %q, want %q", data.Message, noReferencesMessage)
	}
	if data.References == nil || len(data.References) != 0 {
		t.Errorf("references = %v, want empty list", data.References)
	}
	for _, c := range data.Candidates {
		if c.Status != refparse.StatusSkip {
			t.Errorf("candidate %q status = %v, want skip", c.Candidate.Text, c.Status)
		}
	}
}

func TestHandleParseReportsFatalAndDiagnostics(t *testing.T) {
	h := newTestServer(t, Config{}, false).Handler()

	_, env := doRequest(t, h, http.MethodPost, "/parse", `{"query": "Jn 3-4:5-6; Mt 5:3; Jn3:16--18"}`)
	var data ParseResponse
	decodeData(t, env, &data)

	if len(data.References) != 2 {
		t.Fatalf("references = %+v, want 2", data.References)
	}
	if data.Candidates[0].Status != refparse.StatusFatal || data.Candidates[0].Book != "Jn" {
		t.Errorf("first candidate = %+v, want fatal for Jn", data.Candidates[0])
	}

	found := false
	for _, d := range data.Diagnostics {
		if d.Kind == refparse.DiagRepeatedPunctuation {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %+v, want repeated-punctuation", data.Diagnostics)
	}
}

func TestHandleParseSanitizesInput(t *testing.T) {
	h := newTestServer(t, Config{}, false).Handler()

	_, env := doRequest(t, h, http.MethodPost, "/parse", `{"query": "  Jn 3:16\u0000 "}`)
	var data ParseResponse
	decodeData(t, env, &data)
	if data.Query != "Jn 3:16" {
		t.Errorf("query = %q, want %q", data.Query, "Jn 3:16")
	}
}

func TestHandleParseErrors(t *testing.T) {
	h := newTestServer(t, Config{MaxQueryBytes: 10}, false).Handler()

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"missing query", http.MethodGet, "/parse", "", http.StatusBadRequest, "MISSING_QUERY"},
		{"blank query", http.MethodGet, parseURL("   "), "", http.StatusBadRequest, "MISSING_QUERY"},
		{"bad json", http.MethodPost, "/parse", `{"query":`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"too long", http.MethodGet, parseURL("Jn 3:16; Jn 3:17"), "", http.StatusRequestEntityTooLarge, "QUERY_TOO_LONG"},
		{"wrong method", http.MethodDelete, "/parse", "", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doRequest(t, h, tt.method, tt.target, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if env.Success || env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestHandleLookup(t *testing.T) {
	h := newTestServer(t, Config{}, true).Handler()

	w, env := doRequest(t, h, http.MethodPost, "/lookup", `{"query": "Jn 3:16; Mt 5:3; Mc 4"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", w.Code, env.Error)
	}

	var data LookupResponse
	decodeData(t, env, &data)
	if data.BatchID == "" {
		t.Error("batch_id is empty")
	}
	if len(data.Results) != 3 || data.Failed != 1 {
		t.Fatalf("results = %d, failed = %d", len(data.Results), data.Failed)
	}

	wantDisplay := []string{"Jn 3:16", "Mt 5:3", "Mc 4"}
	for i, res := range data.Results {
		if res.Index != i || res.Display != wantDisplay[i] {
			t.Errorf("result[%d] = %d %q", i, res.Index, res.Display)
		}
	}
	if got := data.Results[0].Lines; len(got) != 1 || got[0] != "text of Jn 3:16" {
		t.Errorf("Jn lines = %q", got)
	}
	if data.Results[1].Error == "" || len(data.Results[1].Lines) != 0 {
		t.Errorf("Mt result = %+v, want error and no lines", data.Results[1])
	}
	if data.References[2].OSISID != "Mark.4" {
		t.Errorf("Mc OSIS = %q", data.References[2].OSISID)
	}
}

func TestHandleLookupNoProvider(t *testing.T) {
	h := newTestServer(t, Config{}, false).Handler()

	w, env := doRequest(t, h, http.MethodGet, "/lookup?q=Jn+3:16", "")
	if w.Code != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != "NO_PROVIDER" {
		t.Errorf("lookup = %d, %+v", w.Code, env.Error)
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	h := newTestServer(t, Config{}, false).Handler()

	w, _ := doRequest(t, h, http.MethodGet, "/health", "")
	for _, header := range []string{"X-Request-ID", "X-Content-Type-Options", "Content-Security-Policy", "Access-Control-Allow-Origin"} {
		if w.Header().Get(header) == "" {
			t.Errorf("missing header %s", header)
		}
	}
}
