package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/internal/content"
	"github.com/FocuswithJustin/versefinder/internal/logging"
	"github.com/FocuswithJustin/versefinder/internal/server"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo describes server health.
type HealthInfo struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Books    int    `json:"books"`
	Provider string `json:"provider"`
}

// QueryRequest is the body of POST /parse and POST /lookup.
type QueryRequest struct {
	Query string `json:"query"`
}

// ReferenceInfo is a parsed reference as served to clients.
type ReferenceInfo struct {
	Display string `json:"display"`
	Book    string `json:"book"`
	OSISID  string `json:"osis_id,omitempty"`
	Chapter int    `json:"chapter"`
	Start   int    `json:"verse_start,omitempty"`
	End     int    `json:"verse_end,omitempty"`
}

// ParseResponse is the data of a /parse response.
type ParseResponse struct {
	Query       string                     `json:"query"`
	References  []ReferenceInfo            `json:"references"`
	Candidates  []refparse.CandidateReport `json:"candidates"`
	Diagnostics []refparse.Diagnostic      `json:"diagnostics,omitempty"`
	Message     string                     `json:"message,omitempty"`
}

// LookupResponse is the data of a /lookup response.
type LookupResponse struct {
	Query      string             `json:"query"`
	BatchID    string             `json:"batch_id"`
	References []ReferenceInfo    `json:"references"`
	Results    []content.Resolved `json:"results"`
	Failed     int                `json:"failed"`
	Message    string             `json:"message,omitempty"`
}

const noReferencesMessage = "no valid references found"

func newReferenceInfo(ref refparse.Reference) ReferenceInfo {
	r := ref.Ref()
	info := ReferenceInfo{
		Display: ref.String(),
		Book:    ref.Book,
		Chapter: r.Chapter,
		Start:   r.VerseStart,
		End:     r.VerseEnd,
	}
	if ref.OSIS != "" {
		info.OSISID = r.OSIS(ref.OSIS)
	}
	return info
}

func referenceInfos(refs []refparse.Reference) []ReferenceInfo {
	out := make([]ReferenceInfo, len(refs))
	for i, ref := range refs {
		out[i] = newReferenceInfo(ref)
	}
	return out
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "versefinder API",
		"version": s.cfg.Version,
		"endpoints": []string{
			"GET /health",
			"GET /books",
			"GET|POST /parse",
			"GET|POST /lookup",
			"WS /ws/lookup",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	provider := "none"
	if s.resolver != nil {
		provider = s.cfg.Provider
	}

	respond(w, http.StatusOK, HealthInfo{
		Status:   "healthy",
		Version:  s.cfg.Version,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Books:    s.parser.Registry().Len(),
		Provider: provider,
	})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	books := s.parser.Registry().Books()
	respondList(w, books, len(books))
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	query, ok := s.readQuery(w, r)
	if !ok {
		return
	}

	res := s.parse(r, query)
	data := ParseResponse{
		Query:       res.Query,
		References:  referenceInfos(res.References),
		Candidates:  res.Candidates,
		Diagnostics: res.Diagnostics,
	}
	if res.Empty() {
		data.Message = noReferencesMessage
	}
	respondList(w, data, len(data.References))
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if s.resolver == nil {
		respondError(w, http.StatusServiceUnavailable, "NO_PROVIDER", "No content provider is configured")
		return
	}

	query, ok := s.readQuery(w, r)
	if !ok {
		return
	}

	res := s.parse(r, query)
	batch := s.resolver.Resolve(r.Context(), res.References)

	data := LookupResponse{
		Query:      res.Query,
		BatchID:    batch.ID,
		Results:    batch.Results,
		Failed:     batch.Failed,
		References: referenceInfos(res.References),
	}
	if res.Empty() {
		data.Message = noReferencesMessage
	}
	respondList(w, data, len(batch.Results))
}

// parse runs the parser with diagnostics logged against the request.
func (s *Server) parse(r *http.Request, query string) *refparse.Result {
	opts := s.parser.ParseOptions()
	opts.Sink = logging.DiagnosticSink(r.Context())
	return refparse.Parse(query, s.parser.Registry(), opts)
}

// readQuery extracts the query from ?q= on GET or a JSON body on POST.
// It writes the error response itself and returns false on failure.
func (s *Server) readQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var query string

	switch r.Method {
	case http.MethodGet:
		query = r.URL.Query().Get("q")
	case http.MethodPost:
		limit := int64(s.cfg.MaxQueryBytes)
		if limit <= 0 {
			limit = 1 << 20
		}
		// JSON quoting may escape every byte of the query, so allow slack
		body := http.MaxBytesReader(w, r.Body, 6*limit+64)
		var req QueryRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil && err != io.EOF {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON: {\"query\": \"...\"}")
			return "", false
		}
		query = req.Query
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
		return "", false
	}

	query = server.SanitizeUserInput(query)
	if query == "" {
		respondError(w, http.StatusBadRequest, "MISSING_QUERY", "A query is required")
		return "", false
	}
	if s.cfg.MaxQueryBytes > 0 && len(query) > s.cfg.MaxQueryBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "QUERY_TOO_LONG",
			fmt.Sprintf("Query exceeds %d bytes", s.cfg.MaxQueryBytes))
		return "", false
	}
	return query, true
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func respondList(w http.ResponseWriter, data interface{}, total int) {
	writeResponse(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Total:     total,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeResponse(w, status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func writeResponse(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
