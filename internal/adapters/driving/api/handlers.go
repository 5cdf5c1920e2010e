package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
)

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Question     string `json:"question"`
	SelectedText string `json:"selected_text,omitempty"`

	// MetadataFilter is either a string such as "module=Basics" or an
	// object mapping field names to a value or a list of values.
	MetadataFilter json.RawMessage `json:"metadata_filter,omitempty"`
}

// QueryResponse is the body returned for a query.
type QueryResponse struct {
	Answer   string          `json:"answer"`
	Sources  []domain.Source `json:"sources"`
	Fallback bool            `json:"fallback"`
}

// IngestResponse summarises an ingestion run.
type IngestResponse struct {
	Documents  int             `json:"documents"`
	Chunks     int             `json:"chunks"`
	Unchanged  int             `json:"unchanged"`
	Removed    int             `json:"removed"`
	Failed     []FailureOutput `json:"failed"`
	DurationMS int64           `json:"duration_ms"`
}

// FailureOutput is one document that could not be ingested.
type FailureOutput struct {
	SourcePath string `json:"source_path"`
	Error      string `json:"error"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	OK           bool   `json:"ok"`
	Collection   string `json:"collection,omitempty"`
	Entries      int    `json:"entries"`
	ModelVersion string `json:"model_version,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	s.answer(w, r, false)
}

func (s *Server) handleSelectionQuery(w http.ResponseWriter, r *http.Request) {
	s.answer(w, r, true)
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request, requireSelection bool) {
	query, err := decodeQuery(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if requireSelection && !query.HasSelection() {
		writeError(w, domain.NewInvalidInput("selected_text", "must not be empty"))
		return
	}

	answer, err := s.query.Ask(r.Context(), *query)
	if err != nil {
		writeError(w, err)
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{Answer: answer.Text, Sources: sources, Fallback: answer.Fallback})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.ingest == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "ingestion is not enabled"})
		return
	}
	if !s.ingestMu.TryLock() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "an ingestion run is already in progress"})
		return
	}
	defer s.ingestMu.Unlock()

	changedOnly := r.URL.Query().Get("changed_only") == "true"
	report, err := s.ingest.IngestAll(r.Context(), driving.IngestOptions{ChangedOnly: changedOnly})
	var partial *domain.PartialIngestError
	if err != nil && !errors.As(err, &partial) {
		writeError(w, err)
		return
	}

	resp := IngestResponse{
		Documents:  report.Documents,
		Chunks:     report.Chunks,
		Unchanged:  report.Unchanged,
		Removed:    report.Removed,
		Failed:     make([]FailureOutput, len(report.Failed)),
		DurationMS: report.Duration.Milliseconds(),
	}
	for i, f := range report.Failed {
		resp.Failed[i] = FailureOutput{SourcePath: f.SourcePath, Error: f.Err.Error()}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{OK: true}
	if s.ingest != nil {
		info, err := s.ingest.Collection(r.Context())
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// Not ingested yet.
		case err != nil:
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		default:
			resp.Collection = info.Config.Name
			resp.Entries = info.Entries
			resp.ModelVersion = info.Config.ModelVersion
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (*domain.Query, error) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.NewInvalidInput("body", "request body is empty")
		}
		return nil, domain.NewInvalidInput("body", "%v", err)
	}

	filter, err := decodeFilter(req.MetadataFilter)
	if err != nil {
		return nil, err
	}

	q := &domain.Query{Question: req.Question, SelectedText: req.SelectedText, Filter: filter}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func decodeFilter(raw json.RawMessage) (*domain.MetadataFilter, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return domain.ParseMetadataFilter(text)
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, domain.NewInvalidInput("metadata_filter", "must be a string or an object")
	}
	fields := make(map[string][]string, len(object))
	for name, v := range object {
		var one string
		if err := json.Unmarshal(v, &one); err == nil {
			fields[name] = []string{one}
			continue
		}
		var many []string
		if err := json.Unmarshal(v, &many); err != nil {
			return nil, domain.NewInvalidInput("metadata_filter", "%s: want a string or a list of strings", name)
		}
		fields[name] = many
	}
	return domain.NewMetadataFilter(fields)
}
