package model

import (
	"time"

	"github.com/sells-group/property-advisor/pkg/realestate"
)

// Stage is a state of the recommendation pipeline.
type Stage string

const (
	StageStart          Stage = "start"
	StageIntentResolved Stage = "intent_resolved"
	StageClarify        Stage = "clarify"
	StageSearching      Stage = "searching"
	StageNoResults      Stage = "no_results"
	StageAnalyzing      Stage = "analyzing"
	StageRecommending   Stage = "recommending"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s Stage) Terminal() bool {
	switch s {
	case StageClarify, StageNoResults, StageDone, StageFailed:
		return true
	}
	return false
}

// StageStatus is the outcome of one stage.
type StageStatus string

const (
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
)

// StageResult records one visited stage.
type StageResult struct {
	Stage    Stage          `json:"stage" yaml:"stage"`
	Status   StageStatus    `json:"status" yaml:"status"`
	Duration int64          `json:"duration_ms" yaml:"duration_ms"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// StageError is one entry in the append-only error list.
type StageError struct {
	Stage   Stage  `json:"stage" yaml:"stage"`
	Message string `json:"message" yaml:"message"`
}

// Turn is one message of a conversation.
type Turn struct {
	Role    string    `json:"role" yaml:"role"` // "user" or "assistant"
	Content string    `json:"content" yaml:"content"`
	At      time.Time `json:"at,omitempty" yaml:"at,omitempty"`
}

// PipelineState carries one request through the pipeline.
type PipelineState struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	Query     string    `json:"query" yaml:"query"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	Stage  Stage         `json:"stage" yaml:"stage"`
	Stages []StageResult `json:"stages" yaml:"stages"`

	Criteria              *SearchCriteria `json:"criteria,omitempty" yaml:"criteria,omitempty"`
	NeedsClarification    bool            `json:"needs_clarification" yaml:"needs_clarification"`
	ClarificationQuestion string          `json:"clarification_question,omitempty" yaml:"clarification_question,omitempty"`

	Listings        []realestate.Listing      `json:"listings" yaml:"listings"`
	Analyses        map[string]AnalysisRecord `json:"analyses" yaml:"analyses"`
	Recommendations []Recommendation          `json:"recommendations" yaml:"recommendations"`
	FinalResponse   string                    `json:"final_response" yaml:"final_response"`

	Errors []StageError `json:"errors" yaml:"errors"`

	GenerationCalls int     `json:"generation_calls" yaml:"generation_calls"`
	TotalTokens     int     `json:"total_tokens" yaml:"total_tokens"`
	TotalCost       float64 `json:"total_cost" yaml:"total_cost"`
}

// NewPipelineState creates the state for a new request.
func NewPipelineState(runID, query string) *PipelineState {
	return &PipelineState{
		RunID:           runID,
		Query:           query,
		StartedAt:       time.Now().UTC(),
		Stage:           StageStart,
		Listings:        []realestate.Listing{},
		Analyses:        map[string]AnalysisRecord{},
		Recommendations: []Recommendation{},
		Errors:          []StageError{},
	}
}

// AddError appends an error for stage. Errors are never removed.
func (s *PipelineState) AddError(stage Stage, err error) {
	if err == nil {
		return
	}
	s.Errors = append(s.Errors, StageError{Stage: stage, Message: err.Error()})
}

// SetListings stores listings in retrieval order, dropping repeated ids.
func (s *PipelineState) SetListings(listings []realestate.Listing) {
	seen := make(map[string]bool, len(listings))
	out := make([]realestate.Listing, 0, len(listings))
	for _, l := range listings {
		if l.ID == "" || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	s.Listings = out
}

// Listing returns the listing with the given id.
func (s *PipelineState) Listing(id string) (realestate.Listing, bool) {
	for _, l := range s.Listings {
		if l.ID == id {
			return l, true
		}
	}
	return realestate.Listing{}, false
}

// SetAnalysis stores rec if it refers to a known listing.
func (s *PipelineState) SetAnalysis(rec AnalysisRecord) bool {
	if _, ok := s.Listing(rec.ListingID); !ok {
		return false
	}
	s.Analyses[rec.ListingID] = rec
	return true
}

// AnalyzedListings returns the listings that have an analysis, in
// retrieval order.
func (s *PipelineState) AnalyzedListings() []realestate.Listing {
	var out []realestate.Listing
	for _, l := range s.Listings {
		if _, ok := s.Analyses[l.ID]; ok {
			out = append(out, l)
		}
	}
	return out
}
