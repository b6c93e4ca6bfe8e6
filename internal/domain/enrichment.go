package domain

// EnrichmentState enumerates the per-entry outcomes of the two-stage
// triage/analysis pass. Computed fresh each run, never persisted.
type EnrichmentState string

const (
	// StatePending marks an entry that has not been triaged yet.
	StatePending EnrichmentState = "pending"
	// StateRejected marks an entry scored below the triage threshold; it is
	// dropped from delivery but still committed to the ledger so it is never
	// re-evaluated.
	StateRejected EnrichmentState = "rejected"
	// StateEnriched marks an entry that passed triage and carries analyzed
	// content.
	StateEnriched EnrichmentState = "enriched"
	// StateDegraded marks an entry delivered with its original feed content
	// because a scoring or analysis call failed; enrichment failure never
	// suppresses a novel item.
	StateDegraded EnrichmentState = "degraded"
)

// EnrichmentResult is the per-entry output of the enrichment engine.
type EnrichmentResult struct {
	Entry           Entry
	Stage1Score     float64
	Stage1Passed    bool
	State           EnrichmentState
	ContentDegraded bool // full-text retrieval failed or was disabled
}

// AnalysisInput is one article handed to the deep-analysis call. Content is
// the retrieved full text when available, otherwise the feed excerpt.
type AnalysisInput struct {
	ArticleID int // 1-based position inside the analyzed batch
	Title     string
	Link      string
	Content   string
}

// AnalysisReport is the structured output of the deep-analysis call.
type AnalysisReport struct {
	Summary    string             `json:"summary"`
	Categories []AnalysisCategory `json:"categories"`
}

// AnalysisCategory groups articles under one weight level (1-5 stars).
type AnalysisCategory struct {
	Name        string           `json:"name"`
	Icon        string           `json:"icon"`
	Level       int              `json:"level"`
	Description string           `json:"description"`
	Articles    []ArticleVerdict `json:"articles"`
}

// ArticleVerdict is the analysis verdict for one article, referencing the
// batch position it was sent with.
type ArticleVerdict struct {
	ArticleID int      `json:"article_id"`
	Reason    string   `json:"reason"`
	Tags      []string `json:"tags"`
}
