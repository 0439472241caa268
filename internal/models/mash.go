// Package models defines the domain types for Moonshine.
package models

// Mash types.
const (
	TypeDecision = "결정"
	TypeProblem  = "문제"
	TypeInsight  = "인사이트"
	TypeQuestion = "질문"
)

// Mash statuses, in pipeline order. JARRED is the published state that
// makes a mash visible in the graph view.
const (
	StatusMashTun   = "MASH_TUN"
	StatusOnStill   = "ON_STILL"
	StatusDistilled = "DISTILLED"
	StatusJarred    = "JARRED"
	StatusReEmbed   = "RE_EMBED"
	StatusReExtract = "RE_EXTRACT"
)

// Relation types.
const (
	RelationRelatedTo     = "RELATED_TO"
	RelationSupports      = "SUPPORTS"
	RelationConflictsWith = "CONFLICTS_WITH"
)

// Edge sources.
const (
	SourceAI    = "ai"
	SourceHuman = "human"
)

// Vocabularies as slices, for validation rules and tool schemas.
var (
	MashTypes     = []string{TypeDecision, TypeProblem, TypeInsight, TypeQuestion}
	MashStatuses  = []string{StatusMashTun, StatusOnStill, StatusDistilled, StatusJarred, StatusReEmbed, StatusReExtract}
	RelationTypes = []string{RelationRelatedTo, RelationSupports, RelationConflictsWith}
	EdgeSources   = []string{SourceAI, SourceHuman}
)

// Mash is a single knowledge entry. The embedding blob is never part of it.
type Mash struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Summary   string `json:"summary"`
	Context   string `json:"context"`
	Memo      string `json:"memo"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// MashPatch carries the fields of a partial update. Nil means unchanged.
type MashPatch struct {
	Type    *string
	Status  *string
	Summary *string
	Context *string
	Memo    *string
}

// Empty reports whether the patch changes nothing.
func (p MashPatch) Empty() bool {
	return p.Type == nil && p.Status == nil && p.Summary == nil && p.Context == nil && p.Memo == nil
}

// EmbeddedMash is a semantic-search candidate: a mash with its raw embedding.
type EmbeddedMash struct {
	ID        string
	Type      string
	Summary   string
	Context   string
	Memo      string
	Embedding []byte
}

// SimilarResult is one semantic search hit.
type SimilarResult struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Summary    string  `json:"summary"`
	Context    string  `json:"context"`
	Memo       string  `json:"memo"`
	Similarity float64 `json:"similarity"`
}

// Stats summarises the store contents.
type Stats struct {
	TotalMashes int            `json:"total_mashes"`
	ByStatus    map[string]int `json:"by_status"`
	ByType      map[string]int `json:"by_type"`
	TotalEdges  int            `json:"total_edges"`
}
