package api

import "github.com/starford/moonshine/internal/models"

// CreateMashRequest is the request body for creating a mash.
type CreateMashRequest struct {
	Type    string `json:"type" example:"인사이트" validate:"required"`
	Summary string `json:"summary" example:"FTS5 trigram handles Korean substrings" validate:"required"`
	Context string `json:"context" example:""`
	Memo    string `json:"memo" example:""`
}

// UpdateMashRequest is the request body for a partial mash update.
// Omitted fields are left unchanged.
type UpdateMashRequest struct {
	Type    *string `json:"type,omitempty" example:"결정"`
	Status  *string `json:"status,omitempty" example:"JARRED"`
	Summary *string `json:"summary,omitempty"`
	Context *string `json:"context,omitempty"`
	Memo    *string `json:"memo,omitempty"`
}

// AddEdgeRequest is the request body for adding (upserting) an edge.
type AddEdgeRequest struct {
	SourceID     string   `json:"source_id" validate:"required"`
	TargetID     string   `json:"target_id" validate:"required"`
	RelationType string   `json:"relation_type" example:"SUPPORTS" validate:"required"`
	Source       string   `json:"source,omitempty" example:"human"`
	Confidence   *float64 `json:"confidence,omitempty" example:"0.8"`
}

// UpdateEdgeRequest is the request body for a partial edge update.
type UpdateEdgeRequest struct {
	RelationType *string  `json:"relation_type,omitempty" example:"CONFLICTS_WITH"`
	Confidence   *float64 `json:"confidence,omitempty" example:"0.5"`
}

// MashListResponse wraps mash listings.
type MashListResponse struct {
	Mashes []models.Mash `json:"mashes" validate:"required"`
}

// KeywordSearchResponse wraps keyword search hits.
type KeywordSearchResponse struct {
	Results []models.Mash `json:"results" validate:"required"`
}

// SemanticSearchResponse wraps semantic search hits.
type SemanticSearchResponse struct {
	Results []models.SimilarResult `json:"results" validate:"required"`
}
