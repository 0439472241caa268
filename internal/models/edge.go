package models

// Edge is a directed, typed relation between two mashes.
type Edge struct {
	ID           int64   `json:"id"`
	SourceID     string  `json:"source_id"`
	TargetID     string  `json:"target_id"`
	RelationType string  `json:"relation_type"`
	Source       string  `json:"source"`
	Confidence   float64 `json:"confidence"`
	CreatedAt    int64   `json:"created_at"`
	UpdatedAt    int64   `json:"updated_at"`
}

// EdgePatch carries the mutable fields of an edge. Nil means unchanged.
type EdgePatch struct {
	RelationType *string
	Confidence   *float64
}

// GraphNode is a mash as it appears in graph views.
type GraphNode struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Summary   string `json:"summary"`
	Context   string `json:"context"`
	Memo      string `json:"memo"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// GraphEdge is an edge as it appears in graph views.
type GraphEdge struct {
	ID           int64   `json:"id"`
	SourceID     string  `json:"source_id"`
	TargetID     string  `json:"target_id"`
	RelationType string  `json:"relation_type"`
	Source       string  `json:"source"`
	Confidence   float64 `json:"confidence"`
}

// GraphData is the filtered graph view.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// NodeDetail is a single node with its one-hop neighborhood.
type NodeDetail struct {
	Node      GraphNode   `json:"node"`
	Neighbors []GraphNode `json:"neighbors"`
	Edges     []GraphEdge `json:"edges"`
}
