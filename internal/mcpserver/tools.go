package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/moonshine/internal/apperr"
	"github.com/starford/moonshine/internal/graph"
	"github.com/starford/moonshine/internal/mashservice"
	"github.com/starford/moonshine/internal/models"
	"github.com/starford/moonshine/internal/retrieval"
)

func stringItems(vocab []string) mcp.PropertyOption {
	schema := map[string]any{"type": "string"}
	if vocab != nil {
		schema["enum"] = vocab
	}
	return mcp.Items(schema)
}

func (s *Server) registerMashTools() {
	s.mcp.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Get statistics: mash counts by status/type, edge count."),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.getStats)

	s.mcp.AddTool(mcp.NewTool("list_mashes",
		mcp.WithDescription("List mashes, newest first, with optional filtering by status and type."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("status", mcp.Enum(models.MashStatuses...), mcp.Description("Filter by status")),
		mcp.WithString("type", mcp.Enum(models.MashTypes...), mcp.Description("Filter by type")),
		mcp.WithNumber("limit", mcp.Min(1), mcp.Max(mashservice.MaxListLimit),
			mcp.DefaultNumber(mashservice.DefaultListLimit), mcp.Description("Max results")),
		mcp.WithNumber("offset", mcp.Min(0), mcp.DefaultNumber(0), mcp.Description("Offset for pagination")),
	), s.listMashes)

	s.mcp.AddTool(mcp.NewTool("get_mash",
		mcp.WithDescription("Get a single mash by ID."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mash UUID")),
	), s.getMash)

	s.mcp.AddTool(mcp.NewTool("create_mash",
		mcp.WithDescription("Create a new mash (knowledge entry). It starts in the MASH_TUN status. "+
			"See the "+VocabularyURI+" resource for the allowed types."),
		mcp.WithString("type", mcp.Required(), mcp.Enum(models.MashTypes...), mcp.Description("Mash type")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("Summary text")),
		mcp.WithString("context", mcp.DefaultString(""), mcp.Description("Additional context")),
		mcp.WithString("memo", mcp.DefaultString(""), mcp.Description("Personal memo")),
	), s.createMash)

	s.mcp.AddTool(mcp.NewTool("update_mash",
		mcp.WithDescription("Update an existing mash (partial update). At least one field is required."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mash UUID")),
		mcp.WithString("type", mcp.Enum(models.MashTypes...), mcp.Description("New type")),
		mcp.WithString("summary", mcp.Description("New summary")),
		mcp.WithString("context", mcp.Description("New context")),
		mcp.WithString("memo", mcp.Description("New memo")),
	), s.updateMash)

	s.mcp.AddTool(mcp.NewTool("delete_mash",
		mcp.WithDescription("Delete a mash by ID. Its edges are deleted too."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mash UUID")),
	), s.deleteMash)
}

func (s *Server) registerGraphTools() {
	s.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get knowledge graph data (JARRED mashes only) with optional filtering."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithArray("mash_types", stringItems(nil), mcp.Description("Filter by mash types")),
		mcp.WithArray("relation_types", stringItems(models.RelationTypes), mcp.Description("Filter by relation types")),
		mcp.WithArray("sources", stringItems(models.EdgeSources), mcp.Description("Filter edges by source (ai/human)")),
	), s.getGraph)

	s.mcp.AddTool(mcp.NewTool("get_node_detail",
		mcp.WithDescription("Get a node with its neighbors and connecting edges, regardless of status."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mash UUID")),
	), s.getNodeDetail)

	s.mcp.AddTool(mcp.NewTool("add_edge",
		mcp.WithDescription("Add a relationship edge between two mashes. "+
			"An existing edge with the same source and target is overwritten."),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Source mash UUID")),
		mcp.WithString("target_id", mcp.Required(), mcp.Description("Target mash UUID")),
		mcp.WithString("relation_type", mcp.Required(), mcp.Enum(models.RelationTypes...), mcp.Description("Relation type")),
		mcp.WithString("source", mcp.Enum(models.EdgeSources...), mcp.DefaultString(models.SourceHuman), mcp.Description("Edge source")),
		mcp.WithNumber("confidence", mcp.Min(0), mcp.Max(1), mcp.DefaultNumber(0), mcp.Description("Confidence score")),
	), s.addEdge)

	s.mcp.AddTool(mcp.NewTool("update_edge",
		mcp.WithDescription("Update the relation type and/or confidence of an existing edge."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Edge ID")),
		mcp.WithString("relation_type", mcp.Enum(models.RelationTypes...), mcp.Description("New relation type")),
		mcp.WithNumber("confidence", mcp.Min(0), mcp.Max(1), mcp.Description("New confidence")),
	), s.updateEdge)

	s.mcp.AddTool(mcp.NewTool("delete_edge",
		mcp.WithDescription("Delete an edge by ID."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Edge ID")),
	), s.deleteEdge)
}

func (s *Server) registerSearchTools() {
	s.mcp.AddTool(mcp.NewTool("search_keyword",
		mcp.WithDescription("Full-text keyword search using the FTS5 trigram tokenizer (works well with Korean)."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("limit", mcp.Min(1), mcp.Max(retrieval.MaxKeywordLimit),
			mcp.DefaultNumber(retrieval.DefaultKeywordLimit), mcp.Description("Max results")),
	), s.searchKeyword)

	s.mcp.AddTool(mcp.NewTool("search_semantic",
		mcp.WithDescription("Semantic search using embedding cosine similarity (requires an API key in settings)."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("threshold", mcp.Min(0), mcp.Max(1), mcp.Description("Similarity threshold (default from settings)")),
		mcp.WithNumber("top_k", mcp.Min(1), mcp.Max(retrieval.MaxTopK), mcp.Description("Max results (default from settings)")),
	), s.searchSemantic)
}

// --- mashes ---

func (s *Server) getStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.mashes.Stats(ctx)
	if err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return jsonResult(st)
}

func (s *Server) listMashes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p mashservice.ListParams
	if err := bind(req, &p); err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	list, err := s.mashes.List(ctx, p)
	if err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return jsonResult(list)
}

func (s *Server) getMash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.mashes.Get(ctx, id)
	if err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return jsonResult(m)
}

func (s *Server) createMash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p mashservice.CreateParams
	if err := bind(req, &p); err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	m, err := s.mashes.Create(ctx, p)
	if err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return jsonResult(m)
}

// updateMashArgs omits status: status moves are left to the pipeline.
type updateMashArgs struct {
	ID      string  `json:"id"`
	Type    *string `json:"type"`
	Summary *string `json:"summary"`
	Context *string `json:"context"`
	Memo    *string `json:"memo"`
}

func (s *Server) updateMash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a updateMashArgs
	if err := bind(req, &a); err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	m, err := s.mashes.Update(ctx, mashservice.UpdateParams{
		ID:      a.ID,
		Type:    a.Type,
		Summary: a.Summary,
		Context: a.Context,
		Memo:    a.Memo,
	})
	if err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return jsonResult(m)
}

func (s *Server) deleteMash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.mashes.Delete(ctx, id); err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted mash: %s", id)), nil
}

// --- graph ---

func (s *Server) getGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var f graph.Filter
	if err := bind(req, &f); err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	g, err := s.graph.Graph(ctx, f)
	if err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return jsonResult(g)
}

func (s *Server) getNodeDetail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.graph.NodeDetail(ctx, id)
	if err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return jsonResult(d)
}

func (s *Server) addEdge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p graph.AddEdgeParams
	if err := bind(req, &p); err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	e, err := s.graph.AddEdge(ctx, p)
	if err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return jsonResult(e)
}

func (s *Server) updateEdge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p graph.UpdateEdgeParams
	if err := bind(req, &p); err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	if _, ok := req.GetArguments()["id"]; !ok {
		return s.errorResult(req.Params.Name, apperr.Validation("id: cannot be blank"))
	}
	e, err := s.graph.UpdateEdge(ctx, p)
	if err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return jsonResult(e)
}

func (s *Server) deleteEdge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a struct {
		ID *int64 `json:"id"`
	}
	if err := bind(req, &a); err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	if a.ID == nil {
		return s.errorResult(req.Params.Name, apperr.Validation("id: cannot be blank"))
	}
	if err := s.graph.DeleteEdge(ctx, *a.ID); err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted edge: %d", *a.ID)), nil
}

// --- search ---

func (s *Server) searchKeyword(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p retrieval.KeywordParams
	if err := bind(req, &p); err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	res, err := s.search.SearchKeyword(ctx, p)
	if err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return jsonResult(res)
}

func (s *Server) searchSemantic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p retrieval.SemanticParams
	if err := bind(req, &p); err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	res, err := s.search.SearchSemantic(ctx, p)
	if err != nil {
		return s.errorResult(req.Params.Name, err)
	}
	return jsonResult(res)
}
