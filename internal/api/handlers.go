package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/moonshine/internal/apperr"
	"github.com/starford/moonshine/internal/checksum"
	"github.com/starford/moonshine/internal/graph"
	"github.com/starford/moonshine/internal/mashservice"
	"github.com/starford/moonshine/internal/models"
	"github.com/starford/moonshine/internal/retrieval"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	mashes *mashservice.Service
	graph  *graph.Service
	search *retrieval.Service
}

// NewHandler creates a new Handler.
func NewHandler(mashes *mashservice.Service, g *graph.Service, search *retrieval.Service) *Handler {
	return &Handler{mashes: mashes, graph: g, search: search}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	return nil
}

func queryInt(q url.Values, key string) (*int, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperr.Validation("%s: must be an integer", key)
	}
	return &n, nil
}

func queryFloat(q url.Values, key string) (*float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.Validation("%s: must be a number", key)
	}
	return &f, nil
}

// queryList accepts both repeated keys and comma-separated values.
func queryList(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func setETag(w http.ResponseWriter, m *models.Mash) {
	w.Header().Set("ETag", `"`+checksum.Mash(*m)+`"`)
}

func edgeID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperr.Validation("id: must be an integer")
	}
	return id, nil
}

// Stats handles GET /api/stats.
//
//	@Summary		Mash counts by status and type, and the edge count
//	@Tags			mashes
//	@Produce		json
//	@Success		200	{object}	models.Stats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.mashes.Stats(r.Context())
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListMashes handles GET /api/mashes.
//
//	@Summary		List mashes, newest first
//	@Tags			mashes
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"
//	@Param			type	query		string	false	"Filter by type"
//	@Param			limit	query		int		false	"Page size (1-200, default 50)"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	MashListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/mashes [get]
func (h *Handler) ListMashes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := mashservice.ListParams{Status: q.Get("status"), Type: q.Get("type")}
	var err error
	if p.Limit, err = queryInt(q, "limit"); err != nil {
		writeError(w, "list mashes", err)
		return
	}
	if p.Offset, err = queryInt(q, "offset"); err != nil {
		writeError(w, "list mashes", err)
		return
	}

	list, err := h.mashes.List(r.Context(), p)
	if err != nil {
		writeError(w, "list mashes", err)
		return
	}
	writeJSON(w, http.StatusOK, MashListResponse{Mashes: list})
}

// GetMash handles GET /api/mashes/{id}.
//
//	@Summary		Get a single mash
//	@Tags			mashes
//	@Produce		json
//	@Param			id	path		string	true	"Mash UUID"
//	@Success		200	{object}	models.Mash
//	@Header			200	{string}	ETag	"SHA-256 checksum of the mash"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/mashes/{id} [get]
func (h *Handler) GetMash(w http.ResponseWriter, r *http.Request) {
	m, err := h.mashes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get mash", err)
		return
	}
	setETag(w, m)
	writeJSON(w, http.StatusOK, m)
}

// CreateMash handles POST /api/mashes.
//
//	@Summary		Create a mash in the MASH_TUN status
//	@Tags			mashes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateMashRequest	true	"Mash to create"
//	@Success		201		{object}	models.Mash
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/mashes [post]
func (h *Handler) CreateMash(w http.ResponseWriter, r *http.Request) {
	var req CreateMashRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "create mash", err)
		return
	}
	m, err := h.mashes.Create(r.Context(), mashservice.CreateParams{
		Type:    req.Type,
		Summary: req.Summary,
		Context: req.Context,
		Memo:    req.Memo,
	})
	if err != nil {
		writeError(w, "create mash", err)
		return
	}
	setETag(w, m)
	writeJSON(w, http.StatusCreated, m)
}

// UpdateMash handles PATCH /api/mashes/{id}.
//
//	@Summary		Partially update a mash
//	@Tags			mashes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Mash UUID"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateMashRequest	true	"Fields to change"
//	@Success		200		{object}	models.Mash
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/mashes/{id} [patch]
func (h *Handler) UpdateMash(w http.ResponseWriter, r *http.Request) {
	var req UpdateMashRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "update mash", err)
		return
	}
	m, err := h.mashes.Update(r.Context(), mashservice.UpdateParams{
		ID:      chi.URLParam(r, "id"),
		Type:    req.Type,
		Status:  req.Status,
		Summary: req.Summary,
		Context: req.Context,
		Memo:    req.Memo,
		// Strip surrounding quotes if present (standard ETag format).
		IfMatch: strings.Trim(r.Header.Get("If-Match"), `"`),
	})
	if err != nil {
		writeError(w, "update mash", err)
		return
	}
	setETag(w, m)
	writeJSON(w, http.StatusOK, m)
}

// DeleteMash handles DELETE /api/mashes/{id}.
//
//	@Summary		Delete a mash and its edges
//	@Tags			mashes
//	@Param			id	path	string	true	"Mash UUID"
//	@Success		204	"Mash deleted"
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/mashes/{id} [delete]
func (h *Handler) DeleteMash(w http.ResponseWriter, r *http.Request) {
	if err := h.mashes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete mash", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the JARRED knowledge graph
//	@Tags			graph
//	@Produce		json
//	@Param			mash_types		query		[]string	false	"Filter nodes by type"
//	@Param			relation_types	query		[]string	false	"Filter edges by relation type"
//	@Param			sources			query		[]string	false	"Filter edges by source"
//	@Success		200				{object}	models.GraphData
//	@Failure		400				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g, err := h.graph.Graph(r.Context(), graph.Filter{
		MashTypes:     queryList(q, "mash_types"),
		RelationTypes: queryList(q, "relation_types"),
		Sources:       queryList(q, "sources"),
	})
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// NodeDetail handles GET /api/graph/nodes/{id}.
//
//	@Summary		Get a node with its neighbors and edges
//	@Tags			graph
//	@Produce		json
//	@Param			id	path		string	true	"Mash UUID"
//	@Success		200	{object}	models.NodeDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/nodes/{id} [get]
func (h *Handler) NodeDetail(w http.ResponseWriter, r *http.Request) {
	d, err := h.graph.NodeDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "node detail", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// AddEdge handles POST /api/edges.
//
//	@Summary		Add or overwrite the edge between two mashes
//	@Tags			graph
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddEdgeRequest	true	"Edge"
//	@Success		200		{object}	models.Edge
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges [post]
func (h *Handler) AddEdge(w http.ResponseWriter, r *http.Request) {
	var req AddEdgeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "add edge", err)
		return
	}
	e, err := h.graph.AddEdge(r.Context(), graph.AddEdgeParams{
		SourceID:     req.SourceID,
		TargetID:     req.TargetID,
		RelationType: req.RelationType,
		Source:       req.Source,
		Confidence:   req.Confidence,
	})
	if err != nil {
		writeError(w, "add edge", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// UpdateEdge handles PATCH /api/edges/{id}.
//
//	@Summary		Change relation type and/or confidence of an edge
//	@Tags			graph
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"Edge ID"
//	@Param			body	body		UpdateEdgeRequest	true	"Fields to change"
//	@Success		200		{object}	models.Edge
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges/{id} [patch]
func (h *Handler) UpdateEdge(w http.ResponseWriter, r *http.Request) {
	id, err := edgeID(r)
	if err != nil {
		writeError(w, "update edge", err)
		return
	}
	var req UpdateEdgeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "update edge", err)
		return
	}
	e, err := h.graph.UpdateEdge(r.Context(), graph.UpdateEdgeParams{
		ID:           id,
		RelationType: req.RelationType,
		Confidence:   req.Confidence,
	})
	if err != nil {
		writeError(w, "update edge", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteEdge handles DELETE /api/edges/{id}.
//
//	@Summary		Delete an edge
//	@Tags			graph
//	@Param			id	path	int	true	"Edge ID"
//	@Success		204	"Edge deleted"
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges/{id} [delete]
func (h *Handler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	id, err := edgeID(r)
	if err != nil {
		writeError(w, "delete edge", err)
		return
	}
	if err := h.graph.DeleteEdge(r.Context(), id); err != nil {
		writeError(w, "delete edge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchKeyword handles GET /api/search.
//
//	@Summary		Full-text search across mashes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results (1-100, default 20)"
//	@Success		200		{object}	KeywordSearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) SearchKeyword(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q, "limit")
	if err != nil {
		writeError(w, "search", err)
		return
	}
	res, err := h.search.SearchKeyword(r.Context(), retrieval.KeywordParams{Query: q.Get("q"), Limit: limit})
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, KeywordSearchResponse{Results: res})
}

// SearchSemantic handles GET /api/search/semantic.
//
//	@Summary		Embedding similarity search
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	true	"Search query"
//	@Param			threshold	query		number	false	"Minimum similarity (0-1)"
//	@Param			top_k		query		int		false	"Max results (1-50)"
//	@Success		200			{object}	SemanticSearchResponse
//	@Failure		400			{object}	errResponse
//	@Failure		502			{object}	errResponse
//	@Failure		503			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search/semantic [get]
func (h *Handler) SearchSemantic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := retrieval.SemanticParams{Query: q.Get("q")}
	var err error
	if p.Threshold, err = queryFloat(q, "threshold"); err != nil {
		writeError(w, "semantic search", err)
		return
	}
	if p.TopK, err = queryInt(q, "top_k"); err != nil {
		writeError(w, "semantic search", err)
		return
	}
	res, err := h.search.SearchSemantic(r.Context(), p)
	if err != nil {
		writeError(w, "semantic search", err)
		return
	}
	writeJSON(w, http.StatusOK, SemanticSearchResponse{Results: res})
}
