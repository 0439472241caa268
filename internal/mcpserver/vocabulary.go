package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/moonshine/internal/models"
)

// VocabularyURI is the resource that documents the closed vocabularies.
const VocabularyURI = "moonshine://vocabulary"

// Vocabulary describes mash types, statuses, relation types and edge
// sources for LLM consumers that create or link mashes.
var Vocabulary = fmt.Sprintf(`# Moonshine Vocabulary

A mash is a single knowledge entry. Edges are directed relations between mashes.

## Mash types

%s

## Mash statuses

Pipeline order: %s.
%s and %s send a mash back through the pipeline.
Only %s mashes appear in get_graph.

New mashes always start as %s. Status is not set through MCP tools.

## Relation types

%s

- %s: the two mashes concern the same topic.
- %s: the source backs up the target.
- %s: the source contradicts the target.

## Edge sources

%s

Edges added through add_edge default to source "%s" and confidence 0.
Adding the same source/target pair again overwrites the existing edge.
`,
	bullets(models.MashTypes),
	strings.Join(models.MashStatuses[:4], " → "),
	models.StatusReEmbed, models.StatusReExtract,
	models.StatusJarred,
	models.StatusMashTun,
	bullets(models.RelationTypes),
	models.RelationRelatedTo, models.RelationSupports, models.RelationConflictsWith,
	bullets(models.EdgeSources),
	models.SourceHuman,
)

func bullets(vals []string) string {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- `" + v + "`")
	}
	return b.String()
}
