package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/evidencefetch/pkg/types"
)

// Tool names
const (
	ToolFetchEvidence = "fetch_evidence"
	ToolEngineStatus  = "engine_status"
)

// fetchEvidenceTool returns the tool definition for fetch_evidence
func fetchEvidenceTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolFetchEvidence,
		Description: "Retrieve, filter and rank Reddit discussions for a search plan. Returns citation-ready evidence as JSON.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"plan_id": map[string]interface{}{
					"type":        "string",
					"description": "Identifier echoed in the result; generated when omitted",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The user's question, used for semantic ranking",
				},
				"search_terms": map[string]interface{}{
					"type":        "array",
					"description": "Search terms, each searched in every community",
					"minItems":    1,
					"maxItems":    types.MaxSearchTerms,
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"communities": map[string]interface{}{
					"type":        "array",
					"description": "Subreddit names, with or without the r/ prefix",
					"minItems":    1,
					"maxItems":    types.MaxCommunities,
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"notes": map[string]interface{}{
					"type":        "string",
					"description": "Planner reasoning, echoed in the result",
				},
			},
			Required: []string{"search_terms", "communities"},
		},
	}
}

// engineStatusTool returns the tool definition for engine_status
func engineStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolEngineStatus,
		Description: "Report the engine configuration, similarity cache size and run counters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
