package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/evidencefetch/internal/simcache"
	"github.com/dshills/evidencefetch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeInvalidPlan   = -32001 // Search plan failed validation
)

// handleFetchEvidence handles the fetch_evidence tool invocation
func (s *Server) handleFetchEvidence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	plan, err := planFromArgs(args)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search plan arguments", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	result, err := s.app.Engine.Fetch(ctx, plan)
	if errors.Is(err, types.ErrInvalidPlan) {
		return nil, newMCPError(ErrorCodeInvalidPlan, "search plan rejected", map[string]interface{}{
			"plan_id": plan.ID,
			"reason":  err.Error(),
		})
	}
	if err != nil {
		s.logger.Error("Fetch failed", zap.String("plan_id", plan.ID), zap.Error(err))
		return nil, newMCPError(ErrorCodeInternalError, "fetch failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleEngineStatus handles the engine_status tool invocation
func (s *Server) handleEngineStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := s.app.Config

	response := map[string]interface{}{
		"server":     ServerName,
		"version":    ServerVersion,
		"build_mode": simcache.BuildMode,
		"driver":     simcache.DriverName,
		"config": map[string]interface{}{
			"semantic_ranking":     cfg.SemanticRanking,
			"semantic_fallback":    cfg.SemanticFallback,
			"embedding_provider":   cfg.EmbeddingProvider,
			"embedding_model":      cfg.EmbeddingModel,
			"workers":              cfg.Workers,
			"concurrency":          cfg.Concurrency,
			"min_relevance":        cfg.MinRelevance,
			"max_items":            cfg.MaxItems,
			"max_replies_per_item": cfg.MaxRepliesPerItem,
			"results_per_term":     cfg.ResultsPerTerm,
		},
		"cache": s.cacheStatus(ctx),
	}

	counters, err := s.app.Metrics.Snapshot()
	if err != nil {
		s.logger.Warn("Metrics snapshot failed", zap.Error(err))
	} else {
		response["counters"] = counters
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) cacheStatus(ctx context.Context) map[string]interface{} {
	c := s.app.Cache
	if c == nil {
		return map[string]interface{}{"enabled": false}
	}
	status := map[string]interface{}{
		"enabled":    true,
		"persistent": c.Persistent(),
		"path":       c.Path(),
	}
	if n, err := c.Count(ctx); err == nil {
		status["entries"] = n
	} else {
		status["error"] = err.Error()
	}
	return status
}

// Helper functions

// planFromArgs decodes tool arguments into a SearchPlan, generating an id
// when none was given.
func planFromArgs(args map[string]interface{}) (types.SearchPlan, error) {
	var plan types.SearchPlan
	raw, err := json.Marshal(args)
	if err != nil {
		return plan, err
	}
	if err := json.Unmarshal(raw, &plan); err != nil {
		return plan, err
	}
	if strings.TrimSpace(plan.ID) == "" {
		plan.ID = uuid.NewString()
	}
	return plan, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}
