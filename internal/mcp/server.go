package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"reclaim/internal/core"
	"reclaim/internal/models"
)

// RunServer starts the MCP server with stdio transport. It exposes the
// lost-and-found operations as tools so campus help-desk agents can
// report and match items on a user's behalf.
func RunServer() error {
	svc, err := core.NewService("")
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	// Create MCP server
	mcpServer := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "reclaim",
		Version: "0.1.0",
	}, nil)

	// Register tools
	if err := registerTools(mcpServer, svc); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	// Run server with stdio transport
	return mcpServer.Run(context.Background(), &mcpsdk.StdioTransport{})
}

// registerTools registers all reclaim tools with the MCP server
func registerTools(s *mcpsdk.Server, svc *core.Service) error {
	// Register reclaim_report tool
	reportHandler := func(ctx context.Context, req *mcpsdk.CallToolRequest, input map[string]interface{}) (*mcpsdk.CallToolResult, map[string]interface{}, error) {
		result, err := HandleReport(ctx, svc, input)
		if err != nil {
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{
					&mcpsdk.TextContent{Text: fmt.Sprintf("Error: %v", err)},
				},
				IsError: true,
			}, nil, nil
		}
		return nil, result, nil
	}
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "reclaim_report",
		Description: "Report a lost or found item. The item text is embedded for semantic matching.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"status":           map[string]interface{}{"type": "string", "enum": []string{models.StatusLost, models.StatusFound}},
				"name":             map[string]interface{}{"type": "string", "description": "Short item name, e.g. 'black wallet'"},
				"description":      map[string]interface{}{"type": "string", "description": "Detailed description"},
				"main_category":    map[string]interface{}{"type": "string", "description": "Main category, e.g. 'Electronics'"},
				"sub_category":     map[string]interface{}{"type": "string", "description": "Sub-category, e.g. 'wallet'"},
				"location":         map[string]interface{}{"type": "string", "description": "Where it was lost or found"},
				"current_location": map[string]interface{}{"type": "string", "description": "Where the found item is kept now"},
				"reported_by":      map[string]interface{}{"type": "string", "description": "Reporting user id"},
			},
			"required": []string{"status", "name", "description", "location", "reported_by"},
		},
	}, reportHandler)

	// Register reclaim_match tool
	matchHandler := func(ctx context.Context, req *mcpsdk.CallToolRequest, input map[string]interface{}) (*mcpsdk.CallToolResult, map[string]interface{}, error) {
		result, err := HandleMatch(ctx, svc, input)
		if err != nil {
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{
					&mcpsdk.TextContent{Text: fmt.Sprintf("Error: %v", err)},
				},
				IsError: true,
			}, nil, nil
		}
		return nil, result, nil
	}
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "reclaim_match",
		Description: "Find Found items semantically similar to a reported Lost item, ranked by score.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"item_id": map[string]interface{}{"type": "string", "description": "Id of the Lost item"},
				"limit":   map[string]interface{}{"type": "integer", "description": "Maximum number of matches", "default": 12},
			},
			"required": []string{"item_id"},
		},
	}, matchHandler)

	// Register reclaim_feed tool
	feedHandler := func(ctx context.Context, req *mcpsdk.CallToolRequest, input map[string]interface{}) (*mcpsdk.CallToolResult, map[string]interface{}, error) {
		result, err := HandleFeed(svc, input)
		if err != nil {
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{
					&mcpsdk.TextContent{Text: fmt.Sprintf("Error: %v", err)},
				},
				IsError: true,
			}, nil, nil
		}
		return nil, result, nil
	}
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "reclaim_feed",
		Description: "List recently found items that have not been returned yet.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"limit": map[string]interface{}{"type": "integer", "description": "Maximum number of items", "default": 12},
			},
		},
	}, feedHandler)

	return nil
}

// HandleReport handles the reclaim_report tool call
func HandleReport(ctx context.Context, svc *core.Service, params map[string]interface{}) (map[string]interface{}, error) {
	raw := models.RawItemInput{
		Status:       stringParam(params, "status"),
		Name:         stringParam(params, "name"),
		Description:  stringParam(params, "description"),
		MainCategory: stringParam(params, "main_category"),
		SubCategory:  stringParam(params, "sub_category"),
		Location:     stringParam(params, "location"),
		ReportedBy:   stringParam(params, "reported_by"),
	}

	if v := stringParam(params, "current_location"); v != "" {
		raw.CurrentLocation = &v
	}

	item, err := svc.Report(ctx, raw, nil)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":     item.ID,
		"status": item.Status,
		"name":   item.Name,
	}, nil
}

// HandleMatch handles the reclaim_match tool call
func HandleMatch(ctx context.Context, svc *core.Service, params map[string]interface{}) (map[string]interface{}, error) {
	itemID := stringParam(params, "item_id")

	limit := 0
	if l, ok := params["limit"].(float64); ok {
		limit = int(l)
	}

	result, err := svc.FindMatches(ctx, itemID, limit)
	if err != nil {
		return nil, err
	}

	matches := make([]map[string]interface{}, len(result.Matches))
	for i, m := range result.Matches {
		matches[i] = map[string]interface{}{
			"id":           m.ID,
			"name":         m.Name,
			"description":  m.Description,
			"sub_category": m.SubCategory,
			"location":     m.Location,
			"score":        m.Score,
		}
	}

	return map[string]interface{}{
		"matches":          matches,
		"self_match_count": result.SelfMatchCount,
	}, nil
}

// HandleFeed handles the reclaim_feed tool call
func HandleFeed(svc *core.Service, params map[string]interface{}) (map[string]interface{}, error) {
	limit := 0
	if l, ok := params["limit"].(float64); ok {
		limit = int(l)
	}

	items, err := svc.Feed(limit)
	if err != nil {
		return nil, err
	}

	found := make([]map[string]interface{}, len(items))
	for i, it := range items {
		found[i] = map[string]interface{}{
			"id":          it.ID,
			"name":        it.Name,
			"description": it.Description,
			"location":    it.Location,
			"created_at":  it.CreatedAt,
		}
	}

	return map[string]interface{}{
		"total": len(found),
		"items": found,
	}, nil
}

// Helper functions
func stringParam(m map[string]interface{}, key string) string {
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
