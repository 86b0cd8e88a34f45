package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/policyatlas/litbase/internal/kb"
)

func registerStatusResource(s *server.MCPServer, manager *kb.Manager) {
	resource := mcp.NewResource(
		"litbase://status",
		"Knowledge Base Status",
		mcp.WithResourceDescription("Entry count, total insights, average quality score and backup state of the knowledge base."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		repoMu.Lock()
		defer repoMu.Unlock()

		status, err := manager.GetStatus()
		if err != nil {
			return nil, fmt.Errorf("getting status: %w", err)
		}

		data, _ := json.MarshalIndent(status, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func registerRecentHistoryResource(s *server.MCPServer, manager *kb.Manager) {
	resource := mcp.NewResource(
		"litbase://recent",
		"Recent Integration Decisions",
		mcp.WithResourceDescription("The 20 most recent version-history rows: integrations, merges and review flags."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		repoMu.Lock()
		defer repoMu.Unlock()

		history, err := manager.History(ctx, kb.HistoryFilter{Limit: 20})
		if err != nil {
			return nil, fmt.Errorf("listing recent history: %w", err)
		}

		data, _ := json.MarshalIndent(history, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
