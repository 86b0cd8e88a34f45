// Package mcp provides a Model Context Protocol server for litbase.
//
// It exposes the ingestion pipeline and the knowledge base (ingest, list,
// status, history, backup) as MCP tools, plus repository status and recent
// history as MCP resources. Supports stdio transport for desktop MCP
// clients.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/policyatlas/litbase/internal/kb"
	"github.com/policyatlas/litbase/internal/pipeline"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Processor *pipeline.Processor
	KB        *kb.Manager
	Version   string
}

// repoMu serializes all MCP tool calls that touch the repository.
// The mcp-go library dispatches handlers concurrently via goroutines;
// a global mutex ensures an ingest completes before a list or status call
// observes its effects.
var repoMu sync.Mutex

// NewServer creates a configured MCP server with all litbase tools and
// resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"litbase",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerIngestTool(s, cfg.Processor)
	registerListTool(s, cfg.KB)
	registerStatusTool(s, cfg.KB)
	registerHistoryTool(s, cfg.KB)
	registerBackupTool(s, cfg.KB)

	registerStatusResource(s, cfg.KB)
	registerRecentHistoryResource(s, cfg.KB)

	return s
}

// --- Tools ---

func registerIngestTool(s *server.MCPServer, proc *pipeline.Processor) {
	tool := mcp.NewTool("litbase_ingest",
		mcp.WithDescription("Ingest a literature document into the knowledge base. Runs the full pipeline: metadata extraction, insight extraction, quality assessment, similarity analysis and the integration decision. Returns the full integration report."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("Original filename including extension (.pdf, .txt, .md, .markdown). Drives format detection and metadata fallbacks."),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Document text content. For PDFs, pass the base64-less raw text; binary uploads go through the CLI instead."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		repoMu.Lock()
		defer repoMu.Unlock()

		filename, err := req.RequireString("filename")
		if err != nil {
			return mcp.NewToolResultError("filename is required"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError("content is required"), nil
		}
		if strings.TrimSpace(content) == "" {
			return mcp.NewToolResultError("content cannot be empty"), nil
		}

		result := proc.Process(ctx, pipeline.Upload{
			Filename: filename,
			Content:  []byte(content),
		})

		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerListTool(s *server.MCPServer, manager *kb.Manager) {
	tool := mcp.NewTool("litbase_list",
		mcp.WithDescription("List knowledge-base entries with live-recomputed quality scores, insight counts and confidence levels."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries to return (default: all)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		repoMu.Lock()
		defer repoMu.Unlock()

		entries, err := manager.Entries()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list error: %v", err)), nil
		}

		if limitVal, err := req.RequireFloat("limit"); err == nil {
			if limit := int(limitVal); limit > 0 && limit < len(entries) {
				entries = entries[:limit]
			}
		}

		data, _ := json.MarshalIndent(entries, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatusTool(s *server.MCPServer, manager *kb.Manager) {
	tool := mcp.NewTool("litbase_status",
		mcp.WithDescription("Get knowledge-base status: entry count, total insights, average quality score, backup count and most recent backup."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		repoMu.Lock()
		defer repoMu.Unlock()

		status, err := manager.GetStatus()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(status, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerHistoryTool(s *server.MCPServer, manager *kb.Manager) {
	tool := mcp.NewTool("litbase_history",
		mcp.WithDescription("Query the append-only version history of integration decisions, newest first. Filterable by document id and action."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("document_id",
			mcp.Description("Filter to one document id"),
		),
		mcp.WithString("action",
			mcp.Description("Filter by action: approve_new_document, merge_with_existing, review_required"),
			mcp.Enum("approve_new_document", "merge_with_existing", "review_required"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of rows (default: 20, max: 100)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		repoMu.Lock()
		defer repoMu.Unlock()

		filter := kb.HistoryFilter{Limit: 20}

		if id, err := req.RequireString("document_id"); err == nil && id != "" {
			filter.DocumentID = id
		}
		if action, err := req.RequireString("action"); err == nil && action != "" {
			filter.Action = action
		}
		if limitVal, err := req.RequireFloat("limit"); err == nil {
			limit := int(limitVal)
			if limit > 100 {
				limit = 100
			}
			if limit > 0 {
				filter.Limit = limit
			}
		}

		history, err := manager.History(ctx, filter)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("history error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(history, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerBackupTool(s *server.MCPServer, manager *kb.Manager) {
	tool := mcp.NewTool("litbase_backup",
		mcp.WithDescription("Create a backup snapshot of all knowledge-base entries. Without force, a backup from within the recency window is reused."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithBoolean("force",
			mcp.Description("Create a fresh backup even if a recent one exists (default: false)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		repoMu.Lock()
		defer repoMu.Unlock()

		force := false
		if f, err := req.RequireBool("force"); err == nil {
			force = f
		}

		id, err := manager.CreateBackup(force)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("backup error: %v", err)), nil
		}

		result := map[string]interface{}{
			"backup_id": id,
			"message":   fmt.Sprintf("Backup %s ready", id),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}
