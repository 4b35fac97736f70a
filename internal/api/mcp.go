package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/askbot/internal/cascade"
	"github.com/kalambet/askbot/internal/storage"
)

// newMCPServer exposes the chatbot as MCP tools. Turns share the session
// store and locks of the HTTP surface, so a conversation can move between
// the two.
func newMCPServer(deps Deps, locks *sessionLocks) *server.MCPServer {
	s := server.NewMCPServer(
		"askbot",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("askbot answers questions about administrative procedures in French, English and Arabic."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("answer",
			mcp.WithDescription("Answer a question. Pass the returned session_id back to continue the conversation, e.g. to ask for the previous answer in another language."),
			mcp.WithString("question", mcp.Description("The user's question or follow-up"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Conversation id from an earlier answer; omit to start a new one")),
		),
		mcpAnswer(deps, locks),
	)

	s.AddTool(
		mcp.NewTool("reset_session",
			mcp.WithDescription("Forget the conversation context of a session."),
			mcp.WithString("session_id", mcp.Description("Conversation id to reset"), mcp.Required()),
		),
		mcpResetSession(deps, locks),
	)

	s.AddTool(
		mcp.NewTool("list_categories",
			mcp.WithDescription("List the browsable categories under a parent, in the configured display language."),
			mcp.WithNumber("parent_id", mcp.Description("Parent category id; 0 or omitted for the top level")),
		),
		mcpListCategories(deps),
	)

	s.AddTool(
		mcp.NewTool("list_responses",
			mcp.WithDescription("List the responses filed under a category."),
			mcp.WithNumber("category_id", mcp.Description("Category id"), mcp.Required()),
		),
		mcpListResponses(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"askbot://categories",
			"Top-level categories",
			mcp.WithResourceDescription("Top-level browsable categories as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCategories(deps),
	)

	return s
}

func mcpAnswer(deps Deps, locks *sessionLocks) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		sessionID := req.GetString("session_id", "")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		res, err := answerTurn(ctx, deps, locks, sessionID, question)
		if errors.Is(err, cascade.ErrEmptyInput) {
			return mcpError("question is required and must not be empty"), nil
		}
		if err != nil {
			slog.Error("answering question failed", "session", sessionID, "surface", "mcp", "error", err)
			return mcpError(fmt.Sprintf("answer unavailable: %v", err)), nil
		}
		return mcpJSON(AskResponse{Result: res, SessionID: sessionID})
	}
}

func mcpResetSession(deps Deps, locks *sessionLocks) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil || sessionID == "" {
			return mcpError("session_id is required"), nil
		}

		unlock := locks.lock(sessionID)
		err = deps.Sessions.Reset(ctx, sessionID)
		unlock()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to reset session: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Reset session %s", sessionID)), nil
	}
}

func mcpListCategories(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		parent := int64(req.GetInt("parent_id", 0))
		if parent < 0 {
			return mcpError("parent_id must not be negative"), nil
		}

		l := browseLang(ctx, deps.Store)
		nodes, err := deps.Store.ListChildCategories(ctx, parent)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list categories: %v", err)), nil
		}
		return mcpJSON(categoryItems(nodes, l))
	}
}

func mcpListResponses(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := int64(req.GetInt("category_id", 0))
		if id <= 0 {
			return mcpError("category_id is required"), nil
		}

		items, err := categoryResponseItems(ctx, deps.Store, id, browseLang(ctx, deps.Store))
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("category %d not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list responses: %v", err)), nil
		}
		if items == nil {
			items = []ResponseItem{}
		}
		return mcpJSON(items)
	}
}

func mcpResourceCategories(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		nodes, err := deps.Store.ListChildCategories(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list categories: %w", err)
		}

		b, err := json.Marshal(categoryItems(nodes, browseLang(ctx, deps.Store)))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal categories: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
