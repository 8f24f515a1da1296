// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the journal tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/leanjournal/internal/logprop"
	"github.com/starford/leanjournal/internal/moc"
	"github.com/starford/leanjournal/internal/models"
)

const logFormatURI = "leanjournal://log-format"

// Service is what the tools need from the application.
type Service interface {
	AddJournalEntry(ctx context.Context) error
	Journal(ctx context.Context) (models.Document, error)
	BuildDailyMOC(ctx context.Context) (moc.Result, error)
	DailyMOC(ctx context.Context) (models.Document, error)
	BackfillLogs(ctx context.Context) (logprop.Report, error)
	ResetLogs(ctx context.Context) (logprop.Report, error)
}

// Server wraps the MCP server with the journal tools.
type Server struct {
	mcp *server.MCPServer
	svc Service
}

// New creates a new MCP server with all tools registered.
func New(svc Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"LeanJournal",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_journal_entry",
		mcp.WithDescription("Add a time heading for the current time under today's heading in the journal note, "+
			"creating the day heading if needed. Returns the updated journal."),
	), s.addJournalEntry)

	s.mcp.AddTool(mcp.NewTool("read_journal",
		mcp.WithDescription("Read the full journal note."),
	), s.readJournal)

	s.mcp.AddTool(mcp.NewTool("build_daily_moc",
		mcp.WithDescription("Link every note first logged today into today's MOC note. "+
			"Returns the MOC path and the newly linked note names."),
	), s.buildDailyMOC)

	s.mcp.AddTool(mcp.NewTool("read_daily_moc",
		mcp.WithDescription("Read today's MOC note."),
	), s.readDailyMOC)

	s.mcp.AddTool(mcp.NewTool("backfill_log_property",
		mcp.WithDescription("Add a log entry with the creation date to every note that has no log property."),
	), s.backfillLogs)

	s.mcp.AddTool(mcp.NewTool("reset_logs",
		mcp.WithDescription("Remove the log property from every note in the vault. Destructive: "+
			"pass confirm=true to run."),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
	), s.resetLogs)

	s.mcp.AddTool(mcp.NewTool("get_log_format",
		mcp.WithDescription("Returns the log property and journal format conventions."),
	), s.getLogFormat)

	s.mcp.AddResource(
		mcp.NewResource(logFormatURI, "Log Property Format",
			mcp.WithResourceDescription("The log front matter and journal conventions."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLogFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addJournalEntry(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.svc.AddJournalEntry(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add journal entry: %v", err)), nil
	}
	doc, err := s.svc.Journal(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) readJournal(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.svc.Journal(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("journal not found: %v", err)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) buildDailyMOC(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.BuildDailyMOC(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create daily MOC: %v", err)), nil
	}
	return jsonResult(res)
}

func (s *Server) readDailyMOC(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.svc.DailyMOC(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("daily MOC not found: %v", err)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) backfillLogs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.svc.BackfillLogs(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep)
}

func (s *Server) resetLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !req.GetBool("confirm", false) {
		return mcp.NewToolResultError("reset_logs removes the log property from every note; pass confirm=true"), nil
	}
	rep, err := s.svc.ResetLogs(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep)
}

func (s *Server) getLogFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LogFormatContract), nil
}

func (s *Server) readLogFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      logFormatURI,
			MIMEType: "text/markdown",
			Text:     LogFormatContract,
		},
	}, nil
}
