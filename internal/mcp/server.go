// Package mcp exposes stored documents to agents over the Model Context
// Protocol.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/docqa/internal/qa"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes document Q&A tools.
type Server struct {
	svc *qa.Service
	// user is the conversation owner for ask_document calls that name none.
	user string
	mcp  *server.MCPServer
}

// NewServer creates an MCP server backed by svc.
func NewServer(svc *qa.Service, user string) *Server {
	s := &Server{svc: svc, user: user}

	s.mcp = server.NewMCPServer(
		"docqa",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
	s.mcp.AddTool(askDocumentTool, s.handleAskDocument)
	s.mcp.AddTool(searchDocumentTool, s.handleSearchDocument)
	s.mcp.AddTool(summarizeDocumentTool, s.handleSummarizeDocument)
	s.mcp.AddTool(ingestFileTool, s.handleIngestFile)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
