package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/docqa/internal/documents"
	"github.com/ziadkadry99/docqa/internal/qa"
	"github.com/ziadkadry99/docqa/internal/studyaids"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.Documents(ctx, request.GetString("owner_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documents failed: %v", err)), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("No documents found. Use ingest_file or `docqa ingest` to add one."), nil
	}
	return mcp.NewToolResultText(formatDocuments(docs)), nil
}

func (s *Server) handleAskDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document_id"), nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	resp, err := s.svc.Ask(ctx, qa.AskRequest{
		DocumentID: id,
		UserID:     request.GetString("user_id", s.user),
		Question:   question,
	})
	if err != nil {
		return toolError(id, err), nil
	}
	if resp.Failed {
		return mcp.NewToolResultError(resp.Answer), nil
	}
	return mcp.NewToolResultText(resp.Answer), nil
}

func (s *Server) handleSearchDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document_id"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	hits, err := s.svc.Search(ctx, id, query, request.GetInt("limit", 0))
	if err != nil {
		return toolError(id, err), nil
	}
	return mcp.NewToolResultText(vectordb.FormatHits(hits)), nil
}

func (s *Server) handleSummarizeDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document_id"), nil
	}

	kind := studyaids.ParseSummaryKind(request.GetString("summary_type", ""))
	sum, err := s.svc.Summarize(ctx, id, kind)
	if err != nil {
		return toolError(id, err), nil
	}
	if sum.Failed {
		return mcp.NewToolResultError(sum.Text), nil
	}
	return mcp.NewToolResultText(sum.Text), nil
}

func (s *Server) handleIngestFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: path"), nil
	}

	res, err := s.svc.IngestFile(ctx, path, s.user, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ingesting %s failed: %v", path, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Indexed %s as document %s (%d chunks, %s profile).",
		res.Document.Name, res.Document.ID, res.Document.Chunks, res.Profile.Name)), nil
}

func toolError(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, qa.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("No document with id %q. Call list_documents to see what is available.", id))
	}
	return mcp.NewToolResultError(err.Error())
}

// formatDocuments renders one block per document for agent consumption.
func formatDocuments(docs []documents.Document) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d document(s):\n", len(docs)))
	for _, d := range docs {
		sb.WriteString(fmt.Sprintf("\n- %s\n", d.Name))
		sb.WriteString(fmt.Sprintf("  id: %s\n", d.ID))
		sb.WriteString(fmt.Sprintf("  type: %s, chunks: %d, added: %s\n", d.Type, d.Chunks, d.CreatedAt.Format("2006-01-02 15:04")))
		if d.Subject != "" {
			sb.WriteString(fmt.Sprintf("  subject: %s\n", d.Subject))
		}
	}
	return sb.String()
}
