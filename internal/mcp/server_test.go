package mcp

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/docqa/internal/qa"
	"github.com/ziadkadry99/docqa/internal/qa/qatest"
)

const notes = "The mitochondrion is the powerhouse of the cell. It produces ATP through respiration."

func setupTest(t *testing.T) (*Server, *qatest.Env, string) {
	t.Helper()
	env := qatest.New(t, nil)
	res, err := env.Service.Ingest(context.Background(), qa.Upload{
		Name:    "notes.txt",
		Content: bytes.NewReader([]byte(notes)),
		Size:    int64(len(notes)),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	return NewServer(env.Service, "agent"), env, res.Document.ID
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		wantName string
	}{
		{listDocumentsTool, "list_documents"},
		{askDocumentTool, "ask_document"},
		{searchDocumentTool, "search_document"},
		{summarizeDocumentTool, "summarize_document"},
		{ingestFileTool, "ingest_file"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer(qatest.New(t, nil).Service, "agent")
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.user != "agent" {
		t.Errorf("user = %q, want agent", srv.user)
	}
}

func TestHandleListDocuments(t *testing.T) {
	srv, _, id := setupTest(t)
	ctx := context.Background()

	result, err := srv.handleListDocuments(ctx, call(map[string]any{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, id) || !strings.Contains(text, "notes.txt") {
		t.Errorf("listing missing document: %s", text)
	}

	empty := NewServer(qatest.New(t, nil).Service, "")
	result, _ = empty.handleListDocuments(ctx, call(map[string]any{}))
	if result.IsError {
		t.Error("an empty library should not be an error")
	}
	if !strings.Contains(resultText(t, result), "No documents found") {
		t.Errorf("unexpected text: %s", resultText(t, result))
	}
}

func TestHandleAskDocument(t *testing.T) {
	srv, env, id := setupTest(t)
	ctx := context.Background()

	t.Run("answer", func(t *testing.T) {
		result, err := srv.handleAskDocument(ctx, call(map[string]any{"document_id": id, "question": "What makes ATP?"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if got := resultText(t, result); got != qatest.DefaultAnswer {
			t.Errorf("answer = %q", got)
		}
		turns, err := env.Service.History(ctx, "agent", id)
		if err != nil || len(turns) != 1 {
			t.Errorf("history for default user = %v, %v", turns, err)
		}
	})

	t.Run("missing question", func(t *testing.T) {
		result, _ := srv.handleAskDocument(ctx, call(map[string]any{"document_id": id}))
		if !result.IsError {
			t.Error("expected error for missing question")
		}
	})

	t.Run("unknown document", func(t *testing.T) {
		result, _ := srv.handleAskDocument(ctx, call(map[string]any{"document_id": "nope", "question": "q"}))
		if !result.IsError || !strings.Contains(resultText(t, result), "list_documents") {
			t.Errorf("expected not-found error, got %v", result.Content)
		}
	})

	t.Run("generation failure", func(t *testing.T) {
		env.Provider.Fail(errors.New("quota exhausted"))
		defer env.Provider.Reply(qatest.DefaultAnswer)
		result, _ := srv.handleAskDocument(ctx, call(map[string]any{"document_id": id, "question": "q?"}))
		if !result.IsError {
			t.Error("expected error result")
		}
		if !strings.Contains(resultText(t, result), "quota exhausted") {
			t.Errorf("unexpected text: %s", resultText(t, result))
		}
	})
}

func TestHandleSearchDocument(t *testing.T) {
	srv, env, id := setupTest(t)
	ctx := context.Background()

	result, err := srv.handleSearchDocument(ctx, call(map[string]any{"document_id": id, "query": "powerhouse", "limit": float64(2)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "--- Result 1 (chunk 0") || !strings.Contains(text, "powerhouse of the cell") {
		t.Errorf("unexpected search output: %s", text)
	}
	if env.Provider.Calls() != 0 {
		t.Error("search must not call the model")
	}

	result, _ = srv.handleSearchDocument(ctx, call(map[string]any{"document_id": id}))
	if !result.IsError {
		t.Error("expected error for missing query")
	}
}

func TestHandleSummarizeDocument(t *testing.T) {
	srv, env, id := setupTest(t)
	env.Provider.Reply("Mitochondria produce ATP.")

	result, err := srv.handleSummarizeDocument(context.Background(), call(map[string]any{"document_id": id, "summary_type": "concise"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	if got := resultText(t, result); got != "Mitochondria produce ATP." {
		t.Errorf("summary = %q", got)
	}
}

func TestHandleIngestFile(t *testing.T) {
	env := qatest.New(t, nil)
	srv := NewServer(env.Service, "agent")
	path := filepath.Join(t.TempDir(), "cells.txt")
	if err := os.WriteFile(path, []byte(notes), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := srv.handleIngestFile(context.Background(), call(map[string]any{"path": path}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	if !strings.Contains(resultText(t, result), "Indexed cells.txt") {
		t.Errorf("unexpected text: %s", resultText(t, result))
	}

	result, _ = srv.handleIngestFile(context.Background(), call(map[string]any{"path": filepath.Join(t.TempDir(), "missing.pdf")}))
	if !result.IsError {
		t.Error("expected error for missing file")
	}
}
