package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List the documents available for questions, newest first."),
	mcp.WithString("owner_id",
		mcp.Description("Only list documents uploaded by this owner"),
	),
)

var askDocumentTool = mcp.NewTool("ask_document",
	mcp.WithDescription("Answer a question using only the content of one document. Recent questions by the same user are used as conversation context."),
	mcp.WithString("document_id",
		mcp.Required(),
		mcp.Description("Document id from list_documents"),
	),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to answer"),
	),
	mcp.WithString("user_id",
		mcp.Description("Conversation owner (defaults to the server user)"),
	),
)

var searchDocumentTool = mcp.NewTool("search_document",
	mcp.WithDescription("Return the passages of a document most similar to a query, without generating an answer."),
	mcp.WithString("document_id",
		mcp.Required(),
		mcp.Description("Document id from list_documents"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages (defaults to the document's retrieval depth)"),
	),
)

var summarizeDocumentTool = mcp.NewTool("summarize_document",
	mcp.WithDescription("Summarize a whole document."),
	mcp.WithString("document_id",
		mcp.Required(),
		mcp.Description("Document id from list_documents"),
	),
	mcp.WithString("summary_type",
		mcp.Description("Summary style (default bullets)"),
		mcp.Enum("concise", "detailed", "bullets"),
	),
)

var ingestFileTool = mcp.NewTool("ingest_file",
	mcp.WithDescription("Index a local PDF, DOCX, PPTX, TXT, CSV or XLSX file so it can be queried."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the file on the server's machine"),
	),
)
