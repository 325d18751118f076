package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
)

// AskInput is the input schema for the ask_question tool.
type AskInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document to ask about"`
	Question   string `json:"question" jsonschema:"the question to answer from the document"`
}

// AskOutput is the output schema for the ask_question tool.
type AskOutput struct {
	Answer   string          `json:"answer"`
	Query    string          `json:"query"`
	Passages []PassageOutput `json:"passages"`
}

// PassageOutput is one retrieved passage.
type PassageOutput struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	Position int     `json:"position"`
}

// DocumentInput names a document.
type DocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document ID"`
}

// IndexOutput is the output schema for the ensure_indexed tool.
type IndexOutput struct {
	Completed  bool `json:"completed"`
	ChunkCount int  `json:"chunk_count,omitempty"`
}

// HistoryOutput is the output schema for the get_history tool.
type HistoryOutput struct {
	Turns []TurnOutput `json:"turns"`
	Count int          `json:"count"`
}

// TurnOutput is one chat turn.
type TurnOutput struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterInput is the input schema for the register_document tool.
type RegisterInput struct {
	URL      string `json:"url" jsonschema:"http, https, s3 or file URL of the document"`
	Title    string `json:"title,omitempty" jsonschema:"optional display title"`
	MIMEType string `json:"mime_type,omitempty" jsonschema:"optional content type such as application/pdf"`
}

// DocumentOutput describes a registered document.
type DocumentOutput struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	SourceURL string    `json:"source_url"`
	MIMEType  string    `json:"mime_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question using only the content of a registered document",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ensure_indexed",
		Description: "Extract, chunk and embed a document so it can be queried",
	}, s.handleEnsureIndexed)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_history",
		Description: "Return the conversation about a document, oldest first",
	}, s.handleHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "register_document",
		Description: "Register a document by URL for later questions",
	}, s.handleRegister)
}

// toolError turns a pipeline error into the message shown to the assistant.
func toolError(err error) error {
	return errors.New(domain.UserMessage(err))
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	ex, err := s.ports.Chat.Ask(ctx, input.DocumentID, input.Question)
	if err != nil {
		return nil, AskOutput{}, toolError(err)
	}

	output := AskOutput{
		Answer:   ex.Answer.Text,
		Query:    ex.Query,
		Passages: make([]PassageOutput, len(ex.Passages)),
	}
	for i, p := range ex.Passages {
		output.Passages[i] = PassageOutput{Text: p.Text, Score: p.Score, Position: p.Position}
	}
	return nil, output, nil
}

func (s *Server) handleEnsureIndexed(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	if s.ports.Indexing == nil {
		res := s.ports.Chat.GenerateEmbeddings(ctx, input.DocumentID)
		if !res.Completed {
			return nil, IndexOutput{}, errors.New(res.ErrorText)
		}
		return nil, IndexOutput{Completed: true}, nil
	}

	ns, err := s.ports.Indexing.EnsureIndexed(ctx, input.DocumentID)
	if err != nil {
		return nil, IndexOutput{}, toolError(err)
	}
	return nil, IndexOutput{Completed: true, ChunkCount: ns.ChunkCount}, nil
}

func (s *Server) handleHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	turns, err := s.ports.Chat.History(ctx, input.DocumentID)
	if err != nil {
		return nil, HistoryOutput{}, toolError(err)
	}

	output := HistoryOutput{Turns: make([]TurnOutput, len(turns)), Count: len(turns)}
	for i, t := range turns {
		output.Turns[i] = TurnOutput{Role: t.Role.String(), Text: t.Text, CreatedAt: t.CreatedAt}
	}
	return nil, output, nil
}

func (s *Server) handleRegister(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RegisterInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	doc, err := s.ports.Document.Register(ctx, driving.RegisterDocumentRequest{
		SourceURL: input.URL,
		Title:     input.Title,
		MIMEType:  input.MIMEType,
	})
	if err != nil {
		return nil, DocumentOutput{}, toolError(err)
	}
	return nil, documentOutput(doc), nil
}

func documentOutput(doc *domain.Document) DocumentOutput {
	return DocumentOutput{
		ID:        doc.ID,
		Title:     doc.Title,
		SourceURL: doc.SourceURL,
		MIMEType:  doc.MIMEType,
		CreatedAt: doc.CreatedAt,
	}
}
