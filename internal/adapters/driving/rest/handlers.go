package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
)

type errorBody struct {
	Error string `json:"error"`
}

type registerRequest struct {
	URL      string `json:"url" binding:"required"`
	Title    string `json:"title"`
	MIMEType string `json:"mime_type"`
}

type documentResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	SourceURL string    `json:"source_url"`
	MIMEType  string    `json:"mime_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type indexResponse struct {
	Completed  bool   `json:"completed"`
	ChunkCount int    `json:"chunk_count"`
	Model      string `json:"embedding_model,omitempty"`
}

type questionRequest struct {
	Question string `json:"question"`
}

type passageResponse struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	Position int     `json:"position"`
}

type answerResponse struct {
	Answer     string            `json:"answer"`
	Query      string            `json:"query"`
	QuestionID string            `json:"question_id"`
	AnswerID   string            `json:"answer_id"`
	Passages   []passageResponse `json:"passages"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// statusFor maps the error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrSourceUnavailable),
		errors.Is(err, domain.ErrEmbeddingService),
		errors.Is(err, domain.ErrVectorStore),
		errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), errorBody{Error: domain.UserMessage(err)})
}

func toDocumentResponse(doc *domain.Document) documentResponse {
	return documentResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		SourceURL: doc.SourceURL,
		MIMEType:  doc.MIMEType,
		CreatedAt: doc.CreatedAt,
	}
}

func (s *Server) registerDocument(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "request body needs a url"})
		return
	}

	doc, err := s.ports.Document.Register(c.Request.Context(), driving.RegisterDocumentRequest{
		SourceURL: req.URL,
		Title:     req.Title,
		MIMEType:  req.MIMEType,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDocumentResponse(doc))
}

func (s *Server) listDocuments(c *gin.Context) {
	docs, err := s.ports.Document.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]documentResponse, len(docs))
	for i := range docs {
		out[i] = toDocumentResponse(&docs[i])
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

func (s *Server) getDocument(c *gin.Context) {
	doc, err := s.ports.Document.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentResponse(doc))
}

func (s *Server) indexDocument(c *gin.Context) {
	ns, err := s.ports.Indexing.EnsureIndexed(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, indexResponse{Completed: true, ChunkCount: ns.ChunkCount, Model: ns.EmbeddingModel})
}

func (s *Server) askQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "request body needs a question"})
		return
	}

	ex, err := s.ports.Chat.Ask(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		fail(c, err)
		return
	}

	out := answerResponse{
		Answer:     ex.Answer.Text,
		Query:      ex.Query,
		QuestionID: ex.Question.ID,
		AnswerID:   ex.Answer.ID,
		Passages:   make([]passageResponse, len(ex.Passages)),
	}
	for i, p := range ex.Passages {
		out.Passages[i] = passageResponse{Text: p.Text, Score: p.Score, Position: p.Position}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listMessages(c *gin.Context) {
	turns, err := s.ports.Chat.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]messageResponse, len(turns))
	for i, t := range turns {
		out[i] = messageResponse{ID: t.ID, Role: t.Role.String(), Text: t.Text, CreatedAt: t.CreatedAt}
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}
