package v1

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/docinsight/plugin/ai/session"
	aierrors "github.com/hrygo/docinsight/server/internal/errors"
	"github.com/hrygo/docinsight/server/internal/observability"
	"github.com/hrygo/docinsight/server/service/conversation"
)

// SessionNotFoundReply is the chat response for unknown or evicted sessions.
const SessionNotFoundReply = "Error: Session not found. Please upload files first."

// UploadResponse is returned by POST /upload/.
type UploadResponse struct {
	Message     string `json:"message"`
	SessionID   string `json:"session_id"`
	InitialTask string `json:"initial_task"`
}

// ChatRequest is the body of POST /chat/.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse is returned by POST /chat/.
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// HistoryResponse is returned by GET /sessions/:id/history.
type HistoryResponse struct {
	SessionID string         `json:"session_id"`
	Turns     []session.Turn `json:"turns"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail"`
}

// Root GET /
func (s *APIV1Service) Root(c echo.Context) error {
	return c.HTML(http.StatusOK, "<h1>✅ Chatbot API is running.</h1>")
}

// Upload POST /upload/
// multipart form: task, files (repeated); llm_choice is accepted and ignored.
func (s *APIV1Service) Upload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "multipart form with task and files is required"})
	}
	task := firstValue(form.Value["task"])
	files := form.File["files"]
	if strings.TrimSpace(task) == "" || len(files) == 0 {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "task and files are required"})
	}

	docs := make([]conversation.Document, 0, len(files))
	for _, fh := range files {
		data, err := readFormFile(fh)
		if err != nil {
			slog.Warn("failed to read uploaded file", "filename", fh.Filename, "error", err)
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:   string(aierrors.ErrCodeInvalidArgument),
				Detail: "failed to read uploaded file " + fh.Filename,
			})
		}
		docs = append(docs, conversation.Document{Filename: fh.Filename, Data: data})
	}

	id, err := s.Conversation.Ingest(requestContext(c), task, docs)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, UploadResponse{
		Message:     "Files uploaded successfully.",
		SessionID:   id,
		InitialTask: task,
	})
}

// Chat POST /chat/
func (s *APIV1Service) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "invalid chat request body"})
	}
	if req.SessionID == "" || strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "session_id and message are required"})
	}

	answer, err := s.Conversation.Turn(requestContext(c), req.SessionID, req.Message)
	if aierrors.IsCode(err, aierrors.ErrCodeSessionNotFound) {
		return c.JSON(http.StatusOK, ChatResponse{Response: SessionNotFoundReply, SessionID: req.SessionID})
	}
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, ChatResponse{Response: answer, SessionID: req.SessionID})
}

// GetHistory GET /sessions/:id/history
func (s *APIV1Service) GetHistory(c echo.Context) error {
	id := c.Param("id")
	turns, err := s.Conversation.History(requestContext(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, HistoryResponse{SessionID: id, Turns: turns})
}

// DeleteSession DELETE /sessions/:id
func (s *APIV1Service) DeleteSession(c echo.Context) error {
	if err := s.Conversation.Evict(requestContext(c), c.Param("id")); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetStats GET /stats
func (s *APIV1Service) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Conversation.Stats())
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	return data, nil
}

func requestContext(c echo.Context) context.Context {
	ctx := c.Request().Context()
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		ctx = observability.WithRequestID(ctx, id)
	}
	return ctx
}

// statusForCode maps error codes to HTTP statuses.
var statusForCode = map[aierrors.ErrorCode]int{
	aierrors.ErrCodeInvalidArgument:      http.StatusBadRequest,
	aierrors.ErrCodeInvalidFileType:      http.StatusBadRequest,
	aierrors.ErrCodeNoExtractableText:    http.StatusBadRequest,
	aierrors.ErrCodeSessionNotFound:      http.StatusNotFound,
	aierrors.ErrCodeRateLimitExceeded:    http.StatusTooManyRequests,
	aierrors.ErrCodeSynthesisUnavailable: http.StatusServiceUnavailable,
	aierrors.ErrCodeContextCanceled:      http.StatusServiceUnavailable,
	aierrors.ErrCodeIndexingError:        http.StatusInternalServerError,
}

// WriteError renders err as an ErrorResponse with the status of its code.
func WriteError(c echo.Context, err error) error {
	aiErr, ok := aierrors.As(err)
	if !ok {
		slog.Error("unexpected service error", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "internal error"})
	}
	status, ok := statusForCode[aiErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	detail := aiErr.Message
	if !aierrors.IsClientError(err) && aiErr.Cause != nil {
		detail = aiErr.Message + ": " + aiErr.Cause.Error()
	}
	return c.JSON(status, ErrorResponse{Code: string(aiErr.Code), Detail: detail})
}
