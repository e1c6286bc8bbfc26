package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/kapu/nyaay-triage-go/pkg/errors"
	"go.uber.org/zap"
)

// multipart overhead allowed on top of the audio limit
const formOverheadBytes = 1 << 20

type chatJSONRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (s *Server) handleHealth(c *gin.Context) {
	status := map[string]any{"status": "ok"}
	if s.health != nil {
		status = s.health()
	}
	c.JSON(http.StatusOK, status)
}

// handleChat accepts a multipart form with an optional "query" field and an
// optional "file" audio upload, or a JSON body {"query": "..."}.
func (s *Server) handleChat(c *gin.Context) {
	query, err := s.readQuery(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	result, err := s.pipeline.Triage(ctx, query)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) readQuery(c *gin.Context) (domain.Query, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxAudioBytes+formOverheadBytes)

	var query domain.Query
	contentType := c.ContentType()

	switch {
	case contentType == gin.MIMEJSON:
		var body chatJSONRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			if tooLarge(err) {
				return query, s.tooLargeError()
			}
			return query, errors.NewValidationError("invalid JSON body", "body", nil)
		}
		query.Text = body.Query

	case strings.HasPrefix(contentType, gin.MIMEMultipartPOSTForm):
		if err := c.Request.ParseMultipartForm(formOverheadBytes); err != nil {
			if tooLarge(err) {
				return query, s.tooLargeError()
			}
			return query, errors.NewValidationError("invalid multipart form", "body", nil)
		}
		query.Text = c.Request.FormValue("query")

		audio, err := s.readAudio(c)
		if err != nil {
			return query, err
		}
		query.Audio = audio

	default:
		if err := c.Request.ParseForm(); err != nil {
			if tooLarge(err) {
				return query, s.tooLargeError()
			}
			return query, errors.NewValidationError("invalid form body", "body", nil)
		}
		query.Text = c.Request.FormValue("query")
	}

	if len(query.Text) > s.cfg.MaxQueryLength {
		return query, errors.NewValidationError(
			fmt.Sprintf("query exceeds %d characters", s.cfg.MaxQueryLength), "query", len(query.Text))
	}
	return query, nil
}

func (s *Server) readAudio(c *gin.Context) (*domain.Audio, error) {
	header, err := c.FormFile("file")
	if err != nil {
		if stderrors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, errors.NewValidationError("invalid audio upload", "file", nil)
	}
	if header.Size > s.cfg.MaxAudioBytes {
		return nil, s.tooLargeError()
	}

	data, err := readFormFile(header)
	if err != nil {
		return nil, errors.NewValidationError("failed to read audio upload", "file", header.Filename)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &domain.Audio{Data: data, Filename: header.Filename}, nil
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) tooLargeError() error {
	ve := errors.NewValidationError(
		fmt.Sprintf("request exceeds %d bytes", s.cfg.MaxAudioBytes), "file", nil)
	ve.StatusCode = http.StatusRequestEntityTooLarge
	return ve
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return stderrors.As(err, &maxErr)
}

func (s *Server) writeError(c *gin.Context, err error) {
	requestID := c.GetString(requestIDKey)

	// Stage errors carry the deadline in their cause chain; the timeout wins.
	if stderrors.Is(err, context.DeadlineExceeded) {
		fields := []zap.Field{zap.String("request_id", requestID), zap.Error(err)}
		if te, ok := errors.AsTriageError(err); ok {
			fields = append(fields, zap.String("stage", string(te.Stage)))
		}
		s.logger.Warn("Triage timed out", fields...)
		c.JSON(http.StatusGatewayTimeout, errorBody("TIMEOUT", "", "request timed out"))
		return
	}

	if te, ok := errors.AsTriageError(err); ok {
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("kind", string(te.Kind)),
			zap.String("stage", string(te.Stage)),
			zap.Error(err),
		}
		if te.StatusCode >= http.StatusInternalServerError {
			s.logger.Error("Triage failed", fields...)
		} else {
			s.logger.Info("Triage rejected", fields...)
		}
		c.JSON(te.StatusCode, errorBody(string(te.Kind), string(te.Stage), te.Message))
		return
	}

	var ve *errors.ValidationError
	if stderrors.As(err, &ve) {
		c.JSON(ve.StatusCode, errorBody(ve.Code, "", ve.Message))
		return
	}

	s.logger.Error("Unexpected handler error", zap.String("request_id", requestID), zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "", "internal server error"))
}

func errorBody(kind, stage, message string) gin.H {
	body := gin.H{
		"kind":    kind,
		"message": message,
	}
	if stage != "" {
		body["stage"] = stage
	}
	return gin.H{"error": body}
}
