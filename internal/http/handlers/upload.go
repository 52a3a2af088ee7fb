package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type UploadHandler struct {
	log      *logger.Logger
	uploads  services.UploadService
	maxBytes int64
}

func NewUploadHandler(log *logger.Logger, uploads services.UploadService, maxBytes int64) *UploadHandler {
	return &UploadHandler{
		log:      log.With("handler", "UploadHandler"),
		uploads:  uploads,
		maxBytes: maxBytes,
	}
}

type uploadJSON struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// POST /api/upload
//
// Accepts multipart (file or content field), url-encoded form, or JSON {type, content, title}.
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		// Headroom for multipart framing.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)
	}

	in, err := h.readInput(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "upload_too_large", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_upload", err)
		return
	}

	up, err := h.uploads.Upload(c.Request.Context(), in)
	if err != nil {
		h.log.Warn("upload failed", "error", err)
		response.RespondServiceError(c, "upload_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"id":      up.ID,
		"status":  up.Status,
		"title":   up.Title,
		"message": "Upload successful!",
	})
}

func (h *UploadHandler) readInput(c *gin.Context) (services.UploadInput, error) {
	ct := strings.ToLower(c.ContentType())
	if ct == "application/json" {
		var body uploadJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			return services.UploadInput{}, fmt.Errorf("invalid JSON body: %w", err)
		}
		return services.UploadInput{
			Type:        domain.DocumentType(body.Type),
			Title:       body.Title,
			ContentType: "text/plain; charset=utf-8",
			Payload:     []byte(body.Content),
		}, nil
	}

	in := services.UploadInput{
		Type:  domain.DocumentType(c.PostForm("type")),
		Title: c.PostForm("title"),
	}
	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		data, err := readFormFile(fh)
		if err != nil {
			return services.UploadInput{}, err
		}
		in.Filename = fh.Filename
		in.ContentType = fh.Header.Get("Content-Type")
		in.Payload = data
		if in.Type == "" && strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			in.Type = domain.DocumentPDF
		}
	case errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart):
		in.Payload = []byte(c.PostForm("content"))
		in.ContentType = "text/plain; charset=utf-8"
	default:
		return services.UploadInput{}, err
	}
	return in, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}
