package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/jobs/status"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/clock"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// PayloadSink stores upload payloads outside the document store.
type PayloadSink interface {
	Key(ownerID, uploadID string) string
	Put(ctx context.Context, key, contentType string, data []byte) error
}

type UploadInput struct {
	Type        domain.DocumentType
	Title       string
	Filename    string
	ContentType string
	Payload     []byte
}

type UploadService interface {
	Upload(ctx context.Context, in UploadInput) (*domain.Upload, error)
}

type uploadService struct {
	log      *logger.Logger
	uploads  repos.UploadRepo
	registry *status.Registry
	sink     PayloadSink
	clock    clock.Clock
	maxBytes int64
}

// NewUploadService builds the upload service. sink may be nil, in which case payloads are kept inline.
func NewUploadService(baseLog *logger.Logger, uploads repos.UploadRepo, registry *status.Registry, sink PayloadSink, clk clock.Clock, maxBytes int64) UploadService {
	if clk == nil {
		clk = clock.Real()
	}
	return &uploadService{
		log:      baseLog.With("service", "UploadService"),
		uploads:  uploads,
		registry: registry,
		sink:     sink,
		clock:    clk,
		maxBytes: maxBytes,
	}
}

func (s *uploadService) Upload(ctx context.Context, in UploadInput) (*domain.Upload, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	up := &domain.Upload{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Type:        in.Type,
		Title:       uploadTitle(in),
		Filename:    in.Filename,
		ContentType: in.ContentType,
		Size:        int64(len(in.Payload)),
		Status:      string(domain.JobUploaded),
		CreatedAt:   s.clock.Now(),
	}
	if s.sink != nil && in.Type != domain.DocumentURL {
		key := s.sink.Key(ownerID, up.ID)
		if err := s.sink.Put(ctx, key, in.ContentType, in.Payload); err != nil {
			return nil, fmt.Errorf("store upload payload: %w", err)
		}
		up.StorageKey = key
	} else {
		up.Payload = in.Payload
	}

	if err := s.uploads.Create(ctx, up); err != nil {
		return nil, err
	}
	s.registry.Init(up.ID)
	s.log.Info("upload stored", "upload_id", up.ID, "type", up.Type, "bytes", up.Size, "external", up.StorageKey != "")
	return up, nil
}

func (s *uploadService) validate(in *UploadInput) error {
	in.Type = domain.DocumentType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	if in.Type == "" {
		in.Type = defaultType(*in)
	}
	if !in.Type.Valid() {
		return apierr.New(http.StatusBadRequest, "invalid_document_type", fmt.Errorf("%w: unsupported document type %q", domain.ErrInvalidArgument, in.Type))
	}
	if len(in.Payload) == 0 {
		return apierr.New(http.StatusBadRequest, "empty_upload", fmt.Errorf("%w: document content is empty", domain.ErrInvalidArgument))
	}
	if s.maxBytes > 0 && int64(len(in.Payload)) > s.maxBytes {
		return apierr.New(http.StatusRequestEntityTooLarge, "upload_too_large", fmt.Errorf("%w: document exceeds %d bytes", domain.ErrInvalidArgument, s.maxBytes))
	}
	if in.Type == domain.DocumentURL {
		u, err := url.Parse(strings.TrimSpace(string(in.Payload)))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apierr.New(http.StatusBadRequest, "invalid_url", fmt.Errorf("%w: content must be an http(s) URL", domain.ErrInvalidArgument))
		}
		in.Payload = []byte(u.String())
	}
	return nil
}

// defaultType treats untyped file uploads and PDF bytes as pdf. Text sent in a body field is text.
func defaultType(in UploadInput) domain.DocumentType {
	if in.Filename != "" || bytes.HasPrefix(in.Payload, []byte("%PDF-")) {
		return domain.DocumentPDF
	}
	return domain.DocumentText
}

func uploadTitle(in UploadInput) string {
	if t := strings.TrimSpace(in.Title); t != "" {
		return t
	}
	name := strings.TrimSpace(in.Filename)
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	if dot := strings.LastIndex(name, "."); dot > 0 {
		name = name[:dot]
	}
	if name != "" {
		return name
	}
	return "Untitled document"
}
