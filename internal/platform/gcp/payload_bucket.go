package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// ErrObjectNotFound is returned by Get for a missing key.
var ErrObjectNotFound = errors.New("payload object not found")

// PayloadBucket keeps raw upload bytes in a single GCS bucket.
type PayloadBucket struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
	prefix string
}

// NewPayloadBucket returns nil when UPLOAD_GCS_BUCKET is unset; uploads then stay inline on the
// upload document.
func NewPayloadBucket(ctx context.Context, log *logger.Logger) (*PayloadBucket, error) {
	bucket := envutil.String("UPLOAD_GCS_BUCKET", "")
	if bucket == "" {
		return nil, nil
	}
	var opts []option.ClientOption
	if host := envutil.String("STORAGE_EMULATOR_HOST", ""); host != "" {
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	serviceLog := log.With("service", "PayloadBucket")
	serviceLog.Info("payload bucket initialized", "bucket", bucket)
	return &PayloadBucket{
		log:    serviceLog,
		client: client,
		bucket: bucket,
		prefix: strings.Trim(envutil.String("UPLOAD_GCS_PREFIX", "uploads"), "/"),
	}, nil
}

func (b *PayloadBucket) Key(ownerID, uploadID string) string {
	if b.prefix == "" {
		return ownerID + "/" + uploadID
	}
	return b.prefix + "/" + ownerID + "/" + uploadID
}

func (b *PayloadBucket) Put(ctx context.Context, key, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.client.Bucket(b.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write payload to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close GCS writer: %w", err)
	}
	return nil
}

func (b *PayloadBucket) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	r, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("open GCS object %q: %w", key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object %q: %w", key, err)
	}
	return data, nil
}

func (b *PayloadBucket) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}
