package storage

import (
	"context"
	"io"
	"time"
)

// PutOptions conveys upload destination metadata.
type PutOptions struct {
	Bucket      string
	Key         string
	ContentType string
}

// Service stores vacation images in remote object storage.
type Service interface {
	PutObject(ctx context.Context, body io.Reader, opts PutOptions) (string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}
