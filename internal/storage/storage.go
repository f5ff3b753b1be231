package storage

import (
	"context"
	"io"
)

type PutInput struct {
	Key         string // relative object key, e.g. bold/2026/10/15/<uuid>.json
	ContentType string
	Size        int64
}

type PutResult struct {
	Key string
	URL string
}

type Storage interface {
	Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error)
}
