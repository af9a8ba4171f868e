package upload

import (
	"context"
	"io"
)

// Object describes where and how content is stored.
type Object struct {
	Path        string
	ContentType string
	Size        int64 // -1 when unknown
}

// Provider defines the interface for archive storage backends
type Provider interface {
	// Upload stores content from reader as object
	Upload(ctx context.Context, reader io.Reader, object Object) error

	// Configure sets up the provider with the given configuration
	Configure(ctx context.Context, config map[string]any) error

	// Name returns the provider name
	Name() string
}
