package service

import (
	"context"
	"os"
)

// TemplateSource provides the raw bytes of the DOCX report template.
type TemplateSource interface {
	Load(ctx context.Context) ([]byte, error)
}

// FileTemplate reads the template from the local filesystem on every
// render, so a replaced template takes effect without a restart.
type FileTemplate struct {
	Path string
}

func (f FileTemplate) Load(context.Context) ([]byte, error) {
	return os.ReadFile(f.Path)
}
