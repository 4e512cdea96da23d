package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/lineage/internal/domain/services"
	lerrors "github.com/ersonp/lineage/internal/errors"
	"github.com/ersonp/lineage/internal/infrastructure/parsers"
)

// ImportHandler handles importing seed documents from files.
type ImportHandler struct {
	service *services.ImportService
}

// NewImportHandler creates a new import handler.
func NewImportHandler(service *services.ImportService) *ImportHandler {
	return &ImportHandler{
		service: service,
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format string // "json", "yaml", "csv", or "auto"
	DryRun bool   // Validate without saving
}

// Handle imports a seed document from a file.
func (h *ImportHandler) Handle(ctx context.Context, filePath string, opts ImportOptions) (*services.ImportResult, error) {
	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}

	if parser == nil {
		return nil, lerrors.New(lerrors.CodeImportDocumentInvalid, fmt.Sprintf("unsupported format for file: %s", filePath),
			lerrors.Field("format", opts.Format))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	doc, err := parser.Parse(file)
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeImportDocumentInvalid, "parsing file", lerrors.Field("path", filePath))
	}

	return h.service.Import(ctx, doc, services.ImportOptions{DryRun: opts.DryRun})
}
