package handlers

import (
	"context"

	"github.com/ersonp/lineage/internal/domain/services"
)

// RecordHandler handles person removal and family activation.
type RecordHandler struct {
	service *services.RecordService
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(service *services.RecordService) *RecordHandler {
	return &RecordHandler{service: service}
}

// HandleDeletePerson deletes an unreferenced person.
func (h *RecordHandler) HandleDeletePerson(ctx context.Context, id int64) error {
	return h.service.DeletePerson(ctx, id)
}

// HandleSetFamilyActive activates or deactivates a family.
func (h *RecordHandler) HandleSetFamilyActive(ctx context.Context, id int64, active bool) error {
	return h.service.SetFamilyActive(ctx, id, active)
}
