package handlers

import (
	"context"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/services"
)

// MarriageHandler handles marriage writes from a transport.
type MarriageHandler struct {
	service *services.MarriageService
}

// NewMarriageHandler creates a new MarriageHandler.
func NewMarriageHandler(service *services.MarriageService) *MarriageHandler {
	return &MarriageHandler{
		service: service,
	}
}

// MarryRequest carries raw marriage fields. Dates are YYYY-MM-DD.
type MarryRequest struct {
	HusbandID int64
	WifeID    int64
	MarriedOn string
	EndedOn   string
	EndReason string
	Notes     string
}

// EndMarriageRequest carries raw end-of-marriage fields.
type EndMarriageRequest struct {
	ID        int64
	EndedOn   string
	EndReason string
	Notes     string
}

// HandleCreate parses req and creates the marriage.
func (h *MarriageHandler) HandleCreate(ctx context.Context, req MarryRequest) (*entities.Marriage, error) {
	married, err := ParseDate("married_on", req.MarriedOn)
	if err != nil {
		return nil, err
	}
	ended, err := ParseOptionalDate("ended_on", req.EndedOn)
	if err != nil {
		return nil, err
	}

	return h.service.Create(ctx, services.CreateMarriageInput{
		HusbandID: req.HusbandID,
		WifeID:    req.WifeID,
		MarriedOn: married,
		EndedOn:   ended,
		EndReason: req.EndReason,
		Notes:     req.Notes,
	})
}

// HandleEnd parses req and ends the marriage.
func (h *MarriageHandler) HandleEnd(ctx context.Context, req EndMarriageRequest) (*entities.Marriage, error) {
	ended, err := ParseDate("ended_on", req.EndedOn)
	if err != nil {
		return nil, err
	}
	return h.service.End(ctx, services.EndMarriageInput{
		ID:        req.ID,
		EndedOn:   ended,
		EndReason: req.EndReason,
		Notes:     req.Notes,
	})
}
