package handlers

import (
	"context"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/services"
)

// RelationshipHandler handles relationship writes from a transport.
type RelationshipHandler struct {
	service *services.RelationshipService
}

// NewRelationshipHandler creates a new RelationshipHandler.
func NewRelationshipHandler(service *services.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{
		service: service,
	}
}

// RelateRequest carries raw relationship fields. Dates are YYYY-MM-DD.
type RelateRequest struct {
	PersonID  int64
	PartnerID int64
	Type      string
	StartedOn string
	EndedOn   string
	Notes     string
}

// HandleCreate parses req and creates the relationship.
func (h *RelationshipHandler) HandleCreate(ctx context.Context, req RelateRequest) (*entities.PersonRelationship, error) {
	started, err := ParseOptionalDate("started_on", req.StartedOn)
	if err != nil {
		return nil, err
	}
	ended, err := ParseOptionalDate("ended_on", req.EndedOn)
	if err != nil {
		return nil, err
	}

	return h.service.Create(ctx, services.CreateRelationshipInput{
		PersonID:  req.PersonID,
		PartnerID: req.PartnerID,
		TypeCode:  req.Type,
		StartedOn: started,
		EndedOn:   ended,
		Notes:     req.Notes,
	})
}

// HandleEnd ends relationship id on endedOn.
func (h *RelationshipHandler) HandleEnd(ctx context.Context, id int64, endedOn string) (*entities.PersonRelationship, error) {
	ended, err := ParseDate("ended_on", endedOn)
	if err != nil {
		return nil, err
	}
	return h.service.End(ctx, id, ended)
}
