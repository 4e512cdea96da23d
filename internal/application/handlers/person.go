package handlers

import (
	"context"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/services"
)

// PersonHandler serves person profiles.
type PersonHandler struct {
	projector     *services.Projector
	relationships *services.RelationshipService
	marriages     *services.MarriageService
}

// NewPersonHandler creates a new PersonHandler.
func NewPersonHandler(projector *services.Projector, relationships *services.RelationshipService, marriages *services.MarriageService) *PersonHandler {
	return &PersonHandler{
		projector:     projector,
		relationships: relationships,
		marriages:     marriages,
	}
}

// PersonView is a person detail plus current partners.
type PersonView struct {
	*services.PersonDetail
	CurrentSpouse   *services.PartnerSummary `json:"current_spouse"`
	CurrentPartners map[string]int64         `json:"current_partners,omitempty"`
}

// HandleGet loads the person detail and resolves their current spouse and
// current partner per relationship type.
func (h *PersonHandler) HandleGet(ctx context.Context, id int64) (*PersonView, error) {
	detail, err := h.projector.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &PersonView{PersonDetail: detail}

	spouse, _, err := h.marriages.CurrentSpouse(ctx, id)
	if err != nil {
		return nil, err
	}
	if spouse != nil {
		view.CurrentSpouse = partnerSummary(detail, spouse)
	}

	for _, rel := range detail.Relationships {
		if !rel.IsCurrent {
			continue
		}
		partner, err := h.relationships.CurrentPartner(ctx, id, rel.RelationshipType.Code)
		if err != nil {
			return nil, err
		}
		if partner != nil {
			if view.CurrentPartners == nil {
				view.CurrentPartners = make(map[string]int64)
			}
			view.CurrentPartners[rel.RelationshipType.Code] = partner.ID
		}
	}
	return view, nil
}

// partnerSummary reuses the projected spouse when present.
func partnerSummary(detail *services.PersonDetail, spouse *entities.Person) *services.PartnerSummary {
	for i := range detail.Marriages {
		if detail.Marriages[i].IsCurrent && detail.Marriages[i].Spouse.ID == spouse.ID {
			return &detail.Marriages[i].Spouse
		}
	}
	return &services.PartnerSummary{ID: spouse.ID, FullName: spouse.FullName()}
}
