package handlers

import (
	"context"
	"time"

	"github.com/ersonp/lineage/internal/domain/services"
)

// FamilyHandler serves the read side: family lists, single families and
// full trees.
type FamilyHandler struct {
	projector *services.Projector
	tree      *services.TreeService
}

// NewFamilyHandler creates a new FamilyHandler.
func NewFamilyHandler(projector *services.Projector, tree *services.TreeService) *FamilyHandler {
	return &FamilyHandler{
		projector: projector,
		tree:      tree,
	}
}

// ListResult contains the projected families.
type ListResult struct {
	IncludeInactive bool                         `json:"include_inactive"`
	Count           int                          `json:"count"`
	Families        []*services.FamilyProjection `json:"families"`
}

// TreeRequest carries the raw tree parameters from a transport.
type TreeRequest struct {
	FamilyID        int64
	IncludeInactive string
	MaxFamilies     int
	Timeout         time.Duration
}

// HandleList lists families, hiding inactive ones unless includeInactive
// parses as true.
func (h *FamilyHandler) HandleList(ctx context.Context, includeInactive string) (*ListResult, error) {
	include, err := ParseIncludeInactive(includeInactive)
	if err != nil {
		return nil, err
	}

	families, err := h.projector.ListFamilies(ctx, include)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		IncludeInactive: include,
		Count:           len(families),
		Families:        families,
	}, nil
}

// HandleGet projects one family.
func (h *FamilyHandler) HandleGet(ctx context.Context, id int64, includeInactive string) (*services.FamilyProjection, error) {
	include, err := ParseIncludeInactive(includeInactive)
	if err != nil {
		return nil, err
	}
	return h.projector.GetFamily(ctx, id, include)
}

// HandleTree returns the connected family graph from req.FamilyID.
func (h *FamilyHandler) HandleTree(ctx context.Context, req TreeRequest) (*services.TreeResult, error) {
	include, err := ParseIncludeInactive(req.IncludeInactive)
	if err != nil {
		return nil, err
	}
	return h.tree.FullTree(ctx, req.FamilyID, services.TreeOptions{
		IncludeInactive: include,
		MaxFamilies:     req.MaxFamilies,
		Timeout:         req.Timeout,
	})
}
