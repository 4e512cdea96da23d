package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ersonp/lineage/internal/application/handlers"
	"github.com/ersonp/lineage/internal/domain/services"
	lerrors "github.com/ersonp/lineage/internal/errors"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-families",
		Method:      http.MethodGet,
		Path:        "/families",
		Summary:     "List family projections",
		Tags:        []string{"families"},
	}, s.handleListFamilies)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-family",
		Method:      http.MethodGet,
		Path:        "/families/{id}",
		Summary:     "Get one family projection",
		Tags:        []string{"families"},
	}, s.handleGetFamily)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-family-tree",
		Method:      http.MethodGet,
		Path:        "/families/{id}/tree",
		Summary:     "Get the connected family tree",
		Tags:        []string{"families"},
	}, s.handleFamilyTree)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-person",
		Method:      http.MethodGet,
		Path:        "/people/{id}",
		Summary:     "Get a person profile with memberships and marriages",
		Tags:        []string{"people"},
	}, s.handlePerson)
}

// --- Request/Response types for huma ---

type listFamiliesInput struct {
	IncludeInactive string `query:"include_inactive" doc:"true|1|yes or false|0|no"`
}
type listFamiliesOutput struct {
	Body []*services.FamilyProjection
}

type familyInput struct {
	ID              int64  `path:"id"`
	IncludeInactive string `query:"include_inactive" doc:"true|1|yes or false|0|no"`
}
type familyOutput struct {
	Body *services.FamilyProjection
}

type familyTreeInput struct {
	ID              int64  `path:"id"`
	IncludeInactive string `query:"include_inactive" doc:"true|1|yes or false|0|no"`
	MaxFamilies     int    `query:"max_families" minimum:"0" doc:"Lowers the configured family ceiling"`
}
type familyTreeOutput struct {
	Body *services.TreeResult
}

type personInput struct {
	ID int64 `path:"id"`
}
type personOutput struct {
	Body *handlers.PersonView
}

// --- Handlers ---

func (s *Server) handleListFamilies(ctx context.Context, input *listFamiliesInput) (*listFamiliesOutput, error) {
	result, err := s.services.Families.HandleList(ctx, input.IncludeInactive)
	if err != nil {
		return nil, apiError(ctx, "listing families", err)
	}
	return &listFamiliesOutput{Body: result.Families}, nil
}

func (s *Server) handleGetFamily(ctx context.Context, input *familyInput) (*familyOutput, error) {
	family, err := s.services.Families.HandleGet(ctx, input.ID, input.IncludeInactive)
	if err != nil {
		return nil, apiError(ctx, "getting family", err)
	}
	return &familyOutput{Body: family}, nil
}

func (s *Server) handleFamilyTree(ctx context.Context, input *familyTreeInput) (*familyTreeOutput, error) {
	tree, err := s.services.Families.HandleTree(ctx, handlers.TreeRequest{
		FamilyID:        input.ID,
		IncludeInactive: input.IncludeInactive,
		MaxFamilies:     input.MaxFamilies,
	})
	if err != nil {
		return nil, apiError(ctx, "building family tree", err)
	}
	return &familyTreeOutput{Body: tree}, nil
}

func (s *Server) handlePerson(ctx context.Context, input *personInput) (*personOutput, error) {
	view, err := s.services.People.HandleGet(ctx, input.ID)
	if err != nil {
		return nil, apiError(ctx, "getting person", err)
	}
	return &personOutput{Body: view}, nil
}

// apiError maps a coded error onto its HTTP status. Internal failures are
// logged and returned without detail.
func apiError(ctx context.Context, op string, err error) error {
	status := lerrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(ctx, "internal error",
			"context", op,
			"code", lerrors.CodeOf(err),
			"request_id", RequestIDFrom(ctx),
			"error", err)
		return huma.Error500InternalServerError(op + " failed")
	}
	return huma.NewError(status, err.Error())
}
