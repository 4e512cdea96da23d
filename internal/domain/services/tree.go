package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/ports"
	lerrors "github.com/ersonp/lineage/internal/errors"
)

// Truncation reasons reported in TreeResult.TruncatedReason.
const (
	TruncatedMaxFamilies = "max_families"
	TruncatedDeadline    = "deadline"
)

// TreeLimits are the operator ceilings for one traversal.
type TreeLimits struct {
	MaxFamilies int
	Timeout     time.Duration
}

// TreeOptions are per-request traversal options. MaxFamilies and Timeout
// can only lower the configured limits.
type TreeOptions struct {
	IncludeInactive bool
	MaxFamilies     int
	Timeout         time.Duration
}

// Connection records that a person of the from family also belongs to the
// to family, with the role they hold there.
type Connection struct {
	PersonID            int64  `json:"person_id"`
	PersonFullName      string `json:"person_full_name"`
	FromFamilyID        int64  `json:"from_family_id"`
	ToFamilyID          int64  `json:"to_family_id"`
	RoleInToFamily      string `json:"role_in_to_family"`
	RoleInToFamilyName  string `json:"role_in_to_family_name"`
	IsPrimaryInToFamily bool   `json:"is_primary_in_to_family"`
}

// TreeResult is the connected family graph reachable from a root family.
type TreeResult struct {
	RootFamilyID    int64               `json:"root_family_id"`
	FamilyCount     int                 `json:"family_count"`
	IncludeInactive bool                `json:"include_inactive"`
	Truncated       bool                `json:"truncated"`
	TruncatedReason string              `json:"truncated_reason,omitempty"`
	Families        []*FamilyProjection `json:"families"`
	Connections     []Connection        `json:"connections"`
}

// TreeService walks the family co-membership graph breadth-first.
type TreeService struct {
	relationalDB ports.RelationalDB
	projector    *Projector
	limits       TreeLimits
	observer     Observer
	now          func() time.Time
}

// NewTreeService creates a new TreeService.
func NewTreeService(relationalDB ports.RelationalDB, projector *Projector, limits TreeLimits, observer Observer) *TreeService {
	if observer == nil {
		observer = NopObserver{}
	}
	return &TreeService{
		relationalDB: relationalDB,
		projector:    projector,
		limits:       limits,
		observer:     observer,
		now:          time.Now,
	}
}

type connectionKey struct {
	person, from, to int64
}

// FullTree returns every family reachable from rootID through shared
// members. Each family is projected once and each (person, from, to)
// connection is emitted once. When a ceiling is hit the partial graph is
// returned with Truncated set.
func (s *TreeService) FullTree(ctx context.Context, rootID int64, opts TreeOptions) (*TreeResult, error) {
	start := s.now()
	result, err := s.fullTree(ctx, rootID, opts, start)
	if err != nil {
		return nil, err
	}

	stats := TreeStats{
		Families:    result.FamilyCount,
		Connections: len(result.Connections),
		Truncated:   result.Truncated,
		Reason:      result.TruncatedReason,
		Duration:    s.now().Sub(start),
	}
	s.observer.ObserveTree(stats)
	if result.Truncated {
		slog.WarnContext(ctx, "family tree truncated",
			"code", lerrors.CodeFamilyTreeTruncated,
			"root_family_id", rootID,
			"families", result.FamilyCount,
			"reason", result.TruncatedReason,
		)
	}
	return result, nil
}

func (s *TreeService) fullTree(ctx context.Context, rootID int64, opts TreeOptions, start time.Time) (*TreeResult, error) {
	maxFamilies, timeout := s.effectiveLimits(opts)

	root, err := loadVisibleFamily(ctx, s.relationalDB, rootID, opts.IncludeInactive)
	if err != nil {
		return nil, err
	}

	sess, err := s.projector.session(ctx)
	if err != nil {
		return nil, err
	}

	result := &TreeResult{
		RootFamilyID:    root.ID,
		IncludeInactive: opts.IncludeInactive,
		Families:        make([]*FamilyProjection, 0, 8),
		Connections:     make([]Connection, 0, 8),
	}

	// families caches lookups; a nil entry marks a dangling reference.
	families := map[int64]*entities.Family{root.ID: root}
	visited := make(map[int64]bool)
	enqueued := map[int64]bool{root.ID: true}
	seen := make(map[connectionKey]bool)
	queue := []int64{root.ID}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, lerrors.Wrap(err, lerrors.CodeServerInternalFailure, "family tree cancelled",
				lerrors.FieldFamilyID(rootID))
		}
		if timeout > 0 && s.now().Sub(start) >= timeout {
			result.Truncated, result.TruncatedReason = true, TruncatedDeadline
			break
		}
		if maxFamilies > 0 && len(visited) >= maxFamilies {
			result.Truncated, result.TruncatedReason = true, TruncatedMaxFamilies
			break
		}

		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		f := families[id]
		proj, members, err := sess.family(ctx, f)
		if err != nil {
			return nil, err
		}
		result.Families = append(result.Families, proj)

		byPerson, err := s.membershipsByPerson(ctx, members)
		if err != nil {
			return nil, err
		}

		for _, m := range members {
			for _, other := range byPerson[m.PersonID] {
				if other.FamilyID == f.ID {
					continue
				}
				g, err := s.lookupFamily(ctx, families, other.FamilyID)
				if err != nil {
					return nil, err
				}
				if g == nil || (!g.IsActive && !opts.IncludeInactive) {
					continue
				}

				key := connectionKey{person: m.PersonID, from: f.ID, to: g.ID}
				if !seen[key] {
					seen[key] = true
					result.Connections = append(result.Connections, Connection{
						PersonID:            m.PersonID,
						PersonFullName:      sess.fullName(m.PersonID),
						FromFamilyID:        f.ID,
						ToFamilyID:          g.ID,
						RoleInToFamily:      other.Role.Code,
						RoleInToFamilyName:  other.Role.Name,
						IsPrimaryInToFamily: other.IsPrimary,
					})
				}
				if !enqueued[g.ID] {
					enqueued[g.ID] = true
					queue = append(queue, g.ID)
				}
			}
		}
	}

	result.FamilyCount = len(result.Families)
	return result, nil
}

// effectiveLimits applies request options on top of the configured limits.
func (s *TreeService) effectiveLimits(opts TreeOptions) (int, time.Duration) {
	maxFamilies, timeout := s.limits.MaxFamilies, s.limits.Timeout
	if opts.MaxFamilies > 0 && (maxFamilies <= 0 || opts.MaxFamilies < maxFamilies) {
		maxFamilies = opts.MaxFamilies
	}
	if opts.Timeout > 0 && (timeout <= 0 || opts.Timeout < timeout) {
		timeout = opts.Timeout
	}
	return maxFamilies, timeout
}

// membershipsByPerson loads every membership of the given members in one
// lookup, keeping the store's order within each person.
func (s *TreeService) membershipsByPerson(ctx context.Context, members []*entities.Membership) (map[int64][]*entities.Membership, error) {
	ids := uniquePersonIDs(members)
	if len(ids) == 0 {
		return nil, nil
	}
	all, err := s.relationalDB.MembershipsOf(ctx, ids)
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading memberships")
	}
	byPerson := make(map[int64][]*entities.Membership, len(ids))
	for _, ms := range all {
		byPerson[ms.PersonID] = append(byPerson[ms.PersonID], ms)
	}
	return byPerson, nil
}

func (s *TreeService) lookupFamily(ctx context.Context, cache map[int64]*entities.Family, id int64) (*entities.Family, error) {
	if f, ok := cache[id]; ok {
		return f, nil
	}
	f, err := s.relationalDB.FindFamilyByID(ctx, id)
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading family", lerrors.FieldFamilyID(id))
	}
	cache[id] = f
	return f, nil
}
