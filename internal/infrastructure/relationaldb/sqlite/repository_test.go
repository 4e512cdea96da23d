package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/ports"
	"github.com/ersonp/lineage/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates an in-memory SQLite repository for testing.
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	err = repo.EnsureSchema(context.Background())
	require.NoError(t, err)

	return repo
}

func mustDate(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := entities.ParseDate(s)
	require.NoError(t, err)
	return &d
}

func savePerson(t *testing.T, repo *Repository, first, last string) *entities.Person {
	t.Helper()
	p := &entities.Person{FirstName: first, LastName: last}
	require.NoError(t, repo.SavePerson(context.Background(), p))
	return p
}

func saveFamily(t *testing.T, repo *Repository, active bool, names ...string) *entities.Family {
	t.Helper()
	f := &entities.Family{IsActive: active}
	copy(f.LastNames[:], names)
	require.NoError(t, repo.SaveFamily(context.Background(), f))
	return f
}

func saveRole(t *testing.T, repo *Repository, code string, order int) *entities.FamilyRole {
	t.Helper()
	role := &entities.FamilyRole{Code: code, Name: code, IsActive: true, DisplayOrder: order}
	require.NoError(t, repo.SaveFamilyRole(context.Background(), role))
	return role
}

func addMember(t *testing.T, repo *Repository, f *entities.Family, p *entities.Person, role *entities.FamilyRole) *entities.FamilyMember {
	t.Helper()
	m := &entities.FamilyMember{FamilyID: f.ID, PersonID: p.ID, RoleID: role.ID}
	require.NoError(t, repo.SaveFamilyMember(context.Background(), m))
	return m
}

func TestNewRepository(t *testing.T) {
	t.Run("success with memory database", func(t *testing.T) {
		repo, err := NewRepository(config.SQLiteConfig{Path: ":memory:"})
		require.NoError(t, err)
		defer repo.Close()
		assert.NotNil(t, repo)
	})

	t.Run("error with empty path", func(t *testing.T) {
		_, err := NewRepository(config.SQLiteConfig{Path: ""})
		require.Error(t, err)
	})
}

func TestRepository_EnsureSchema(t *testing.T) {
	repo := setupTestRepo(t)

	tables := []string{
		"reference_items", "family_roles", "relationship_types", "people",
		"families", "family_members", "person_relationships", "marriages",
	}
	for _, table := range tables {
		var count int
		err := repo.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}

	// Should not error when called again
	require.NoError(t, repo.EnsureSchema(context.Background()))
}

func TestRepository_People(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	t.Run("save and find by id", func(t *testing.T) {
		p := &entities.Person{
			FirstName:   "Ana",
			LastName:    "Pérez",
			DateOfBirth: mustDate(t, "1990-06-15"),
			References:  map[string]string{entities.ReferenceGender: "F"},
		}
		require.NoError(t, repo.SavePerson(ctx, p))
		assert.NotZero(t, p.ID)

		found, err := repo.FindPersonByID(ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Ana Pérez", found.FullName())
		assert.Equal(t, "1990-06-15", found.DateOfBirth.Format(entities.DateLayout))
		assert.Nil(t, found.DateOfDeath)
		assert.Equal(t, "F", found.Reference(entities.ReferenceGender))
	})

	t.Run("update keeps id", func(t *testing.T) {
		p := savePerson(t, repo, "Luis", "Gómez")
		p.Nickname = "Lucho"
		p.IsDeceased = true
		require.NoError(t, repo.SavePerson(ctx, p))

		found, err := repo.FindPersonByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lucho", found.Nickname)
		assert.True(t, found.IsDeceased)
	})

	t.Run("missing person returns nil", func(t *testing.T) {
		found, err := repo.FindPersonByID(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("find many", func(t *testing.T) {
		a := savePerson(t, repo, "A", "X")
		b := savePerson(t, repo, "B", "X")

		found, err := repo.FindPeopleByIDs(ctx, []int64{a.ID, b.ID, 9999})
		require.NoError(t, err)
		assert.Len(t, found, 2)

		empty, err := repo.FindPeopleByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestRepository_DeletePersonReferenced(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	f := saveFamily(t, repo, true, "Pérez")
	role := saveRole(t, repo, "father", 10)
	p := savePerson(t, repo, "Juan", "Pérez")
	addMember(t, repo, f, p, role)

	err := repo.DeletePerson(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrReferenced))

	loner := savePerson(t, repo, "Solo", "Nadie")
	require.NoError(t, repo.DeletePerson(ctx, loner.ID))
	found, err := repo.FindPersonByID(ctx, loner.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_PersonReferenced(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rt := &entities.RelationshipType{Code: "dating", Label: "Dating", IsActive: true}
	require.NoError(t, repo.SaveRelationshipType(ctx, rt))

	a := savePerson(t, repo, "Ana", "Garcia")
	b := savePerson(t, repo, "Bruno", "Ruiz")
	h := savePerson(t, repo, "Hugo", "Lara")
	w := savePerson(t, repo, "Wanda", "Mora")
	loner := savePerson(t, repo, "Solo", "Nadie")

	lo, hi := entities.CanonicalPair(a.ID, b.ID)
	require.NoError(t, repo.InsertRelationship(ctx, &entities.PersonRelationship{PersonID: lo, PartnerID: hi, TypeID: rt.ID}))
	require.NoError(t, repo.InsertMarriage(ctx, &entities.Marriage{HusbandID: h.ID, WifeID: w.ID, MarriedOn: *mustDate(t, "2010-05-01")}))

	for _, p := range []*entities.Person{a, b, h, w} {
		referenced, err := repo.PersonReferenced(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, referenced, p.FirstName)

		// The foreign key rejects the delete on its own as well.
		err = repo.DeletePerson(ctx, p.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ports.ErrReferenced), "%s: %v", p.FirstName, err)
	}

	referenced, err := repo.PersonReferenced(ctx, loner.ID)
	require.NoError(t, err)
	assert.False(t, referenced)
}

func TestIDList(t *testing.T) {
	assert.Equal(t, "[]", idList(nil))
	assert.Equal(t, "[7]", idList([]int64{7}))
	assert.Equal(t, "[1,22,333]", idList([]int64{1, 22, 333}))
}

func TestRepository_LargeIDLists(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rt := &entities.RelationshipType{Code: "dating", Label: "Dating", IsActive: true}
	require.NoError(t, repo.SaveRelationshipType(ctx, rt))
	f := saveFamily(t, repo, true, "Garcia")
	role := saveRole(t, repo, "father", 10)
	a := savePerson(t, repo, "Ana", "Garcia")
	b := savePerson(t, repo, "Bruno", "Ruiz")
	addMember(t, repo, f, a, role)
	lo, hi := entities.CanonicalPair(a.ID, b.ID)
	require.NoError(t, repo.InsertRelationship(ctx, &entities.PersonRelationship{PersonID: lo, PartnerID: hi, TypeID: rt.ID}))

	// Well past SQLite's bound-parameter limit, with the real ids at the end.
	ids := make([]int64, 0, 40002)
	for i := int64(1_000_000); len(ids) < 40000; i++ {
		ids = append(ids, i)
	}
	ids = append(ids, a.ID, b.ID)

	people, err := repo.FindPeopleByIDs(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, people, 2)

	memberships, err := repo.MembershipsOf(ctx, ids)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, a.ID, memberships[0].PersonID)

	rels, err := repo.RelationshipsOf(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, rels, 1, "a relationship appears once even when both sides are listed")
}

func TestRepository_ListFamilies(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	b := saveFamily(t, repo, true, "Gómez", "Ruiz")
	a := saveFamily(t, repo, true, "Gómez", "Alba")
	c := saveFamily(t, repo, false, "Abreu")
	d := saveFamily(t, repo, true, "Gómez", "Alba")

	t.Run("active only ordered by surnames then id", func(t *testing.T) {
		families, err := repo.ListFamilies(ctx, false)
		require.NoError(t, err)
		require.Len(t, families, 3)
		assert.Equal(t, []int64{a.ID, d.ID, b.ID}, []int64{families[0].ID, families[1].ID, families[2].ID})
	})

	t.Run("include inactive", func(t *testing.T) {
		families, err := repo.ListFamilies(ctx, true)
		require.NoError(t, err)
		require.Len(t, families, 4)
		assert.Equal(t, c.ID, families[0].ID)
	})

	t.Run("deactivate", func(t *testing.T) {
		require.NoError(t, repo.SetFamilyActive(ctx, b.ID, false))
		found, err := repo.FindFamilyByID(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, found.IsActive)
	})
}

func TestRepository_Memberships(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	father := saveRole(t, repo, "father", 10)
	child := saveRole(t, repo, "child", 80)
	husband := saveRole(t, repo, "husband", 30)

	f1 := saveFamily(t, repo, true, "Pérez")
	f2 := saveFamily(t, repo, true, "Alba")

	p := savePerson(t, repo, "Juan", "Pérez")
	kidB := savePerson(t, repo, "Beto", "Pérez")
	kidA := savePerson(t, repo, "Ana", "Pérez")

	addMember(t, repo, f1, kidB, child)
	addMember(t, repo, f1, p, father)
	addMember(t, repo, f1, kidA, child)
	addMember(t, repo, f2, p, husband)

	t.Run("members ordered by role then name", func(t *testing.T) {
		members, err := repo.MembersOf(ctx, f1.ID)
		require.NoError(t, err)
		require.Len(t, members, 3)
		assert.Equal(t, p.ID, members[0].PersonID)
		assert.Equal(t, "father", members[0].Role.Code)
		assert.Equal(t, kidA.ID, members[1].PersonID)
		assert.Equal(t, kidB.ID, members[2].PersonID)
	})

	t.Run("memberships of person ordered by role", func(t *testing.T) {
		ms, err := repo.MembershipsOf(ctx, []int64{p.ID})
		require.NoError(t, err)
		require.Len(t, ms, 2)
		assert.Equal(t, f1.ID, ms[0].FamilyID)
		assert.Equal(t, f2.ID, ms[1].FamilyID)
		assert.Equal(t, "husband", ms[1].Role.Code)
	})
}

func TestRepository_Relationships(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	dating := &entities.RelationshipType{Code: "dating", Label: "Dating", IsActive: true}
	require.NoError(t, repo.SaveRelationshipType(ctx, dating))

	a := savePerson(t, repo, "A", "X")
	b := savePerson(t, repo, "B", "X")
	c := savePerson(t, repo, "C", "X")

	rel := &entities.PersonRelationship{PersonID: a.ID, PartnerID: b.ID, TypeID: dating.ID, StartedOn: mustDate(t, "2020-01-01")}
	require.NoError(t, repo.InsertRelationship(ctx, rel))

	t.Run("active lookup by canonical pair", func(t *testing.T) {
		found, err := repo.FindActiveRelationship(ctx, a.ID, b.ID, dating.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, rel.ID, found.ID)
	})

	t.Run("partial unique index rejects second active", func(t *testing.T) {
		dup := &entities.PersonRelationship{PersonID: a.ID, PartnerID: b.ID, TypeID: dating.ID}
		err := repo.InsertRelationship(ctx, dup)
		require.Error(t, err)
		assert.ErrorIs(t, err, ports.ErrUniqueViolation)
	})

	t.Run("check constraint rejects non canonical pair", func(t *testing.T) {
		bad := &entities.PersonRelationship{PersonID: c.ID, PartnerID: a.ID, TypeID: dating.ID}
		require.Error(t, repo.InsertRelationship(ctx, bad))
	})

	t.Run("visible from either side", func(t *testing.T) {
		fromA, err := repo.RelationshipsOf(ctx, []int64{a.ID})
		require.NoError(t, err)
		fromB, err := repo.RelationshipsOf(ctx, []int64{b.ID})
		require.NoError(t, err)
		require.Len(t, fromA, 1)
		require.Len(t, fromB, 1)
		assert.Equal(t, fromA[0].ID, fromB[0].ID)

		both, err := repo.RelationshipsOf(ctx, []int64{a.ID, b.ID})
		require.NoError(t, err)
		assert.Len(t, both, 1)
	})

	t.Run("end then insert again", func(t *testing.T) {
		require.NoError(t, repo.EndRelationship(ctx, rel.ID, *mustDate(t, "2021-01-01")))
		require.Error(t, repo.EndRelationship(ctx, rel.ID, *mustDate(t, "2021-02-01")))

		again := &entities.PersonRelationship{PersonID: a.ID, PartnerID: b.ID, TypeID: dating.ID}
		require.NoError(t, repo.InsertRelationship(ctx, again))

		found, err := repo.FindRelationshipByID(ctx, rel.ID)
		require.NoError(t, err)
		assert.Equal(t, "2021-01-01", found.EndedOn.Format(entities.DateLayout))
	})
}

func TestRepository_Marriages(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	h := savePerson(t, repo, "H", "X")
	w := savePerson(t, repo, "W", "Y")
	w2 := savePerson(t, repo, "W2", "Z")

	m := &entities.Marriage{HusbandID: h.ID, WifeID: w.ID, MarriedOn: *mustDate(t, "2000-05-05")}
	require.NoError(t, repo.InsertMarriage(ctx, m))

	t.Run("active for either side", func(t *testing.T) {
		for _, id := range []int64{h.ID, w.ID} {
			found, err := repo.FindActiveMarriageFor(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, m.ID, found.ID)
		}
		none, err := repo.FindActiveMarriageFor(ctx, w2.ID)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("husband slot unique while active", func(t *testing.T) {
		err := repo.InsertMarriage(ctx, &entities.Marriage{HusbandID: h.ID, WifeID: w2.ID, MarriedOn: *mustDate(t, "2001-01-01")})
		assert.ErrorIs(t, err, ports.ErrUniqueViolation)
	})

	t.Run("end and remarry", func(t *testing.T) {
		require.NoError(t, repo.EndMarriage(ctx, m.ID, *mustDate(t, "2010-01-01"), "divorce", "amicable"))
		require.NoError(t, repo.InsertMarriage(ctx, &entities.Marriage{HusbandID: h.ID, WifeID: w2.ID, MarriedOn: *mustDate(t, "2012-01-01")}))

		all, err := repo.MarriagesOf(ctx, h.ID)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, w2.ID, all[0].WifeID)
		assert.Equal(t, "divorce", all[1].EndReasonCode)
	})
}

func TestRepository_WithTxRollsBack(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	h := savePerson(t, repo, "H", "X")
	w := savePerson(t, repo, "W", "Y")

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.InsertMarriage(ctx, &entities.Marriage{HusbandID: h.ID, WifeID: w.ID, MarriedOn: *mustDate(t, "2000-01-01")}))
		found, err := tx.FindActiveMarriageFor(ctx, h.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		return boom
	})
	require.ErrorIs(t, err, boom)

	found, err := repo.FindActiveMarriageFor(ctx, h.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_Catalogs(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, item := range entities.DefaultReferenceItems {
		item := item
		item.IsActive = true
		require.NoError(t, repo.SaveReferenceItem(ctx, &item))
	}

	found, err := repo.FindReferenceItem(ctx, entities.ReferenceMarriageEndReason, "divorce")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Divorce", found.Label)

	// upsert keeps id
	updated := &entities.ReferenceItem{Category: entities.ReferenceMarriageEndReason, Code: "divorce", Label: "Divorced", IsActive: true}
	require.NoError(t, repo.SaveReferenceItem(ctx, updated))
	assert.Equal(t, found.ID, updated.ID)

	all, err := repo.ListReferenceItems(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(entities.DefaultReferenceItems))

	missing, err := repo.FindReferenceItem(ctx, "gender", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	role := &entities.FamilyRole{Code: "father", Name: "Father", IsActive: true}
	require.NoError(t, repo.SaveFamilyRole(ctx, role))
	byCode, err := repo.FindFamilyRoleByCode(ctx, "father")
	require.NoError(t, err)
	assert.Equal(t, role.ID, byCode.ID)

	roles, err := repo.ListFamilyRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)

	types, err := repo.ListRelationshipTypes(ctx)
	require.NoError(t, err)
	assert.Empty(t, types)
}
