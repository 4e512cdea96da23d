package services

import (
	"context"
	"testing"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/mocks"
	"github.com/ersonp/lineage/internal/domain/ports"
	lerrors "github.com/ersonp/lineage/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMarriageService(t *testing.T) (*MarriageService, *mocks.RelationalDB) {
	t.Helper()
	db := mocks.NewRelationalDB()
	db.AddReference(entities.ReferenceMarriageEndReason, "divorce", "Divorce")
	svc := NewMarriageService(db, nil)
	svc.now = fixedClock(t, "2024-06-15")
	return svc, db
}

func TestMarriageService_Create(t *testing.T) {
	svc, db := setupMarriageService(t)
	h := db.AddPerson("Hugo", "Diaz")
	w := db.AddPerson("Wanda", "Ruiz")

	m, err := svc.Create(context.Background(), CreateMarriageInput{
		HusbandID: h.ID,
		WifeID:    w.ID,
		MarriedOn: date(t, "2010-05-01"),
	})
	require.NoError(t, err)
	assert.True(t, m.IsActive())
	assert.Equal(t, w.ID, m.Spouse(h.ID))
	assert.Len(t, db.Marriages, 1)
}

func TestMarriageService_Create_PerSideSlots(t *testing.T) {
	svc, db := setupMarriageService(t)
	ctx := context.Background()
	h := db.AddPerson("Hugo", "Diaz")
	w := db.AddPerson("Wanda", "Ruiz")
	h2 := db.AddPerson("Hector", "Paz")
	w2 := db.AddPerson("Wilma", "Sol")

	_, err := svc.Create(ctx, CreateMarriageInput{HusbandID: h.ID, WifeID: w.ID, MarriedOn: date(t, "2010-05-01")})
	require.NoError(t, err)

	tests := []struct {
		name           string
		husband, wife  int64
		conflictPerson int64
	}{
		{name: "husband already married", husband: h.ID, wife: w2.ID, conflictPerson: h.ID},
		{name: "wife already married", husband: h2.ID, wife: w.ID, conflictPerson: w.ID},
		{name: "wife active as husband elsewhere", husband: h2.ID, wife: h.ID, conflictPerson: h.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, CreateMarriageInput{HusbandID: tt.husband, WifeID: tt.wife, MarriedOn: date(t, "2015-01-01")})
			require.Error(t, err)
			assert.True(t, lerrors.HasCode(err, lerrors.CodeMarriageConflictActive))
			assert.Equal(t, tt.conflictPerson, lerrors.FieldsOf(err)["person_id"])
		})
	}

	_, err = svc.Create(ctx, CreateMarriageInput{HusbandID: h2.ID, WifeID: w2.ID, MarriedOn: date(t, "2015-01-01")})
	require.NoError(t, err)
	assert.Len(t, db.Marriages, 2)
}

func TestMarriageService_Create_LostRaceNamesTakenSide(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		wifeSide bool
	}{
		{name: "wife slot taken", wifeSide: true},
		{name: "husband slot taken", wifeSide: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := setupMarriageService(t)
			h := db.AddPerson("Hugo", "Diaz")
			w := db.AddPerson("Wanda", "Ruiz")
			other := db.AddPerson("Otto", "Vega")

			// The competing marriage commits after this insert fails and
			// its transaction rolls back.
			db.FailOn["InsertMarriage"] = ports.ErrUniqueViolation
			db.Hooks["MarriagesOf"] = func() {
				if len(db.Marriages) > 0 {
					return
				}
				rival := &entities.Marriage{ID: 900, HusbandID: other.ID, WifeID: w.ID, MarriedOn: mustDate("2014-02-02")}
				if !tt.wifeSide {
					rival.HusbandID, rival.WifeID = h.ID, other.ID
				}
				db.Marriages[rival.ID] = rival
			}

			_, err := svc.Create(ctx, CreateMarriageInput{HusbandID: h.ID, WifeID: w.ID, MarriedOn: date(t, "2015-01-01")})
			require.Error(t, err)
			assert.True(t, lerrors.HasCode(err, lerrors.CodeMarriageConflictActive))

			want := h.ID
			if tt.wifeSide {
				want = w.ID
			}
			fields := lerrors.FieldsOf(err)
			assert.Equal(t, want, fields["person_id"])
			assert.Equal(t, int64(900), fields["marriage_id"])
		})
	}
}

func TestMarriageService_Create_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input func(h, w int64) CreateMarriageInput
	}{
		{
			name: "same person",
			input: func(h, _ int64) CreateMarriageInput {
				return CreateMarriageInput{HusbandID: h, WifeID: h, MarriedOn: mustDate("2010-01-01")}
			},
		},
		{
			name: "future date",
			input: func(h, w int64) CreateMarriageInput {
				return CreateMarriageInput{HusbandID: h, WifeID: w, MarriedOn: mustDate("2024-06-16")}
			},
		},
		{
			name: "missing married_on",
			input: func(h, w int64) CreateMarriageInput {
				return CreateMarriageInput{HusbandID: h, WifeID: w}
			},
		},
		{
			name: "ended before married",
			input: func(h, w int64) CreateMarriageInput {
				ended := mustDate("2009-12-31")
				return CreateMarriageInput{HusbandID: h, WifeID: w, MarriedOn: mustDate("2010-01-01"), EndedOn: &ended}
			},
		},
		{
			name: "reason without end",
			input: func(h, w int64) CreateMarriageInput {
				return CreateMarriageInput{HusbandID: h, WifeID: w, MarriedOn: mustDate("2010-01-01"), EndReason: "divorce"}
			},
		},
		{
			name: "unknown reason",
			input: func(h, w int64) CreateMarriageInput {
				ended := mustDate("2012-01-01")
				return CreateMarriageInput{HusbandID: h, WifeID: w, MarriedOn: mustDate("2010-01-01"), EndedOn: &ended, EndReason: "boredom"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := setupMarriageService(t)
			h := db.AddPerson("Hugo", "Diaz")
			w := db.AddPerson("Wanda", "Ruiz")

			_, err := svc.Create(context.Background(), tt.input(h.ID, w.ID))
			require.Error(t, err)
			assert.True(t, lerrors.IsInvalidInput(err), "unexpected error: %v", err)
			assert.Empty(t, db.Marriages)
		})
	}
}

func TestMarriageService_Create_Historical(t *testing.T) {
	svc, db := setupMarriageService(t)
	ctx := context.Background()
	h := db.AddPerson("Hugo", "Diaz")
	w := db.AddPerson("Wanda", "Ruiz")
	w2 := db.AddPerson("Wilma", "Sol")

	_, err := svc.Create(ctx, CreateMarriageInput{HusbandID: h.ID, WifeID: w2.ID, MarriedOn: date(t, "2012-01-01")})
	require.NoError(t, err)

	ended := date(t, "2011-01-01")
	m, err := svc.Create(ctx, CreateMarriageInput{
		HusbandID: h.ID,
		WifeID:    w.ID,
		MarriedOn: date(t, "2000-01-01"),
		EndedOn:   &ended,
		EndReason: "divorce",
	})
	require.NoError(t, err)
	assert.False(t, m.IsActive())
	assert.Equal(t, "divorce", m.EndReasonCode)
}

func TestMarriageService_End(t *testing.T) {
	svc, db := setupMarriageService(t)
	ctx := context.Background()
	h := db.AddPerson("Hugo", "Diaz")
	w := db.AddPerson("Wanda", "Ruiz")

	m, err := svc.Create(ctx, CreateMarriageInput{HusbandID: h.ID, WifeID: w.ID, MarriedOn: date(t, "2010-05-01"), Notes: "civil"})
	require.NoError(t, err)

	t.Run("ended before married leaves record unmodified", func(t *testing.T) {
		before := *db.Marriages[m.ID]
		_, err := svc.End(ctx, EndMarriageInput{ID: m.ID, EndedOn: date(t, "2010-04-30"), EndReason: "divorce"})
		require.Error(t, err)
		assert.True(t, lerrors.IsInvalidInput(err))
		assert.Equal(t, before, *db.Marriages[m.ID])
	})

	t.Run("unknown reason", func(t *testing.T) {
		_, err := svc.End(ctx, EndMarriageInput{ID: m.ID, EndedOn: date(t, "2020-01-01"), EndReason: "boredom"})
		require.Error(t, err)
		assert.True(t, lerrors.HasCode(err, lerrors.CodeMarriageEndInvalid))
		assert.True(t, db.Marriages[m.ID].IsActive())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.End(ctx, EndMarriageInput{ID: 999, EndedOn: date(t, "2020-01-01")})
		require.Error(t, err)
		assert.True(t, lerrors.HasCode(err, lerrors.CodeMarriageNotFound))
	})

	t.Run("ends and keeps notes", func(t *testing.T) {
		ended, err := svc.End(ctx, EndMarriageInput{ID: m.ID, EndedOn: date(t, "2020-01-01"), EndReason: "divorce"})
		require.NoError(t, err)
		assert.False(t, ended.IsActive())
		assert.Equal(t, "civil", db.Marriages[m.ID].Notes)
		assert.Equal(t, "divorce", db.Marriages[m.ID].EndReasonCode)
	})

	t.Run("already ended", func(t *testing.T) {
		_, err := svc.End(ctx, EndMarriageInput{ID: m.ID, EndedOn: date(t, "2021-01-01")})
		require.Error(t, err)
		assert.True(t, lerrors.IsInvalidInput(err))
	})

	t.Run("remarriage after end", func(t *testing.T) {
		w2 := db.AddPerson("Wilma", "Sol")
		_, err := svc.Create(ctx, CreateMarriageInput{HusbandID: h.ID, WifeID: w2.ID, MarriedOn: date(t, "2022-01-01")})
		require.NoError(t, err)
	})
}

func TestMarriageService_CurrentSpouse(t *testing.T) {
	svc, db := setupMarriageService(t)
	ctx := context.Background()
	h := db.AddPerson("Hugo", "Diaz")
	w := db.AddPerson("Wanda", "Ruiz")
	single := db.AddPerson("Sam", "Solo")

	_, err := svc.Create(ctx, CreateMarriageInput{HusbandID: h.ID, WifeID: w.ID, MarriedOn: date(t, "2010-05-01")})
	require.NoError(t, err)

	spouse, m, err := svc.CurrentSpouse(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, spouse)
	assert.Equal(t, h.ID, spouse.ID)
	assert.NotNil(t, m)

	spouse, m, err = svc.CurrentSpouse(ctx, single.ID)
	require.NoError(t, err)
	assert.Nil(t, spouse)
	assert.Nil(t, m)
}
