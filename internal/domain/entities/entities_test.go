package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	tests := []struct {
		a, b   int64
		lo, hi int64
	}{
		{1, 2, 1, 2},
		{2, 1, 1, 2},
		{7, 7, 7, 7},
		{100, 3, 3, 100},
	}

	for _, tt := range tests {
		lo, hi := CanonicalPair(tt.a, tt.b)
		assert.Equal(t, tt.lo, lo)
		assert.Equal(t, tt.hi, hi)
		assert.LessOrEqual(t, lo, hi)
	}
}

func TestPersonRelationship_OtherParty(t *testing.T) {
	r := PersonRelationship{PersonID: 3, PartnerID: 9}

	assert.Equal(t, int64(9), r.OtherParty(3))
	assert.Equal(t, int64(3), r.OtherParty(9))
	assert.True(t, r.Involves(3))
	assert.True(t, r.Involves(9))
	assert.False(t, r.Involves(4))
	assert.True(t, r.IsActive())
}

func TestFamily_DisplayName(t *testing.T) {
	tests := []struct {
		name      string
		lastNames [MaxLastNames]string
		want      *string
		str       string
	}{
		{
			name:      "no surnames",
			lastNames: [MaxLastNames]string{},
			want:      nil,
			str:       "Family #5",
		},
		{
			name:      "skips empty components",
			lastNames: [MaxLastNames]string{"Pérez", "", " Gómez ", ""},
			want:      strPtr("Pérez Gómez"),
			str:       "Pérez Gómez",
		},
		{
			name:      "all four",
			lastNames: [MaxLastNames]string{"A", "B", "C", "D"},
			want:      strPtr("A B C D"),
			str:       "A B C D",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Family{ID: 5, LastNames: tt.lastNames}
			assert.Equal(t, tt.want, f.DisplayName())
			assert.Equal(t, tt.str, f.String())
		})
	}
}

func TestPerson_FullName(t *testing.T) {
	assert.Equal(t, "Ana Pérez", (&Person{FirstName: "Ana", SecondName: "María", LastName: "Pérez"}).FullName())
	assert.Equal(t, "Ana", (&Person{FirstName: "Ana"}).FullName())
	assert.Equal(t, "", (&Person{}).FullName())
}

func TestMarriage_Spouse(t *testing.T) {
	m := Marriage{HusbandID: 1, WifeID: 2}
	assert.Equal(t, int64(2), m.Spouse(1))
	assert.Equal(t, int64(1), m.Spouse(2))
	assert.True(t, m.IsActive())
}

func strPtr(s string) *string { return &s }
