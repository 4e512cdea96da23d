package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedJSON = `{
	"family_roles": [{"code": "father", "name": "Father", "display_order": 10}],
	"people": [
		{"key": "hugo", "first_name": "Hugo", "last_name": "Diaz", "date_of_birth": "1990-06-15",
		 "references": {"gender": "M"}}
	],
	"families": [
		{"key": "diaz", "last_names": ["Diaz"], "members": [{"person": "hugo", "role": "father", "primary": true}]}
	],
	"relationships": [{"person": "hugo", "partner": "ana", "type": "dating"}],
	"marriages": [{"husband": "hugo", "wife": "ana", "married_on": "2015-01-01"}]
}`

const seedYAML = `
family_roles:
  - code: father
    name: Father
    display_order: 10
people:
  - key: hugo
    first_name: Hugo
    last_name: Diaz
    date_of_birth: "1990-06-15"
    references:
      gender: M
families:
  - key: diaz
    last_names: [Diaz]
    members:
      - person: hugo
        role: father
        primary: true
relationships:
  - person: hugo
    partner: ana
    type: dating
marriages:
  - husband: hugo
    wife: ana
    married_on: "2015-01-01"
`

func TestParsers_EquivalentDocuments(t *testing.T) {
	tests := []struct {
		name   string
		parser Parser
		input  string
	}{
		{name: "json", parser: &JSONParser{}, input: seedJSON},
		{name: "yaml", parser: &YAMLParser{}, input: seedYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := tt.parser.Parse(strings.NewReader(tt.input))
			require.NoError(t, err)

			require.Len(t, doc.FamilyRoles, 1)
			assert.Equal(t, RawFamilyRole{Code: "father", Name: "Father", DisplayOrder: 10}, doc.FamilyRoles[0])

			require.Len(t, doc.People, 1)
			assert.Equal(t, "hugo", doc.People[0].Key)
			assert.Equal(t, "1990-06-15", doc.People[0].DateOfBirth)
			assert.Equal(t, map[string]string{"gender": "M"}, doc.People[0].References)

			require.Len(t, doc.Families, 1)
			assert.Equal(t, []string{"Diaz"}, doc.Families[0].LastNames)
			assert.Nil(t, doc.Families[0].Active)
			require.Len(t, doc.Families[0].Members, 1)
			assert.True(t, doc.Families[0].Members[0].Primary)

			require.Len(t, doc.Relationships, 1)
			assert.Equal(t, "dating", doc.Relationships[0].Type)
			require.Len(t, doc.Marriages, 1)
			assert.Equal(t, "2015-01-01", doc.Marriages[0].MarriedOn)
		})
	}
}

func TestParsers_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		parser Parser
		input  string
	}{
		{name: "json syntax", parser: &JSONParser{}, input: `{"people": [`},
		{name: "json unknown section", parser: &JSONParser{}, input: `{"persons": []}`},
		{name: "json array", parser: &JSONParser{}, input: `[]`},
		{name: "yaml syntax", parser: &YAMLParser{}, input: "people: [\n"},
		{name: "yaml unknown section", parser: &YAMLParser{}, input: "persons: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parser.Parse(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestYAMLParser_EmptyDocument(t *testing.T) {
	doc, err := (&YAMLParser{}).Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.People)
}

func TestCSVParser_Parse(t *testing.T) {
	input := "key,first_name,last_name,date_of_birth,is_deceased,ref:gender,ref:country\n" +
		"hugo,Hugo,Diaz,1990-06-15,false,M,AR\n" +
		"ana, Ana ,Diaz,,true,F,\n"

	doc, err := (&CSVParser{}).Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, doc.People, 2)

	hugo := doc.People[0]
	assert.Equal(t, "hugo", hugo.Key)
	assert.Equal(t, "1990-06-15", hugo.DateOfBirth)
	assert.Equal(t, map[string]string{"gender": "M", "country": "AR"}, hugo.References)
	assert.Equal(t, 2, hugo.LineNum)

	ana := doc.People[1]
	assert.Equal(t, "Ana", ana.FirstName)
	assert.True(t, ana.IsDeceased)
	assert.Equal(t, map[string]string{"gender": "F"}, ana.References)
	assert.Equal(t, 3, ana.LineNum)
}

func TestCSVParser_Parse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: "reading CSV header"},
		{name: "missing column", input: "key,first_name\nhugo,Hugo\n", want: "missing required column: last_name"},
		{name: "bad bool", input: "key,first_name,last_name,is_deceased\nhugo,Hugo,Diaz,maybe\n", want: "line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&CSVParser{}).Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestForFormat(t *testing.T) {
	assert.IsType(t, &JSONParser{}, ForFormat("JSON"))
	assert.IsType(t, &YAMLParser{}, ForFormat("yaml"))
	assert.IsType(t, &YAMLParser{}, ForFormat("yml"))
	assert.IsType(t, &CSVParser{}, ForFormat("csv"))
	assert.Nil(t, ForFormat("xml"))
}

func TestForFile(t *testing.T) {
	assert.IsType(t, &JSONParser{}, ForFile("seed.json"))
	assert.IsType(t, &YAMLParser{}, ForFile("data/seed.YAML"))
	assert.IsType(t, &CSVParser{}, ForFile("people.csv"))
	assert.Nil(t, ForFile("seed"))
	assert.Nil(t, ForFile("seed.txt"))
}
