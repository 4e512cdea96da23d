package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// referenceColumnPrefix marks columns holding reference codes, for example
// "ref:gender".
const referenceColumnPrefix = "ref:"

// CSVParser parses a people-only seed document from CSV.
type CSVParser struct{}

// Parse reads CSV from the reader and returns a document with one person
// per row. Expected columns: key, first_name, last_name and optionally
// second_name, second_last_name, nickname, identity, email, cellphone,
// date_of_birth, is_deceased, date_of_death and ref:<category>.
func (p *CSVParser) Parse(r io.Reader) (*SeedDocument, error) {
	reader := csv.NewReader(r)

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	people, err := p.readRecords(reader, colIndex)
	if err != nil {
		return nil, err
	}
	return &SeedDocument{People: people}, nil
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.TrimSpace(col)] = i
	}

	requiredCols := []string{"key", "first_name", "last_name"}
	for _, col := range requiredCols {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	return colIndex, nil
}

// readRecords reads all data rows and converts them to RawPersons.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]RawPerson, error) {
	var people []RawPerson
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		person, err := p.parseRecord(record, colIndex, lineNum)
		if err != nil {
			return nil, err
		}
		people = append(people, person)
	}

	return people, nil
}

// parseRecord converts a CSV record to a RawPerson.
func (p *CSVParser) parseRecord(record []string, colIndex map[string]int, lineNum int) (RawPerson, error) {
	person := RawPerson{
		Key:            getColumn(record, colIndex, "key"),
		FirstName:      getColumn(record, colIndex, "first_name"),
		SecondName:     getColumn(record, colIndex, "second_name"),
		LastName:       getColumn(record, colIndex, "last_name"),
		SecondLastName: getColumn(record, colIndex, "second_last_name"),
		Nickname:       getColumn(record, colIndex, "nickname"),
		Identity:       getColumn(record, colIndex, "identity"),
		Email:          getColumn(record, colIndex, "email"),
		Cellphone:      getColumn(record, colIndex, "cellphone"),
		DateOfBirth:    getColumn(record, colIndex, "date_of_birth"),
		DateOfDeath:    getColumn(record, colIndex, "date_of_death"),
		LineNum:        lineNum,
	}

	deceased := getColumn(record, colIndex, "is_deceased")
	if deceased != "" {
		v, err := strconv.ParseBool(deceased)
		if err != nil {
			return RawPerson{}, fmt.Errorf("line %d: invalid is_deceased value %q: %w", lineNum, deceased, err)
		}
		person.IsDeceased = v
	}

	for col := range colIndex {
		category, ok := strings.CutPrefix(col, referenceColumnPrefix)
		if !ok || category == "" {
			continue
		}
		if code := getColumn(record, colIndex, col); code != "" {
			if person.References == nil {
				person.References = make(map[string]string)
			}
			person.References[category] = code
		}
	}

	return person, nil
}

// getColumn safely retrieves a trimmed column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}
