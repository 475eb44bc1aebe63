// Package fixture loads the tabular test data that parameterises the
// home page checks. One row describes one (chapter, link) pair on the
// demo site.
package fixture

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const columnCount = 5

// ErrNoRows is returned by Load for a fixture with a header and nothing else.
var ErrNoRows = errors.New("fixture has no rows")

// Row is one parameterised scenario.
type Row struct {
	ChapterName         string
	LinkURL             string
	HomePageButtonName  string
	ExpectedLinkedTitle string
	IsFrame             bool
}

// Name identifies the row in test output.
func (r Row) Name() string {
	return r.ChapterName + "/" + r.HomePageButtonName
}

// Load reads the fixture file at path. A file without data rows is an
// error.
func Load(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoRows)
	}
	return rows, nil
}

// Parse reads rows from r. The first record is a header and is skipped;
// every other record is data, including one whose first field starts with
// '#'.
func Parse(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []Row
	header := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if header {
			header = false
			continue
		}

		line, _ := reader.FieldPos(0)
		row, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseRecord(record []string) (Row, error) {
	if len(record) < columnCount-1 {
		return Row{}, fmt.Errorf("expected %d columns, got %d", columnCount, len(record))
	}
	if len(record) > columnCount {
		return Row{}, fmt.Errorf("expected %d columns, got %d", columnCount, len(record))
	}

	row := Row{
		ChapterName:         strings.TrimSpace(record[0]),
		LinkURL:             strings.TrimSpace(record[1]),
		HomePageButtonName:  strings.TrimSpace(record[2]),
		ExpectedLinkedTitle: strings.TrimSpace(record[3]),
	}

	// isFrame may be omitted, in which case it is false
	if len(record) == columnCount {
		raw := strings.TrimSpace(record[4])
		if raw != "" {
			isFrame, err := strconv.ParseBool(raw)
			if err != nil {
				return Row{}, fmt.Errorf("isFrame: %w", err)
			}
			row.IsFrame = isFrame
		}
	}

	if row.HomePageButtonName == "" {
		return Row{}, errors.New("homePageButtonName is empty")
	}

	return row, nil
}

// Distinct keeps the first row for each home page button name, in fixture
// order.
func Distinct(rows []Row) []Row {
	seen := make(map[string]bool, len(rows))
	var out []Row
	for _, row := range rows {
		if seen[row.HomePageButtonName] {
			continue
		}
		seen[row.HomePageButtonName] = true
		out = append(out, row)
	}
	return out
}
