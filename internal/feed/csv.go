package feed

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/connstorm/connstorm/internal/model"
)

// ReadCSV parses CSV data into rows. The header line names the template
// variables; a "level" column is required. Empty cells are kept as empty
// string values.
func ReadCSV(r io.Reader) ([]model.DataRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	hasLevel := false
	for _, name := range header {
		if name == model.RequiredRowField {
			hasLevel = true
			break
		}
	}
	if !hasLevel {
		return nil, fmt.Errorf("csv header missing required %q column", model.RequiredRowField)
	}

	var rows []model.DataRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", len(rows)+2, err)
		}

		row := make(model.DataRow, len(header))
		for i, name := range header {
			row[name] = record[i]
		}
		rows = append(rows, row)
	}

	return rows, nil
}
