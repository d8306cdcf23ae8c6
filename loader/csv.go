package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

const csvPreviewRows = 20

// SummarizeCSV renders a CSV file as a readable summary (dimensions,
// column names, first rows) instead of dumping the whole table into the
// context window.
func SummarizeCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse CSV %s: %w", path, err)
	}
	if len(records) == 0 {
		return "CSV File Summary:\nRows: 0, Columns: 0\n", nil
	}

	header := records[0]
	rows := records[1:]

	var b strings.Builder
	b.WriteString("CSV File Summary:\n")
	fmt.Fprintf(&b, "Rows: %d, Columns: %d\n", len(rows), len(header))
	fmt.Fprintf(&b, "Column Names: %s\n\n", strings.Join(header, ", "))

	n := len(rows)
	if n > csvPreviewRows {
		n = csvPreviewRows
	}
	fmt.Fprintf(&b, "First %d rows:\n", n)
	b.WriteString(strings.Join(header, " | "))
	b.WriteString("\n")
	for _, row := range rows[:n] {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}
	return b.String(), nil
}
