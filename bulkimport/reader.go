/*
Package bulkimport validates and imports policy books from CSV files.

PURPOSE:
  Brokerages onboard existing policy books as CSV exports. This package
  parses the file, validates each row independently, and issues a
  policy per valid row. One bad row never aborts the batch; the report
  lists every failure with its row number and a human-readable message.

FILE FORMAT (header row required, columns in any order):
  policy_number, company_code, broker_code, customer_name,
  customer_email, customer_phone, policy_type, premium_amount,
  sum_assured, start_date, end_date

  Dates are ISO 8601 (YYYY-MM-DD). Amounts are plain decimals.

SEE ALSO:
  - importer.go: Per-row validation order and policy issuance
*/
package bulkimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Column names the header row must contain, one each.
var requiredColumns = []string{
	"policy_number",
	"company_code",
	"broker_code",
	"customer_name",
	"customer_email",
	"customer_phone",
	"policy_type",
	"premium_amount",
	"sum_assured",
	"start_date",
	"end_date",
}

// Row is one data row, keyed by column name, with its 1-based position
// among the data rows (the header is row 0 and never reported).
type Row struct {
	Num    int
	Fields map[string]string

	// Err records a CSV syntax error on this row. The importer reports
	// it as a row failure; surrounding rows still import.
	Err error
}

// Get returns a trimmed field value.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// ParseCSV reads the whole file. A malformed header or an unreadable
// file fails the parse; individual rows do not. A data row with a CSV
// syntax error comes back with Err set and reading continues at the
// next line.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: header row is required")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header missing columns: %s", strings.Join(missing, ", "))
	}

	// Column count can vary per row once we index by name.
	reader.FieldsPerRecord = -1

	var rows []Row
	num := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		num++
		if err != nil {
			rows = append(rows, Row{Num: num, Err: fmt.Errorf("malformed csv: %v", err)})
			continue
		}
		fields := make(map[string]string, len(requiredColumns))
		for _, col := range requiredColumns {
			i := index[col]
			if i < len(record) {
				fields[col] = record[i]
			}
		}
		rows = append(rows, Row{Num: num, Fields: fields})
	}
	return rows, nil
}
