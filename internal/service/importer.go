package service

import (
	"context"
	"encoding/csv"
	"io"
	"log"
	"strings"

	"github.com/cloo-solutions/parley/internal/domain"
)

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Inserted int
	Skipped  int
}

// ImportCSV loads question/answer pairs into a domain from CSV data with
// columns "question,answer". A header row is detected and skipped.
// Malformed or incomplete rows are counted and skipped; they never abort
// the import.
func (s *RecordService) ImportCSV(ctx context.Context, domainName string, r io.Reader) (*ImportResult, error) {
	if domainName == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "domain name is required")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // row width is validated per row

	result := &ImportResult{}
	first := true

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Skipped++
			continue
		}

		if first {
			first = false
			if isHeaderRow(row) {
				continue
			}
		}

		if len(row) < 2 {
			result.Skipped++
			continue
		}

		question := strings.TrimSpace(row[0])
		answer := strings.TrimSpace(row[1])
		if question == "" || answer == "" {
			result.Skipped++
			continue
		}

		if _, err := s.AddRecord(ctx, domainName, question, answer, true); err != nil {
			log.Printf("import: skipping row for domain %q: %v", domainName, err)
			result.Skipped++
			continue
		}
		result.Inserted++
	}

	return result, nil
}

func isHeaderRow(row []string) bool {
	return len(row) >= 2 &&
		strings.EqualFold(strings.TrimSpace(row[0]), "question") &&
		strings.EqualFold(strings.TrimSpace(row[1]), "answer")
}
