package actors

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/design4music/sni-platform-sub004/internal/domain"
)

// LoadCSV reads the actor vocabulary from a CSV file with an entity_id
// column and one or more aliases_<lang> columns (aliases semicolon
// separated). aliases_en is ordered first so the primary English name
// leads each entity's list. Row order becomes load order.
func LoadCSV(path string, opts Options) ([]domain.Actor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open actor vocabulary: %w", err)
	}
	defer f.Close()

	rows, err := parseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse actor vocabulary %s: %w", path, err)
	}

	return buildActors(rows, opts), nil
}

func parseCSV(r io.Reader) ([]rawEntity, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idIdx := -1
	var aliasIdx []int
	enIdx := -1
	for i, name := range header {
		name = strings.TrimSpace(strings.ToLower(name))
		switch {
		case name == "entity_id":
			idIdx = i
		case name == "aliases_en":
			enIdx = i
		case strings.HasPrefix(name, "aliases_"):
			aliasIdx = append(aliasIdx, i)
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("missing entity_id column")
	}
	if enIdx >= 0 {
		aliasIdx = append([]int{enIdx}, aliasIdx...)
	}
	if len(aliasIdx) == 0 {
		return nil, fmt.Errorf("no aliases_ columns")
	}

	var rows []rawEntity
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if idIdx >= len(record) {
			continue
		}

		row := rawEntity{ID: record[idIdx]}
		for _, idx := range aliasIdx {
			if idx >= len(record) {
				continue
			}
			row.Columns = append(row.Columns, splitAliases(record[idx]))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func splitAliases(cell string) []string {
	parts := strings.Split(cell, ";")
	aliases := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			aliases = append(aliases, p)
		}
	}
	return aliases
}
