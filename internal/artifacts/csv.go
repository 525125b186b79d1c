package artifacts

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"flowscrape/internal/scrapers/flowagility"
)

// WriteCSV projects the newest consolidated roster onto the wide CSV
// schema. The roster is read generically, column by column: files from
// older runs may carry extra or missing keys and must still project,
// absent values become "".
func (s *Store) WriteCSV() (string, error) {
	var rows []map[string]any
	if err := s.readNewest(rosterPrefix, &rows); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s.csv", csvPrefix, s.stamp())
	f, err := os.Create(s.path(name))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	// BOM keeps the accented headers intact when spreadsheets import it
	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(flowagility.ParticipantColumns); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	record := make([]string, len(flowagility.ParticipantColumns))
	for _, row := range rows {
		for i, col := range flowagility.ParticipantColumns {
			record[i] = cellString(row[col])
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	slog.Info("csv written", "path", s.path(name), "rows", len(rows))
	return s.path(name), nil
}

// cellString renders one generic JSON value for the CSV, nil → "".
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
