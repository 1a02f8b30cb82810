// Package contacts parses the network-export connections table and renders
// contacts for inference and for export.
package contacts

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/connections-cli/internal/model"
)

// promptFieldMax bounds each prompt field. Prompts deliberately carry only
// short identity fields, never bios or free text, to keep per-row token cost
// flat.
const promptFieldMax = 120

// ParseConnections parses the raw connections CSV text. Export files may
// carry preamble notes above the real header, so the first line containing
// the expected header tokens starts the table; everything before it is
// discarded. Rows whose field count does not match the header are skipped.
func ParseConnections(text string) ([]model.Contact, error) {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if strings.Contains(line, "First Name") && strings.Contains(line, "Last Name") {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, eris.New("contacts: no header row found in csv")
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines[start:], "\n")))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "contacts: read csv")
	}
	if len(records) == 0 {
		return nil, eris.New("contacts: csv has no rows")
	}

	header := records[0]
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[normalizeHeader(col)] = i
	}

	var parsed []model.Contact
	for _, row := range records[1:] {
		if len(row) != len(header) {
			continue
		}
		c := model.Contact{
			FirstName:    NormalizeName(getCol(row, colIdx, "first name")),
			LastName:     NormalizeName(getCol(row, colIdx, "last name")),
			ProfileURL:   getCol(row, colIdx, "url"),
			EmailAddress: getCol(row, colIdx, "email address"),
			Company:      getCol(row, colIdx, "company"),
			Position:     getCol(row, colIdx, "position"),
			ConnectedOn:  getCol(row, colIdx, "connected on"),
		}
		if c.FirstName == "" && c.LastName == "" {
			continue
		}
		parsed = append(parsed, c)
	}
	return parsed, nil
}

// Prompt renders the short, bounded inference prompt for one contact.
func Prompt(c model.Contact) string {
	name := c.FullName()
	if name == "" {
		name = "unknown"
	}
	return fmt.Sprintf("Name: %s | Company: %s | Position: %s",
		truncate(name, promptFieldMax),
		truncate(orUnknown(c.Company), promptFieldMax),
		truncate(orUnknown(c.Position), promptFieldMax),
	)
}

// MarshalCSV serializes contacts back to the export's column layout.
func MarshalCSV(list []model.Contact) ([]byte, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(connectionColumns); err != nil {
		return nil, eris.Wrap(err, "contacts: write header")
	}
	for _, c := range list {
		row := []string{c.FirstName, c.LastName, c.ProfileURL, c.EmailAddress, c.Company, c.Position, c.ConnectedOn}
		if err := w.Write(row); err != nil {
			return nil, eris.Wrap(err, "contacts: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "contacts: flush")
	}
	return []byte(sb.String()), nil
}

var connectionColumns = []string{"First Name", "Last Name", "URL", "Email Address", "Company", "Position", "Connected On"}

var titleCaser = cases.Title(language.English)

// NormalizeName title-cases names that arrive fully upper- or lower-cased;
// mixed-case input is left untouched.
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if s == strings.ToUpper(s) || s == strings.ToLower(s) {
		return titleCaser.String(strings.ToLower(s))
	}
	return s
}

func normalizeHeader(col string) string {
	return strings.ToLower(strings.TrimSpace(col))
}

// getCol safely retrieves a column value from a CSV row.
func getCol(row []string, colIdx map[string]int, col string) string {
	idx, ok := colIdx[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
