package contacts

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/connections-cli/internal/model"
)

// enrichedColumns defines the ordered export columns for enriched rows.
var enrichedColumns = []string{
	"First Name",
	"Last Name",
	"URL",
	"Email Address",
	"Company",
	"Position",
	"Connected On",
	"Enriched",
	"City",
	"Region",
	"Country",
	"Latitude",
	"Longitude",
	"Industry",
	"Headcount Range",
	"HQ Country",
	"Error",
}

// WriteCSV writes enriched rows as CSV with a fixed column order.
func WriteCSV(w io.Writer, rows []model.EnrichedRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(enrichedColumns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, r := range rows {
		if err := cw.Write(enrichedRecord(r)); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteJSON writes enriched rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []model.EnrichedRow) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(rows), "export: encode json")
}

// enrichedRecord flattens one enriched row into the export column order.
func enrichedRecord(r model.EnrichedRow) []string {
	var loc model.Location
	var stats model.CompanyStats
	if r.Enrichment != nil {
		if r.Enrichment.Loc != nil {
			loc = *r.Enrichment.Loc
		}
		if r.Enrichment.Stats != nil {
			stats = *r.Enrichment.Stats
		}
	}
	return []string{
		r.FirstName,
		r.LastName,
		r.ProfileURL,
		r.EmailAddress,
		r.Company,
		r.Position,
		r.ConnectedOn,
		strconv.FormatBool(r.Enriched),
		loc.City,
		loc.Region,
		loc.Country,
		floatStr(loc.Latitude),
		floatStr(loc.Longitude),
		stats.Industry,
		stats.HeadcountRange,
		stats.HQCountry,
		r.ErrorMessage,
	}
}

func floatStr(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
