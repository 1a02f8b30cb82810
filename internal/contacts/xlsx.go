package contacts

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/connections-cli/internal/model"
)

// WriteXLSX writes enriched rows as a single-sheet workbook using the same
// column order as the CSV export.
func WriteXLSX(w io.Writer, rows []model.EnrichedRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Connections")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range enrichedColumns {
		header.AddCell().Value = col
	}

	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range enrichedRecord(r) {
			row.AddCell().Value = v
		}
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}
