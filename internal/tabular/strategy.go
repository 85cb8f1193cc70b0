package tabular

import (
	"fmt"
	"log"

	"quotedraft/internal/domain"
)

// ReadTable turns raw spreadsheet bytes into a table plus whatever totals
// evidence the document carries outside the item rows. Strategies run in a
// fixed order: byte-sniffed HTML goes straight to the HTML parser, anything
// else tries the workbook reader first and falls back to HTML when the
// workbook turns out to be mislabeled. The first strategy producing rows
// wins.
func ReadTable(data []byte) (domain.RawTable, domain.TotalsHints, error) {
	if LooksLikeHTML(data) {
		return readHTML(data)
	}

	rows, err := ReadWorkbook(data)
	if err == nil {
		return rows, domain.TotalsHints{}, nil
	}

	// Extension said workbook but the reader disagreed. Some exports lie
	// about their format twice over, so try HTML before giving up.
	log.Printf("tabular: workbook read failed, retrying as html: %v", err)
	rows, hints, herr := readHTML(data)
	if herr != nil {
		return nil, domain.TotalsHints{}, fmt.Errorf("tabular: unreadable table data: %w", err)
	}
	return rows, hints, nil
}

func readHTML(data []byte) (domain.RawTable, domain.TotalsHints, error) {
	doc, err := ParseHTML(data)
	if err != nil {
		return nil, domain.TotalsHints{}, err
	}
	return PickBestTable(doc), ScanTotals(doc), nil
}
