package tabular

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"quotedraft/internal/domain"
)

// ReadWorkbook opens a real spreadsheet (xlsx or the zip-based formats
// excelize understands) and returns the first sheet as a raw table.
func ReadWorkbook(data []byte) (domain.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("tabular: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("tabular: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("tabular: read sheet %q: %w", sheets[0], err)
	}
	return domain.RawTable(rows), nil
}
