package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkbook(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"상품명", "규격", "수량", "단가", "금액"},
		{"키보드", "기계식", "2", "10,000", "20,000"},
	})

	rows, err := ReadWorkbook(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "상품명", rows[0][0])
	assert.Equal(t, "키보드", rows[1][0])
	assert.Equal(t, "20,000", rows[1][4])
}

func TestReadWorkbook_NotAWorkbook(t *testing.T) {
	_, err := ReadWorkbook([]byte("이것은 엑셀이 아닙니다"))
	assert.Error(t, err)
}
