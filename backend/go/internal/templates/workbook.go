package templates

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"slidecraft/backend/go/pkg/chart"
)

// LoadWorkbook reads datasets from an .xlsx file, one per sheet. The sheet
// name is the data source id and the first row holds the field names.
func LoadWorkbook(path string) (map[string]chart.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()
	return workbookDatasets(f)
}

// ReadWorkbook is LoadWorkbook for an uploaded file.
func ReadWorkbook(r io.Reader) (map[string]chart.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	defer f.Close()
	return workbookDatasets(f)
}

func workbookDatasets(f *excelize.File) (map[string]chart.Dataset, error) {
	out := make(map[string]chart.Dataset)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		if ds, ok := sheetDataset(rows); ok {
			out[strings.TrimSpace(sheet)] = ds
		}
	}
	return out, nil
}

// sheetDataset turns a header row plus body rows into a dataset. Cells are
// coerced the same way as inline chart rows; blank cells are left out.
func sheetDataset(rows [][]string) (chart.Dataset, bool) {
	if len(rows) == 0 {
		return chart.Dataset{}, false
	}
	header := make([]string, len(rows[0]))
	named := false
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
		named = named || header[i] != ""
	}
	if !named {
		return chart.Dataset{}, false
	}

	var ds chart.Dataset
	for _, cells := range rows[1:] {
		var row chart.Row
		for i, cell := range cells {
			if i >= len(header) || header[i] == "" || strings.TrimSpace(cell) == "" {
				continue
			}
			row.Set(header[i], chart.CoerceValue(cell))
		}
		if row.Len() > 0 {
			ds.Rows = append(ds.Rows, row)
		}
	}
	return ds, true
}
