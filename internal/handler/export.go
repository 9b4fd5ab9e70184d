package handler

import (
	"log"
	"net/http"

	"github.com/tealeg/xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sheetWriter collects the rows of a single-sheet workbook.
type sheetWriter struct {
	file  *xlsx.File
	sheet *xlsx.Sheet
}

func newSheet(name string, headers ...string) (*sheetWriter, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(name)
	if err != nil {
		return nil, err
	}
	sw := &sheetWriter{file: file, sheet: sheet}
	sw.addRow(stringsToValues(headers)...)
	return sw, nil
}

func stringsToValues(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func (sw *sheetWriter) addRow(values ...interface{}) {
	row := sw.sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetValue(v)
	}
}

// send writes the workbook as a download named filename.
func (sw *sheetWriter) send(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Transfer-Encoding", "binary")
	w.Header().Set("Expires", "0")
	if err := sw.file.Write(w); err != nil {
		log.Printf("ERROR: write %s: %v", filename, err)
	}
}
