// Package report renders quiz score sheets as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
)

// Row is one member's line in the score sheet. Present means a
// response exists for the quiz, nothing more.
type Row struct {
	Name    string
	Score   int
	Present bool
}

// Render produces a single-page score sheet: a heading with the quiz
// title followed by a name/score/status table, one row per member.
func Render(quizTitle string, rows []Row) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Quiz Report: "+quizTitle, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(100, 8, "Member", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, "Score", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, "Status", "1", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		status := "Absent"
		if row.Present {
			status = "Present"
		}
		pdf.CellFormat(100, 8, row.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, strconv.Itoa(row.Score), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, status, "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
