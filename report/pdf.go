package report

import (
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/luinbytes/dupesort/dupes"
)

// WritePDF writes set as a printable list: a blue "Hash:" line per group
// followed by its paths.
func WritePDF(w io.Writer, set *dupes.Set) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Duplicate files", true)
	pdf.SetCreator("dupesort", true)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 10)

	// Core fonts are cp1252; paths arrive as UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, g := range set.Groups() {
		pdf.SetTextColor(0, 0, 255)
		pdf.CellFormat(0, 10, "Hash: "+string(g.Fingerprint), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		for _, p := range g.Paths {
			pdf.MultiCell(0, 8, tr(p), "", "L", false)
		}
	}

	return pdf.Output(w)
}
