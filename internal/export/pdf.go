/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"vna/internal/notation"
)

// Options controls PDF typesetting.
// Units are points (pt) unless otherwise noted.
// Built-in Helvetica keeps text vector without embedding; lyric text is
// pushed through gofpdf's cp1252 translator, so ISO 15919 marks outside
// Latin-1 degrade to their closest encodable form.
//
// Layout:
//   - Page origin is top-left.
//   - Each phrase becomes one grid row: swara tokens above sahitya tokens,
//     aligned per column, with vertical rules at beat boundaries.
//   - A row that would overflow the content width is scaled down to fit.
type Options struct {
	PageSize      string  // "a4" or "letter"
	MarginPt      float64 // outer margin on all sides
	RowHeightPt   float64 // vertical space reserved per phrase row
	TitleSizePt   float64
	BodySizePt    float64
	DrawBeatRules bool
	PageNumbers   bool
}

// DefaultOptions matches the "concert" layout preset.
func DefaultOptions() Options {
	return Options{
		PageSize:      "a4",
		MarginPt:      54,
		RowHeightPt:   48,
		TitleSizePt:   18,
		BodySizePt:    11,
		DrawBeatRules: true,
		PageNumbers:   true,
	}
}

// WritePDF typesets the document as a notation sheet at outPath.
func WritePDF(doc *notation.Document, outPath string, opt Options) error {
	if doc == nil {
		return fmt.Errorf("document is nil")
	}
	def := DefaultOptions()
	if opt.PageSize == "" {
		opt.PageSize = def.PageSize
	}
	if opt.MarginPt <= 0 {
		opt.MarginPt = def.MarginPt
	}
	if opt.RowHeightPt <= 0 {
		opt.RowHeightPt = def.RowHeightPt
	}
	if opt.TitleSizePt <= 0 {
		opt.TitleSizePt = def.TitleSizePt
	}
	if opt.BodySizePt <= 0 {
		opt.BodySizePt = def.BodySizePt
	}

	sizeStr, err := pageSizeName(opt.PageSize)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "pt", sizeStr, "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(doc.Metadata.Title), false)
	pdf.SetAuthor(tr(doc.Metadata.Composer), false)
	pdf.AliasNbPages("")
	if opt.PageNumbers {
		pdf.SetFooterFunc(func() {
			pdf.SetY(-opt.MarginPt + 12)
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(120, 120, 120)
			pdf.CellFormat(0, 12, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
		})
	}
	pdf.SetAutoPageBreak(false, opt.MarginPt)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	contentW := pageW - 2*opt.MarginPt
	bottom := pageH - opt.MarginPt - 18 // footer clearance

	y := opt.MarginPt
	ensureRoom := func(need float64) {
		if y+need > bottom {
			pdf.AddPage()
			y = opt.MarginPt
		}
	}

	y = writeHeader(pdf, tr, doc, opt, contentW, y)

	for si := range doc.Sections {
		sec := &doc.Sections[si]
		ensureRoom(opt.RowHeightPt + 20)
		y += 16
		pdf.SetFont("Helvetica", "B", opt.BodySizePt+2)
		pdf.Text(opt.MarginPt, y, tr(sec.Name))
		if label := sectionOverrideLabel(sec); label != "" {
			pdf.SetFont("Helvetica", "I", opt.BodySizePt-2)
			pdf.SetTextColor(120, 120, 120)
			pdf.Text(opt.MarginPt+pdf.GetStringWidth(tr(sec.Name))+12, y, tr(label))
			pdf.SetTextColor(0, 0, 0)
		}
		y += 10

		for pi := range sec.Phrases {
			ensureRoom(opt.RowHeightPt)
			y = writePhraseRow(pdf, tr, &sec.Phrases[pi], opt, contentW, y)
		}
	}

	if !filepath.IsAbs(outPath) {
		if abs, err := filepath.Abs(outPath); err == nil {
			outPath = abs
		}
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// writeHeader draws the title block and returns the new cursor.
func writeHeader(pdf *gofpdf.Fpdf, tr func(string) string, doc *notation.Document, opt Options, contentW, y float64) float64 {
	md := doc.Metadata
	y += opt.TitleSizePt
	pdf.SetFont("Helvetica", "B", opt.TitleSizePt)
	pdf.Text(opt.MarginPt, y, tr(md.Title))

	meta := make([]string, 0, 4)
	meta = append(meta, "Raga: "+md.Raga)
	tala := md.Tala
	if name, ok := notation.TalaName(md.Tala); ok {
		tala = fmt.Sprintf("%s (%s)", name, md.Tala)
	}
	meta = append(meta, "Tala: "+tala)
	if md.Composer != "" {
		meta = append(meta, "Composer: "+md.Composer)
	}
	if md.Tempo != nil {
		meta = append(meta, fmt.Sprintf("Tempo: %d", *md.Tempo))
	}
	if md.Gati != nil {
		meta = append(meta, fmt.Sprintf("Gati: %d", *md.Gati))
	}
	pdf.SetFont("Helvetica", "", opt.BodySizePt)
	y += opt.BodySizePt + 8
	pdf.Text(opt.MarginPt, y, tr(strings.Join(meta, "    ")))

	if md.Arohanam != "" || md.Avarohanam != "" {
		pdf.SetFont("Helvetica", "I", opt.BodySizePt-1)
		if md.Arohanam != "" {
			y += opt.BodySizePt + 4
			pdf.Text(opt.MarginPt, y, tr("Arohanam: "+md.Arohanam))
		}
		if md.Avarohanam != "" {
			y += opt.BodySizePt + 4
			pdf.Text(opt.MarginPt, y, tr("Avarohanam: "+md.Avarohanam))
		}
	}

	// rule under the header
	y += 10
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.8)
	pdf.Line(opt.MarginPt, y, opt.MarginPt+contentW, y)
	return y
}

// writePhraseRow lays one phrase onto a two-line grid and returns the new
// cursor. Columns are sized to the wider of the swara/sahitya token.
func writePhraseRow(pdf *gofpdf.Fpdf, tr func(string) string, ph *notation.Phrase, opt Options, contentW, y float64) float64 {
	const colPad = 10.0
	const beatPad = 8.0

	size := opt.BodySizePt
	pdf.SetFont("Helvetica", "", size)

	widths := make([]float64, len(ph.Swaras))
	total := 0.0
	for i, sw := range ph.Swaras {
		w := pdf.GetStringWidth(tr(sw))
		if i < len(ph.Sahitya) {
			if lw := pdf.GetStringWidth(tr(ph.Sahitya[i])); lw > w {
				w = lw
			}
		}
		widths[i] = w + colPad
		total += widths[i]
	}
	total += float64(len(ph.BeatPositions)) * 2 * beatPad

	// Scale the row down when it would overflow the content width.
	if total > contentW && total > 0 {
		factor := contentW / total
		size *= factor
		if size < 6 {
			size = 6
		}
		pdf.SetFont("Helvetica", "", size)
		for i, sw := range ph.Swaras {
			w := pdf.GetStringWidth(tr(sw))
			if i < len(ph.Sahitya) {
				if lw := pdf.GetStringWidth(tr(ph.Sahitya[i])); lw > w {
					w = lw
				}
			}
			widths[i] = w + colPad*factor
		}
	}

	swaraY := y + size + 6
	sahityaY := swaraY + size + 6
	rowBottom := sahityaY + 4

	x := opt.MarginPt
	beatIdx := 0
	rules := make([]float64, 0, len(ph.BeatPositions))
	for i := range ph.Swaras {
		for beatIdx < len(ph.BeatPositions) && ph.BeatPositions[beatIdx] == i {
			x += beatPad
			rules = append(rules, x)
			x += beatPad
			beatIdx++
		}
		pdf.Text(x, swaraY, tr(ph.Swaras[i]))
		if i < len(ph.Sahitya) {
			pdf.Text(x, sahityaY, tr(ph.Sahitya[i]))
		}
		x += widths[i]
	}

	if opt.DrawBeatRules {
		pdf.SetDrawColor(150, 150, 150)
		pdf.SetLineWidth(0.4)
		for _, rx := range rules {
			pdf.Line(rx, y+4, rx, rowBottom)
		}
		pdf.SetDrawColor(0, 0, 0)
	}

	if ph.PhraseAnalysis != "" {
		pdf.SetFont("Courier", "", size-2)
		pdf.SetTextColor(120, 120, 120)
		pdf.Text(opt.MarginPt, rowBottom+size-2, tr(ph.PhraseAnalysis))
		pdf.SetTextColor(0, 0, 0)
		rowBottom += size + 2
	}

	next := y + opt.RowHeightPt
	if rowBottom+6 > next {
		next = rowBottom + 6
	}
	return next
}

func sectionOverrideLabel(sec *notation.Section) string {
	parts := make([]string, 0, 2)
	if sec.Gati != nil {
		parts = append(parts, fmt.Sprintf("gati %d", *sec.Gati))
	}
	if sec.Tala != "" {
		tala := sec.Tala
		if name, ok := notation.TalaName(sec.Tala); ok {
			tala = name
		}
		parts = append(parts, "tala "+tala)
	}
	return strings.Join(parts, ", ")
}

func pageSizeName(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a4":
		return "A4", nil
	case "letter":
		return "Letter", nil
	default:
		return "", fmt.Errorf("unknown page size %q: expected a4 or letter", s)
	}
}
