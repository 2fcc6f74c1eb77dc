package pdfsvc

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/report"
)

const (
	font       = "Helvetica"
	lineHeight = 6.0
	margin     = 15.0
	bottom     = margin + 5
	dateLayout = "January 2, 2006"
)

var (
	shade  = [3]int{235, 240, 248}
	zebra  = [3]int{245, 245, 245}
	accent = [3]int{40, 70, 120}
)

// Renderer draws evaluation reports as A4 PDF documents.
type Renderer struct {
	appName string
	now     func() time.Time
}

var _ report.Renderer = (*Renderer)(nil)

func NewRenderer(appName string) *Renderer {
	return &Renderer{appName: appName, now: time.Now}
}

// document wraps a gofpdf document with the helpers shared by both reports.
type document struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (r *Renderer) newDocument(title string) *document {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, bottom)
	pdf.SetTitle(title, true)
	pdf.SetAuthor(r.appName, true)
	pdf.SetCreationDate(r.now())
	pdf.AliasNbPages("")

	doc := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	generated := "Report Generated: " + r.now().Format(dateLayout)

	pdf.SetHeaderFuncMode(func() {
		pdf.SetFont(font, "B", 14)
		pdf.SetTextColor(accent[0], accent[1], accent[2])
		pdf.CellFormat(0, 8, doc.tr(title), "", 1, "C", false, 0, "")
		pdf.SetFont(font, "", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 5, generated, "B", 1, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	}, true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin)
		pdf.SetFont(font, "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return doc
}

func (d *document) heading(text string, size float64) {
	d.pdf.SetFont(font, "B", size)
	d.pdf.MultiCell(0, lineHeight+1, d.tr(text), "", "L", false)
	d.pdf.Ln(1)
}

func (d *document) subject(s report.SubjectSummary) {
	pdf := d.pdf
	d.heading(fmt.Sprintf("Subject: %s (%s)", s.SubjectName, s.SubjectCode), 12)

	// summary box
	pdf.SetFillColor(shade[0], shade[1], shade[2])
	pdf.SetFont(font, "B", 10)
	pdf.CellFormat(0, lineHeight+1, fmt.Sprintf("Overall Average: %.2f / 5.00", s.OverallAverage), "LTR", 1, "L", true, 0, "")
	pdf.SetFont(font, "", 10)
	pdf.CellFormat(0, lineHeight+1, fmt.Sprintf("Total Respondents: %d", s.TotalEvaluations), "LBR", 1, "L", true, 0, "")
	pdf.Ln(4)

	if len(s.Comments) > 0 {
		d.heading("Feedback Comments", 11)
		pdf.SetFont(font, "", 10)
		for _, c := range s.Comments {
			pdf.SetX(margin + 3)
			pdf.MultiCell(0, lineHeight, d.tr("- "+c), "", "L", false)
		}
		pdf.Ln(3)
	}

	d.heading("Detailed Ratings", 11)
	for _, cat := range s.DetailedResults {
		d.category(cat)
	}
}

func (d *document) category(cat report.CategoryResult) {
	pdf := d.pdf
	pageW, pageH := pdf.GetPageSize()
	width := pageW - 2*margin
	ratingW := 30.0
	questionW := width - ratingW

	pdf.SetFont(font, "B", 10)
	pdf.CellFormat(0, lineHeight, d.tr(cat.CategoryName), "", 1, "L", false, 0, "")

	tableHeader := func() {
		pdf.SetFont(font, "B", 9)
		pdf.SetFillColor(accent[0], accent[1], accent[2])
		pdf.SetTextColor(255, 255, 255)
		pdf.CellFormat(questionW, lineHeight, "Question", "1", 0, "L", true, 0, "")
		pdf.CellFormat(ratingW, lineHeight, "Rating", "1", 1, "C", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont(font, "", 9)
	}
	tableHeader()

	for i, q := range cat.Questions {
		text := d.tr(q.QuestionText)
		lines := pdf.SplitLines([]byte(text), questionW-2)
		h := float64(len(lines)) * lineHeight
		if h == 0 {
			h = lineHeight
		}
		if pdf.GetY()+h > pageH-bottom {
			pdf.AddPage()
			tableHeader()
		}

		x, y := pdf.GetXY()
		if i%2 == 1 {
			pdf.SetFillColor(zebra[0], zebra[1], zebra[2])
			pdf.Rect(x, y, width, h, "F")
		}
		pdf.MultiCell(questionW, lineHeight, text, "LR", "L", false)
		pdf.SetXY(x+questionW, y)
		pdf.CellFormat(ratingW, h, fmt.Sprintf("%.2f", q.AverageRating), "R", 0, "C", false, 0, "")
		pdf.SetXY(x, y+h)
	}
	pdf.CellFormat(width, 0, "", "T", 1, "", false, 0, "")
	pdf.Ln(4)
}

func (d *document) output(w io.Writer) error {
	if err := d.pdf.Output(w); err != nil {
		return errors.Wrap(err, "writing pdf")
	}
	return nil
}

// RenderFaculty writes one page per subject of a faculty member.
func (r *Renderer) RenderFaculty(w io.Writer, facultyName string, subjects []report.SubjectSummary) error {
	doc := r.newDocument("Faculty Evaluation Report")
	for _, s := range subjects {
		doc.pdf.AddPage()
		doc.heading("Faculty Member: "+facultyName, 13)
		doc.pdf.Ln(2)
		doc.subject(s)
	}
	if len(subjects) == 0 {
		doc.pdf.AddPage()
		doc.heading("Faculty Member: "+facultyName, 13)
	}
	return doc.output(w)
}

// RenderConsolidated writes every faculty member, each starting on a new page.
func (r *Renderer) RenderConsolidated(w io.Writer, faculties []report.FacultySummary) error {
	doc := r.newDocument("Consolidated Faculty Evaluation Report")
	for _, f := range faculties {
		doc.pdf.AddPage()
		doc.heading("Faculty: "+f.FacultyName, 13)
		doc.pdf.Ln(2)
		for i, s := range f.Subjects {
			if i > 0 {
				doc.pdf.Ln(4)
			}
			doc.subject(s)
		}
	}
	if len(faculties) == 0 {
		doc.pdf.AddPage()
	}
	return doc.output(w)
}
