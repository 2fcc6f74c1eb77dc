package report

import (
	"context"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
)

const (
	modeFaculty = "faculty"
	modeAdmin   = "admin"

	consolidatedFilename = "evaluation_report.pdf"
)

var (
	ErrNoData = errors.New("no evaluation data found for this report")

	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)
)

type (
	// RowSource returns evaluation rows already ordered for aggregation.
	RowSource interface {
		// FacultyRows orders by subject name, category display order, then question display order.
		FacultyRows(ctx context.Context, facultyID string) ([]Row, error)
		// AllRows orders by faculty name first, then like FacultyRows.
		AllRows(ctx context.Context) ([]Row, error)
	}

	Renderer interface {
		RenderFaculty(w io.Writer, facultyName string, subjects []SubjectSummary) error
		RenderConsolidated(w io.Writer, faculties []FacultySummary) error
	}

	Service interface {
		FacultyResults(ctx context.Context, facultyID string) ([]SubjectSummary, error)
		AdminResults(ctx context.Context) ([]FacultySummary, error)
		FacultyPDF(ctx context.Context, facultyID string, w io.Writer) (string, error)
		ConsolidatedPDF(ctx context.Context, w io.Writer) (string, error)
	}

	service struct {
		rows     RowSource
		renderer Renderer
		metrics  core.Metrics
	}
)

var _ Service = (*service)(nil)

func NewService(rows RowSource, renderer Renderer, metrics core.Metrics) Service {
	return &service{rows: rows, renderer: renderer, metrics: metrics}
}

func (svc *service) facultySummaries(ctx context.Context, facultyID string) ([]SubjectSummary, string, error) {
	rows, err := svc.rows.FacultyRows(ctx, facultyID)
	if err != nil {
		return nil, "", errors.Wrap(err, "querying faculty rows")
	}

	start := time.Now()
	subjects, err := AggregateSubjects(rows)
	if err != nil {
		return nil, "", errors.Wrap(err, "aggregating faculty rows")
	}
	svc.metrics.ObserveAggregation(modeFaculty, len(rows), time.Since(start))

	var name string
	if len(rows) > 0 {
		name = rows[0].FacultyName
	}
	return subjects, name, nil
}

func (svc *service) FacultyResults(ctx context.Context, facultyID string) ([]SubjectSummary, error) {
	subjects, _, err := svc.facultySummaries(ctx, facultyID)
	return subjects, err
}

func (svc *service) AdminResults(ctx context.Context) ([]FacultySummary, error) {
	rows, err := svc.rows.AllRows(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying rows")
	}

	start := time.Now()
	faculties, err := AggregateFaculties(rows)
	if err != nil {
		return nil, errors.Wrap(err, "aggregating rows")
	}
	svc.metrics.ObserveAggregation(modeAdmin, len(rows), time.Since(start))
	return faculties, nil
}

func (svc *service) FacultyPDF(ctx context.Context, facultyID string, w io.Writer) (string, error) {
	subjects, name, err := svc.facultySummaries(ctx, facultyID)
	if err != nil {
		return "", err
	}
	if len(subjects) == 0 {
		return "", ErrNoData
	}
	if err = svc.renderer.RenderFaculty(w, name, subjects); err != nil {
		return "", errors.Wrap(err, "rendering faculty report")
	}
	return FacultyFilename(name), nil
}

func (svc *service) ConsolidatedPDF(ctx context.Context, w io.Writer) (string, error) {
	faculties, err := svc.AdminResults(ctx)
	if err != nil {
		return "", err
	}
	if len(faculties) == 0 {
		return "", ErrNoData
	}
	if err = svc.renderer.RenderConsolidated(w, faculties); err != nil {
		return "", errors.Wrap(err, "rendering consolidated report")
	}
	return consolidatedFilename, nil
}

// FacultyFilename returns the attachment name of a faculty report, e.g. evaluation_report_Ada_Lovelace.pdf.
func FacultyFilename(facultyName string) string {
	name := strings.Join(strings.Fields(facultyName), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	if name == "" {
		return consolidatedFilename
	}
	return "evaluation_report_" + name + ".pdf"
}
