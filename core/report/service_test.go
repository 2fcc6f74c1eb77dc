package report

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rowSourceMock struct {
	rows []Row
	err  error
}

func (m rowSourceMock) FacultyRows(_ context.Context, facultyID string) ([]Row, error) {
	var rows []Row
	for _, r := range m.rows {
		if r.FacultyID == facultyID {
			rows = append(rows, r)
		}
	}
	return rows, m.err
}

func (m rowSourceMock) AllRows(context.Context) ([]Row, error) { return m.rows, m.err }

type rendererMock struct {
	facultyName string
	subjects    []SubjectSummary
	faculties   []FacultySummary
}

func (r *rendererMock) RenderFaculty(w io.Writer, facultyName string, subjects []SubjectSummary) error {
	r.facultyName, r.subjects = facultyName, subjects
	_, err := w.Write([]byte("%PDF-faculty"))
	return err
}

func (r *rendererMock) RenderConsolidated(w io.Writer, faculties []FacultySummary) error {
	r.faculties = faculties
	_, err := w.Write([]byte("%PDF-all"))
	return err
}

type metricsMock struct {
	observed map[string]int
}

func (m *metricsMock) ObserveAggregation(mode string, rows int, _ time.Duration) {
	m.observed[mode] += rows
}
func (m *metricsMock) EvaluationSubmitted()  {}
func (m *metricsMock) ActivityRecordFailed() {}

func newServiceMock(src RowSource) (Service, *rendererMock, *metricsMock) {
	rdr := new(rendererMock)
	mtr := &metricsMock{observed: make(map[string]int)}
	return NewService(src, rdr, mtr), rdr, mtr
}

func TestService_FacultyResults(t *testing.T) {
	ctx := context.Background()
	svc, _, mtr := newServiceMock(rowSourceMock{rows: append(cs101Rows("f1"), cs101Rows("f2")...)})

	got, err := svc.FacultyResults(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3.75, got[0].OverallAverage)
	assert.Equal(t, 4, mtr.observed[modeFaculty])

	got, err = svc.FacultyResults(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestService_AdminResults(t *testing.T) {
	svc, _, mtr := newServiceMock(rowSourceMock{rows: append(cs101Rows("f1"), cs101Rows("f2")...)})

	got, err := svc.AdminResults(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 8, mtr.observed[modeAdmin])

	srcErr := errors.New("connection refused")
	svc, _, _ = newServiceMock(rowSourceMock{err: srcErr})
	_, err = svc.AdminResults(context.Background())
	assert.Equal(t, srcErr, errors.Cause(err))
}

func TestService_PDF(t *testing.T) {
	ctx := context.Background()
	rows := cs101Rows("f1")
	for i := range rows {
		rows[i].FacultyName = "Ada  Lovelace"
	}
	svc, rdr, _ := newServiceMock(rowSourceMock{rows: rows})

	var buf bytes.Buffer
	filename, err := svc.FacultyPDF(ctx, "f1", &buf)
	require.NoError(t, err)
	assert.Equal(t, "evaluation_report_Ada_Lovelace.pdf", filename)
	assert.Equal(t, "Ada  Lovelace", rdr.facultyName)
	assert.Len(t, rdr.subjects, 1)
	assert.Equal(t, "%PDF-faculty", buf.String())

	buf.Reset()
	filename, err = svc.ConsolidatedPDF(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, "evaluation_report.pdf", filename)
	assert.Len(t, rdr.faculties, 1)

	_, err = svc.FacultyPDF(ctx, "nobody", &buf)
	assert.Equal(t, ErrNoData, err)

	svc, _, _ = newServiceMock(rowSourceMock{})
	_, err = svc.ConsolidatedPDF(ctx, &buf)
	assert.Equal(t, ErrNoData, err)
}

func TestService_MalformedRows(t *testing.T) {
	rows := cs101Rows("f1")
	rows[2].Rating.Int = 9
	svc, _, _ := newServiceMock(rowSourceMock{rows: rows})

	_, err := svc.FacultyResults(context.Background(), "f1")
	require.Error(t, err)
	assert.Equal(t, ErrMalformedRow, errors.Cause(err))
}

func TestFacultyFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "spaces", in: "Grace Brewster Hopper", want: "evaluation_report_Grace_Brewster_Hopper.pdf"},
		{name: "unsafe chars", in: "J. O'Neil/Smith", want: "evaluation_report_J_ONeilSmith.pdf"},
		{name: "empty", in: "  ", want: "evaluation_report.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FacultyFilename(tt.in))
		})
	}
}
