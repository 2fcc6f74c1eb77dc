package boiledrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/evalink/core/report"
)

// rowsQuery flattens every rating with its evaluation, faculty, subject, category and question.
// Empty comments come back as NULL.
const rowsQuery = `
SELECT e.faculty_id, f.name AS faculty_name,
       s.id AS subject_id, s.name AS subject_name, s.code AS subject_code,
       c.name AS category_name, q.id AS question_id, q.text AS question_text,
       ea.rating, e.id AS evaluation_id, NULLIF(e.comments, '') AS comments
FROM evaluations e
JOIN users f ON f.id = e.faculty_id
JOIN subjects s ON s.id = e.subject_id
JOIN evaluation_answers ea ON ea.evaluation_id = e.id
JOIN evaluation_questions q ON q.id = ea.question_id
JOIN evaluation_categories c ON c.id = q.category_id
WHERE ($1 = '' OR e.faculty_id = $1)
ORDER BY f.name, e.faculty_id, s.name, s.id, c.display_order, c.id, q.display_order, q.id, e.id`

type reportRowSource struct {
	exec boil.ContextExecutor
}

var _ report.RowSource = (*reportRowSource)(nil) // interface compliance check

// NewReportRowSource reads report rows with sqlboiler raw queries. exec is usually a *sql.DB or *sqlx.DB.
func NewReportRowSource(exec boil.ContextExecutor) report.RowSource {
	return &reportRowSource{exec: exec}
}

func (src *reportRowSource) rows(ctx context.Context, facultyID string) ([]report.Row, error) {
	rows := make([]report.Row, 0)
	if err := queries.Raw(rowsQuery, facultyID).Bind(ctx, src.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "selecting report rows")
	}
	return rows, nil
}

func (src *reportRowSource) FacultyRows(ctx context.Context, facultyID string) ([]report.Row, error) {
	if facultyID == "" {
		return []report.Row{}, nil
	}
	return src.rows(ctx, facultyID)
}

func (src *reportRowSource) AllRows(ctx context.Context) ([]report.Row, error) {
	return src.rows(ctx, "")
}
