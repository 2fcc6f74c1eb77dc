package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/evalink/core/evaluation"
)

var evaluationConflicts = map[string]error{
	"evaluation_categories_name_key":          evaluation.ErrCategoryExists,
	"evaluations_student_subject_faculty_key": evaluation.ErrAlreadySubmitted,
}

type evaluationRepository struct {
	db *sqlx.DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil)

func NewEvaluationRepository(db *sqlx.DB) evaluation.Repository {
	return &evaluationRepository{db: db}
}

func (repo *evaluationRepository) QueryCategories(ctx context.Context) ([]evaluation.Category, error) {
	cats := make([]evaluation.Category, 0)
	if err := repo.db.SelectContext(ctx, &cats, `SELECT id, name, display_order FROM evaluation_categories ORDER BY display_order, id`); err != nil {
		return nil, errors.Wrap(err, "selecting categories")
	}
	var questions []evaluation.Question
	q := `SELECT id, category_id, text, display_order FROM evaluation_questions ORDER BY display_order, id`
	if err := repo.db.SelectContext(ctx, &questions, q); err != nil {
		return nil, errors.Wrap(err, "selecting questions")
	}

	idx := make(map[int]int, len(cats))
	for i := range cats {
		cats[i].Questions = make([]evaluation.Question, 0)
		idx[cats[i].ID] = i
	}
	for _, qu := range questions {
		if i, ok := idx[qu.CategoryID]; ok {
			cats[i].Questions = append(cats[i].Questions, qu)
		}
	}
	return cats, nil
}

func (repo *evaluationRepository) CreateCategory(ctx context.Context, cat evaluation.Category) (evaluation.Category, error) {
	q := `INSERT INTO evaluation_categories (name, display_order) VALUES ($1, $2) RETURNING id, name, display_order`
	var created evaluation.Category
	if err := repo.db.GetContext(ctx, &created, q, cat.Name, cat.DisplayOrder); err != nil {
		return evaluation.Category{}, mapError(err, "evaluation_categories", "inserting category", evaluationConflicts)
	}
	created.Questions = make([]evaluation.Question, 0)
	return created, nil
}

func (repo *evaluationRepository) UpdateCategory(ctx context.Context, cat evaluation.Category) (evaluation.Category, error) {
	q := `UPDATE evaluation_categories SET name = $2, display_order = $3 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, cat.ID, cat.Name, cat.DisplayOrder)
	if err != nil {
		return evaluation.Category{}, mapError(err, "evaluation_categories", "updating category", evaluationConflicts)
	}
	if err = checkAffected(res, evaluation.ErrCategoryNotFound); err != nil {
		return evaluation.Category{}, err
	}

	cat.Questions = make([]evaluation.Question, 0)
	q = `SELECT id, category_id, text, display_order FROM evaluation_questions WHERE category_id = $1 ORDER BY display_order, id`
	if err = repo.db.SelectContext(ctx, &cat.Questions, q, cat.ID); err != nil {
		return evaluation.Category{}, errors.Wrap(err, "selecting questions")
	}
	return cat, nil
}

func (repo *evaluationRepository) DeleteCategory(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `DELETE FROM evaluation_answers WHERE question_id IN (SELECT id FROM evaluation_questions WHERE category_id = $1)`
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return errors.Wrap(err, "deleting answers")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM evaluation_questions WHERE category_id = $1`, id); err != nil {
			return errors.Wrap(err, "deleting questions")
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM evaluation_categories WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "deleting category")
		}
		return checkAffected(res, evaluation.ErrCategoryNotFound)
	})
}

func (repo *evaluationRepository) CreateQuestion(ctx context.Context, qu evaluation.Question) (evaluation.Question, error) {
	q := `
	INSERT INTO evaluation_questions (category_id, text, display_order) VALUES ($1, $2, $3)
	RETURNING id, category_id, text, display_order`
	var created evaluation.Question
	if err := repo.db.GetContext(ctx, &created, q, qu.CategoryID, qu.Text, qu.DisplayOrder); err != nil {
		return evaluation.Question{}, mapError(err, "evaluation_questions", "inserting question", nil)
	}
	return created, nil
}

func (repo *evaluationRepository) UpdateQuestion(ctx context.Context, qu evaluation.Question) (evaluation.Question, error) {
	q := `UPDATE evaluation_questions SET category_id = $2, text = $3, display_order = $4 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, qu.ID, qu.CategoryID, qu.Text, qu.DisplayOrder)
	if err != nil {
		return evaluation.Question{}, mapError(err, "evaluation_questions", "updating question", nil)
	}
	if err = checkAffected(res, evaluation.ErrQuestionNotFound); err != nil {
		return evaluation.Question{}, err
	}
	return qu, nil
}

func (repo *evaluationRepository) DeleteQuestion(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM evaluation_answers WHERE question_id = $1`, id); err != nil {
			return errors.Wrap(err, "deleting answers")
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM evaluation_questions WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "deleting question")
		}
		return checkAffected(res, evaluation.ErrQuestionNotFound)
	})
}

func (repo *evaluationRepository) MissingQuestions(ctx context.Context, ids []int) ([]int, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []int
	if err := repo.db.SelectContext(ctx, &found, `SELECT id FROM evaluation_questions WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting questions")
	}
	known := make(map[int]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	var missing []int
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (repo *evaluationRepository) CreateEvaluation(ctx context.Context, ev evaluation.Evaluation, answers []evaluation.Answer) (evaluation.Evaluation, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `
		INSERT INTO evaluations (student_id, faculty_id, subject_id, section_id, comments, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
		err := tx.GetContext(ctx, &ev.ID, q, ev.StudentID, ev.FacultyID, ev.SubjectID, ev.SectionID, ev.Comments, ev.SubmittedAt)
		if err != nil {
			return mapError(err, "evaluations", "inserting evaluation", evaluationConflicts)
		}
		if len(answers) == 0 {
			return nil
		}

		args := make([]interface{}, 0, len(answers)*3)
		for _, a := range answers {
			args = append(args, ev.ID, a.QuestionID, a.Rating)
		}
		q = `INSERT INTO evaluation_answers (evaluation_id, question_id, rating) VALUES ` +
			strmangle.Placeholders(true, len(args), 1, 3)
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return mapError(err, "evaluation_answers", "inserting answers", nil)
		}
		return nil
	})
	if err != nil {
		return evaluation.Evaluation{}, err
	}
	return ev, nil
}

func (repo *evaluationRepository) EvaluatedSubjects(ctx context.Context, studentID string) ([]int, error) {
	ids := make([]int, 0)
	q := `SELECT DISTINCT subject_id FROM evaluations WHERE student_id = $1 ORDER BY subject_id`
	if err := repo.db.SelectContext(ctx, &ids, q, studentID); err != nil {
		return nil, errors.Wrap(err, "selecting evaluated subjects")
	}
	return ids, nil
}

func (repo *evaluationRepository) QueryEvaluations(ctx context.Context) ([]evaluation.ListItem, error) {
	q := `
	SELECT e.id, e.student_id, s.name AS course, e.comments AS feedback,
	       COALESCE(ROUND(AVG(ea.rating)::numeric, 2), 0)::float8 AS rating
	FROM evaluations e
	JOIN subjects s ON s.id = e.subject_id
	LEFT JOIN evaluation_answers ea ON ea.evaluation_id = e.id
	GROUP BY e.id, s.name
	ORDER BY e.submitted_at DESC, e.id DESC`
	items := make([]evaluation.ListItem, 0)
	if err := repo.db.SelectContext(ctx, &items, q); err != nil {
		return nil, errors.Wrap(err, "selecting evaluations")
	}
	return items, nil
}

func (repo *evaluationRepository) CountDaily(ctx context.Context, from, to time.Time) ([]evaluation.DailyCount, error) {
	q := `
	SELECT to_char(submitted_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS evaluation_date, COUNT(*) AS evaluation_count
	FROM evaluations
	WHERE submitted_at >= $1 AND submitted_at < $2
	GROUP BY 1
	ORDER BY 1`
	counts := make([]evaluation.DailyCount, 0)
	if err := repo.db.SelectContext(ctx, &counts, q, from, to.AddDate(0, 0, 1)); err != nil {
		return nil, errors.Wrap(err, "counting evaluations")
	}
	return counts, nil
}
