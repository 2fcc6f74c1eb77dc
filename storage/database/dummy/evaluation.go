package dummydb

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/evaluation"
	"github.com/trezcool/evalink/core/report"
)

// deleteEvaluation removes an evaluation with its answers. Callers hold the write lock.
func (db *DB) deleteEvaluation(id int) {
	answers := db.answers[:0]
	for _, a := range db.answers {
		if a.EvaluationID != id {
			answers = append(answers, a)
		}
	}
	db.answers = answers
	delete(db.evaluations, id)
}

// deleteAnswers removes the answers to the given questions. Callers hold the write lock.
func (db *DB) deleteAnswers(questionIDs map[int]bool) {
	answers := db.answers[:0]
	for _, a := range db.answers {
		if !questionIDs[a.QuestionID] {
			answers = append(answers, a)
		}
	}
	db.answers = answers
}

type evaluationRepository struct {
	db *DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil)

func NewEvaluationRepository(db *DB) evaluation.Repository {
	return &evaluationRepository{db: db}
}

func sortQuestions(qs []evaluation.Question) {
	sort.Slice(qs, func(i, j int) bool {
		if qs[i].DisplayOrder != qs[j].DisplayOrder {
			return qs[i].DisplayOrder < qs[j].DisplayOrder
		}
		return qs[i].ID < qs[j].ID
	})
}

func (repo *evaluationRepository) questionsOf(catID int) []evaluation.Question {
	qs := make([]evaluation.Question, 0)
	for _, q := range repo.db.questions {
		if q.CategoryID == catID {
			qs = append(qs, *q)
		}
	}
	sortQuestions(qs)
	return qs
}

func (repo *evaluationRepository) nameTaken(name string, exclID int) bool {
	for _, c := range repo.db.categories {
		if c.Name == name && c.ID != exclID {
			return true
		}
	}
	return false
}

func (repo *evaluationRepository) QueryCategories(context.Context) ([]evaluation.Category, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cats := make([]evaluation.Category, 0, len(repo.db.categories))
	for _, c := range repo.db.categories {
		cat := *c
		cat.Questions = repo.questionsOf(cat.ID)
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].DisplayOrder != cats[j].DisplayOrder {
			return cats[i].DisplayOrder < cats[j].DisplayOrder
		}
		return cats[i].ID < cats[j].ID
	})
	return cats, nil
}

func (repo *evaluationRepository) CreateCategory(_ context.Context, cat evaluation.Category) (evaluation.Category, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.nameTaken(cat.Name, 0) {
		return evaluation.Category{}, core.NewConflictError(evaluation.ErrCategoryExists)
	}
	cat.ID = repo.db.nextID("evaluation_categories")
	cat.Questions = nil
	repo.db.categories[cat.ID] = &cat
	cat.Questions = make([]evaluation.Question, 0)
	return cat, nil
}

func (repo *evaluationRepository) UpdateCategory(_ context.Context, cat evaluation.Category) (evaluation.Category, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.categories[cat.ID]
	if !ok {
		return evaluation.Category{}, evaluation.ErrCategoryNotFound
	}
	if repo.nameTaken(cat.Name, cat.ID) {
		return evaluation.Category{}, core.NewConflictError(evaluation.ErrCategoryExists)
	}
	orig.Name, orig.DisplayOrder = cat.Name, cat.DisplayOrder

	updated := *orig
	updated.Questions = repo.questionsOf(cat.ID)
	return updated, nil
}

func (repo *evaluationRepository) DeleteCategory(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.categories[id]; !ok {
		return evaluation.ErrCategoryNotFound
	}
	qids := make(map[int]bool)
	for qid, q := range repo.db.questions {
		if q.CategoryID == id {
			qids[qid] = true
			delete(repo.db.questions, qid)
		}
	}
	repo.db.deleteAnswers(qids)
	delete(repo.db.categories, id)
	return nil
}

func (repo *evaluationRepository) CreateQuestion(_ context.Context, q evaluation.Question) (evaluation.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.categories[q.CategoryID]; !ok {
		return evaluation.Question{}, invalidRef("category_id")
	}
	q.ID = repo.db.nextID("evaluation_questions")
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *evaluationRepository) UpdateQuestion(_ context.Context, q evaluation.Question) (evaluation.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.questions[q.ID]; !ok {
		return evaluation.Question{}, evaluation.ErrQuestionNotFound
	}
	if _, ok := repo.db.categories[q.CategoryID]; !ok {
		return evaluation.Question{}, invalidRef("category_id")
	}
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *evaluationRepository) DeleteQuestion(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.questions[id]; !ok {
		return evaluation.ErrQuestionNotFound
	}
	repo.db.deleteAnswers(map[int]bool{id: true})
	delete(repo.db.questions, id)
	return nil
}

func (repo *evaluationRepository) MissingQuestions(_ context.Context, ids []int) ([]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var missing []int
	for _, id := range ids {
		if _, ok := repo.db.questions[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (repo *evaluationRepository) CreateEvaluation(_ context.Context, ev evaluation.Evaluation, answers []evaluation.Answer) (evaluation.Evaluation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, e := range repo.db.evaluations {
		if e.StudentID == ev.StudentID && e.SubjectID == ev.SubjectID && e.FacultyID == ev.FacultyID {
			return evaluation.Evaluation{}, core.NewConflictError(evaluation.ErrAlreadySubmitted)
		}
	}
	for _, a := range answers {
		if _, ok := repo.db.questions[a.QuestionID]; !ok {
			return evaluation.Evaluation{}, invalidRef("question_id")
		}
	}

	ev.ID = repo.db.nextID("evaluations")
	repo.db.evaluations[ev.ID] = &ev
	for _, a := range answers {
		a.EvaluationID = ev.ID
		repo.db.answers = append(repo.db.answers, a)
	}
	return ev, nil
}

func (repo *evaluationRepository) EvaluatedSubjects(_ context.Context, studentID string) ([]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[int]bool)
	ids := make([]int, 0)
	for _, e := range repo.db.evaluations {
		if e.StudentID == studentID && !seen[e.SubjectID] {
			seen[e.SubjectID] = true
			ids = append(ids, e.SubjectID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (repo *evaluationRepository) QueryEvaluations(context.Context) ([]evaluation.ListItem, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	type acc struct{ sum, count int }
	ratings := make(map[int]*acc)
	for _, a := range repo.db.answers {
		r, ok := ratings[a.EvaluationID]
		if !ok {
			r = new(acc)
			ratings[a.EvaluationID] = r
		}
		r.sum += a.Rating
		r.count++
	}

	evs := make([]*evaluation.Evaluation, 0, len(repo.db.evaluations))
	for _, e := range repo.db.evaluations {
		evs = append(evs, e)
	}
	sort.Slice(evs, func(i, j int) bool {
		if !evs[i].SubmittedAt.Equal(evs[j].SubmittedAt) {
			return evs[i].SubmittedAt.After(evs[j].SubmittedAt)
		}
		return evs[i].ID > evs[j].ID
	})

	items := make([]evaluation.ListItem, 0, len(evs))
	for _, e := range evs {
		item := evaluation.ListItem{ID: e.ID, StudentID: e.StudentID, Feedback: e.Comments}
		if s, ok := repo.db.subjects[e.SubjectID]; ok {
			item.Course = s.Name
		}
		if r, ok := ratings[e.ID]; ok && r.count > 0 {
			item.Rating = math.Round(float64(r.sum)/float64(r.count)*100) / 100
		}
		items = append(items, item)
	}
	return items, nil
}

func (repo *evaluationRepository) CountDaily(_ context.Context, from, to time.Time) ([]evaluation.DailyCount, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	end := to.AddDate(0, 0, 1)
	counts := make(map[string]int)
	for _, e := range repo.db.evaluations {
		at := e.SubmittedAt.UTC()
		if !at.Before(from) && at.Before(end) {
			counts[at.Format("2006-01-02")]++
		}
	}

	days := make([]evaluation.DailyCount, 0, len(counts))
	for day, n := range counts {
		days = append(days, evaluation.DailyCount{EvaluationDate: day, EvaluationCount: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].EvaluationDate < days[j].EvaluationDate })
	return days, nil
}

// ===== report rows =====

type reportRowSource struct {
	db *DB
}

var _ report.RowSource = (*reportRowSource)(nil)

func NewReportRowSource(db *DB) report.RowSource {
	return &reportRowSource{db: db}
}

type sortableRow struct {
	report.Row
	catOrder, catID, questionOrder int
}

func (src *reportRowSource) rows(facultyID string) []report.Row {
	src.db.RLock()
	defer src.db.RUnlock()

	db := src.db
	srows := make([]sortableRow, 0, len(db.answers))
	for _, a := range db.answers {
		ev, ok := db.evaluations[a.EvaluationID]
		if !ok || (facultyID != "" && ev.FacultyID != facultyID) {
			continue
		}
		fac, okF := db.users[ev.FacultyID]
		subj, okS := db.subjects[ev.SubjectID]
		q, okQ := db.questions[a.QuestionID]
		if !okF || !okS || !okQ {
			continue
		}
		cat, ok := db.categories[q.CategoryID]
		if !ok {
			continue
		}

		row := report.Row{
			FacultyID:    ev.FacultyID,
			FacultyName:  fac.Name,
			SubjectID:    subj.ID,
			SubjectName:  subj.Name,
			SubjectCode:  subj.Code,
			CategoryName: cat.Name,
			QuestionID:   q.ID,
			QuestionText: q.Text,
			Rating:       null.IntFrom(a.Rating),
			EvaluationID: ev.ID,
			Comments:     null.NewString(ev.Comments, ev.Comments != ""),
		}
		srows = append(srows, sortableRow{Row: row, catOrder: cat.DisplayOrder, catID: cat.ID, questionOrder: q.DisplayOrder})
	}

	sort.SliceStable(srows, func(i, j int) bool {
		a, b := srows[i], srows[j]
		switch {
		case a.FacultyName != b.FacultyName:
			return a.FacultyName < b.FacultyName
		case a.FacultyID != b.FacultyID:
			return a.FacultyID < b.FacultyID
		case a.SubjectName != b.SubjectName:
			return a.SubjectName < b.SubjectName
		case a.SubjectID != b.SubjectID:
			return a.SubjectID < b.SubjectID
		case a.catOrder != b.catOrder:
			return a.catOrder < b.catOrder
		case a.catID != b.catID:
			return a.catID < b.catID
		case a.questionOrder != b.questionOrder:
			return a.questionOrder < b.questionOrder
		case a.QuestionID != b.QuestionID:
			return a.QuestionID < b.QuestionID
		}
		return a.EvaluationID < b.EvaluationID
	})

	rows := make([]report.Row, 0, len(srows))
	for _, r := range srows {
		rows = append(rows, r.Row)
	}
	return rows
}

func (src *reportRowSource) FacultyRows(_ context.Context, facultyID string) ([]report.Row, error) {
	if facultyID == "" {
		return []report.Row{}, nil
	}
	return src.rows(facultyID), nil
}

func (src *reportRowSource) AllRows(context.Context) ([]report.Row, error) {
	return src.rows(""), nil
}
