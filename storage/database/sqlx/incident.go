package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/incident"
)

const incidentSelect = `
SELECT i.id, i.reporter_id, i.title, i.description, i.status, i.created_at,
       u.name AS reporter_name, u.role AS reporter_role, u.email AS reporter_email
FROM incidents i
JOIN users u ON u.id = i.reporter_id`

type incidentRepository struct {
	db *sqlx.DB
}

var _ incident.Repository = (*incidentRepository)(nil)

func NewIncidentRepository(db *sqlx.DB) incident.Repository {
	return &incidentRepository{db: db}
}

func (repo *incidentRepository) get(ctx context.Context, id int) (incident.Incident, error) {
	var inc incident.Incident
	err := getOne(ctx, repo.db, &inc, incident.ErrNotFound, incidentSelect+"\nWHERE i.id = $1", id)
	return inc, err
}

func (repo *incidentRepository) CreateIncident(ctx context.Context, inc incident.Incident) (incident.Incident, error) {
	var id int
	q := `INSERT INTO incidents (reporter_id, title, description, status, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := repo.db.GetContext(ctx, &id, q, inc.ReporterID, inc.Title, inc.Description, inc.Status, inc.Date); err != nil {
		return incident.Incident{}, mapError(err, "incidents", "inserting incident", nil)
	}
	return repo.get(ctx, id)
}

func (repo *incidentRepository) QueryIncidents(ctx context.Context, reporterID string) ([]incident.Incident, error) {
	q := incidentSelect + `
	WHERE ($1 = '' OR i.reporter_id = $1)
	ORDER BY i.created_at DESC, i.id DESC`
	incidents := make([]incident.Incident, 0)
	if err := repo.db.SelectContext(ctx, &incidents, q, reporterID); err != nil {
		return nil, errors.Wrap(err, "selecting incidents")
	}
	return incidents, nil
}

func (repo *incidentRepository) UpdateIncidentStatus(ctx context.Context, id int, status string) (incident.Incident, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE incidents SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return incident.Incident{}, errors.Wrap(err, "updating incident")
	}
	if err = checkAffected(res, incident.ErrNotFound); err != nil {
		return incident.Incident{}, err
	}
	return repo.get(ctx, id)
}
