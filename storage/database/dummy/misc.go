package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/evalink/core/activity"
	"github.com/trezcool/evalink/core/incident"
	"github.com/trezcool/evalink/core/schedule"
)

// ===== schedule =====

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) GetSchedule(context.Context) (schedule.Schedule, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if repo.db.schedule == nil {
		return schedule.Schedule{}, schedule.ErrNotSet
	}
	return *repo.db.schedule, nil
}

func (repo *scheduleRepository) SaveSchedule(_ context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.schedule = &s
	return s, nil
}

// ===== incidents =====

type incidentRepository struct {
	db *DB
}

var _ incident.Repository = (*incidentRepository)(nil)

func NewIncidentRepository(db *DB) incident.Repository {
	return &incidentRepository{db: db}
}

func (repo *incidentRepository) read(inc incident.Incident) incident.Incident {
	if u, ok := repo.db.users[inc.ReporterID]; ok {
		inc.ReporterName, inc.ReporterRole, inc.ReporterEmail = u.Name, u.Role, u.Email
	}
	return inc
}

func (repo *incidentRepository) CreateIncident(_ context.Context, inc incident.Incident) (incident.Incident, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[inc.ReporterID]; !ok {
		return incident.Incident{}, invalidRef("reporter_id")
	}
	inc.ID = repo.db.nextID("incidents")
	inc.ReporterName, inc.ReporterRole, inc.ReporterEmail = "", "", ""
	repo.db.incidents[inc.ID] = &inc
	return repo.read(inc), nil
}

func (repo *incidentRepository) QueryIncidents(_ context.Context, reporterID string) ([]incident.Incident, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	incidents := make([]incident.Incident, 0)
	for _, inc := range repo.db.incidents {
		if reporterID == "" || inc.ReporterID == reporterID {
			incidents = append(incidents, repo.read(*inc))
		}
	}
	sort.Slice(incidents, func(i, j int) bool {
		if !incidents[i].Date.Equal(incidents[j].Date) {
			return incidents[i].Date.After(incidents[j].Date)
		}
		return incidents[i].ID > incidents[j].ID
	})
	return incidents, nil
}

func (repo *incidentRepository) UpdateIncidentStatus(_ context.Context, id int, status string) (incident.Incident, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	inc, ok := repo.db.incidents[id]
	if !ok {
		return incident.Incident{}, incident.ErrNotFound
	}
	inc.Status = status
	return repo.read(*inc), nil
}

// ===== activity logs =====

type activityRepository struct {
	db *DB
}

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *DB) activity.Repository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) read(l activity.Log) activity.Log {
	if u, ok := repo.db.users[l.UserID]; ok {
		l.UserName, l.UserRole = u.Name, u.Role
	}
	return l
}

func (repo *activityRepository) CreateLog(_ context.Context, l activity.Log) (activity.Log, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[l.UserID]; !ok {
		return activity.Log{}, invalidRef("user_id")
	}
	l.ID = repo.db.nextID("activity_logs")
	l.UserName, l.UserRole = "", ""
	repo.db.logs = append(repo.db.logs, l)
	return repo.read(l), nil
}

func (repo *activityRepository) QueryLogs(_ context.Context, filter activity.Filter) ([]activity.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	logs := make([]activity.Log, 0)
	for _, l := range repo.db.logs {
		l = repo.read(l)
		if filter.UserID != "" && l.UserID != filter.UserID {
			continue
		}
		if filter.Role != "" && l.UserRole != filter.Role {
			continue
		}
		logs = append(logs, l)
	}
	sort.SliceStable(logs, func(i, j int) bool {
		if !logs[i].CreatedAt.Equal(logs[j].CreatedAt) {
			return logs[i].CreatedAt.After(logs[j].CreatedAt)
		}
		return logs[i].ID > logs[j].ID
	})
	return logs, nil
}
