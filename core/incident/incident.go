package incident

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/activity"
)

// Statuses
const (
	StatusPending            = "Pending"
	StatusUnderInvestigation = "Under Investigation"
	StatusResolved           = "Resolved"
)

var (
	AllStatuses = []string{StatusPending, StatusUnderInvestigation, StatusResolved}

	ErrNotFound = errors.New("incident not found")
)

type Incident struct {
	ID            int       `json:"id" db:"id"`
	ReporterID    string    `json:"reporter_id" db:"reporter_id"`
	Title         string    `json:"title" db:"title"`
	Description   string    `json:"description" db:"description"`
	Status        string    `json:"status" db:"status"`
	Date          time.Time `json:"date" db:"created_at"`
	ReporterName  string    `json:"reporter_name" db:"reporter_name"`
	ReporterRole  string    `json:"reporter_role" db:"reporter_role"`
	ReporterEmail string    `json:"-" db:"reporter_email"`
}

type NewIncident struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"required,notblank,max=5000"`
}

func (ni *NewIncident) Validate(validate *validator.Validate) error {
	ni.Title = core.CleanString(ni.Title)
	ni.Description = core.CleanString(ni.Description)
	return validate.Struct(ni)
}

type StatusUpdate struct {
	Status string `json:"status" validate:"required,incident_status"`
}

func (su *StatusUpdate) Validate(validate *validator.Validate) error {
	su.Status = core.CleanString(su.Status)
	return validate.Struct(su)
}

var (
	statusTag  = "incident_status"
	statusText = "status must be one of: Pending, Under Investigation, Resolved"
)

// InitValidators registers the incident validations and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		status := fl.Field().String()
		for _, s := range AllStatuses {
			if s == status {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

type (
	Repository interface {
		CreateIncident(ctx context.Context, inc Incident) (Incident, error)
		// QueryIncidents returns the incidents of reporterID, or all incidents when empty, newest first.
		QueryIncidents(ctx context.Context, reporterID string) ([]Incident, error)
		UpdateIncidentStatus(ctx context.Context, id int, status string) (Incident, error)
	}

	Service interface {
		Report(ctx context.Context, reporterID string, ni NewIncident) (Incident, error)
		Query(ctx context.Context, reporterID string) ([]Incident, error)
		// UpdateStatus changes the status on behalf of actorID and notifies the reporter.
		UpdateStatus(ctx context.Context, actorID string, id int, su StatusUpdate) (Incident, error)
	}

	service struct {
		repo     Repository
		activity activity.Service
		mailSvc  core.EmailService
	}
)

func NewService(repo Repository, activitySvc activity.Service, mailSvc core.EmailService) Service {
	return &service{repo: repo, activity: activitySvc, mailSvc: mailSvc}
}

func (svc *service) Report(ctx context.Context, reporterID string, ni NewIncident) (Incident, error) {
	return svc.repo.CreateIncident(ctx, Incident{
		ReporterID:  reporterID,
		Title:       ni.Title,
		Description: ni.Description,
		Status:      StatusPending,
		Date:        time.Now().UTC(),
	})
}

func (svc *service) Query(ctx context.Context, reporterID string) ([]Incident, error) {
	return svc.repo.QueryIncidents(ctx, reporterID)
}

func (svc *service) UpdateStatus(ctx context.Context, actorID string, id int, su StatusUpdate) (Incident, error) {
	inc, err := svc.repo.UpdateIncidentStatus(ctx, id, su.Status)
	if err != nil {
		return Incident{}, err
	}

	svc.activity.Record(ctx, actorID, activity.TypeUpdateIncident, fmt.Sprintf("Updated incident #%d status to %s", inc.ID, inc.Status))

	if inc.ReporterEmail != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: inc.ReporterName, Address: inc.ReporterEmail}},
			Subject:      "Incident Report Update",
			TemplateName: "incident_update",
			TemplateData: inc,
		})
	}
	return inc, nil
}
