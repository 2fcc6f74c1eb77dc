package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/evalink/core"
)

const sendAttempts = 3

// sgClient is satisfied by *sendgrid.Client.
type sgClient interface {
	Send(email *sgmail.SGMailV3) (*rest.Response, error)
}

type sendgridService struct {
	client     sgClient
	from       *sgmail.Email
	subjPrefix string
	backoff    time.Duration
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	from := conf.DefaultFromEmail()
	return &sendgridService{
		client:     sendgrid.NewSendClient(conf.Email.SendgridApiKey),
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		backoff:    time.Second,
		logger:     logger,
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
				svc.send(*msg)
			}
		}()
	}
}

// build maps msg to a SendGrid v3 mail. The template name, if any, becomes the mail category.
func (svc *sendgridService) build(msg core.EmailMessage) *sgmail.SGMailV3 {
	addrs := func(list []mail.Address) []*sgmail.Email {
		emails := make([]*sgmail.Email, 0, len(list))
		for _, a := range list {
			emails = append(emails, sgmail.NewEmail(a.Name, a.Address))
		}
		return emails
	}

	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	p.AddTos(addrs(msg.To)...)
	p.AddCCs(addrs(msg.Cc)...)
	p.AddBCCs(addrs(msg.Bcc)...)

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}

	for _, at := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     at.Content.String(),
			Type:        at.ContentType,
			Filename:    at.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

// send retries rate-limited and server-side failures, waiting a little longer each time.
func (svc *sendgridService) send(msg core.EmailMessage) {
	m := svc.build(msg)
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		res, err := svc.client.Send(m)
		switch {
		case err != nil:
			svc.logger.Warn(fmt.Sprintf("sending email %q - attempt %d: %v", msg.Subject, attempt, err), err)
		case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
			svc.logger.Warn(fmt.Sprintf("sending email %q - attempt %d - status: %d", msg.Subject, attempt, res.StatusCode))
		case res.StatusCode >= http.StatusBadRequest:
			svc.logger.Error(fmt.Sprintf("sending email %q - status: %d - body: %s", msg.Subject, res.StatusCode, res.Body))
			return
		default:
			return
		}
		if attempt < sendAttempts {
			time.Sleep(time.Duration(attempt) * svc.backoff)
		}
	}
	svc.logger.Error(fmt.Sprintf("sending email %q: giving up after %d attempts", msg.Subject, sendAttempts))
}
