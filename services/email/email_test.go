package emailsvc

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/mail"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/evalink/core"
)

type loggerMock struct {
	errors []string
}

func (l *loggerMock) Debug(string, ...interface{})         {}
func (l *loggerMock) Info(string, ...interface{})          {}
func (l *loggerMock) Warn(string, ...interface{})          {}
func (l *loggerMock) Error(msg string, _ ...interface{})   { l.errors = append(l.errors, msg) }
func (l *loggerMock) Fatal(msg string, args ...interface{}) { l.Error(msg, args...) }

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	logger := new(loggerMock)
	core.ParseEmailTemplates(logger)
	require.Empty(t, logger.errors)

	ResetSentMessages()
	svc := NewConsoleServiceMock(core.Conf, logger)

	reset := &core.EmailMessage{
		To:           []mail.Address{{Name: "Ada", Address: "ada@example.com"}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{"Name": "Ada", "ID": "f1", "UID": "ZjE", "Token": "abc-123"},
	}
	noRecipient := &core.EmailMessage{Subject: "lost", BodyStr: "nobody reads this"}
	plain := &core.EmailMessage{To: []mail.Address{{Address: "bob@example.com"}}, Subject: "hi", BodyStr: "hello"}

	svc.SendMessages(reset, noRecipient, plain)

	sent := Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].TextContent, "/password-reset/ZjE/abc-123")
	assert.Contains(t, sent[0].HTMLContent, "/password-reset/ZjE/abc-123")
	assert.Equal(t, "hello", sent[1].TextContent)
	assert.Empty(t, sent[1].HTMLContent)
	assert.Empty(t, logger.errors)
}

func TestConsoleService_Compose(t *testing.T) {
	conf := *core.Conf
	conf.AppName = "Evalink"
	svc := NewConsoleServiceMock(&conf, new(loggerMock)).(*consoleService)

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Ada", Address: "ada@example.com"}},
		Subject:     "Report",
		TextContent: "see attached",
		HTMLContent: "<p>see attached</p>",
	}
	require.NoError(t, msg.Attach(bytes.NewBufferString("%PDF-1.3"), "report.pdf", "application/pdf"))

	doc, err := svc.compose(msg)
	require.NoError(t, err)
	assert.True(t, strings.Contains(doc, "Subject: [Evalink] Report\r\n"))
	assert.NotContains(t, doc, "Cc:")

	parsed, err := mail.ReadMessage(strings.NewReader(doc))
	require.NoError(t, err)
	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	var parts []string
	mr := multipart.NewReader(parsed.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		parts = append(parts, part.Header.Get("Content-Type"))

		if ct, altParams, _ := mime.ParseMediaType(part.Header.Get("Content-Type")); ct == "multipart/alternative" {
			ar := multipart.NewReader(part, altParams["boundary"])
			for {
				body, err := ar.NextPart()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				parts = append(parts, body.Header.Get("Content-Type"))
			}
		}
		if part.FileName() != "" {
			assert.Equal(t, "report.pdf", part.FileName())
		}
	}
	require.Len(t, parts, 4)
	assert.True(t, strings.HasPrefix(parts[0], "multipart/alternative"))
	assert.Equal(t, []string{"text/plain; charset=utf-8", "text/html; charset=utf-8", "application/pdf"}, parts[1:])
}

type sgClientMock struct {
	statuses []int
	calls    int
}

func (c *sgClientMock) Send(*sgmail.SGMailV3) (*rest.Response, error) {
	status := c.statuses[len(c.statuses)-1]
	if c.calls < len(c.statuses) {
		status = c.statuses[c.calls]
	}
	c.calls++
	return &rest.Response{StatusCode: status, Body: "{}"}, nil
}

func TestSendgridService_send(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int
		wantErrs  int
	}{
		{name: "accepted", statuses: []int{http.StatusAccepted}, wantCalls: 1},
		{name: "retried until accepted", statuses: []int{http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusAccepted}, wantCalls: 3},
		{name: "rejected", statuses: []int{http.StatusBadRequest}, wantCalls: 1, wantErrs: 1},
		{name: "gave up", statuses: []int{http.StatusInternalServerError}, wantCalls: sendAttempts, wantErrs: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := new(loggerMock)
			client := &sgClientMock{statuses: tt.statuses}
			svc := NewSendgridService(core.Conf, logger).(*sendgridService)
			svc.client = client
			svc.backoff = 0

			svc.send(core.EmailMessage{To: []mail.Address{{Address: "ada@example.com"}}, Subject: "hi", TextContent: "hello"})
			assert.Equal(t, tt.wantCalls, client.calls)
			assert.Len(t, logger.errors, tt.wantErrs)
		})
	}
}

func TestSendgridService_build(t *testing.T) {
	conf := *core.Conf
	conf.AppName = "Evalink"
	svc := NewSendgridService(&conf, new(loggerMock)).(*sendgridService)

	msg := core.EmailMessage{
		To:           []mail.Address{{Name: "Ada", Address: "ada@example.com"}},
		Bcc:          []mail.Address{{Address: "audit@example.com"}},
		Subject:      "Incident update",
		TemplateName: "incident_update",
		TextContent:  "resolved",
	}
	require.NoError(t, msg.Attach(bytes.NewBufferString("%PDF-1.3"), "report.pdf", "application/pdf"))

	m := svc.build(msg)
	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[Evalink] Incident update", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "ada@example.com", p.To[0].Address)
	assert.Empty(t, p.CC)
	require.Len(t, p.BCC, 1)
	assert.Equal(t, []string{"incident_update"}, m.Categories)
	require.Len(t, m.Content, 1, "no html part without html content")
	assert.Equal(t, "text/plain", m.Content[0].Type)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "report.pdf", m.Attachments[0].Filename)
}
