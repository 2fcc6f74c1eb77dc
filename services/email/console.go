package emailsvc

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
)

var (
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

// ResetSentMessages clears the recorded messages.
func ResetSentMessages() {
	mu.Lock()
	SentMessages = make([]core.EmailMessage, 0)
	mu.Unlock()
}

// Sent returns a copy of the messages recorded by the console services.
func Sent() []core.EmailMessage {
	mu.Lock()
	defer mu.Unlock()
	return append([]core.EmailMessage(nil), SentMessages...)
}

type consoleService struct {
	from          mail.Address
	subjPrefix    string
	logger        core.Logger
	disableOutput bool
	sync          bool
}

var _ core.EmailService = (*consoleService)(nil)

func newConsoleService(conf *core.Config, logger core.Logger) *consoleService {
	return &consoleService{
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

// NewConsoleService logs emails as MIME documents instead of sending them.
func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return newConsoleService(conf, logger)
}

// NewConsoleServiceMock records emails synchronously without logging them.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) core.EmailService {
	svc := newConsoleService(conf, logger)
	svc.disableOutput = true
	svc.sync = true
	return svc
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.sync {
			svc.sendMessage(msg)
		} else {
			go svc.sendMessage(msg)
		}
	}
}

func (svc *consoleService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}

	doc, err := svc.compose(*msg)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("composing email: %v", err), err)
		return
	}
	if !svc.disableOutput {
		svc.logger.Info(doc)
	}

	mu.Lock()
	SentMessages = append(SentMessages, *msg)
	mu.Unlock()
}

// compose renders msg as a MIME document: multipart/alternative text and html bodies,
// wrapped in multipart/mixed when there are attachments.
func (svc *consoleService) compose(msg core.EmailMessage) (string, error) {
	var doc strings.Builder
	header := func(key, value string) {
		if value != "" {
			_, _ = fmt.Fprintf(&doc, "%s: %s\r\n", key, value)
		}
	}
	header("From", svc.from.String())
	header("To", joinAddresses(msg.To))
	header("Cc", joinAddresses(msg.Cc))
	header("Bcc", joinAddresses(msg.Bcc))
	header("Subject", svc.subjPrefix+msg.Subject)
	header("Date", time.Now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	var bodies bytes.Buffer
	altBoundary, err := writeBodies(&bodies, msg)
	if err != nil {
		return "", err
	}
	if !msg.HasAttachments() {
		header("Content-Type", "multipart/alternative; boundary="+altBoundary)
		doc.WriteString("\r\n")
		doc.Write(bodies.Bytes())
		return doc.String(), nil
	}

	var mixed bytes.Buffer
	mw := multipart.NewWriter(&mixed)
	w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + altBoundary}})
	if err != nil {
		return "", errors.Wrap(err, "creating multipart/alternative part")
	}
	if _, err = w.Write(bodies.Bytes()); err != nil {
		return "", errors.Wrap(err, "writing bodies")
	}

	for _, at := range msg.Attachments {
		w, err = mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {at.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": at.Filename})},
		})
		if err != nil {
			return "", errors.Wrapf(err, "creating %s part", at.ContentType)
		}
		if _, err = io.WriteString(w, at.Content.String()+"\r\n"); err != nil {
			return "", errors.Wrapf(err, "writing %s", at.Filename)
		}
	}
	if err = mw.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart/mixed")
	}

	header("Content-Type", "multipart/mixed; boundary="+mw.Boundary())
	doc.WriteString("\r\n")
	doc.Write(mixed.Bytes())
	return doc.String(), nil
}

// writeBodies writes the text and html bodies of msg as multipart/alternative parts and returns their boundary.
func writeBodies(w io.Writer, msg core.EmailMessage) (string, error) {
	aw := multipart.NewWriter(w)
	bodies := [][2]string{{"text/plain; charset=utf-8", msg.TextContent}}
	if msg.HTMLContent != "" {
		bodies = append(bodies, [2]string{"text/html; charset=utf-8", msg.HTMLContent})
	}
	for _, b := range bodies {
		pw, err := aw.CreatePart(textproto.MIMEHeader{"Content-Type": {b[0]}})
		if err != nil {
			return "", errors.Wrapf(err, "creating %s part", b[0])
		}
		if _, err = io.WriteString(pw, b[1]+"\r\n"); err != nil {
			return "", errors.Wrapf(err, "writing %s part", b[0])
		}
	}
	return aw.Boundary(), errors.Wrap(aw.Close(), "closing multipart/alternative")
}

func joinAddresses(addrs []mail.Address) string {
	list := make([]string, 0, len(addrs))
	for _, a := range addrs {
		list = append(list, a.String())
	}
	return strings.Join(list, ", ")
}
