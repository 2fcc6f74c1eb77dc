package core

import (
	"bytes"
	"encoding/base64"
	"fmt"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/evalink/fs"
)

const emailTemplatesDir = "templates/email"

var (
	templates   = make(templateCache)
	templatesMu sync.RWMutex
)

type (
	// templateExecutor is satisfied by both text and html templates.
	templateExecutor interface {
		Execute(w io.Writer, data interface{}) error
	}

	// templateCache maps a template name to its variants by file extension (".txt", ".gohtml").
	templateCache map[string]map[string]templateExecutor

	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// execute renders the ext variant of the message template, if there is one.
func (m *EmailMessage) execute(ext string) (string, error) {
	templatesMu.RLock()
	tmpl, ok := templates[m.TemplateName][ext]
	templatesMu.RUnlock()
	if !ok {
		return "", nil
	}

	var buf bytes.Buffer
	data := ContextData{AppName: Conf.AppName, FrontendBaseURL: Conf.FrontendBaseURL, Data: m.TemplateData}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "executing %s%s", m.TemplateName, ext)
	}
	return buf.String(), nil
}

// Render fills TextContent and HTMLContent. BodyStr takes precedence over the text template.
func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	var err error
	if m.BodyStr == "" {
		if m.TextContent, err = m.execute(".txt"); err != nil {
			return err
		}
	}
	m.HTMLContent, err = m.execute(".gohtml")
	return err
}

// Attach base64 encodes the content of r as a new attachment.
// The content type is sniffed when ct is not provided.
func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading attachment")
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err = encoder.Write(content); err != nil {
		return errors.Wrap(err, "encoding attachment")
	}
	if err = encoder.Close(); err != nil {
		return errors.Wrap(err, "encoding attachment")
	}

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseEmailTemplates loads the embedded email templates. Files starting with "_" are layouts
// shared by every template of the same extension.
func ParseEmailTemplates(logger Logger) {
	cache, err := parseTemplates(appfs.FS)
	if err != nil {
		logger.Error(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	templatesMu.Lock()
	templates = cache
	templatesMu.Unlock()
}

func parseTemplates(fsys fs.FS) (templateCache, error) {
	cache := make(templateCache)

	fps, err := fs.Glob(fsys, path.Join(emailTemplatesDir, "*"))
	if err != nil {
		return cache, errors.Wrap(err, "listing templates")
	}

	strict := Conf.Debug || Conf.TestMode
	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		layout := path.Join(emailTemplatesDir, "_base"+ext)

		var tmpl templateExecutor
		switch ext {
		case ".txt":
			t, err := texttmpl.ParseFS(fsys, layout, fp)
			if err != nil {
				return cache, errors.Wrapf(err, "parsing %s", fname)
			}
			if strict {
				t = t.Option("missingkey=error")
			}
			tmpl = t
		case ".gohtml":
			t, err := htmltmpl.ParseFS(fsys, layout, fp)
			if err != nil {
				return cache, errors.Wrapf(err, "parsing %s", fname)
			}
			if strict {
				t = t.Option("missingkey=error")
			}
			tmpl = t
		default:
			continue
		}

		name := strings.TrimSuffix(fname, ext)
		if cache[name] == nil {
			cache[name] = make(map[string]templateExecutor)
		}
		cache[name][ext] = tmpl
	}
	return cache, nil
}
