package helpers

import (
	"bytes"
	"html/template"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

// EmailData carries everything needed to render and deliver one transactional
// mail. FileContent, when set, is attached under FileName (the receipt PDF).
type EmailData struct {
	EmailTo      string
	NameTo       string
	EmailFrom    string
	NameFrom     string
	Subject      string
	TemplatePath string
	FileName     string
	FileContent  []byte
	AwsSMTP      *gomail.Dialer
}

func (ed *EmailData) SendEmail(data interface{}) error {
	t, err := template.ParseFiles(ed.TemplatePath)
	if err != nil {
		return errors.Wrapf(err, "failed parsing mail template %s", ed.TemplatePath)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return errors.Wrap(err, "failed rendering mail template")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(ed.EmailFrom, ed.NameFrom))
	m.SetHeader("To", m.FormatAddress(ed.EmailTo, ed.NameTo))
	m.SetHeader("Subject", ed.Subject)
	m.SetBody("text/html", body.String())

	if len(ed.FileContent) > 0 {
		name := ed.FileName
		if name == "" {
			name = "recibo.pdf"
		}
		m.Attach(name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(ed.FileContent)
			return err
		}))
	}

	if err := ed.AwsSMTP.DialAndSend(m); err != nil {
		return errors.Wrap(err, "failed sending mail")
	}

	return nil
}
