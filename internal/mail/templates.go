package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

// PasswordResetData fills the password reset email.
type PasswordResetData struct {
	UserName  string
	ResetLink string
	ExpiresIn string
}

const passwordResetSubject = "Reset your Jokko password"

// RenderPasswordReset builds the password reset email for to.
func RenderPasswordReset(to string, data PasswordResetData) (Message, error) {
	return render(to, passwordResetSubject, "password_reset", data)
}

func render(to, subject, name string, data any) (Message, error) {
	var html, text bytes.Buffer

	if err := htmlTemplates.ExecuteTemplate(&html, name+".html", data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s html: %w", name, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s text: %w", name, err)
	}

	return Message{To: to, Subject: subject, HTML: html.String(), Text: text.String()}, nil
}
