package notifications

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const confirmationTemplate = "appointment_confirmation.html"

// ConfirmationData fills the doctor-facing confirmation email.
type ConfirmationData struct {
	DoctorName  string
	PatientName string
	Date        string
	Time        string
	Type        string
	Duration    int
	Price       string
}

func RenderConfirmation(data ConfirmationData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, confirmationTemplate, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
