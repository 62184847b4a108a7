package notifications

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/models"
	"github.com/KAsare1/Dentora-server/cmd/utils"
	"github.com/KAsare1/Dentora-server/db"
	"github.com/KAsare1/Dentora-server/service/appointment"
	"github.com/KAsare1/Dentora-server/service/user"
)

const confirmationSubject = "New Appointment Scheduled - DentOra"

const (
	MaxHistoryLimit = 100
	// maxHistoryPage keeps (page-1)*limit well inside int32 for any driver.
	maxHistoryPage = math.MaxInt32 / MaxHistoryLimit
)

var (
	errMissingFields  = utils.NewError(utils.ErrValidation, "Missing required fields")
	errLoginRequired  = utils.NewError(utils.ErrUnauthenticated, "You must be logged in to book an appointment")
	errDoctorNotFound = utils.NewError(utils.ErrNotFound, "Doctor not found")
)

// Request is the body of an appointment email request.
type Request struct {
	DoctorID        string `json:"doctorId"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	AppointmentType string `json:"appointmentType"`
	Duration        int    `json:"duration"`
	Price           string `json:"price"`
	PatientName     string `json:"patientName"`
}

// Dispatcher books an appointment and emails the doctor about it.
type Dispatcher struct {
	db     *gorm.DB
	ledger *appointment.Ledger
	mailer Mailer
	from   string
	log    logging.Logger
}

func NewDispatcher(db *gorm.DB, ledger *appointment.Ledger, mailer Mailer, from string, log logging.Logger) *Dispatcher {
	return &Dispatcher{db: db, ledger: ledger, mailer: mailer, from: from, log: log.With("component", "notifications")}
}

// BookAndNotify persists the appointment first and then sends the email. A
// failed send leaves the appointment in place and is recorded as failed.
func (d *Dispatcher) BookAndNotify(ctx context.Context, req Request) (*appointment.View, error) {
	if strings.TrimSpace(req.DoctorID) == "" || req.AppointmentDate == "" || strings.TrimSpace(req.AppointmentTime) == "" {
		return nil, errMissingFields
	}

	caller, err := user.Current(ctx, d.db)
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, errLoginRequired
	}

	var doctor models.Doctor
	if err := d.db.WithContext(ctx).Where("id = ?", req.DoctorID).First(&doctor).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, errDoctorNotFound
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	appt, err := d.ledger.Create(ctx, appointment.CreateInput{
		UserID:   caller.ID,
		DoctorID: doctor.ID,
		Date:     req.AppointmentDate,
		Time:     req.AppointmentTime,
		Reason:   req.AppointmentType,
		Duration: req.Duration,
	})
	if err != nil {
		return nil, err
	}

	patient := strings.TrimSpace(req.PatientName)
	if patient == "" {
		patient = caller.FullName()
	}
	price := req.Price
	if price == "" {
		price = "N/A"
	}
	html, err := RenderConfirmation(ConfirmationData{
		DoctorName:  doctor.Name,
		PatientName: patient,
		Date:        appt.Date,
		Time:        appt.Time,
		Type:        appt.Reason,
		Duration:    appt.Duration,
		Price:       price,
	})
	if err != nil {
		return nil, fmt.Errorf("render confirmation: %w", err)
	}

	sendErr := d.mailer.Send(ctx, Message{
		From:    d.from,
		To:      []string{doctor.Email},
		Subject: confirmationSubject,
		HTML:    html,
	})
	d.record(ctx, appt.ID, doctor.Email, sendErr)
	if sendErr != nil {
		return nil, fmt.Errorf("send confirmation for appointment %s: %w", appt.ID, sendErr)
	}

	d.log.Info(ctx, "confirmation email sent", "appointment_id", appt.ID, "doctor_id", doctor.ID)
	return appt, nil
}

func (d *Dispatcher) record(ctx context.Context, appointmentID, recipient string, sendErr error) {
	n := models.EmailNotification{
		AppointmentID: appointmentID,
		Recipient:     recipient,
		Subject:       confirmationSubject,
		Status:        models.EmailStatusSent,
		SentAt:        time.Now().UTC(),
	}
	if sendErr != nil {
		n.Status = models.EmailStatusFailed
		n.Error = sendErr.Error()
	}
	if err := d.db.WithContext(ctx).Create(&n).Error; err != nil {
		d.log.Error(ctx, "failed to record email notification", "appointment_id", appointmentID, "err", err)
	}
}

// HistoryWindow clamps limit to 1..MaxHistoryLimit and page to a range whose
// offset cannot overflow.
func HistoryWindow(page, limit int) (int, int) {
	limit = min(max(limit, 1), MaxHistoryLimit)
	page = min(max(page, 1), maxHistoryPage)
	return page, limit
}

// History pages through recorded attempts, newest first.
func (d *Dispatcher) History(ctx context.Context, page, limit int) ([]models.EmailNotification, int64, error) {
	page, limit = HistoryWindow(page, limit)

	var total int64
	if err := d.db.WithContext(ctx).Model(&models.EmailNotification{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	history := []models.EmailNotification{}
	err := d.db.WithContext(ctx).
		Order("sent_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&history).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return history, total, nil
}
