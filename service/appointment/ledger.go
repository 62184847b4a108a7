// Package appointment is the appointment ledger: creation, listing,
// slot availability and status changes.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/models"
	"github.com/KAsare1/Dentora-server/cmd/utils"
	"github.com/KAsare1/Dentora-server/db"
	"github.com/KAsare1/Dentora-server/service/user"
)

var (
	errLoginRequired  = utils.NewError(utils.ErrUnauthenticated, "You must be logged in to book an appointment")
	errUserNotFound   = utils.NewError(utils.ErrNotFound, "User not found")
	errDoctorNotFound = utils.NewError(utils.ErrNotFound, "Doctor not found")
	errNotFound       = utils.NewError(utils.ErrNotFound, "Appointment not found")
	errMissingFields  = utils.NewError(utils.ErrValidation, "Missing required fields")
	errInvalidDate    = utils.NewError(utils.ErrValidation, "Invalid date, expected YYYY-MM-DD")
	errInvalidStatus  = utils.NewError(utils.ErrValidation, "Invalid appointment status")
	errSlotTaken      = utils.NewError(utils.ErrConflict, "This time slot is already booked")
)

// View is an appointment joined with the display fields of its patient and doctor.
type View struct {
	ID             string                   `json:"id"`
	UserID         string                   `json:"userId"`
	DoctorID       string                   `json:"doctorId"`
	Date           string                   `json:"date"`
	Time           string                   `json:"time"`
	Reason         string                   `json:"reason"`
	Status         models.AppointmentStatus `json:"status"`
	Duration       int                      `json:"duration"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
	PatientName    string                   `json:"patientName"`
	PatientEmail   string                   `json:"patientEmail"`
	DoctorName     string                   `json:"doctorName"`
	DoctorImageURL string                   `json:"doctorImageUrl"`
}

func toView(a *models.Appointment) View {
	v := View{
		ID:        a.ID,
		UserID:    a.UserID,
		DoctorID:  a.DoctorID,
		Date:      a.Date.UTC().Format(models.DateLayout),
		Time:      a.Time,
		Reason:    a.Reason,
		Status:    a.Status,
		Duration:  a.Duration,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.User != nil {
		v.PatientName = a.User.FullName()
		v.PatientEmail = a.User.Email
	}
	if a.Doctor != nil {
		v.DoctorName = a.Doctor.Name
		v.DoctorImageURL = a.Doctor.ImageURL
	}
	return v
}

// CreateInput is what every creation path hands to Create.
type CreateInput struct {
	UserID   string
	DoctorID string
	Date     string
	Time     string
	Reason   string
	Duration int
}

// BookInput is the caller-facing booking request.
type BookInput struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Reason   string `json:"reason"`
	Duration int    `json:"duration"`
}

type Stats struct {
	TotalAppointments     int64 `json:"totalAppointments"`
	CompletedAppointments int64 `json:"completedAppointments"`
}

type Ledger struct {
	db       *gorm.DB
	log      logging.Logger
	schedule Schedule
}

func NewLedger(db *gorm.DB, schedule Schedule, log logging.Logger) *Ledger {
	return &Ledger{db: db, schedule: schedule, log: log.With("component", "appointment")}
}

func withRelations(tx *gorm.DB) *gorm.DB {
	return tx.Preload("User").Preload("Doctor")
}

// Create is the single entry point that persists a new appointment. The slot
// check and the insert share a transaction; the partial unique index catches
// whatever a concurrent booking slips past the check.
func (l *Ledger) Create(ctx context.Context, in CreateInput) (*View, error) {
	in.DoctorID = strings.TrimSpace(in.DoctorID)
	in.Time = strings.TrimSpace(in.Time)
	if in.UserID == "" || in.DoctorID == "" || in.Date == "" || in.Time == "" {
		return nil, errMissingFields
	}
	date, err := models.ParseDate(in.Date)
	if err != nil {
		return nil, errInvalidDate
	}

	appt := models.Appointment{
		UserID:   in.UserID,
		DoctorID: in.DoctorID,
		Date:     date,
		Time:     in.Time,
		Reason:   in.Reason,
		Status:   models.StatusConfirmed,
		Duration: in.Duration,
	}
	if strings.TrimSpace(appt.Reason) == "" {
		appt.Reason = models.DefaultReason
	}
	if appt.Duration <= 0 {
		appt.Duration = models.DefaultDuration
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doctors int64
		if err := tx.Model(&models.Doctor{}).Where("id = ?", appt.DoctorID).Count(&doctors).Error; err != nil {
			return fmt.Errorf("check doctor: %w", err)
		}
		if doctors == 0 {
			return errDoctorNotFound
		}

		var taken int64
		if err := tx.Model(&models.Appointment{}).
			Where("doctor_id = ? AND appointment_date = ? AND appointment_time = ? AND status = ?",
				appt.DoctorID, appt.Date, appt.Time, models.StatusConfirmed).
			Count(&taken).Error; err != nil {
			return fmt.Errorf("check slot: %w", err)
		}
		if taken > 0 {
			return errSlotTaken
		}

		return tx.Create(&appt).Error
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errSlotTaken
		}
		var de *utils.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	l.log.Info(ctx, "appointment created",
		"appointment_id", appt.ID, "doctor_id", appt.DoctorID, "date", in.Date, "time", appt.Time)
	return l.get(ctx, appt.ID)
}

func (l *Ledger) get(ctx context.Context, id string) (*View, error) {
	var appt models.Appointment
	if err := withRelations(l.db.WithContext(ctx)).Where("id = ?", id).First(&appt).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	v := toView(&appt)
	return &v, nil
}

// Book creates a CONFIRMED appointment for the logged-in, synced caller.
func (l *Ledger) Book(ctx context.Context, in BookInput) (*View, error) {
	if _, ok := utils.ExternalIDFromContext(ctx); !ok {
		return nil, errLoginRequired
	}
	caller, err := user.Current(ctx, l.db)
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, errUserNotFound
	}

	return l.Create(ctx, CreateInput{
		UserID:   caller.ID,
		DoctorID: in.DoctorID,
		Date:     in.Date,
		Time:     in.Time,
		Reason:   in.Reason,
		Duration: in.Duration,
	})
}

// ListAll returns every appointment, newest date first.
func (l *Ledger) ListAll(ctx context.Context) ([]View, error) {
	var appts []models.Appointment
	err := withRelations(l.db.WithContext(ctx)).
		Order("appointment_date DESC").Order("appointment_time DESC").
		Find(&appts).Error
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return toViews(appts), nil
}

// ListForCurrentUser returns the caller's appointments by date then time.
// Anonymous or unsynced callers get an empty list.
func (l *Ledger) ListForCurrentUser(ctx context.Context) ([]View, error) {
	caller, err := user.Current(ctx, l.db)
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return []View{}, nil
	}

	var appts []models.Appointment
	err = withRelations(l.db.WithContext(ctx)).
		Where("user_id = ?", caller.ID).
		Order("appointment_date ASC").Order("appointment_time ASC").
		Find(&appts).Error
	if err != nil {
		return nil, fmt.Errorf("list user appointments: %w", err)
	}
	return toViews(appts), nil
}

func toViews(appts []models.Appointment) []View {
	out := make([]View, 0, len(appts))
	for i := range appts {
		out = append(out, toView(&appts[i]))
	}
	return out
}

func (l *Ledger) StatsForCurrentUser(ctx context.Context) (Stats, error) {
	var stats Stats
	caller, err := user.Current(ctx, l.db)
	if err != nil || caller == nil {
		return stats, err
	}

	q := l.db.WithContext(ctx).Model(&models.Appointment{})
	if err := q.Where("user_id = ?", caller.ID).Count(&stats.TotalAppointments).Error; err != nil {
		return Stats{}, fmt.Errorf("count appointments: %w", err)
	}
	if err := l.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("user_id = ? AND status = ?", caller.ID, models.StatusCompleted).
		Count(&stats.CompletedAppointments).Error; err != nil {
		return Stats{}, fmt.Errorf("count completed appointments: %w", err)
	}
	return stats, nil
}

// BookedSlots returns the CONFIRMED times for doctorID on date.
func (l *Ledger) BookedSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	day, err := models.ParseDate(date)
	if err != nil {
		return nil, errInvalidDate
	}

	times := []string{}
	err = l.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ? AND appointment_date = ? AND status = ?", doctorID, day, models.StatusConfirmed).
		Order("appointment_time ASC").
		Pluck("appointment_time", &times).Error
	if err != nil {
		return nil, fmt.Errorf("booked slots: %w", err)
	}
	return times, nil
}

// AvailableSlots lays the clinic grid over the doctor's booked times.
func (l *Ledger) AvailableSlots(ctx context.Context, doctorID, date string) ([]Slot, error) {
	booked, err := l.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	return l.schedule.mark(booked), nil
}

// SetStatus overwrites the status without checking the transition.
func (l *Ledger) SetStatus(ctx context.Context, id string, status models.AppointmentStatus) (*View, error) {
	if !status.Valid() {
		return nil, errInvalidStatus
	}

	res := l.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error) {
			return nil, errSlotTaken
		}
		return nil, fmt.Errorf("update appointment status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errNotFound
	}

	l.log.Info(ctx, "appointment status changed", "appointment_id", id, "status", status)
	return l.get(ctx, id)
}
