// Package doctor manages the clinic's doctor directory.
package doctor

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/models"
	"github.com/KAsare1/Dentora-server/cmd/utils"
	"github.com/KAsare1/Dentora-server/db"
)

const msgDuplicateEmail = "A doctor with this email already exists"

var (
	errRequired     = utils.NewError(utils.ErrValidation, "Name and email are required")
	errNotFound     = utils.NewError(utils.ErrNotFound, "Doctor not found")
	errDuplicateKey = utils.NewError(utils.ErrConflict, msgDuplicateEmail)
)

// Summary is a doctor with the number of appointments booked with them.
type Summary struct {
	models.Doctor
	AppointmentCount int64 `json:"appointmentCount"`
}

// Input carries the writable doctor fields. IsActive defaults to true. On
// update, a nil Specialty or ImageURL leaves the stored value alone while a
// nil Phone or Bio clears it.
type Input struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	Specialty *string `json:"specialty"`
	Bio       *string `json:"bio"`
	ImageURL  *string `json:"imageUrl"`
	IsActive  *bool   `json:"isActive"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (in *Input) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" {
		return errRequired
	}
	return nil
}

func (in *Input) active() bool {
	return in.IsActive == nil || *in.IsActive
}

type Directory struct {
	db  *gorm.DB
	log logging.Logger
}

func NewDirectory(db *gorm.DB, log logging.Logger) *Directory {
	return &Directory{db: db, log: log.With("component", "doctor")}
}

// List returns every doctor, name descending.
func (d *Directory) List(ctx context.Context) ([]Summary, error) {
	return d.list(ctx, false, "name DESC")
}

// ListActive returns doctors accepting bookings, name ascending.
func (d *Directory) ListActive(ctx context.Context) ([]Summary, error) {
	return d.list(ctx, true, "name ASC")
}

func (d *Directory) list(ctx context.Context, activeOnly bool, order string) ([]Summary, error) {
	query := d.db.WithContext(ctx).Model(&models.Doctor{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var doctors []models.Doctor
	if err := query.Order(order).Find(&doctors).Error; err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}

	counts, err := d.appointmentCounts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(doctors))
	for _, doc := range doctors {
		out = append(out, Summary{Doctor: doc, AppointmentCount: counts[doc.ID]})
	}
	return out, nil
}

func (d *Directory) appointmentCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		DoctorID string
		Count    int64
	}
	err := d.db.WithContext(ctx).Model(&models.Appointment{}).
		Select("doctor_id, COUNT(*) AS count").
		Group("doctor_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.DoctorID] = r.Count
	}
	return counts, nil
}

func (d *Directory) Get(ctx context.Context, id string) (*models.Doctor, error) {
	var doc models.Doctor
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	return &doc, nil
}

func (d *Directory) Create(ctx context.Context, in Input) (*models.Doctor, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	doc := models.Doctor{
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Specialty: deref(in.Specialty),
		Bio:       in.Bio,
		ImageURL:  deref(in.ImageURL),
		IsActive:  in.active(),
	}
	if err := d.db.WithContext(ctx).Create(&doc).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errDuplicateKey
		}
		return nil, fmt.Errorf("create doctor: %w", err)
	}

	d.log.Info(ctx, "doctor created", "doctor_id", doc.ID)
	return &doc, nil
}

func (d *Directory) Update(ctx context.Context, in Input) (*models.Doctor, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	doc, err := d.Get(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if in.Email != doc.Email {
		var taken int64
		if err := d.db.WithContext(ctx).Model(&models.Doctor{}).
			Where("email = ? AND id <> ?", in.Email, doc.ID).
			Count(&taken).Error; err != nil {
			return nil, fmt.Errorf("check doctor email: %w", err)
		}
		if taken > 0 {
			return nil, errDuplicateKey
		}
	}

	changes := map[string]interface{}{
		"name":      in.Name,
		"email":     in.Email,
		"phone":     in.Phone,
		"bio":       in.Bio,
		"is_active": in.active(),
	}
	if in.Specialty != nil {
		changes["specialty"] = *in.Specialty
	}
	if in.ImageURL != nil {
		changes["image_url"] = *in.ImageURL
	}
	err = d.db.WithContext(ctx).Model(doc).Updates(changes).Error
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errDuplicateKey
		}
		return nil, fmt.Errorf("update doctor: %w", err)
	}

	d.log.Info(ctx, "doctor updated", "doctor_id", doc.ID)
	return d.Get(ctx, doc.ID)
}
