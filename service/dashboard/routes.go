package dashboard

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/models"
	"github.com/KAsare1/Dentora-server/cmd/utils"
)

type DashboardHandler struct {
	db  *gorm.DB
	log logging.Logger
}

func NewDashboardHandler(db *gorm.DB, log logging.Logger) *DashboardHandler {
	return &DashboardHandler{db: db, log: log}
}

type DashboardStats struct {
	TotalDoctors          int64 `json:"totalDoctors"`
	ActiveDoctors         int64 `json:"activeDoctors"`
	TotalAppointments     int64 `json:"totalAppointments"`
	ConfirmedAppointments int64 `json:"confirmedAppointments"`
	CompletedAppointments int64 `json:"completedAppointments"`
}

// RegisterRoutes mounts the admin dashboard; router sits behind the admin gate.
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/stats", h.GetDashboardStats).Methods("GET")
}

func (h *DashboardHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats(r.Context())
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) Stats(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	db := h.db.WithContext(ctx)

	counts := []struct {
		name  string
		query *gorm.DB
		dest  *int64
	}{
		{"doctors", db.Model(&models.Doctor{}), &stats.TotalDoctors},
		{"active doctors", db.Model(&models.Doctor{}).Where("is_active = ?", true), &stats.ActiveDoctors},
		{"appointments", db.Model(&models.Appointment{}), &stats.TotalAppointments},
		{"confirmed appointments", db.Model(&models.Appointment{}).Where("status = ?", models.StatusConfirmed), &stats.ConfirmedAppointments},
		{"completed appointments", db.Model(&models.Appointment{}).Where("status = ?", models.StatusCompleted), &stats.CompletedAppointments},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return DashboardStats{}, fmt.Errorf("count %s: %w", c.name, err)
		}
	}
	return stats, nil
}
