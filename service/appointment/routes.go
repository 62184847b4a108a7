package appointment

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/models"
	"github.com/KAsare1/Dentora-server/cmd/utils"
)

type AppointmentHandler struct {
	ledger *Ledger
	log    logging.Logger
}

func NewAppointmentHandler(ledger *Ledger, log logging.Logger) *AppointmentHandler {
	return &AppointmentHandler{ledger: ledger, log: log}
}

func (h *AppointmentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/doctors/{id}/booked-slots", h.GetBookedSlots).Methods("GET")
	router.HandleFunc("/doctors/{id}/slots", h.GetAvailableSlots).Methods("GET")
	router.HandleFunc("/appointments", h.BookAppointment).Methods("POST")
	router.HandleFunc("/appointments/me", h.GetMyAppointments).Methods("GET")
	router.HandleFunc("/appointments/me/stats", h.GetMyStats).Methods("GET")
}

func (h *AppointmentHandler) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/appointments", h.GetAllAppointments).Methods("GET")
	router.HandleFunc("/appointments/{id}/status", h.UpdateStatus).Methods("PATCH")
}

func dateParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "date query parameter is required"})
		return "", false
	}
	return date, true
}

func (h *AppointmentHandler) GetBookedSlots(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	times, err := h.ledger.BookedSlots(r.Context(), mux.Vars(r)["id"], date)
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, times)
}

func (h *AppointmentHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	slots, err := h.ledger.AvailableSlots(r.Context(), mux.Vars(r)["id"], date)
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, slots)
}

func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	appt, err := h.ledger.Book(r.Context(), in)
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, appt)
}

func (h *AppointmentHandler) GetMyAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.ledger.ListForCurrentUser(r.Context())
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, appts)
}

func (h *AppointmentHandler) GetMyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.StatsForCurrentUser(r.Context())
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

func (h *AppointmentHandler) GetAllAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.ledger.ListAll(r.Context())
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, appts)
}

func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.AppointmentStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	appt, err := h.ledger.SetStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, appt)
}
