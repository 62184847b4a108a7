package notifications

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/utils"
)

type NotificationHandler struct {
	dispatcher *Dispatcher
	log        logging.Logger
}

func NewNotificationHandler(dispatcher *Dispatcher, log logging.Logger) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher, log: log}
}

func (h *NotificationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/send-appointment-email", h.SendAppointmentEmail).Methods("POST")
}

func (h *NotificationHandler) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/notifications", h.GetNotificationHistory).Methods("GET")
}

func (h *NotificationHandler) SendAppointmentEmail(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if _, err := h.dispatcher.BookAndNotify(r.Context(), req); err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Email sent to doctor successfully"})
}

func (h *NotificationHandler) GetNotificationHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	page := 1

	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsedLimit, err := strconv.Atoi(limitParam); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}
	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		if parsedPage, err := strconv.Atoi(pageParam); err == nil && parsedPage > 0 {
			page = parsedPage
		}
	}

	page, limit = HistoryWindow(page, limit)

	history, total, err := h.dispatcher.History(r.Context(), page, limit)
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total":   total,
		"page":    page,
		"limit":   limit,
		"history": history,
	})
}
