package doctor

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/utils"
)

type DoctorHandler struct {
	dir *Directory
	log logging.Logger
}

func NewDoctorHandler(dir *Directory, log logging.Logger) *DoctorHandler {
	return &DoctorHandler{dir: dir, log: log}
}

func (h *DoctorHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/doctors/active", h.ListActiveDoctors).Methods("GET")
}

// RegisterAdminRoutes mounts the management endpoints; router is expected to
// sit behind the admin gate.
func (h *DoctorHandler) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/doctors", h.ListDoctors).Methods("GET")
	router.HandleFunc("/doctors", h.CreateDoctor).Methods("POST")
	router.HandleFunc("/doctors/{id}", h.GetDoctor).Methods("GET")
	router.HandleFunc("/doctors/{id}", h.UpdateDoctor).Methods("PUT")
}

func (h *DoctorHandler) ListActiveDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.dir.ListActive(r.Context())
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, doctors)
}

func (h *DoctorHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.dir.List(r.Context())
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, doctors)
}

func (h *DoctorHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	doc, err := h.dir.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, doc)
}

func (h *DoctorHandler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	doc, err := h.dir.Create(r.Context(), in)
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, doc)
}

func (h *DoctorHandler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	in.ID = mux.Vars(r)["id"]

	doc, err := h.dir.Update(r.Context(), in)
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, doc)
}
