package appointment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/utils"
)

func newRouter(f *fixture) *mux.Router {
	h := NewAppointmentHandler(f.ledger, logging.Discard())
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/api").Subrouter())
	h.RegisterAdminRoutes(r.PathPrefix("/admin/api").Subrouter())
	return r
}

func do(r http.Handler, method, path, body, externalID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if externalID != "" {
		req = req.WithContext(utils.WithExternalID(req.Context(), externalID))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestBookAndListRoutes(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f)
	body := `{"doctorId":"` + f.doctor.ID + `","date":"2026-03-02","time":"09:00"}`

	rec := do(r, http.MethodPost, "/api/appointments", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"You must be logged in to book an appointment"}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/api/appointments", body, f.user.ClerkID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "2026-03-02", created.Date)
	assert.Equal(t, "Dr Boateng", created.DoctorName)

	rec = do(r, http.MethodPost, "/api/appointments", body, f.user.ClerkID)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(r, http.MethodPost, "/api/appointments", `{`, f.user.ClerkID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodGet, "/api/appointments/me", "", f.user.ClerkID)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	assert.Len(t, mine, 1)

	rec = do(r, http.MethodGet, "/api/appointments/me", "", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(r, http.MethodGet, "/api/appointments/me/stats", "", f.user.ClerkID)
	assert.JSONEq(t, `{"totalAppointments":1,"completedAppointments":0}`, rec.Body.String())
}

func TestSlotRoutes(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f)
	f.create(t, "2026-03-02", "09:30")

	rec := do(r, http.MethodGet, "/api/doctors/"+f.doctor.ID+"/booked-slots?date=2026-03-02", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["09:30"]`, rec.Body.String())

	rec = do(r, http.MethodGet, "/api/doctors/"+f.doctor.ID+"/booked-slots?date=2026-03-09", "", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(r, http.MethodGet, "/api/doctors/"+f.doctor.ID+"/booked-slots", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodGet, "/api/doctors/"+f.doctor.ID+"/slots?date=2026-03-02", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var slots []Slot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	require.Len(t, slots, 6)
	assert.Equal(t, Slot{Time: "09:30", Booked: true}, slots[1])
}

func TestAdminAppointmentRoutes(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f)
	v := f.create(t, "2026-03-02", "09:00")

	rec := do(r, http.MethodGet, "/admin/api/appointments", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 1)
	assert.Equal(t, "ama@patients.test", all[0].PatientEmail)

	rec = do(r, http.MethodPatch, "/admin/api/appointments/"+v.ID+"/status", `{"status":"COMPLETED"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var updated View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "COMPLETED", string(updated.Status))

	rec = do(r, http.MethodPatch, "/admin/api/appointments/"+v.ID+"/status", `{"status":"LOST"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPatch, "/admin/api/appointments/nope/status", `{"status":"CANCELLED"}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
