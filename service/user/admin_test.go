package user

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/utils"
)

func TestRequireAdmin(t *testing.T) {
	s, gdb := newSyncer(t)
	ctx := context.Background()
	_, err := s.Upsert(ctx, Profile{ExternalID: "user_admin", Email: "Admin@Clinic.test"})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, Profile{ExternalID: "user_patient", Email: "p@patients.test"})
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	build := func(adminEmail string) *mux.Router {
		r := mux.NewRouter()
		admin := r.PathPrefix("/admin/api").Subrouter()
		admin.Use(RequireAdmin(gdb, adminEmail, logging.Discard()))
		admin.Handle("/stats", ok)
		return r
	}
	call := func(r http.Handler, externalID string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil)
		if externalID != "" {
			req = req.WithContext(utils.WithExternalID(req.Context(), externalID))
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	restricted := build("admin@clinic.test")
	assert.Equal(t, http.StatusUnauthorized, call(restricted, ""))
	assert.Equal(t, http.StatusForbidden, call(restricted, "user_patient"))
	assert.Equal(t, http.StatusForbidden, call(restricted, "user_unsynced"))
	assert.Equal(t, http.StatusNoContent, call(restricted, "user_admin"))

	unconfigured := build("")
	assert.Equal(t, http.StatusForbidden, call(unconfigured, "user_patient"))
	assert.Equal(t, http.StatusForbidden, call(unconfigured, "user_admin"))
	assert.Equal(t, http.StatusForbidden, call(unconfigured, "user_unsynced"))
	assert.Equal(t, http.StatusUnauthorized, call(unconfigured, ""))
}
