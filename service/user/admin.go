package user

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/utils"
)

var errForbidden = utils.NewError(utils.ErrForbidden, "Forbidden")

// RequireAdmin only lets through callers whose synced email matches
// adminEmail. An empty adminEmail admits nobody.
func RequireAdmin(gdb *gorm.DB, adminEmail string, log logging.Logger) mux.MiddlewareFunc {
	adminEmail = strings.TrimSpace(adminEmail)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := utils.ExternalIDFromContext(r.Context()); !ok {
				utils.WriteError(w, r, log, utils.NewError(utils.ErrUnauthenticated, "Unauthenticated"))
				return
			}
			if adminEmail == "" {
				log.Warn(r.Context(), "admin access denied, no admin email configured", "path", r.URL.Path)
				utils.WriteError(w, r, log, errForbidden)
				return
			}

			u, err := Current(r.Context(), gdb)
			if err != nil {
				utils.WriteError(w, r, log, err)
				return
			}
			if u == nil || !strings.EqualFold(u.Email, adminEmail) {
				log.Warn(r.Context(), "admin access denied", "path", r.URL.Path)
				utils.WriteError(w, r, log, errForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
