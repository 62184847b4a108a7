package user

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/utils"
)

const maxWebhookBody = 1 << 20

// ProfileFetcher loads an account from the identity provider.
type ProfileFetcher interface {
	FetchUser(ctx context.Context, externalID string) (Profile, error)
}

type Handler struct {
	db       *gorm.DB
	syncer   *Syncer
	verifier *WebhookVerifier
	identity ProfileFetcher
	replay   ReplayGuard
	log      logging.Logger
}

func NewHandler(db *gorm.DB, syncer *Syncer, verifier *WebhookVerifier, log logging.Logger) *Handler {
	return &Handler{db: db, syncer: syncer, verifier: verifier, log: log.With("component", "user")}
}

// WithIdentity enables on-demand sync through the provider's backend API.
func (h *Handler) WithIdentity(f ProfileFetcher) *Handler {
	h.identity = f
	return h
}

// WithReplayGuard makes the webhook skip message ids it has already handled.
func (h *Handler) WithReplayGuard(g ReplayGuard) *Handler {
	h.replay = g
	return h
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/sync-user", h.HandleWebhook).Methods("POST")
	router.HandleFunc("/users/sync", h.SyncCurrentUser).Methods("POST")
	router.HandleFunc("/users/me", h.GetCurrentUser).Methods("GET")
}

func webhookReply(w http.ResponseWriter, status int, message string) {
	utils.WriteJSON(w, status, map[string]any{"ok": status == http.StatusOK, "message": message})
}

func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		webhookReply(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	msgID := r.Header.Get("svix-id")
	err = h.verifier.Verify(msgID, r.Header.Get("svix-timestamp"), r.Header.Get("svix-signature"), body)
	switch {
	case errors.Is(err, ErrMissingHeaders):
		webhookReply(w, http.StatusBadRequest, "Invalid signature headers")
		return
	case err != nil:
		h.log.Warn(ctx, "webhook verification failed", "svix_id", msgID, "err", err)
		webhookReply(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	if h.replay != nil {
		seen, err := h.replay.Seen(ctx, msgID)
		if err != nil {
			h.log.Warn(ctx, "replay guard lookup failed", "svix_id", msgID, "err", err)
		} else if seen {
			h.log.Info(ctx, "webhook already processed", "svix_id", msgID)
			webhookReply(w, http.StatusOK, "Sync successful")
			return
		}
	}

	evt, err := ParseEvent(body)
	if err != nil {
		if errors.Is(err, ErrMissingUserData) {
			webhookReply(w, http.StatusBadRequest, "Missing user data")
			return
		}
		webhookReply(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	switch e := evt.(type) {
	case UserUpserted:
		if _, err := h.syncer.Upsert(ctx, e.Profile); err != nil {
			h.log.Error(ctx, "webhook sync failed", "svix_id", msgID, "err", err)
			webhookReply(w, http.StatusInternalServerError, "Server error")
			return
		}
	case UserDeleted:
		h.log.Info(ctx, "user deletion acknowledged", "clerk_id", e.ExternalID)
	default:
		h.log.Debug(ctx, "webhook event ignored", "type", evt.EventType())
	}

	if h.replay != nil {
		if err := h.replay.Mark(ctx, msgID); err != nil {
			h.log.Warn(ctx, "replay guard mark failed", "svix_id", msgID, "err", err)
		}
	}
	webhookReply(w, http.StatusOK, "Sync successful")
}

func (h *Handler) SyncCurrentUser(w http.ResponseWriter, r *http.Request) {
	externalID, ok := utils.ExternalIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, r, h.log, utils.NewError(utils.ErrUnauthenticated, "Unauthenticated"))
		return
	}
	if h.identity == nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Identity provider is not configured"})
		return
	}

	profile, err := h.identity.FetchUser(r.Context(), externalID)
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	u, err := h.syncer.Upsert(r.Context(), profile)
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := utils.ExternalIDFromContext(r.Context()); !ok {
		utils.WriteError(w, r, h.log, utils.NewError(utils.ErrUnauthenticated, "Unauthenticated"))
		return
	}
	u, err := Current(r.Context(), h.db)
	if err != nil {
		utils.WriteError(w, r, h.log, err)
		return
	}
	if u == nil {
		utils.WriteError(w, r, h.log, utils.NewError(utils.ErrNotFound, "User not found"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, u)
}
