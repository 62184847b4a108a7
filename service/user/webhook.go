package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	webhookSecretPrefix = "whsec_"
	webhookTolerance    = 5 * time.Minute
)

var (
	ErrMissingHeaders  = errors.New("missing signature headers")
	ErrInvalidSig      = errors.New("invalid signature")
	ErrMissingUserData = errors.New("missing user data")
)

// WebhookVerifier checks Svix-style signatures: HMAC-SHA256 over
// "<id>.<timestamp>.<body>" keyed by the base64 secret after "whsec_".
type WebhookVerifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, webhookSecretPrefix))
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("webhook secret is empty")
	}
	return &WebhookVerifier{key: key, tolerance: webhookTolerance, now: time.Now}, nil
}

func (v *WebhookVerifier) sign(id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify accepts the message when any "v1,<sig>" entry of signatures matches
// and the timestamp is within tolerance of now.
func (v *WebhookVerifier) Verify(id, timestamp, signatures string, body []byte) error {
	if id == "" || timestamp == "" || signatures == "" {
		return ErrMissingHeaders
	}

	secs, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSig
	}
	sent := time.Unix(secs, 0)
	now := v.now()
	if sent.Before(now.Add(-v.tolerance)) || sent.After(now.Add(v.tolerance)) {
		return ErrInvalidSig
	}

	expected := []byte(v.sign(id, timestamp, body))
	for _, entry := range strings.Fields(signatures) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), expected) {
			return nil
		}
	}
	return ErrInvalidSig
}

// Event is one of UserUpserted, UserDeleted or UnhandledEvent.
type Event interface {
	EventType() string
}

type UserUpserted struct {
	Type    string
	Profile Profile
}

type UserDeleted struct {
	ExternalID string
}

type UnhandledEvent struct {
	Type string
}

func (e UserUpserted) EventType() string   { return e.Type }
func (e UserDeleted) EventType() string    { return "user.deleted" }
func (e UnhandledEvent) EventType() string { return e.Type }

// clerkUser is the provider's user object, shared by webhooks and the
// backend API.
type clerkUser struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	PhoneNumbers []struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"phone_numbers"`
}

func (c clerkUser) profile() Profile {
	p := Profile{ExternalID: c.ID, FirstName: c.FirstName, LastName: c.LastName}
	if len(c.EmailAddresses) > 0 {
		p.Email = c.EmailAddresses[0].EmailAddress
	}
	if len(c.PhoneNumbers) > 0 && c.PhoneNumbers[0].PhoneNumber != "" {
		phone := c.PhoneNumbers[0].PhoneNumber
		p.Phone = &phone
	}
	return p
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(body []byte) (Event, error) {
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}

	switch envelope.Type {
	case "user.created", "user.updated":
		var u clerkUser
		if len(envelope.Data) == 0 || json.Unmarshal(envelope.Data, &u) != nil {
			return nil, ErrMissingUserData
		}
		if u.ID == "" || u.EmailAddresses == nil {
			return nil, ErrMissingUserData
		}
		return UserUpserted{Type: envelope.Type, Profile: u.profile()}, nil
	case "user.deleted":
		var d struct {
			ID string `json:"id"`
		}
		if len(envelope.Data) == 0 || json.Unmarshal(envelope.Data, &d) != nil || d.ID == "" {
			return nil, ErrMissingUserData
		}
		return UserDeleted{ExternalID: d.ID}, nil
	default:
		return UnhandledEvent{Type: envelope.Type}, nil
	}
}
