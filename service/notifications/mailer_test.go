package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KAsare1/Dentora-server/cmd/config"
)

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(&config.Config{EmailProvider: config.EmailProviderSMTP, SMTPHost: "smtp.test", SMTPPort: 587})
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	m, err = NewMailer(&config.Config{EmailProvider: config.EmailProviderResend, ResendAPIKey: "re_123"})
	require.NoError(t, err)
	assert.IsType(t, &ResendMailer{}, m)

	_, err = NewMailer(&config.Config{EmailProvider: config.EmailProviderSMTP})
	assert.Error(t, err)

	_, err = NewMailer(&config.Config{EmailProvider: config.EmailProviderResend})
	assert.Error(t, err)

	_, err = NewMailer(&config.Config{EmailProvider: "pigeon"})
	assert.Error(t, err)
}

func TestBuildMessage(t *testing.T) {
	m := buildMessage(Message{From: "DentOra <no-reply@dentora.test>", To: []string{"doc@clinic.test"}, Subject: "Hi", HTML: "<p>x</p>"})
	assert.Equal(t, []string{"DentOra <no-reply@dentora.test>"}, m.GetHeader("From"))
	assert.Equal(t, []string{"doc@clinic.test"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Hi"}, m.GetHeader("Subject"))
}

func TestSMTPMailer_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSMTPMailer("127.0.0.1", 1, "", "").Send(ctx, Message{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResendMailer(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer re_good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"invalid key"}`))
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	msg := Message{From: "a@b.c", To: []string{"doc@clinic.test"}, Subject: "S", HTML: "<b>hi</b>"}
	require.NoError(t, NewResendMailer(srv.URL, "re_good").Send(context.Background(), msg))
	assert.Equal(t, "a@b.c", got["from"])
	assert.Equal(t, []any{"doc@clinic.test"}, got["to"])
	assert.Equal(t, "S", got["subject"])
	assert.Equal(t, "<b>hi</b>", got["html"])

	err := NewResendMailer(srv.URL, "re_bad").Send(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
