package mailer

import (
	"context"
	"errors"
	"html"
	"net/smtp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picnichub/internal/notify"
)

func TestRenderRejectionCarriesReason(t *testing.T) {
	subject, body, err := Render(notify.Rejected("bob@example.com", "r1", "Lake day", "Bob", "schedule conflict"))
	require.NoError(t, err)

	assert.Equal(t, "Your Registration for Lake day - Not Approved", subject)
	assert.Contains(t, body, "schedule conflict")
	assert.Contains(t, body, "Hi Bob,")
}

func TestRenderApprovalCarriesDate(t *testing.T) {
	start := time.Date(2026, 11, 7, 10, 0, 0, 0, time.UTC)
	_, body, err := Render(notify.Approved("ann@example.com", "r1", "Lake day", "Ann", start))
	require.NoError(t, err)

	assert.Contains(t, body, "Saturday, November 7, 2026")
}

func TestRenderAdminAlertEscapesInput(t *testing.T) {
	in := notify.AdminNewRegistration("admin@example.com", "r1", "Lake day", "<script>x</script>", "eve@example.com", "+91 99999")
	_, body, err := Render(in)
	require.NoError(t, err)

	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "eve@example.com")
	assert.Contains(t, html.UnescapeString(body), "+91 99999")
}

func TestRenderUnknownKind(t *testing.T) {
	_, _, err := Render(notify.Intent{Kind: "mystery"})
	assert.Error(t, err)
}

func TestRenderStripsHeaderBreaks(t *testing.T) {
	subject, _, err := Render(notify.SubmissionReceived("a@b.c", "r1", "Lake\r\nBcc: x@y.z", "Ann"))
	require.NoError(t, err)
	assert.NotContains(t, subject, "\n")
}

func TestDeliverUsesSMTPSettings(t *testing.T) {
	log := zerolog.Nop()
	m := New(Config{Host: "smtp.example.com", Port: 587, Username: "bot@example.com", Password: "pw"}, &log)

	var gotAddr, gotFrom string
	var gotTo []string
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo = addr, from, to
		assert.Contains(t, string(msg), "Subject: Registration received for Lake day")
		return nil
	}

	require.NoError(t, m.Deliver(context.Background(), notify.SubmissionReceived("ann@example.com", "r1", "Lake day", "Ann")))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, []string{"ann@example.com"}, gotTo)
}

func TestDeliverWrapsTransportError(t *testing.T) {
	log := zerolog.Nop()
	m := New(Config{Host: "localhost", Port: 25}, &log)
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }

	err := m.Deliver(context.Background(), notify.SubmissionReceived("ann@example.com", "r1", "Lake day", "Ann"))
	assert.ErrorContains(t, err, "connection refused")
}
