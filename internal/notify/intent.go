// Package notify carries notification intents from the registration
// lifecycle to whatever delivers mail. Producers never learn whether the
// message was delivered.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSubmissionReceived   Kind = "submission_received"
	KindAdminNewRegistration Kind = "admin_new_registration"
	KindApproved             Kind = "registration_approved"
	KindRejected             Kind = "registration_rejected"
)

// DateLayout is how picnic dates appear in approval mails.
const DateLayout = "Monday, January 2, 2006"

type Intent struct {
	ID               string    `json:"id"`
	Kind             Kind      `json:"kind"`
	Recipient        string    `json:"recipient"`
	RegistrationID   string    `json:"registration_id"`
	PicnicTitle      string    `json:"picnic_title"`
	ParticipantName  string    `json:"participant_name"`
	ParticipantEmail string    `json:"participant_email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	PicnicDate       string    `json:"picnic_date,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Notifier accepts intents. Implementations must not block on mail delivery.
type Notifier interface {
	Notify(ctx context.Context, in Intent) error
}

// Handler consumes an intent on the delivery side.
type Handler func(ctx context.Context, in Intent) error

func newIntent(kind Kind, recipient, registrationID, title, name string) Intent {
	return Intent{
		ID:              uuid.NewString(),
		Kind:            kind,
		Recipient:       recipient,
		RegistrationID:  registrationID,
		PicnicTitle:     title,
		ParticipantName: name,
		CreatedAt:       time.Now().UTC(),
	}
}

func SubmissionReceived(recipient, registrationID, title, name string) Intent {
	return newIntent(KindSubmissionReceived, recipient, registrationID, title, name)
}

func AdminNewRegistration(adminEmail, registrationID, title, name, email, phone string) Intent {
	in := newIntent(KindAdminNewRegistration, adminEmail, registrationID, title, name)
	in.ParticipantEmail = email
	in.Phone = phone
	return in
}

func Approved(recipient, registrationID, title, name string, start time.Time) Intent {
	in := newIntent(KindApproved, recipient, registrationID, title, name)
	if !start.IsZero() {
		in.PicnicDate = start.Format(DateLayout)
	}
	return in
}

func Rejected(recipient, registrationID, title, name, reason string) Intent {
	in := newIntent(KindRejected, recipient, registrationID, title, name)
	in.Reason = reason
	return in
}
