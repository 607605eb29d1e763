// Package lifecycle owns the registration rules: who may register for a
// picnic, and how an admin moves a registration out of pending.
//
// Registration state machine:
//
//	[none] --create--> pending
//	pending --approve--> approved (terminal)
//	pending --reject(reason)--> rejected (terminal)
//
// Capacity counts approved registrations only. It is checked when a
// registration is submitted and again, atomically, when it is approved, so
// approved <= maxPeople holds for every picnic.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"picnichub/internal/model"
	"picnichub/internal/notify"
	"picnichub/internal/repo"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDeadlinePassed    = errors.New("registration deadline has passed")
	ErrCapacityExceeded  = errors.New("picnic is fully booked")
	ErrInvalidTransition = errors.New("only pending registrations can be approved or rejected")
	ErrInvalidInput      = errors.New("invalid input")
	ErrHasDependents     = errors.New("picnic still has registrations")
)

const SubmittedMessage = "Registration submitted. Check your email for confirmation."

type Manager struct {
	repo       repo.Repository
	notifier   notify.Notifier
	log        *zerolog.Logger
	now        func() time.Time
	newID      func() string
	adminID    string
	adminEmail string
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithAdmin sets the owner recorded on new picnics and the address that
// receives new-registration alerts. An empty email disables the alert.
func WithAdmin(id, email string) Option {
	return func(m *Manager) {
		m.adminID = id
		m.adminEmail = email
	}
}

func NewManager(r repo.Repository, n notify.Notifier, log *zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		repo:     r,
		notifier: n,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
		adminID:  "admin",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type RegistrationInput struct {
	Name  string
	Email string
	Phone string
	UpiID string
}

type Submitted struct {
	ID      string
	Message string
}

func (m *Manager) CreateRegistration(ctx context.Context, picnicID string, in RegistrationInput) (*Submitted, error) {
	picnic, err := m.repo.GetPicnicByID(ctx, picnicID)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	if !m.now().Before(picnic.RegistrationDeadline) {
		return nil, ErrDeadlinePassed
	}

	approved, err := m.repo.CountApproved(ctx, picnicID)
	if err != nil {
		return nil, err
	}
	if approved >= picnic.MaxPeople {
		return nil, ErrCapacityExceeded
	}

	reg := &model.Registration{
		ID:       m.newID(),
		PicnicID: picnicID,
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.TrimSpace(in.Email),
		Phone:    strings.TrimSpace(in.Phone),
		UpiID:    strings.TrimSpace(in.UpiID),
		Status:   model.StatusPending,
	}
	if err := m.repo.CreateRegistration(ctx, reg); err != nil {
		return nil, mapRepoErr(err)
	}

	m.log.Info().
		Str("registration_id", reg.ID).
		Str("picnic_id", picnicID).
		Msg("registration created")

	m.emit(ctx, notify.SubmissionReceived(reg.Email, reg.ID, picnic.Title, reg.Name))
	if m.adminEmail != "" {
		m.emit(ctx, notify.AdminNewRegistration(m.adminEmail, reg.ID, picnic.Title, reg.Name, reg.Email, reg.Phone))
	}

	return &Submitted{ID: reg.ID, Message: SubmittedMessage}, nil
}

func (m *Manager) Approve(ctx context.Context, registrationID string) error {
	reg, err := m.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return mapRepoErr(err)
	}
	if reg.Status != model.StatusPending {
		return ErrInvalidTransition
	}

	picnic, err := m.repo.GetPicnicByID(ctx, reg.PicnicID)
	if err != nil {
		return mapRepoErr(err)
	}

	updated, err := m.repo.ApproveRegistrationTx(ctx, registrationID)
	if err != nil {
		return mapRepoErr(err)
	}

	m.log.Info().
		Str("registration_id", updated.ID).
		Str("picnic_id", updated.PicnicID).
		Msg("registration approved")

	m.emit(ctx, notify.Approved(updated.Email, updated.ID, picnic.Title, updated.Name, picnic.StartDate))
	return nil
}

func (m *Manager) Reject(ctx context.Context, registrationID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: rejection reason is required", ErrInvalidInput)
	}

	reg, err := m.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return mapRepoErr(err)
	}
	if reg.Status != model.StatusPending {
		return ErrInvalidTransition
	}

	title := ""
	if picnic, err := m.repo.GetPicnicByID(ctx, reg.PicnicID); err == nil {
		title = picnic.Title
	} else if !errors.Is(err, repo.ErrPicnicNotFound) {
		return err
	}

	updated, err := m.repo.RejectRegistrationTx(ctx, registrationID, reason)
	if err != nil {
		return mapRepoErr(err)
	}

	m.log.Info().
		Str("registration_id", updated.ID).
		Str("picnic_id", updated.PicnicID).
		Msg("registration rejected")

	m.emit(ctx, notify.Rejected(updated.Email, updated.ID, title, updated.Name, updated.RejectionReason))
	return nil
}

// RegistrationsForPicnic returns every registration of the picnic, newest first.
func (m *Manager) RegistrationsForPicnic(ctx context.Context, picnicID string) ([]model.Registration, error) {
	if _, err := m.repo.GetPicnicByID(ctx, picnicID); err != nil {
		return nil, mapRepoErr(err)
	}
	regs, err := m.repo.GetRegistrationsByPicnicID(ctx, picnicID)
	if err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	return regs, nil
}

func (m *Manager) ApprovedCount(ctx context.Context, picnicID string) (int, error) {
	if _, err := m.repo.GetPicnicByID(ctx, picnicID); err != nil {
		return 0, mapRepoErr(err)
	}
	return m.repo.CountApproved(ctx, picnicID)
}

// emit never fails the caller: the registration is already durable.
func (m *Manager) emit(ctx context.Context, in notify.Intent) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, in); err != nil {
		m.log.Warn().
			Err(err).
			Str("kind", string(in.Kind)).
			Str("registration_id", in.RegistrationID).
			Msg("failed to queue notification")
	}
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repo.ErrPicnicNotFound):
		return fmt.Errorf("%w: picnic", ErrNotFound)
	case errors.Is(err, repo.ErrRegistrationNotFound):
		return fmt.Errorf("%w: registration", ErrNotFound)
	case errors.Is(err, repo.ErrNotPending):
		return ErrInvalidTransition
	case errors.Is(err, repo.ErrPicnicFull):
		return ErrCapacityExceeded
	case errors.Is(err, repo.ErrPicnicHasRegistrations):
		return ErrHasDependents
	default:
		return err
	}
}
