package lifecycle

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"picnichub/internal/model"
)

type PicnicInput struct {
	Title                string
	Description          string
	Price                int
	StartDate            time.Time
	EndDate              time.Time
	RegistrationDeadline time.Time
	MaxPeople            int
	UpiID                string
	// AdminID owns the picnic; empty falls back to the configured admin.
	AdminID string
}

type PicnicState string

const (
	StateAvailable PicnicState = "available"
	StateFull      PicnicState = "full"
	StateExpired   PicnicState = "expired"
)

type PicnicView struct {
	model.Picnic
	ApprovedCount int
	SpotsLeft     int
	State         PicnicState
	PaymentURI    string
}

func (m *Manager) CreatePicnic(ctx context.Context, in PicnicInput) (*model.Picnic, error) {
	p := &model.Picnic{
		ID:                   m.newID(),
		Title:                strings.TrimSpace(in.Title),
		Description:          in.Description,
		Price:                in.Price,
		StartDate:            in.StartDate,
		EndDate:              in.EndDate,
		RegistrationDeadline: in.RegistrationDeadline,
		MaxPeople:            in.MaxPeople,
		UpiID:                strings.TrimSpace(in.UpiID),
		AdminID:              m.adminID,
	}
	if in.AdminID != "" {
		p.AdminID = in.AdminID
	}
	if err := validatePicnic(p); err != nil {
		return nil, err
	}

	if err := m.repo.CreatePicnic(ctx, p); err != nil {
		return nil, err
	}
	m.log.Info().Str("picnic_id", p.ID).Str("title", p.Title).Msg("picnic created")
	return p, nil
}

func (m *Manager) UpdatePicnic(ctx context.Context, id string, upd model.PicnicUpdate) (*model.Picnic, error) {
	if upd.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	cur, err := m.repo.GetPicnicByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	merged := upd.Apply(*cur)
	merged.Title = strings.TrimSpace(merged.Title)
	merged.UpiID = strings.TrimSpace(merged.UpiID)
	if err := validatePicnic(&merged); err != nil {
		return nil, err
	}

	if upd.MaxPeople != nil && *upd.MaxPeople < cur.MaxPeople {
		approved, err := m.repo.CountApproved(ctx, id)
		if err != nil {
			return nil, err
		}
		if merged.MaxPeople < approved {
			return nil, fmt.Errorf("%w: max_people %d is below %d approved registrations", ErrInvalidInput, merged.MaxPeople, approved)
		}
	}

	if err := m.repo.UpdatePicnic(ctx, &merged); err != nil {
		return nil, mapRepoErr(err)
	}
	m.log.Info().Str("picnic_id", id).Msg("picnic updated")
	return &merged, nil
}

// DeletePicnic refuses to remove a picnic that registrations still point at.
func (m *Manager) DeletePicnic(ctx context.Context, id string) error {
	if err := m.repo.DeletePicnicTx(ctx, id); err != nil {
		return mapRepoErr(err)
	}
	m.log.Info().Str("picnic_id", id).Msg("picnic deleted")
	return nil
}

func (m *Manager) GetPicnic(ctx context.Context, id string) (*PicnicView, error) {
	p, err := m.repo.GetPicnicByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	approved, err := m.repo.CountApproved(ctx, id)
	if err != nil {
		return nil, err
	}
	v := m.view(*p, approved)
	return &v, nil
}

// ListPicnics returns all picnics, latest start date first.
func (m *Manager) ListPicnics(ctx context.Context) ([]PicnicView, error) {
	picnics, err := m.repo.GetAllPicnics(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]PicnicView, 0, len(picnics))
	for _, p := range picnics {
		approved, err := m.repo.CountApproved(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, m.view(p, approved))
	}
	return views, nil
}

func (m *Manager) view(p model.Picnic, approved int) PicnicView {
	spots := p.MaxPeople - approved
	if spots < 0 {
		spots = 0
	}

	state := StateAvailable
	switch {
	case !m.now().Before(p.RegistrationDeadline):
		state = StateExpired
	case spots == 0:
		state = StateFull
	}

	return PicnicView{
		Picnic:        p,
		ApprovedCount: approved,
		SpotsLeft:     spots,
		State:         state,
		PaymentURI:    PaymentURI(p.UpiID, p.Price),
	}
}

// PaymentURI builds the UPI deep link encoded in the payment QR code.
func PaymentURI(upiID string, amount int) string {
	return "upi://pay?pa=" + url.QueryEscape(upiID) + "&tn=Picnic%20Payment&am=" + strconv.Itoa(amount)
}

// validatePicnic does not compare the deadline with the start date; admins
// may leave registration open after the picnic starts.
func validatePicnic(p *model.Picnic) error {
	switch {
	case p.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case p.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	case p.MaxPeople <= 0:
		return fmt.Errorf("%w: max_people must be positive", ErrInvalidInput)
	case p.StartDate.IsZero() || p.EndDate.IsZero() || p.RegistrationDeadline.IsZero():
		return fmt.Errorf("%w: start_date, end_date and registration_deadline are required", ErrInvalidInput)
	case p.EndDate.Before(p.StartDate):
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	case p.UpiID == "":
		return fmt.Errorf("%w: upi_id is required", ErrInvalidInput)
	}
	return nil
}
