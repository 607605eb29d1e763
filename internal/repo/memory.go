package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"picnichub/internal/model"
)

var (
	_ Repository = (*Postgres)(nil)
	_ Repository = (*Memory)(nil)
)

// Memory is a process-local Repository. A single mutex makes every method
// atomic, which gives the same guarantees as the row locks in Postgres.
type Memory struct {
	mu            sync.Mutex
	now           func() time.Time
	seq           int64
	picnics       map[string]model.Picnic
	registrations map[string]memRegistration
}

type memRegistration struct {
	model.Registration
	seq int64
}

func NewMemory() *Memory {
	return &Memory{
		now:           time.Now,
		picnics:       make(map[string]model.Picnic),
		registrations: make(map[string]memRegistration),
	}
}

func (m *Memory) CreatePicnic(_ context.Context, p *model.Picnic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.picnics[p.ID] = *p
	return nil
}

func (m *Memory) GetPicnicByID(_ context.Context, id string) (*model.Picnic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.picnics[id]
	if !ok {
		return nil, ErrPicnicNotFound
	}
	return &p, nil
}

func (m *Memory) GetAllPicnics(_ context.Context) ([]model.Picnic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	picnics := make([]model.Picnic, 0, len(m.picnics))
	for _, p := range m.picnics {
		picnics = append(picnics, p)
	}
	sort.Slice(picnics, func(i, j int) bool {
		if picnics[i].StartDate.Equal(picnics[j].StartDate) {
			return picnics[i].ID > picnics[j].ID
		}
		return picnics[i].StartDate.After(picnics[j].StartDate)
	})
	return picnics, nil
}

func (m *Memory) UpdatePicnic(_ context.Context, p *model.Picnic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.picnics[p.ID]
	if !ok {
		return ErrPicnicNotFound
	}
	p.AdminID = cur.AdminID
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = m.now()
	m.picnics[p.ID] = *p
	return nil
}

func (m *Memory) DeletePicnicTx(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.picnics[id]; !ok {
		return ErrPicnicNotFound
	}
	for _, reg := range m.registrations {
		if reg.PicnicID == id {
			return ErrPicnicHasRegistrations
		}
	}
	delete(m.picnics, id)
	return nil
}

func (m *Memory) CreateRegistration(_ context.Context, reg *model.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.picnics[reg.PicnicID]; !ok {
		return ErrPicnicNotFound
	}
	now := m.now()
	reg.CreatedAt = now
	reg.UpdatedAt = now
	m.seq++
	m.registrations[reg.ID] = memRegistration{Registration: *reg, seq: m.seq}
	return nil
}

func (m *Memory) GetRegistrationByID(_ context.Context, id string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.registrations[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	out := reg.Registration
	return &out, nil
}

func (m *Memory) GetRegistrationsByPicnicID(_ context.Context, picnicID string) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []memRegistration
	for _, reg := range m.registrations {
		if reg.PicnicID == picnicID {
			matched = append(matched, reg)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].seq > matched[j].seq
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	regs := make([]model.Registration, 0, len(matched))
	for _, reg := range matched {
		regs = append(regs, reg.Registration)
	}
	return regs, nil
}

func (m *Memory) CountApproved(_ context.Context, picnicID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.countApprovedLocked(picnicID), nil
}

func (m *Memory) countApprovedLocked(picnicID string) int {
	count := 0
	for _, reg := range m.registrations {
		if reg.PicnicID == picnicID && reg.Status == model.StatusApproved {
			count++
		}
	}
	return count
}

func (m *Memory) ApproveRegistrationTx(_ context.Context, id string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.registrations[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	p, ok := m.picnics[reg.PicnicID]
	if !ok {
		return nil, ErrPicnicNotFound
	}
	if reg.Status != model.StatusPending {
		return nil, ErrNotPending
	}
	if m.countApprovedLocked(reg.PicnicID) >= p.MaxPeople {
		return nil, ErrPicnicFull
	}

	reg.Status = model.StatusApproved
	reg.UpdatedAt = m.now()
	m.registrations[id] = reg
	out := reg.Registration
	return &out, nil
}

func (m *Memory) RejectRegistrationTx(_ context.Context, id, reason string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.registrations[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	if reg.Status != model.StatusPending {
		return nil, ErrNotPending
	}

	reg.Status = model.StatusRejected
	reg.RejectionReason = reason
	reg.UpdatedAt = m.now()
	m.registrations[id] = reg
	out := reg.Registration
	return &out, nil
}
