package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picnichub/internal/model"
)

func seedPicnic(t *testing.T, m *Memory, id string, maxPeople int) {
	t.Helper()
	require.NoError(t, m.CreatePicnic(context.Background(), &model.Picnic{
		ID:        id,
		Title:     "Picnic " + id,
		MaxPeople: maxPeople,
		StartDate: time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC),
	}))
}

func seedRegistration(t *testing.T, m *Memory, id, picnicID string) {
	t.Helper()
	require.NoError(t, m.CreateRegistration(context.Background(), &model.Registration{
		ID:       id,
		PicnicID: picnicID,
		Name:     "Guest " + id,
		Status:   model.StatusPending,
	}))
}

func TestMemoryRegistrationsNewestFirst(t *testing.T) {
	m := NewMemory()
	fixed := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	seedPicnic(t, m, "p1", 5)
	seedRegistration(t, m, "r1", "p1")
	seedRegistration(t, m, "r2", "p1")
	seedRegistration(t, m, "r3", "p1")

	regs, err := m.GetRegistrationsByPicnicID(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, regs, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, []string{regs[0].ID, regs[1].ID, regs[2].ID})
}

func TestMemoryCreateRegistrationUnknownPicnic(t *testing.T) {
	m := NewMemory()
	err := m.CreateRegistration(context.Background(), &model.Registration{ID: "r1", PicnicID: "nope"})
	assert.ErrorIs(t, err, ErrPicnicNotFound)
}

func TestMemoryApproveGuardsCapacityAndStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedPicnic(t, m, "p1", 1)
	seedRegistration(t, m, "r1", "p1")
	seedRegistration(t, m, "r2", "p1")

	reg, err := m.ApproveRegistrationTx(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, reg.Status)

	_, err = m.ApproveRegistrationTx(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotPending)

	_, err = m.ApproveRegistrationTx(ctx, "r2")
	assert.ErrorIs(t, err, ErrPicnicFull)

	_, err = m.ApproveRegistrationTx(ctx, "missing")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)

	count, err := m.CountApproved(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryConcurrentApprovalsNeverOverbook(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedPicnic(t, m, "p1", 3)
	ids := []string{"r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8"}
	for _, id := range ids {
		seedRegistration(t, m, id, "p1")
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = m.ApproveRegistrationTx(ctx, id)
		}(id)
	}
	wg.Wait()

	count, err := m.CountApproved(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMemoryRejectOnlyPending(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedPicnic(t, m, "p1", 2)
	seedRegistration(t, m, "r1", "p1")

	reg, err := m.RejectRegistrationTx(ctx, "r1", "no payment")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, reg.Status)
	assert.Equal(t, "no payment", reg.RejectionReason)

	_, err = m.RejectRegistrationTx(ctx, "r1", "again")
	assert.ErrorIs(t, err, ErrNotPending)

	stored, err := m.GetRegistrationByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "no payment", stored.RejectionReason)
}

func TestMemoryDeletePicnic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedPicnic(t, m, "p1", 2)
	seedPicnic(t, m, "p2", 2)
	seedRegistration(t, m, "r1", "p1")

	assert.ErrorIs(t, m.DeletePicnicTx(ctx, "p1"), ErrPicnicHasRegistrations)
	assert.ErrorIs(t, m.DeletePicnicTx(ctx, "missing"), ErrPicnicNotFound)
	require.NoError(t, m.DeletePicnicTx(ctx, "p2"))

	_, err := m.GetPicnicByID(ctx, "p2")
	assert.ErrorIs(t, err, ErrPicnicNotFound)
}

func TestMemoryPicnicsOrderedByStartDesc(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i, id := range []string{"early", "late", "mid"} {
		start := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
		switch id {
		case "late":
			start = start.AddDate(0, 1, 0)
		case "mid":
			start = start.AddDate(0, 0, 10)
		}
		require.NoError(t, m.CreatePicnic(ctx, &model.Picnic{ID: id, MaxPeople: i + 1, StartDate: start}))
	}

	picnics, err := m.GetAllPicnics(ctx)
	require.NoError(t, err)
	require.Len(t, picnics, 3)
	assert.Equal(t, "late", picnics[0].ID)
	assert.Equal(t, "mid", picnics[1].ID)
	assert.Equal(t, "early", picnics[2].ID)
}
