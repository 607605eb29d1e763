package repo

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"

	"picnichub/internal/model"
)

// readOnly turns a DSN into one whose sessions refuse writes, so a pool
// built from it behaves like a hot standby.
func readOnly(dsn string) string {
	const param = "default_transaction_read_only=on"
	if strings.Contains(dsn, "://") {
		if strings.Contains(dsn, "?") {
			return dsn + "&" + param
		}
		return dsn + "?" + param
	}
	return dsn + " " + param
}

// newPostgres needs PICNIC_TEST_DSN. Reads are balanced onto a read-only
// pool against the same database, so any write that misses the master fails.
func newPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("PICNIC_TEST_DSN")
	if dsn == "" {
		t.Skip("PICNIC_TEST_DSN not set")
	}

	db, err := dbpg.New(dsn, []string{readOnly(dsn)}, &dbpg.Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Master.Close()
		for _, s := range db.Slaves {
			_ = s.Close()
		}
	})

	log := zerolog.Nop()
	r, err := NewRepository(db, &log)
	require.NoError(t, err)
	require.NoError(t, r.MigrateUp("../../migrations/postgres"))
	return r
}

func pgPicnic(t *testing.T, r *Postgres, maxPeople int) *model.Picnic {
	t.Helper()
	start := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	p := &model.Picnic{
		ID:                   uuid.NewString(),
		Title:                "Lake day",
		Price:                300,
		StartDate:            start,
		EndDate:              start.Add(6 * time.Hour),
		RegistrationDeadline: start.Add(-24 * time.Hour),
		MaxPeople:            maxPeople,
		UpiID:                "lake.day@okbank",
		AdminID:              "admin-1",
	}
	require.NoError(t, r.CreatePicnic(context.Background(), p))
	return p
}

func pgRegistration(t *testing.T, r *Postgres, picnicID string) *model.Registration {
	t.Helper()
	reg := &model.Registration{
		ID:       uuid.NewString(),
		PicnicID: picnicID,
		Name:     "Guest",
		Email:    "guest@example.com",
		Phone:    "+91 99999",
		UpiID:    "guest@okbank",
		Status:   model.StatusPending,
	}
	require.NoError(t, r.CreateRegistration(context.Background(), reg))
	return reg
}

func TestPostgresWritesReachMasterWithReplicas(t *testing.T) {
	ctx := context.Background()
	r := newPostgres(t)

	p := pgPicnic(t, r, 5)
	assert.False(t, p.CreatedAt.IsZero())

	p.Title = "Lake day, moved"
	require.NoError(t, r.UpdatePicnic(ctx, p))

	a := pgRegistration(t, r, p.ID)
	b := pgRegistration(t, r, p.ID)

	approved, err := r.ApproveRegistrationTx(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)

	rejected, err := r.RejectRegistrationTx(ctx, b.ID, "no payment")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)
	assert.Equal(t, "no payment", rejected.RejectionReason)
}

func TestPostgresApproveRechecksCapacity(t *testing.T) {
	ctx := context.Background()
	r := newPostgres(t)
	p := pgPicnic(t, r, 2)

	a := pgRegistration(t, r, p.ID)
	b := pgRegistration(t, r, p.ID)
	c := pgRegistration(t, r, p.ID)

	_, err := r.ApproveRegistrationTx(ctx, a.ID)
	require.NoError(t, err)
	_, err = r.ApproveRegistrationTx(ctx, b.ID)
	require.NoError(t, err)

	_, err = r.ApproveRegistrationTx(ctx, c.ID)
	assert.ErrorIs(t, err, ErrPicnicFull)

	_, err = r.ApproveRegistrationTx(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotPending)

	still, err := r.GetRegistrationByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, still.Status)
}

func TestPostgresConcurrentApprovalsStayWithinCapacity(t *testing.T) {
	ctx := context.Background()
	r := newPostgres(t)
	p := pgPicnic(t, r, 3)

	ids := make([]string, 10)
	for i := range ids {
		ids[i] = pgRegistration(t, r, p.ID).ID
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		full int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := r.ApproveRegistrationTx(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrPicnicFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, full)
}

func TestPostgresRejectOnlyPending(t *testing.T) {
	ctx := context.Background()
	r := newPostgres(t)
	p := pgPicnic(t, r, 5)
	reg := pgRegistration(t, r, p.ID)

	_, err := r.ApproveRegistrationTx(ctx, reg.ID)
	require.NoError(t, err)

	_, err = r.RejectRegistrationTx(ctx, reg.ID, "late")
	assert.ErrorIs(t, err, ErrNotPending)

	_, err = r.RejectRegistrationTx(ctx, uuid.NewString(), "late")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)

	_, err = r.ApproveRegistrationTx(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestPostgresDeleteAndForeignKeys(t *testing.T) {
	ctx := context.Background()
	r := newPostgres(t)

	err := r.CreateRegistration(ctx, &model.Registration{
		ID:       uuid.NewString(),
		PicnicID: uuid.NewString(),
		Name:     "Ghost",
		Status:   model.StatusPending,
	})
	assert.ErrorIs(t, err, ErrPicnicNotFound)

	busy := pgPicnic(t, r, 5)
	pgRegistration(t, r, busy.ID)
	assert.ErrorIs(t, r.DeletePicnicTx(ctx, busy.ID), ErrPicnicHasRegistrations)

	empty := pgPicnic(t, r, 5)
	require.NoError(t, r.DeletePicnicTx(ctx, empty.ID))
	assert.ErrorIs(t, r.DeletePicnicTx(ctx, empty.ID), ErrPicnicNotFound)
}
