package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"picnichub/internal/model"
)

var (
	ErrPicnicNotFound         = errors.New("picnic not found")
	ErrRegistrationNotFound   = errors.New("registration not found")
	ErrNotPending             = errors.New("registration is not pending")
	ErrPicnicFull             = errors.New("picnic is full")
	ErrPicnicHasRegistrations = errors.New("picnic has registrations")
)

// foreign_key_violation
const pqForeignKeyViolation = "23503"

type Repository interface {
	CreatePicnic(ctx context.Context, p *model.Picnic) error
	GetPicnicByID(ctx context.Context, id string) (*model.Picnic, error)
	GetAllPicnics(ctx context.Context) ([]model.Picnic, error)
	UpdatePicnic(ctx context.Context, p *model.Picnic) error
	DeletePicnicTx(ctx context.Context, id string) error

	CreateRegistration(ctx context.Context, reg *model.Registration) error
	GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error)
	GetRegistrationsByPicnicID(ctx context.Context, picnicID string) ([]model.Registration, error)
	CountApproved(ctx context.Context, picnicID string) (int, error)
	ApproveRegistrationTx(ctx context.Context, id string) (*model.Registration, error)
	RejectRegistrationTx(ctx context.Context, id, reason string) (*model.Registration, error)
}

// Postgres sends every write and every read inside a write path to the
// master; only plain lookups go through dbpg's replica balancing.
type Postgres struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (*Postgres, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &Postgres{db: db, log: log}, nil
}

func (r *Postgres) MigrateUp(migrationsDir string) error {
	return r.runMigrations(migrationsDir, "*.up.sql", false)
}

func (r *Postgres) MigrateDown(migrationsDir string) error {
	return r.runMigrations(migrationsDir, "*.down.sql", true)
}

func (r *Postgres) runMigrations(migrationsDir, pattern string, reverse bool) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, pattern))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := r.db.Master.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Str("dir", migrationsDir).Str("pattern", pattern).Int("files", len(files)).Msg("migrations executed")
	return nil
}

const picnicColumns = `id, title, description, price, start_date, end_date,
		       registration_deadline, max_people, upi_id, admin_id, created_at, updated_at`

const registrationColumns = `id, picnic_id, name, email, phone, upi_id, status,
		       rejection_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPicnic(row rowScanner) (*model.Picnic, error) {
	var p model.Picnic
	if err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Price, &p.StartDate, &p.EndDate,
		&p.RegistrationDeadline, &p.MaxPeople, &p.UpiID, &p.AdminID, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var reg model.Registration
	if err := row.Scan(
		&reg.ID,
		&reg.PicnicID,
		&reg.Name,
		&reg.Email,
		&reg.Phone,
		&reg.UpiID,
		&reg.Status,
		&reg.RejectionReason,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Postgres) CreatePicnic(ctx context.Context, p *model.Picnic) error {
	query := `
		INSERT INTO picnics (id, title, description, price, start_date, end_date,
		                     registration_deadline, max_people, upi_id, admin_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	row := r.db.Master.QueryRowContext(ctx, query,
		p.ID, p.Title, p.Description, p.Price, p.StartDate, p.EndDate,
		p.RegistrationDeadline, p.MaxPeople, p.UpiID, p.AdminID,
	)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert picnic: %w", err)
	}
	return nil
}

func (r *Postgres) GetPicnicByID(ctx context.Context, id string) (*model.Picnic, error) {
	query := `SELECT ` + picnicColumns + ` FROM picnics WHERE id = $1`

	p, err := scanPicnic(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPicnicNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get picnic: %w", err)
	}
	return p, nil
}

func (r *Postgres) GetAllPicnics(ctx context.Context) ([]model.Picnic, error) {
	query := `SELECT ` + picnicColumns + ` FROM picnics ORDER BY start_date DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get picnics: %w", err)
	}
	defer rows.Close()

	var picnics []model.Picnic
	for rows.Next() {
		p, err := scanPicnic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan picnic: %w", err)
		}
		picnics = append(picnics, *p)
	}
	return picnics, rows.Err()
}

func (r *Postgres) UpdatePicnic(ctx context.Context, p *model.Picnic) error {
	query := `
		UPDATE picnics
		SET title = $2, description = $3, price = $4, start_date = $5, end_date = $6,
		    registration_deadline = $7, max_people = $8, upi_id = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	row := r.db.Master.QueryRowContext(ctx, query,
		p.ID, p.Title, p.Description, p.Price, p.StartDate, p.EndDate,
		p.RegistrationDeadline, p.MaxPeople, p.UpiID,
	)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPicnicNotFound
		}
		return fmt.Errorf("failed to update picnic: %w", err)
	}
	return nil
}

func (r *Postgres) DeletePicnicTx(ctx context.Context, id string) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var lockedID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM picnics WHERE id = $1 FOR UPDATE`, id).Scan(&lockedID)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPicnicNotFound
		}
		return fmt.Errorf("failed to lock picnic: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE picnic_id = $1`, id).Scan(&count); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to count registrations: %w", err)
	}
	if count > 0 {
		_ = tx.Rollback()
		return ErrPicnicHasRegistrations
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM picnics WHERE id = $1`, id); err != nil {
		_ = tx.Rollback()
		if isForeignKeyViolation(err) {
			return ErrPicnicHasRegistrations
		}
		return fmt.Errorf("failed to delete picnic: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isForeignKeyViolation(err) {
			return ErrPicnicHasRegistrations
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *Postgres) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	query := `
		INSERT INTO registrations (id, picnic_id, name, email, phone, upi_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	row := r.db.Master.QueryRowContext(ctx, query,
		reg.ID, reg.PicnicID, reg.Name, reg.Email, reg.Phone, reg.UpiID, reg.Status,
	)
	if err := row.Scan(&reg.CreatedAt, &reg.UpdatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return ErrPicnicNotFound
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *Postgres) GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`

	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, nil
}

func (r *Postgres) GetRegistrationsByPicnicID(ctx context.Context, picnicID string) ([]model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE picnic_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, picnicID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func (r *Postgres) CountApproved(ctx context.Context, picnicID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM registrations
		WHERE picnic_id = $1 AND status = 'approved'
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, picnicID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count approved registrations: %w", err)
	}
	return count, nil
}

// ApproveRegistrationTx locks the picnic row, then the registration row, so
// concurrent approvals for one picnic are serialized on the capacity check.
func (r *Postgres) ApproveRegistrationTx(ctx context.Context, id string) (*model.Registration, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var picnicID string
	err = tx.QueryRowContext(ctx, `SELECT picnic_id FROM registrations WHERE id = $1`, id).Scan(&picnicID)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}

	var maxPeople int
	err = tx.QueryRowContext(ctx, `
		SELECT max_people
		FROM picnics
		WHERE id = $1
		FOR UPDATE
	`, picnicID).Scan(&maxPeople)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPicnicNotFound
		}
		return nil, fmt.Errorf("failed to lock picnic: %w", err)
	}

	var status model.Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM registrations WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to lock registration: %w", err)
	}
	if status != model.StatusPending {
		_ = tx.Rollback()
		return nil, ErrNotPending
	}

	var approved int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM registrations
		WHERE picnic_id = $1 AND status = 'approved'
	`, picnicID).Scan(&approved)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to count approved registrations: %w", err)
	}
	if approved >= maxPeople {
		_ = tx.Rollback()
		return nil, ErrPicnicFull
	}

	reg, err := scanRegistration(tx.QueryRowContext(ctx, `
		UPDATE registrations
		SET status = 'approved', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+registrationColumns, id))
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotPending
		}
		return nil, fmt.Errorf("failed to approve registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return reg, nil
}

// RejectRegistrationTx only writes when the row is still pending.
func (r *Postgres) RejectRegistrationTx(ctx context.Context, id, reason string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.Master.QueryRowContext(ctx, `
		UPDATE registrations
		SET status = 'rejected', rejection_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+registrationColumns, id, reason))
	if err == nil {
		return reg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to reject registration: %w", err)
	}

	// the replica may lag behind the write that made this row non-pending
	var exists bool
	if err := r.db.Master.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if !exists {
		return nil, ErrRegistrationNotFound
	}
	return nil, ErrNotPending
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqForeignKeyViolation
}
