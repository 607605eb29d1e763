package model

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Picnic struct {
	ID                   string    `db:"id" json:"id"`
	Title                string    `db:"title" json:"title"`
	Description          string    `db:"description" json:"description"`
	Price                int       `db:"price" json:"price"`
	StartDate            time.Time `db:"start_date" json:"start_date"`
	EndDate              time.Time `db:"end_date" json:"end_date"`
	RegistrationDeadline time.Time `db:"registration_deadline" json:"registration_deadline"`
	MaxPeople            int       `db:"max_people" json:"max_people"`
	UpiID                string    `db:"upi_id" json:"upi_id"`
	AdminID              string    `db:"admin_id" json:"admin_id"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// PicnicUpdate lists the fields an admin may change. Nil means untouched.
type PicnicUpdate struct {
	Title                *string    `json:"title"`
	Description          *string    `json:"description"`
	Price                *int       `json:"price"`
	StartDate            *time.Time `json:"start_date"`
	EndDate              *time.Time `json:"end_date"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxPeople            *int       `json:"max_people"`
	UpiID                *string    `json:"upi_id"`
}

// Apply returns a copy of p with the non-nil fields of u written over it.
func (u PicnicUpdate) Apply(p Picnic) Picnic {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.StartDate != nil {
		p.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		p.EndDate = *u.EndDate
	}
	if u.RegistrationDeadline != nil {
		p.RegistrationDeadline = *u.RegistrationDeadline
	}
	if u.MaxPeople != nil {
		p.MaxPeople = *u.MaxPeople
	}
	if u.UpiID != nil {
		p.UpiID = *u.UpiID
	}
	return p
}

// Empty reports whether the update touches no field.
func (u PicnicUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Price == nil &&
		u.StartDate == nil && u.EndDate == nil && u.RegistrationDeadline == nil &&
		u.MaxPeople == nil && u.UpiID == nil
}

type Registration struct {
	ID              string    `db:"id" json:"id"`
	PicnicID        string    `db:"picnic_id" json:"picnic_id"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email"`
	Phone           string    `db:"phone" json:"phone"`
	UpiID           string    `db:"upi_id" json:"upi_id"`
	Status          Status    `db:"status" json:"status"`
	RejectionReason string    `db:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
