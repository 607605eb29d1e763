package dto

import (
	"errors"
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"

	"picnichub/internal/lifecycle"
	"picnichub/internal/model"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	NotFound          = "NOT_FOUND"
	DeadlinePassed    = "DEADLINE_PASSED"
	CapacityExceeded  = "CAPACITY_EXCEEDED"
	InvalidTransition = "INVALID_TRANSITION"
	HasDependents     = "HAS_DEPENDENTS"
	Unauthorized      = "UNAUTHORIZED"
)

type CreateRegistrationRequest struct {
	Name  string `json:"name" validate:"required,notblank,min=2,max=255"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,notblank,max=32"`
	UpiID string `json:"upi_id" validate:"required,upi"`
}

type RejectRegistrationRequest struct {
	Reason string `json:"reason"`
}

type CreatePicnicRequest struct {
	Title                string    `json:"title" validate:"required,notblank,max=255"`
	Description          string    `json:"description"`
	Price                int       `json:"price" validate:"gte=0"`
	StartDate            time.Time `json:"start_date" validate:"required"`
	EndDate              time.Time `json:"end_date" validate:"required"`
	RegistrationDeadline time.Time `json:"registration_deadline" validate:"required"`
	MaxPeople            int       `json:"max_people" validate:"gt=0"`
	UpiID                string    `json:"upi_id" validate:"required,upi"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SubmittedResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type AckResponse struct {
	Message string `json:"message"`
}

type RegistrationResponse struct {
	ID              string       `json:"id"`
	PicnicID        string       `json:"picnic_id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	Phone           string       `json:"phone"`
	UpiID           string       `json:"upi_id"`
	Status          model.Status `json:"status"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type PicnicResponse struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Price                int       `json:"price"`
	StartDate            time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
	MaxPeople            int       `json:"max_people"`
	UpiID                string    `json:"upi_id"`
	AdminID              string    `json:"admin_id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type PicnicInfoResponse struct {
	PicnicResponse
	ParticipantCount int    `json:"participant_count"`
	SpotsLeft        int    `json:"spots_left"`
	State            string `json:"state"`
	PaymentURI       string `json:"payment_uri"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func NewPicnicResponse(p model.Picnic) PicnicResponse {
	return PicnicResponse{
		ID:                   p.ID,
		Title:                p.Title,
		Description:          p.Description,
		Price:                p.Price,
		StartDate:            p.StartDate,
		EndDate:              p.EndDate,
		RegistrationDeadline: p.RegistrationDeadline,
		MaxPeople:            p.MaxPeople,
		UpiID:                p.UpiID,
		AdminID:              p.AdminID,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func NewPicnicInfoResponse(v lifecycle.PicnicView) PicnicInfoResponse {
	return PicnicInfoResponse{
		PicnicResponse:   NewPicnicResponse(v.Picnic),
		ParticipantCount: v.ApprovedCount,
		SpotsLeft:        v.SpotsLeft,
		State:            string(v.State),
		PaymentURI:       v.PaymentURI,
	}
}

func NewRegistrationResponse(r model.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:              r.ID,
		PicnicID:        r.PicnicID,
		Name:            r.Name,
		Email:           r.Email,
		Phone:           r.Phone,
		UpiID:           r.UpiID,
		Status:          r.Status,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func ErrorResponse(c *ginext.Context, status int, code, desc string) {
	c.JSON(status, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func BadResponseError(c *ginext.Context, code, desc string) {
	ErrorResponse(c, http.StatusBadRequest, code, desc)
}

func InternalServerError(c *ginext.Context) {
	ErrorResponse(c, http.StatusInternalServerError, ServiceUnavailable, InternalError)
}

func UnauthorizedError(c *ginext.Context) {
	ErrorResponse(c, http.StatusUnauthorized, Unauthorized, "Admin login required")
}

// LifecycleError maps a lifecycle error kind to its client-facing response.
// It reports false for errors it does not know, which callers treat as 500.
func LifecycleError(c *ginext.Context, err error) bool {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, NotFound, err.Error())
	case errors.Is(err, lifecycle.ErrDeadlinePassed):
		BadResponseError(c, DeadlinePassed, "Registration deadline has passed")
	case errors.Is(err, lifecycle.ErrCapacityExceeded):
		ErrorResponse(c, http.StatusConflict, CapacityExceeded, "Picnic is fully booked")
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		ErrorResponse(c, http.StatusConflict, InvalidTransition, "Only pending registrations can be approved or rejected")
	case errors.Is(err, lifecycle.ErrInvalidInput):
		BadResponseError(c, FieldIncorrect, err.Error())
	case errors.Is(err, lifecycle.ErrHasDependents):
		ErrorResponse(c, http.StatusConflict, HasDependents, "Picnic has registrations and cannot be deleted")
	default:
		return false
	}
	return true
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Status: "ok",
		Data:   data,
	})
}
