package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"picnichub/internal/auth"
	"picnichub/internal/dto"
	"picnichub/internal/lifecycle"
	"picnichub/internal/model"
	"picnichub/pkg/validator"
)

type Service interface {
	ListPicnics(ctx *ginext.Context)
	GetPicnic(ctx *ginext.Context)
	Register(ctx *ginext.Context)

	Login(ctx *ginext.Context)
	Logout(ctx *ginext.Context)
	CreatePicnic(ctx *ginext.Context)
	UpdatePicnic(ctx *ginext.Context)
	DeletePicnic(ctx *ginext.Context)
	GetRegistrations(ctx *ginext.Context)
	Approve(ctx *ginext.Context)
	Reject(ctx *ginext.Context)
}

type service struct {
	lc       *lifecycle.Manager
	sessions *auth.Sessions
	log      *zerolog.Logger
}

func NewService(lc *lifecycle.Manager, sessions *auth.Sessions, logger *zerolog.Logger) Service {
	return &service{
		lc:       lc,
		sessions: sessions,
		log:      logger,
	}
}

func (s *service) fail(ctx *ginext.Context, err error, msg string) {
	if dto.LifecycleError(ctx, err) {
		return
	}
	s.log.Error().Err(err).Msg(msg)
	dto.InternalServerError(ctx)
}

func (s *service) ListPicnics(ctx *ginext.Context) {
	views, err := s.lc.ListPicnics(ctx.Request.Context())
	if err != nil {
		s.fail(ctx, err, "failed to list picnics")
		return
	}

	resp := make([]dto.PicnicInfoResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, dto.NewPicnicInfoResponse(v))
	}
	dto.SuccessResponse(ctx, resp)
}

func (s *service) GetPicnic(ctx *ginext.Context) {
	view, err := s.lc.GetPicnic(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		s.fail(ctx, err, "failed to get picnic")
		return
	}
	dto.SuccessResponse(ctx, dto.NewPicnicInfoResponse(*view))
}

func (s *service) Register(ctx *ginext.Context) {
	picnicID := ctx.Param("id")

	var req dto.CreateRegistrationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx.Request.Context(), req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Error())
		return
	}

	res, err := s.lc.CreateRegistration(ctx.Request.Context(), picnicID, lifecycle.RegistrationInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		UpiID: req.UpiID,
	})
	if err != nil {
		s.fail(ctx, err, "failed to create registration")
		return
	}

	dto.SuccessCreatedResponse(ctx, dto.SubmittedResponse{ID: res.ID, Message: res.Message})
}

func (s *service) Login(ctx *ginext.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}

	token, err := s.sessions.Login(req.Username, req.Password)
	if err != nil {
		s.log.Warn().Str("username", req.Username).Msg("admin login rejected")
		dto.UnauthorizedError(ctx)
		return
	}

	ctx.SetCookie(auth.CookieName, token, int(s.sessions.TTL().Seconds()), "/", "", false, true)
	dto.SuccessResponse(ctx, dto.AckResponse{Message: "Logged in"})
}

func (s *service) Logout(ctx *ginext.Context) {
	ctx.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	dto.SuccessResponse(ctx, dto.AckResponse{Message: "Logged out"})
}

func (s *service) CreatePicnic(ctx *ginext.Context) {
	var req dto.CreatePicnicRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx.Request.Context(), req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Error())
		return
	}

	p, err := s.lc.CreatePicnic(ctx.Request.Context(), lifecycle.PicnicInput{
		Title:                req.Title,
		Description:          req.Description,
		Price:                req.Price,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		RegistrationDeadline: req.RegistrationDeadline,
		MaxPeople:            req.MaxPeople,
		UpiID:                req.UpiID,
		AdminID:              ctx.GetString(auth.ContextAdminID),
	})
	if err != nil {
		s.fail(ctx, err, "failed to create picnic")
		return
	}

	dto.SuccessCreatedResponse(ctx, dto.NewPicnicResponse(*p))
}

func (s *service) UpdatePicnic(ctx *ginext.Context) {
	var upd model.PicnicUpdate
	dec := json.NewDecoder(ctx.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&upd); err != nil {
		desc := "Invalid JSON format"
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			desc = err.Error()
		}
		dto.BadResponseError(ctx, dto.FieldBadFormat, desc)
		return
	}
	if upd.UpiID != nil {
		probe := struct {
			UpiID string `validate:"upi"`
		}{UpiID: *upd.UpiID}
		if verr := validator.Validate(ctx.Request.Context(), probe); verr != nil {
			dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Error())
			return
		}
	}

	p, err := s.lc.UpdatePicnic(ctx.Request.Context(), ctx.Param("id"), upd)
	if err != nil {
		s.fail(ctx, err, "failed to update picnic")
		return
	}
	dto.SuccessResponse(ctx, dto.NewPicnicResponse(*p))
}

func (s *service) DeletePicnic(ctx *ginext.Context) {
	if err := s.lc.DeletePicnic(ctx.Request.Context(), ctx.Param("id")); err != nil {
		s.fail(ctx, err, "failed to delete picnic")
		return
	}
	dto.SuccessResponse(ctx, dto.AckResponse{Message: "Picnic deleted"})
}

func (s *service) GetRegistrations(ctx *ginext.Context) {
	regs, err := s.lc.RegistrationsForPicnic(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		s.fail(ctx, err, "failed to get registrations")
		return
	}

	resp := make([]dto.RegistrationResponse, 0, len(regs))
	for _, r := range regs {
		resp = append(resp, dto.NewRegistrationResponse(r))
	}
	dto.SuccessResponse(ctx, resp)
}

func (s *service) Approve(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := s.lc.Approve(ctx.Request.Context(), id); err != nil {
		s.fail(ctx, err, fmt.Sprintf("failed to approve registration %s", id))
		return
	}
	dto.SuccessResponse(ctx, dto.AckResponse{Message: "Registration approved"})
}

func (s *service) Reject(ctx *ginext.Context) {
	id := ctx.Param("id")

	var req dto.RejectRegistrationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}

	if err := s.lc.Reject(ctx.Request.Context(), id, req.Reason); err != nil {
		s.fail(ctx, err, fmt.Sprintf("failed to reject registration %s", id))
		return
	}
	dto.SuccessResponse(ctx, dto.AckResponse{Message: "Registration rejected"})
}
