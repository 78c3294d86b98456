package handler

import (
	"net/http"

	"github.com/refereat/refereat-server/internal/model"
	"github.com/refereat/refereat-server/internal/service"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleRegisterRestaurant(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRestaurantInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	reg, err := s.accounts.RegisterRestaurant(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	result, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetInvitation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.handleError(w, r, model.ErrInvitationNotFound)
		return
	}
	view, err := s.invitations.Get(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.handleError(w, r, model.ErrInvitationNotFound)
		return
	}
	var req service.AcceptInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	result, err := s.invitations.Accept(r.Context(), id, req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleReferralPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "influencerId")
	if !ok {
		s.handleError(w, r, model.ErrInfluencerNotFound)
		return
	}
	page, err := s.referrals.ReferralPage(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleSubmitReferral(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "influencerId")
	if !ok {
		s.handleError(w, r, model.ErrInfluencerNotFound)
		return
	}
	var req model.ReferralRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	referral, err := s.referrals.Submit(r.Context(), id, req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, referral)
}
