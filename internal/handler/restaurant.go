package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/refereat/refereat-server/internal/integration/gemini"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxUploadBytes は証跡画像のアップロード上限です
const maxUploadBytes = 10 << 20

type settingsRequest struct {
	DefaultCommissionPercentage *decimal.Decimal `json:"defaultCommissionPercentage"`
}

type redeemRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type invitationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyTextRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleRestaurantStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.restaurants.Stats(r.Context(), sessionFrom(r).ProfileID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleUpdateRestaurantSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	restaurantID := sessionFrom(r).ProfileID
	if err := s.restaurants.UpdateDefaultCommission(r.Context(), restaurantID, req.DefaultCommissionPercentage); err != nil {
		s.handleError(w, r, err)
		return
	}
	stats, err := s.restaurants.Stats(r.Context(), restaurantID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Restaurant)
}

func (s *Server) handleListAmbassadors(w http.ResponseWriter, r *http.Request) {
	ambassadors, err := s.restaurants.ListAmbassadors(r.Context(), sessionFrom(r).ProfileID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ambassadors": ambassadors})
}

func (s *Server) handleAddAmbassador(w http.ResponseWriter, r *http.Request) {
	var req model.InfluencerProfile
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	inf, err := s.restaurants.AddAmbassador(r.Context(), sessionFrom(r).ProfileID, req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inf)
}

func (s *Server) handleUpdateAmbassador(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.handleError(w, r, model.ErrInfluencerNotFound)
		return
	}
	var req model.AmbassadorSettings
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	inf, err := s.restaurants.UpdateAmbassador(r.Context(), sessionFrom(r).ProfileID, id, req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inf)
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.handleError(w, r, model.ErrInfluencerNotFound)
		return
	}
	var req redeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if req.Amount == nil {
		s.handleError(w, r, model.ErrInvalidAmount)
		return
	}
	inf, err := s.ledger.Redeem(r.Context(), sessionFrom(r).ProfileID, id, *req.Amount)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"influencerId":  inf.ID,
		"amount":        *req.Amount,
		"walletBalance": inf.WalletBalance,
	})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.handleError(w, r, model.ErrInfluencerNotFound)
		return
	}
	report, err := s.ledger.Reconcile(r.Context(), sessionFrom(r).ProfileID, id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := s.invitations.List(r.Context(), sessionFrom(r).ProfileID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invitations": invitations})
}

func (s *Server) handleSendInvitation(w http.ResponseWriter, r *http.Request) {
	var req invitationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	inv, err := s.invitations.Send(r.Context(), sessionFrom(r).ProfileID, req.Email)
	if errors.Is(err, model.ErrInviteEmailFailed) && inv != nil {
		// 招待は作成済みのため、リンクを返して手動で共有できるようにする
		s.logger.Warn("invitation created without email", zap.String("invitation_id", inv.ID.String()))
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error": map[string]interface{}{
				"message": model.ErrInviteEmailFailed.Error(),
				"type":    "external_service",
			},
			"invitation": inv,
		})
		return
	}
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// handleVerifyBooking はmultipartのfileまたはtext、もしくはJSONのtextを受け付けます
func (s *Server) handleVerifyBooking(w http.ResponseWriter, r *http.Request) {
	in, err := s.verificationInput(w, r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	result, err := s.verification.Analyze(r.Context(), in)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) verificationInput(w http.ResponseWriter, r *http.Request) (gemini.Input, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req verifyTextRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return gemini.Input{}, err
		}
		return gemini.Input{Text: req.Text}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return gemini.Input{}, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	in := gemini.Input{Text: r.FormValue("text")}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return gemini.Input{}, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return gemini.Input{}, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	in.Image = data
	in.MimeType = header.Header.Get("Content-Type")
	if in.MimeType == "" {
		in.MimeType = http.DetectContentType(data)
	}
	return in, nil
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.handleError(w, r, fmt.Errorf("%w: limit must be a positive integer", errInvalidBody))
			return
		}
		limit = n
	}
	bookings, err := s.restaurants.ListBookings(r.Context(), sessionFrom(r).ProfileID, limit)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

func (s *Server) handleRecordBooking(w http.ResponseWriter, r *http.Request) {
	var req model.VerifiedBookingInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	result, err := s.ledger.RecordVerifiedBooking(r.Context(), sessionFrom(r).ProfileID, req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
