package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/refereat/refereat-server/internal/auth"
	"github.com/refereat/refereat-server/internal/common/utils"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/refereat/refereat-server/internal/service"
	"go.uber.org/zap"
)

// maxBodyBytes はJSONリクエストボディの上限です
const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid request body")

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError は{"error": {"message", "type"}}形式のエラーを返します
func writeError(w http.ResponseWriter, status int, errType, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    errType,
		},
	})
}

type errorMapping struct {
	target  error
	status  int
	errType string
}

// errorMappings は業務エラーとHTTPステータスの対応です。先頭から順に照合します
var errorMappings = []errorMapping{
	{model.ErrRestaurantNotFound, http.StatusNotFound, "not_found"},
	{model.ErrInfluencerNotFound, http.StatusNotFound, "not_found"},
	{model.ErrInvitationNotFound, http.StatusNotFound, "not_found"},
	{model.ErrReferralNotFound, http.StatusNotFound, "not_found"},
	{model.ErrAccountNotFound, http.StatusNotFound, "not_found"},

	{model.ErrInsufficientFunds, http.StatusConflict, "insufficient_funds"},
	{model.ErrInvitationAccepted, http.StatusConflict, "conflict"},
	{model.ErrReferralConsumed, http.StatusConflict, "conflict"},
	{model.ErrEmailTaken, http.StatusConflict, "conflict"},

	{model.ErrInvalidAmount, http.StatusBadRequest, "invalid_request"},
	{model.ErrInvalidSpend, http.StatusBadRequest, "invalid_request"},
	{model.ErrInvalidCommission, http.StatusBadRequest, "invalid_request"},
	{model.ErrInvalidBlackoutDate, http.StatusBadRequest, "invalid_request"},
	{auth.ErrWeakPassword, http.StatusBadRequest, "invalid_request"},
	{service.ErrNoVerificationInput, http.StatusBadRequest, "invalid_request"},
	{errInvalidBody, http.StatusBadRequest, "invalid_request"},

	{model.ErrForbidden, http.StatusForbidden, "forbidden"},
	{model.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},

	{model.ErrExtractionFailed, http.StatusBadGateway, "external_service"},
	{model.ErrInviteEmailFailed, http.StatusBadGateway, "external_service"},

	{model.ErrTxConflict, http.StatusServiceUnavailable, "conflict"},
}

// handleError はエラーをHTTPレスポンスに変換します
// 想定外のエラーはスタックトレースを記録し、詳細を返さずに500とします
// 外部サービスのエラーは詳細を返さず、固定のメッセージのみ返します
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(verrs))
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				s.logger.Warn("request failed",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
			}
			msg := m.target.Error()
			if m.target == errInvalidBody {
				msg = err.Error()
			}
			writeError(w, m.status, m.errType, msg)
			return
		}
	}

	s.logger.Error("unexpected error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(utils.GetStackWithError(err)),
	)
	writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}

func validationMessage(verrs validator.ValidationErrors) string {
	fe := verrs[0]
	return fmt.Sprintf("field %s failed validation: %s", fe.Field(), fe.Tag())
}

// decodeJSON はボディをvにデコードし、validateタグで検証します
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if err := validate.Struct(v); err != nil {
		return err
	}
	return nil
}
