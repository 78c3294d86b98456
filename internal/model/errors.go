package model

import "errors"

// ドメインエラー
// ハンドラ層でerrors.Isを使ってHTTPステータスに変換されます
var (
	// 参照先が存在しない
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrInfluencerNotFound = errors.New("influencer not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrReferralNotFound   = errors.New("referral booking not found")
	ErrAccountNotFound    = errors.New("account not found")

	// ビジネスルール違反
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAmount       = errors.New("amount must be greater than zero with at most 2 decimal places")
	ErrInvalidSpend        = errors.New("spend must not be negative and must have at most 2 decimal places")
	ErrInvalidCommission   = errors.New("commission percentage must be between 0 and 100")
	ErrInvalidBlackoutDate = errors.New("blackout dates must be formatted as YYYY-MM-DD")
	ErrInvitationAccepted  = errors.New("invitation already accepted")
	ErrReferralConsumed    = errors.New("referral booking already matched")
	ErrEmailTaken          = errors.New("email already registered")
	ErrForbidden           = errors.New("influencer is not affiliated with this restaurant")
	ErrInvalidCredentials  = errors.New("invalid email or password")

	// 外部サービス
	ErrExtractionFailed  = errors.New("failed to process booking")
	ErrInviteEmailFailed = errors.New("failed to send invitation email")

	// トランザクション競合がリトライ上限に達した
	ErrTxConflict = errors.New("transaction conflict, retries exhausted")
)
