package util

import "errors"

// 错误类别，具体错误通过 Unwrap 归入其中之一
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrValidation          = errors.New("validation error")
)

// KindError 携带类别的具体错误
type KindError struct {
	Kind error
	Msg  string
}

func (e *KindError) Error() string {
	return e.Msg
}

func (e *KindError) Unwrap() error {
	return e.Kind
}

func NewKindError(kind error, msg string) error {
	return &KindError{Kind: kind, Msg: msg}
}

var (
	ErrUserNotFound       = NewKindError(ErrNotFound, "user not found")
	ErrBadgeNotFound      = NewKindError(ErrNotFound, "badge not found")
	ErrChallengeNotFound  = NewKindError(ErrNotFound, "challenge not found")
	ErrRewardNotFound     = NewKindError(ErrNotFound, "reward not found")
	ErrRedemptionNotFound = NewKindError(ErrNotFound, "redemption not found")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrRewardInactive      = NewKindError(ErrInvalidState, "reward is not active")
	ErrRewardNotAvailable  = NewKindError(ErrInvalidState, "reward is not available at this time")
	ErrRewardOutOfStock    = NewKindError(ErrInvalidState, "reward is out of stock")
	ErrRedemptionUsed      = NewKindError(ErrInvalidState, "redemption code already used")
	ErrDuplicateBadgeName  = NewKindError(ErrInvalidState, "badge name already exists")
	ErrDuplicateRewardName = NewKindError(ErrInvalidState, "reward name already exists")
	ErrInsufficientPoints  = NewKindError(ErrInsufficientBalance, "insufficient points")
	ErrInvalidAmount       = NewKindError(ErrValidation, "amount must be positive")
	ErrInvalidCategory     = NewKindError(ErrValidation, "unknown point category")
	ErrUnknownActivity     = NewKindError(ErrValidation, "unknown activity")
	ErrSettleLimitExceeded = NewKindError(ErrInvalidState, "award cascade exceeded settle limit")
)
