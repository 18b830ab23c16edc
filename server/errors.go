package server

import (
	"errors"
	"net/http"

	"skillstreak/service"
)

// errorMapping pairs a service error with its HTTP status and stable code
type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	// Validation
	{service.ErrAlreadyInitialized, http.StatusConflict, "AlreadyInitialized"},
	{service.ErrNotInitialized, http.StatusNotFound, "NotInitialized"},
	{service.ErrInvalidAmount, http.StatusBadRequest, "InvalidAmount"},
	{service.ErrInvalidLockIn, http.StatusBadRequest, "InvalidLockIn"},
	{service.ErrInvalidSchedule, http.StatusBadRequest, "InvalidSchedule"},
	{service.ErrInvalidFee, http.StatusBadRequest, "InvalidFee"},
	{service.ErrSelfBetNotAllowed, http.StatusForbidden, "SelfBetNotAllowed"},
	{service.ErrAlreadyBet, http.StatusConflict, "AlreadyBet"},
	{service.ErrMarketExists, http.StatusConflict, "MarketExists"},
	{service.ErrMarketNotFound, http.StatusNotFound, "MarketNotFound"},
	{service.ErrBetNotFound, http.StatusNotFound, "BetNotFound"},
	{service.ErrUnauthorized, http.StatusForbidden, "Unauthorized"},
	{service.ErrTaskAlreadyRecorded, http.StatusConflict, "TaskAlreadyRecorded"},
	{service.ErrNoPayout, http.StatusConflict, "NoPayout"},
	{service.ErrAlreadyClaimed, http.StatusConflict, "AlreadyClaimed"},

	// Temporal
	{service.ErrBettingWindowClosed, http.StatusConflict, "BettingWindowClosed"},
	{service.ErrMarketNotYetClosed, http.StatusConflict, "MarketNotYetClosed"},
	{service.ErrAlreadyClosed, http.StatusConflict, "AlreadyClosed"},
	{service.ErrAlreadySettled, http.StatusConflict, "AlreadySettled"},
	{service.ErrMarketNotSettled, http.StatusConflict, "MarketNotSettled"},
	{service.ErrOutcomeNotYetKnown, http.StatusConflict, "OutcomeNotYetKnown"},
	{service.ErrStillLocked, http.StatusConflict, "StillLocked"},
	{service.ErrNotLocked, http.StatusConflict, "NotLocked"},

	// Resource
	{service.ErrInsufficientFunds, http.StatusUnprocessableEntity, "InsufficientFunds"},
	{service.ErrVaultUnderfunded, http.StatusInternalServerError, "VaultUnderfunded"},
	{service.ErrArithmeticOverflow, http.StatusUnprocessableEntity, "ArithmeticOverflow"},
	{service.ErrConservationViolation, http.StatusInternalServerError, "ConservationViolation"},

	// Lookup
	{service.ErrAccountNotFound, http.StatusNotFound, "AccountNotFound"},
	{service.ErrFaucetDisabled, http.StatusForbidden, "FaucetDisabled"},
}

// Codes for failures raised by the HTTP layer itself
const (
	codeInvalidRequest = "InvalidRequest"
	codeInternal       = "Internal"
)

// classify returns the status and code for err. Unknown errors are internal.
func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, codeInternal
}
