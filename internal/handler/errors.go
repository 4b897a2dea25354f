package handler

import (
	"errors"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/pkg/logger"
	"auctionhouse/pkg/response"

	"github.com/gin-gonic/gin"
)

var errorCodes = []struct {
	err  error
	code int
}{
	{auctionerr.ErrItemNotBiddable, response.CodeItemNotBiddable},
	{auctionerr.ErrBidTooLow, response.CodeBidTooLow},
	{auctionerr.ErrIncrementViolation, response.CodeIncrementViolation},
	{auctionerr.ErrInsufficientDeposit, response.CodeInsufficientDeposit},
	{auctionerr.ErrLockBusy, response.CodeLockBusy},
	{auctionerr.ErrInsufficientFunds, response.CodeInsufficientFunds},
	{auctionerr.ErrInsufficientFrozenFunds, response.CodeInsufficientFrozenFunds},
	{auctionerr.ErrAccountFrozen, response.CodeAccountFrozen},
	{auctionerr.ErrAccountNotFound, response.CodeAccountNotFound},
	{auctionerr.ErrTransactionNotFound, response.CodeTransactionNotFound},
	{auctionerr.ErrTransactionNotPending, response.CodeTransactionNotPending},
	{auctionerr.ErrSessionNotFound, response.CodeSessionNotFound},
	{auctionerr.ErrItemNotFound, response.CodeItemNotFound},
	{auctionerr.ErrAlreadySettled, response.CodeAlreadySettled},
	{auctionerr.ErrSessionNotEnded, response.CodeSessionNotEnded},
	{auctionerr.ErrInvalidTransition, response.CodeInvalidTransition},
	{auctionerr.ErrConfigNotFound, response.CodeConfigNotFound},
	{auctionerr.ErrConfigInUse, response.CodeConfigInUse},
	{auctionerr.ErrInvalidRules, response.CodeInvalidRules},
	{auctionerr.ErrOrderNotFound, response.CodeOrderNotFound},
	{auctionerr.ErrOrderStatusInvalid, response.CodeOrderStatusInvalid},
}

// codeFor maps a domain error to its business code. Unknown errors are
// server errors.
func codeFor(err error) int {
	if errors.Is(err, auctionerr.ErrInvalidAmount) {
		return response.CodeParamError
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return response.CodeServerError
}

func fail(c *gin.Context, err error) {
	code := codeFor(err)
	if code == response.CodeServerError {
		logger.Error("request failed", map[string]any{
			"path":       c.FullPath(),
			"request_id": c.GetString(requestIDKey),
			"error":      err.Error(),
		})
		response.ServerError(c, "internal server error")
		return
	}
	response.BusinessError(c, code, err.Error())
}
