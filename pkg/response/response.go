package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeUnauthorized  = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeServerError   = 500
	CodeBusinessError = 1000
)

// Bidding
const (
	CodeItemNotBiddable     = 1101
	CodeBidTooLow           = 1102
	CodeIncrementViolation  = 1103
	CodeInsufficientDeposit = 1104
	CodeLockBusy            = 1105
)

// Deposit ledger
const (
	CodeInsufficientFunds       = 1201
	CodeInsufficientFrozenFunds = 1202
	CodeAccountFrozen           = 1203
	CodeAccountNotFound         = 1204
	CodeTransactionNotFound     = 1205
	CodeTransactionNotPending   = 1206
)

// Lifecycle, settlement and orders
const (
	CodeSessionNotFound    = 1301
	CodeItemNotFound       = 1302
	CodeAlreadySettled     = 1303
	CodeSessionNotEnded    = 1304
	CodeInvalidTransition  = 1305
	CodeConfigNotFound     = 1306
	CodeConfigInUse        = 1307
	CodeInvalidRules       = 1308
	CodeOrderNotFound      = 1401
	CodeOrderStatusInvalid = 1402
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
