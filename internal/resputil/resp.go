package resputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API reply.
type Response[T any] struct {
	Code ErrorCode `json:"code"`
	Data T         `json:"data"`
	Msg  string    `json:"msg"`
}

func wrapResponse(c *gin.Context, httpCode int, msg string, data any, code ErrorCode) {
	c.JSON(httpCode, Response[any]{
		Code: code,
		Data: data,
		Msg:  msg,
	})
}

func Success(c *gin.Context, data any) {
	wrapResponse(c, http.StatusOK, "", data, OK)
}

func Error(c *gin.Context, msg string, code ErrorCode) {
	wrapResponse(c, http.StatusInternalServerError, msg, nil, code)
}

// HTTPError replies with an explicit HTTP status code.
func HTTPError(c *gin.Context, httpCode int, msg string, code ErrorCode) {
	wrapResponse(c, httpCode, msg, nil, code)
}

func BadRequestError(c *gin.Context, msg string) {
	wrapResponse(c, http.StatusBadRequest, msg, nil, InvalidRequest)
}

// Forbidden surfaces an authorization denial with its reason. Denials are
// results, not exceptions: the handler keeps running normally.
func Forbidden(c *gin.Context, reason string) {
	wrapResponse(c, http.StatusForbidden, reason, nil, PermissionDenied)
}

func NotFoundError(c *gin.Context, msg string) {
	wrapResponse(c, http.StatusNotFound, msg, nil, NotFound)
}
