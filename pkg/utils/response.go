package utils

import (
	"errors"

	"github.com/gin-gonic/gin"

	appErrors "vltd-dashboard/pkg/errors"
)

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func SuccessResponse(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success: false,
		Error:   message,
	})
}

// AppErrorResponse renders err with the status derived from its kind.
func AppErrorResponse(c *gin.Context, err error) {
	resp := Response{Success: false, Error: appErrors.Message(err)}
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		resp.Code = appErr.Code
	}
	_ = c.Error(err)
	c.JSON(appErrors.HTTPStatus(err), resp)
}

// AppErrorResponseWithData is AppErrorResponse plus a payload, used when the
// caller needs the current state alongside the failure.
func AppErrorResponseWithData(c *gin.Context, err error, data interface{}) {
	resp := Response{Success: false, Error: appErrors.Message(err), Data: data}
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		resp.Code = appErr.Code
	}
	_ = c.Error(err)
	c.JSON(appErrors.HTTPStatus(err), resp)
}
