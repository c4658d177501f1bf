package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/portfolio-swap/internal/common"
)

type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func HandleSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func HandleBadRequest(c *gin.Context, msg string) {
	handleHTTPError(c, common.HTTPErrorBadRequest(msg), nil)
}

func HandleNotFound(c *gin.Context, msg string) {
	handleHTTPError(c, common.HTTPErrorNotFound(msg), nil)
}

// HandleError maps err onto its HTTP status. data is still rendered, so a
// failed submission can return the attempts it made.
func HandleError(c *gin.Context, err error, data any) {
	handleHTTPError(c, common.FromDomainError(err), data)
}

func handleHTTPError(c *gin.Context, httpErr *common.HttpError, data any) {
	c.JSON(httpErr.StatusCode, Response{
		Success: false,
		Data:    data,
		Error:   httpErr.Message,
		Code:    httpErr.Code,
	})
}

// Abort renders httpErr and stops the remaining handlers in the chain.
func Abort(c *gin.Context, httpErr *common.HttpError) {
	c.AbortWithStatusJSON(httpErr.StatusCode, Response{
		Success: false,
		Error:   httpErr.Message,
		Code:    httpErr.Code,
	})
}
