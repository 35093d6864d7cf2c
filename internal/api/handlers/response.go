package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/api/middleware"
	"github.com/Marga-Ghale/ora-workspaces/internal/apperr"
)

// Envelope is the body of every API response.
type Envelope struct {
	OK         bool                `json:"ok"`
	Data       interface{}         `json:"data,omitempty"`
	Error      string              `json:"error,omitempty"`
	StatusCode int                 `json:"statusCode,omitempty"`
	Details    []apperr.FieldError `json:"details,omitempty"`
}

type responder struct {
	log *zap.Logger
}

func (r *responder) ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{OK: true, Data: data})
}

// fail translates err into the error envelope. Errors outside the taxonomy
// are logged with their cause and rendered as a generic 500.
func (r *responder) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind == apperr.KindInternal {
		r.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("user_id", middleware.GetUserID(c)),
			zap.Error(err),
		)
		c.Error(err)
		c.JSON(http.StatusInternalServerError, Envelope{Error: "internal server error", StatusCode: http.StatusInternalServerError})
		return
	}
	c.JSON(status, Envelope{Error: appErr.Message, StatusCode: status, Details: appErr.Fields})
}

// bind decodes the JSON body, reporting malformed input as a validation error.
func (r *responder) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		r.fail(c, apperr.Validation(apperr.Field("body", "must be valid JSON")))
		return false
	}
	return true
}

// bindQuery decodes query parameters into dst.
func (r *responder) bindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		r.fail(c, apperr.Validation(apperr.Field("query", "has an invalid value")))
		return false
	}
	return true
}

// validator is implemented by request models.
type validator interface {
	Validate() error
}

// check runs request validation before any service call.
func (r *responder) check(c *gin.Context, v validator) bool {
	if err := v.Validate(); err != nil {
		r.fail(c, err)
		return false
	}
	return true
}
