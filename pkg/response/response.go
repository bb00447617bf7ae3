// Package response renders the JSON envelope used by every endpoint.
// Error bodies follow {success:false, statusCode, message, errors:[]};
// internal details are only attached in development mode.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storelabs/storefront/pkg/apperr"
)

var development bool

// SetMode configures whether error responses may carry internal details.
// Call once at startup.
func SetMode(dev bool) {
	development = dev
}

type Envelope struct {
	Success    bool     `json:"success"`
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Data       any      `json:"data,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	Stack      string   `json:"stack,omitempty"` // development only
}

// Success writes a success envelope.
func Success(c *gin.Context, status int, data any, message string) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, Envelope{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

// Error renders any error through the taxonomy. This is the only place that
// turns domain failures into HTTP responses.
func Error(c *gin.Context, err error) {
	ae := apperr.From(err)
	env := Envelope{
		Success:    false,
		StatusCode: ae.StatusCode,
		Message:    ae.Message,
		Errors:     ae.Errors,
	}
	if env.Errors == nil {
		env.Errors = []string{}
	}
	if development && ae.Cause() != nil {
		env.Stack = ae.Cause().Error()
	}
	c.JSON(ae.StatusCode, env)
}

// AbortError renders an error and stops the handler chain. For middleware.
func AbortError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
