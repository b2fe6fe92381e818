package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/stepup-orders/internal/logger"
	"github.com/01moynul/stepup-orders/internal/middleware"
	"github.com/01moynul/stepup-orders/internal/orders"
)

// statusFor maps a domain error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, orders.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrInsufficientStock),
		errors.Is(err, orders.ErrStockConflict),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, orders.ErrAlreadyRated):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {success:false, message}. Internal errors are logged;
// unless they carry a domain message they are hidden behind a generic one.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	var domainErr *orders.Error
	isDomain := errors.As(err, &domainErr)

	if status == http.StatusInternalServerError {
		h.Log.Error("request failed",
			zap.String("request_id", c.GetString(logger.RequestIDKey)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		if !isDomain {
			fail(c, status, "Internal server error")
			return
		}
	}

	message := err.Error()
	if isDomain {
		message = domainErr.Error()
	}
	fail(c, status, message)
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// actorFrom converts the authenticated identity into a service actor.
func actorFrom(c *gin.Context) (orders.Actor, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return orders.Actor{}, false
	}
	return orders.Actor{UserID: id.UserID, Admin: id.IsAdmin()}, true
}
