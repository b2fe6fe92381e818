package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/01moynul/stepup-orders/internal/models"
	"github.com/01moynul/stepup-orders/internal/orders"
)

var registerOnce sync.Once

// RegisterValidators adds the order-specific tags to gin's validator and
// makes validation errors report JSON field names.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		mustRegister(v, "orderstatus", func(fl validator.FieldLevel) bool {
			return orders.IsValidStatus(fl.Field().String())
		})
		mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(models.DateLayout, fl.Field().String())
			return err == nil
		})
	})
}

// mustRegister panics at startup rather than letting a bad tag surface on
// the first request that uses it.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validator: %v", tag, err))
	}
}

// bindMessage turns a binding error into the message shown to the caller.
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid input: malformed JSON body"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "orderstatus":
		return "Invalid status"
	case "isodate":
		return fmt.Sprintf("%s must be YYYY-MM-DD", fe.Field())
	case "min", "max", "gt", "gte", "lte":
		return fmt.Sprintf("%s is out of range", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// bindJSON binds the body and answers 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, bindMessage(err))
		return false
	}
	return true
}

// bindOptional binds from the query string or body, tolerating an empty body.
func bindOptional(c *gin.Context, dst any) bool {
	if err := c.ShouldBind(dst); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, bindMessage(err))
		return false
	}
	return true
}
