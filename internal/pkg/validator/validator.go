package validator

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"merchantpay/internal/pkg/response"
)

var registerOnce sync.Once

// Register makes gin's validator report json field names and adds the
// currency rule. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonName)
		_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
			return IsCurrency(fl.Field().String())
		})
	})
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// IsCurrency accepts three upper-case ASCII letters (ISO 4217 shape).
func IsCurrency(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Fields flattens binding errors into field → failed rule.
func Fields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// BindJSON binds the body into req and writes a VALIDATION_ERROR response on failure.
func BindJSON(c *gin.Context, req any) bool {
	Register()
	if err := c.ShouldBindJSON(req); err != nil {
		if fields := Fields(err); fields != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body", fields)
			return false
		}
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return false
	}
	return true
}
