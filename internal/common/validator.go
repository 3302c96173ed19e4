package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GenericEchoValidator plugs go-playground/validator into echo's Context.Validate.
// The zero value is usable; the underlying validator is created once on first use.
type GenericEchoValidator struct {
	Validator *validator.Validate
	once      sync.Once
}

func NewGenericEchoValidator() *GenericEchoValidator {
	return &GenericEchoValidator{Validator: validator.New()}
}

func (gv *GenericEchoValidator) Validate(i interface{}) error {
	gv.once.Do(func() {
		if gv.Validator == nil {
			gv.Validator = validator.New()
		}
	})
	err := gv.Validator.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		messages := make([]string, 0, len(fieldErrors))
		for _, fe := range fieldErrors {
			messages = append(messages, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
		}
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request: %s", strings.Join(messages, ", ")))
	}
	return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request: %v", err))
}
