package handler

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/currency"
)

// RegisterValidators adds the currency_code binding rule to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected gin validator engine")
	}
	return v.RegisterValidation("currency_code", validateCurrencyCode)
}

// validateCurrencyCode accepts recognised ISO 4217 codes in any case.
func validateCurrencyCode(fl validator.FieldLevel) bool {
	unit, err := currency.ParseISO(fl.Field().String())
	return err == nil && unit != currency.Unit{}
}
