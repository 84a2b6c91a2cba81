package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/coachpulse/engage-api/internal/model"
)

// RegisterCustom installs pipeline-specific validations on gin's binding
// engine. "clock" accepts a 24h HH:MM time-of-day, used by the quiet-hours
// fields of preference updates; "frequency" accepts one of the defined
// notification tiers.
func RegisterCustom() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("clock", validClock); err != nil {
		return err
	}
	return v.RegisterValidation("frequency", validFrequency)
}

func validClock(fl validator.FieldLevel) bool {
	_, err := model.ParseClock(fl.Field().String())
	return err == nil
}

func validFrequency(fl validator.FieldLevel) bool {
	return model.NotificationFrequency(fl.Field().String()).Valid()
}
