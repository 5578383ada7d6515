package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "log_level", Message: "must be one of debug info warn error"},
		{Message: "additionalProperties 'x' not allowed"},
	}
	assert.Equal(t,
		"log_level: must be one of debug info warn error; additionalProperties 'x' not allowed",
		errs.Error())
}

func TestErrorDetail_Error(t *testing.T) {
	d := NewErrorDetail(ErrTypeForeign, "division by zero")
	d.Code = "ZeroDivisionError"
	d.Wrapped = NewErrorDetail(ErrTypeInternal, "cause")
	assert.Equal(t, "foreign: division by zero [ZeroDivisionError]: cause", d.Error())

	var nilDetail *ErrorDetail
	assert.Empty(t, nilDetail.Error())
}
