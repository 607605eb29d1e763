package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type payer struct {
	Name  string `validate:"required,notblank,min=2,max=255"`
	Email string `validate:"required,email"`
	UpiID string `validate:"required,upi"`
}

func TestValidateUPI(t *testing.T) {
	for _, upi := range []string{"ann@okaxis", "ann.rao-99@ybl", "9876543210@paytm"} {
		assert.NoError(t, Validate(context.Background(), payer{Name: "Ann", Email: "a@b.co", UpiID: upi}), upi)
	}
	for _, upi := range []string{"ann", "@okaxis", "ann@", "ann@ok axis", "a@1bank"} {
		err := Validate(context.Background(), payer{Name: "Ann", Email: "a@b.co", UpiID: upi})
		assert.ErrorContains(t, err, ErrInvalidUPI, upi)
	}
}

func TestValidateMessages(t *testing.T) {
	err := Validate(context.Background(), payer{Name: "   ", Email: "a@b.co", UpiID: "ann@okaxis"})
	assert.ErrorContains(t, err, ErrBlank)
	assert.ErrorContains(t, err, "payer.Name")

	err = Validate(context.Background(), payer{Name: "Ann", Email: "nope", UpiID: "ann@okaxis"})
	assert.ErrorContains(t, err, ErrInvalidEmail)

	err = Validate(context.Background(), payer{Email: "a@b.co", UpiID: "ann@okaxis"})
	assert.ErrorContains(t, err, ErrFieldRequired)
}
