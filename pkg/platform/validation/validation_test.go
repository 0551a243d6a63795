package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

type sample struct {
	Name   string           `json:"name" validate:"required,max=5"`
	Email  string           `json:"email" validate:"omitempty,email"`
	Kind   string           `json:"kind" validate:"omitempty,oneof=a b"`
	Amount *decimal.Decimal `json:"amount" validate:"omitnil,gte=0"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sample{Name: "ok"}))

	neg := decimal.NewFromInt(-3)
	err := Struct(sample{Name: "too long", Email: "not-an-email", Kind: "c", Amount: &neg})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	msg := dErrors.MessageOf(err)
	assert.Contains(t, msg, "name must be at most 5 characters")
	assert.Contains(t, msg, "email must be a valid email address")
	assert.Contains(t, msg, "kind must be one of: a, b")
	assert.Contains(t, msg, "amount must be greater than or equal to 0")
}

func TestVar(t *testing.T) {
	require.NoError(t, Var("email", "a@b.example", "email"))
	err := Var("email", "nope", "email")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, "email must be a valid email address", dErrors.MessageOf(err))
}
