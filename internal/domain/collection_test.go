package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsContiguous(t *testing.T) {
	assert.True(t, IsContiguous(nil))
	assert.True(t, IsContiguous([]int{3, 1, 2}))
	assert.False(t, IsContiguous([]int{1, 1, 2}))
	assert.False(t, IsContiguous([]int{1, 3}))
	assert.False(t, IsContiguous([]int{0, 1}))
}

func TestCollectionSubsetFilter(t *testing.T) {
	plain := Collection{Resource: "skills"}
	assert.False(t, plain.Gated())
	assert.Nil(t, plain.SubsetFilter())

	gated := Collection{
		Resource:   "testimonials",
		Membership: &Membership{Column: "approved", In: true, Out: false},
	}
	assert.True(t, gated.Gated())
	assert.Equal(t, map[string]any{"approved": true}, gated.SubsetFilter())
}

func TestErrorsIs(t *testing.T) {
	var err error = NotFoundError{Resource: "skill", Side: "second"}
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "second skill not found", err.Error())
	assert.NotErrorIs(t, err, ErrTargetNotFound)

	err = TransactionFailure{Err: assert.AnError}
	assert.ErrorIs(t, err, ErrTransactionFailure)
	assert.ErrorIs(t, err, assert.AnError)

	assert.ErrorIs(t, SelfSwapError{ID: "a"}, ErrSelfSwap)
	assert.ErrorIs(t, Required("name"), ErrValidation)
	assert.Equal(t, "name: is required", Required("name").Error())
}
