package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil error", nil, ""},
		{"domain error", &Error{Code: EINVALID, Message: "bad input"}, EINVALID},
		{"wrapped domain error", fmt.Errorf("outer: %w", &Error{Code: ENOTFOUND}), ENOTFOUND},
		{"plain error", errors.New("boom"), EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "Cart not found", ErrorMessage(ErrCartNotFound))

	// Internal details never leak to users.
	internal := Internal(errors.New("pq: connection refused"), "cart.get", "query failed")
	assert.Equal(t, "An internal error occurred. Please try again later.", ErrorMessage(internal))
	assert.Equal(t, "An internal error occurred. Please try again later.", ErrorMessage(errors.New("raw")))
}

func TestErrorIs_SentinelMatching(t *testing.T) {
	// A copy with the same code and message matches the sentinel.
	copied := &Error{Code: ENOTFOUND, Message: "Item not found", Op: "catalog.get"}
	assert.True(t, errors.Is(copied, ErrItemNotFound))

	// Different message does not.
	other := &Error{Code: ENOTFOUND, Message: "Cart not found"}
	assert.False(t, errors.Is(other, ErrItemNotFound))
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, EINTERNAL, "op", "msg"))

	cause := errors.New("disk full")
	err := WrapError(cause, EUNAVAILABLE, "ledger.reserve", "storage write failed")
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, EUNAVAILABLE, ErrorCode(err))
	assert.Equal(t, "ledger.reserve", ErrorOp(err))
}

func TestInsufficientStockError(t *testing.T) {
	err := &InsufficientStockError{ItemID: 7, Requested: 5, Available: 2}

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Equal(t, ECONFLICT, ErrorCode(err))
	assert.Contains(t, err.Error(), "requested 5, available 2")

	var ise *InsufficientStockError
	assert.True(t, errors.As(fmt.Errorf("add: %w", err), &ise))
	assert.Equal(t, int64(7), ise.ItemID)
}

func TestOwnerKeyValidate(t *testing.T) {
	assert.NoError(t, UserKey("user-1").Validate())
	assert.NoError(t, SessionKey("sess-1").Validate())

	assert.ErrorIs(t, OwnerKey{}.Validate(), ErrInvalidOwner)
	assert.ErrorIs(t, OwnerKey{UserID: "u", SessionID: "s"}.Validate(), ErrInvalidOwner)
}
