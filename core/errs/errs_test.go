package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestE_Error(t *testing.T) {
	err := New(KindStructuralInvalid, WithMessage("  missing items field "))
	assert.Equal(t, "structural_invalid: missing items field", err.Error())

	cause := errors.New("connection refused")
	err = New(KindTransientPublish, WithMessage("publish item 3"), WithCause(cause))
	assert.Equal(t, "transient_publish: publish item 3: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("reconcile batch: %w", New(KindReconciliation, WithMessage("index down")))
	assert.Equal(t, KindReconciliation, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindReconciliation))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, KindUnknown))
}

func TestE_Is(t *testing.T) {
	err := fmt.Errorf("ctx: %w", New(KindOwnershipMismatch, WithMessage("folder acme, company other")))
	assert.ErrorIs(t, err, New(KindOwnershipMismatch))
	assert.NotErrorIs(t, err, New(KindDuplicate))
}
