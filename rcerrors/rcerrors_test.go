package rcerrors_test

import (
	"errors"
	"testing"

	"github.com/fdurso/rawcompr-go/rcerrors"
	"github.com/stretchr/testify/assert"
)

func TestErrorWithMessage(t *testing.T) {
	err := rcerrors.ErrOverlappingRange.WithMessage("origPos=100 origSize=20")
	assert.Equal(t, "overlapping range: origPos=100 origSize=20", err.Error())
	assert.ErrorIs(t, err, rcerrors.ErrOverlappingRange)
}

func TestErrorWrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := rcerrors.ErrPrematureEOF.Wrap(cause)

	assert.Equal(t, "premature end of stream: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, rcerrors.ErrPrematureEOF)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, rcerrors.KindCorruption, rcerrors.ErrHashMismatch.Kind())
	assert.Equal(t, rcerrors.KindInvariant, rcerrors.ErrOverlappingRange.Kind())
}

func TestJoin(t *testing.T) {
	assert.Nil(t, rcerrors.Join())
	assert.Nil(t, rcerrors.Join(nil, nil))

	single := errors.New("only one")
	assert.Same(t, single, rcerrors.Join(nil, single))

	combined := rcerrors.Join(errors.New("a"), errors.New("b"))
	assert.Error(t, combined)
	assert.Contains(t, combined.Error(), "a")
	assert.Contains(t, combined.Error(), "b")
}
