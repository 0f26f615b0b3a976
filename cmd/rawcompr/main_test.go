package main

import (
	"errors"
	"testing"

	"github.com/fdurso/rawcompr-go/rcerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyValuePairs(t *testing.T) {
	opts, err := parseKeyValuePairs([]string{"level=3", "slices=4", "coder=range"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"level": "3", "slices": "4", "coder": "range"}, opts)
}

func TestParseKeyValuePairsRejectsMissingEquals(t *testing.T) {
	_, err := parseKeyValuePairs([]string{"level"})
	assert.Error(t, err)
}

func TestHashNameSupported(t *testing.T) {
	assert.True(t, hashNameSupported("MD5"))
	assert.False(t, hashNameSupported("md5"))
	assert.False(t, hashNameSupported("WHIRLPOOL"))
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, 0, exitCodeFor(nil))
	assert.Equal(t, 1, exitCodeFor(errors.New("plain")))

	assert.Equal(t, int(rcerrors.KindArgument)+1, exitCodeFor(rcerrors.ErrInvalidArgument))
	assert.Equal(t, int(rcerrors.KindCorruption)+1, exitCodeFor(rcerrors.ErrHashMismatch))
}
