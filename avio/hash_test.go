package avio

import (
	"crypto/sha256"
	"sort"
	"testing"

	"github.com/fdurso/rawcompr-go/rcerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAlgorithmsIsSortedAndIncludesDefaults(t *testing.T) {
	names := HashAlgorithms()
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, "MD5")
	assert.Contains(t, names, "SHA256")
}

func TestNewHashMatchesCryptoDigest(t *testing.T) {
	h, err := NewHash("SHA256")
	require.NoError(t, err)
	assert.Equal(t, sha256.Size, h.Size())

	payload := []byte("the quick brown fox")
	h.Update(payload[:9])
	h.Update(payload[9:])

	want := sha256.Sum256(payload)
	assert.Equal(t, want[:], h.Final())
}

func TestNewHashRejectsUnknownAlgorithm(t *testing.T) {
	_, err := NewHash("WHIRLPOOL")
	assert.ErrorIs(t, err, rcerrors.ErrUnsupportedHash)
}
