package rclog_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fdurso/rawcompr-go/internal/rclog"
	"github.com/stretchr/testify/assert"
)

func TestDebugGatedByFlag(t *testing.T) {
	var buf bytes.Buffer
	rclog.SetOutput(&buf)
	t.Cleanup(func() { rclog.SetDebug(false) })

	rclog.SetDebug(false)
	rclog.Debug("should not appear")
	assert.Empty(t, buf.String())

	rclog.SetDebug(true)
	rclog.Debug("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestFatalReturnsErrorUnchanged(t *testing.T) {
	var buf bytes.Buffer
	rclog.SetOutput(&buf)

	original := errors.New("boom")
	returned := rclog.Fatal(original)

	assert.Same(t, original, returned)
	assert.Contains(t, buf.String(), "boom")
}

func TestFatalNilIsNoop(t *testing.T) {
	var buf bytes.Buffer
	rclog.SetOutput(&buf)

	assert.Nil(t, rclog.Fatal(nil))
	assert.Empty(t, buf.String())
}
