package skerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("sentinel")

func TestWrap_Nil_ReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil))
	assert.NoError(t, Wrapf(nil, "ignored %d", 1))
}

func TestWrap_AddsCallSite(t *testing.T) {
	err := Wrap(errSentinel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sentinel. At skerr/skerr_test.go:")
	assert.True(t, errors.Is(err, errSentinel))
}

func TestWrapf_NestedContext_OutermostFirst(t *testing.T) {
	err := Wrapf(errSentinel, "loading group %s", "abc")
	err = Wrapf(err, "processing")
	assert.Contains(t, err.Error(), "processing: loading group abc: sentinel")
	assert.Equal(t, errSentinel, Unwrap(err))
}

func TestFmt_FormatsMessage(t *testing.T) {
	err := Fmt("bad value %d", 12)
	assert.Contains(t, err.Error(), "bad value 12")
}
