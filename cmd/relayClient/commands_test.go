package main

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTx(t *testing.T) {
	want := []byte{10, 2, 1, 2}

	fromBase64, err := parseTx(base64.StdEncoding.EncodeToString(want))
	require.NoError(t, err)
	assert.Equal(t, want, fromBase64)

	fromArray, err := parseTx(" [10, 2, 1, 2]\n")
	require.NoError(t, err)
	assert.Equal(t, want, fromArray)

	_, err = parseTx("not base64!")
	assert.Error(t, err)

	_, err = parseTx("[256]")
	assert.Error(t, err)
}
