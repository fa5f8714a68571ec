package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDataURI(t *testing.T) {
	mediaType, payload, err := SplitDataURI("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, "aGVsbG8=", payload)
}

func TestSplitDataURIRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "hello", "data:image/png;base64", "data:;base64,aGVsbG8="} {
		_, _, err := SplitDataURI(in)
		assert.Error(t, err, in)
	}
}

func TestDecodeDataURI(t *testing.T) {
	raw := []byte("not really a jpeg")
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)

	mediaType, data, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mediaType)
	assert.Equal(t, raw, data)

	_, _, err = DecodeDataURI("data:image/jpeg;base64,!!!not-base64!!!")
	assert.Error(t, err)
}
