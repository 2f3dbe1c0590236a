package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_KeyOrderIndependent(t *testing.T) {
	a := []byte(`{"players":[{"personId":"1","status":"OUT","name":"A"}]}`)
	b := []byte(`{"players":[{"name":"A","personId":"1","status":"OUT"}]}`)

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB, "reordered keys must produce the same fingerprint")
}

func TestFingerprint_ContentSensitive(t *testing.T) {
	a := []byte(`{"players":[{"personId":"1","status":"OUT"}]}`)
	b := []byte(`{"players":[{"personId":"1","status":"QUESTIONABLE"}]}`)

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)

	assert.NotEqual(t, fpA, fpB)
	assert.Len(t, fpA, 64)
}

func TestFingerprint_InvalidJSON(t *testing.T) {
	_, err := Fingerprint([]byte(`{"players":`))
	assert.Error(t, err)
}
