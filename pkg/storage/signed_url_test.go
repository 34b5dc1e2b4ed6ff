package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("unit-secret", time.Minute)

	token, expiresAt, err := signer.Generate(BucketContentFiles, "video/abc-123.mp4")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	bucket, relPath, parsedExp, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, BucketContentFiles, bucket)
	assert.Equal(t, "video/abc-123.mp4", relPath)
	assert.WithinDuration(t, expiresAt, parsedExp, time.Second)
}

func TestSignedURLTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("unit-secret", time.Minute)
	token, _, err := signer.Generate(BucketQuizImages, "q1-a.png")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token+"x", false)
	assert.Error(t, err)
}

func TestSignedURLExpired(t *testing.T) {
	signer := NewSignedURLSigner("unit-secret", time.Minute)
	signer.ttl = -time.Minute
	token, _, err := signer.Generate(BucketContentFiles, "pdf/file.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token, false)
	assert.Error(t, err)

	_, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "pdf/file.pdf", relPath)
}
