package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectMIME(t *testing.T) {
	t.Parallel()

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	require.Equal(t, "image/png", DetectMIME(png, "photo.bin"))
	require.Equal(t, "image/png", DetectMIME(png, "photo.txt"))
	require.Equal(t, "text/plain; charset=utf-8", DetectMIME([]byte("hello"), "notes"))
	require.Equal(t, "application/pdf", DetectMIME([]byte{0x00, 0x01}, "paper.pdf"))
}

func TestIsThumbnailMIME(t *testing.T) {
	t.Parallel()

	require.True(t, IsThumbnailMIME("image/jpeg"))
	require.True(t, IsThumbnailMIME(" IMAGE/WEBP "))
	require.False(t, IsThumbnailMIME("image/svg+xml"))
	require.False(t, IsThumbnailMIME("text/plain"))
	require.True(t, IsImageMIME("image/svg+xml"))
}
