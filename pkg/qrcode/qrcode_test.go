package qrcode

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeProducesSquarePNG(t *testing.T) {
	data, err := NewEncoder().Encode("https://sigea.example.com/validate?code=SIGEA-ABCD-25", 240)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, img.Bounds().Dx(), img.Bounds().Dy())
	require.Equal(t, 240, img.Bounds().Dx())
}

func TestEncodeRejectsEmptyContent(t *testing.T) {
	_, err := NewEncoder().Encode("", 100)
	require.Error(t, err)
}

func TestEncodeIsDeterministic(t *testing.T) {
	enc := NewEncoder()
	a, err := enc.Encode("SIGEA-ABCD-25", 80)
	require.NoError(t, err)
	b, err := enc.Encode("SIGEA-ABCD-25", 80)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
