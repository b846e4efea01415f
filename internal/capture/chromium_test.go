package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8080/preview", OutputPath: "proof.png"}
	require.NoError(t, o.validate())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeoutSec*time.Second, o.Timeout)
}

func TestCaptureRequiresURLAndOutput(t *testing.T) {
	err := CaptureProofPNG(context.Background(), Options{OutputPath: "proof.png"})
	assert.ErrorContains(t, err, "URL is required")

	err = CaptureProofPNG(context.Background(), Options{URL: "http://127.0.0.1/preview"})
	assert.ErrorContains(t, err, "OutputPath is required")
}
