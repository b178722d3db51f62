package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoneycombSetup_Disabled(t *testing.T) {
	shutdown, err := HoneycombSetup(false, "test-service", nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NotPanics(t, shutdown)
}

func TestEndSpanWithErrCheck(t *testing.T) {
	_, span := GlobalTracer.Start(context.Background(), "test.ok")
	assert.NotPanics(t, func() { EndSpanWithErrCheck(span, nil) })

	_, span = GlobalTracer.Start(context.Background(), "test.err")
	assert.NotPanics(t, func() { EndSpanWithErrCheck(span, errors.New("boom")) })
	assert.False(t, span.IsRecording())
}
