package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNew_StdoutExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	obs, err := New(Options{ServiceName: "venue-signals-test", Exporter: "stdout", TraceWriter: &buf})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "score-recommendations")
	span.End()

	require.NoError(t, obs.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "score-recommendations")
	assert.Contains(t, buf.String(), "venue-signals-test")
}
