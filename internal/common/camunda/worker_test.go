package camunda

import (
	"testing"

	"venue-signals/internal/common/errors"
	"venue-signals/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var venueSchema = validation.MustSchema("venue", `{
	"type": "object",
	"properties": {"venueId": {"type": "string", "minLength": 1}},
	"required": ["venueId"]
}`)

func jobWithVariables(vars string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "test", Retries: 2, Variables: vars}}
}

// ==========================
// DecodeVariables Tests
// ==========================

func TestDecodeVariables(t *testing.T) {
	tests := []struct {
		name    string
		vars    string
		want    string
		wantErr bool
	}{
		{name: "valid", vars: `{"venueId":"v-1","extra":true}`, want: "v-1"},
		{name: "empty variables fail schema", vars: "", wantErr: true},
		{name: "missing required field", vars: `{"other":"x"}`, wantErr: true},
		{name: "wrong type", vars: `{"venueId":7}`, wantErr: true},
		{name: "malformed json", vars: `{"venueId":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				VenueID string `json:"venueId"`
			}
			err := DecodeVariables(jobWithVariables(tt.vars), venueSchema, &out)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.VenueID)
		})
	}
}

func TestDecodeVariables_NilSchema(t *testing.T) {
	var out map[string]interface{}
	require.NoError(t, DecodeVariables(jobWithVariables(""), nil, &out))
	assert.Empty(t, out)
}

// ==========================
// Instrumentation Tests
// ==========================

func TestInstrument_RecordsSpanPerJob(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	calls := 0
	wrapped := instrument("score-recommendations", func(_ worker.JobClient, job entities.Job) {
		calls++
		assert.Equal(t, int64(42), job.GetKey())
	})

	wrapped(nil, jobWithVariables("{}"))

	assert.Equal(t, 1, calls)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "score-recommendations", spans[0].Name())
}
