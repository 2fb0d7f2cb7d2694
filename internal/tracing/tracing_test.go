package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_NoEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "foodguide")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestExporterOptions(t *testing.T) {
	opts, err := exporterOptions("localhost:4318")
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	opts, err = exporterOptions("https://otel.example.com")
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	opts, err = exporterOptions("http://collector:4318/custom/v1/traces")
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	_, err = exporterOptions("http://[::1")
	assert.Error(t, err)
}
