package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestInitTracing_NoEndpoint(t *testing.T) {
	tp, err := InitTracing(context.Background(), domain.TracingSettings{}, "test")
	require.NoError(t, err)
	assert.False(t, tp.Enabled())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestStartSpan_NoopProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "retrieve", attribute.Int("rag.top_k", 5))
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	End(span, errors.New("boom"))

	_, span = StartProviderSpan(context.Background(), "embed", "text-embedding-004")
	End(span, nil)
}
