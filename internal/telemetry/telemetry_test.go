package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	p, err := Init(false, "uniimport-test", nil)
	require.NoError(t, err)

	_, span := Tracer("").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_EnabledExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := Init(true, "uniimport-test", &buf)
	require.NoError(t, err)

	_, span := Tracer("test").Start(context.Background(), "import.run")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, strings.Contains(buf.String(), "import.run"))
	assert.True(t, strings.Contains(buf.String(), "uniimport-test"))

	_, _ = Init(false, "", nil)
}

func TestShutdown_NilProvider(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}
