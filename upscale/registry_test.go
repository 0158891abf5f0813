package upscale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	factory := func(opts Options) (*Pipeline, error) {
		return NewPipeline(opts, nil, nil, nil), nil
	}

	require.NoError(t, registry.Register("realcugan", factory))
	assert.Error(t, registry.Register("realcugan", factory), "duplicate registration must fail")

	got, ok := registry.Lookup("realcugan")
	require.True(t, ok)

	pipeline, err := got(testOptions())
	require.NoError(t, err)
	assert.Equal(t, testOptions(), pipeline.Options())

	_, ok = registry.Lookup("missing")
	assert.False(t, ok)

	require.NoError(t, registry.Register("bicubic", factory))
	assert.Equal(t, []string{"bicubic", "realcugan"}, registry.Names())
}
