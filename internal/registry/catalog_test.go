package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/groupmapper/internal/config"
	"github.com/ajitpratap0/groupmapper/internal/ratelimit"
)

func TestFromConfig_OnlyKeyedSources(t *testing.T) {
	cfg := &config.Config{
		CompaniesHouse: config.SourceConfig{APIKey: "ch", BaseURL: "http://ch"},
		OpenCorporates: config.SourceConfig{BaseURL: "http://oc"},
	}
	cat := FromConfig(cfg, ratelimit.NewPool(nil), nil, testLogger())
	assert.Equal(t, []string{CompaniesHouseName}, cat.Names())

	src, err := cat.Default()
	require.NoError(t, err)
	assert.Equal(t, CompaniesHouseName, src.Name())

	_, err = cat.Get(OpenCorporatesName)
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestCatalog_Empty(t *testing.T) {
	cat := NewCatalog()
	assert.Zero(t, cat.Len())
	_, err := cat.Get("")
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestCatalog_GetByName(t *testing.T) {
	a, b := NewMockSource("a"), NewMockSource("b")
	cat := NewCatalog(a, b, NewMockSource("a"))
	assert.Equal(t, []string{"a", "b"}, cat.Names())

	got, err := cat.Get("b")
	require.NoError(t, err)
	assert.Same(t, b, got)

	got, err = cat.Get("")
	require.NoError(t, err)
	assert.Same(t, a, got)
}
