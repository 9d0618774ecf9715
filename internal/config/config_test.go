package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_CommentsAndBlankLines(t *testing.T) {
	src := `
# a comment
platform = pg

workspace = demo
typecheck = true
`
	cfg, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "pg", cfg.String(KeyPlatform, ""))
	assert.Equal(t, "demo", cfg.String(KeyWorkspace, ""))
	assert.True(t, cfg.Bool(KeyTypecheck, false))
	assert.False(t, cfg.Bool(KeyPrunequery, false))
}

func TestParse_MissingEqualsFails(t *testing.T) {
	_, err := Parse(strings.NewReader("not a kv line"))
	require.Error(t, err)
	var cfgErr Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 1, cfgErr.Line)
}

func TestParse_EmptyKeyFails(t *testing.T) {
	_, err := Parse(strings.NewReader(" = value"))
	require.Error(t, err)
}

func TestBool_DefaultsOnUnparseable(t *testing.T) {
	cfg, err := Parse(strings.NewReader("typecheck = maybe"))
	require.NoError(t, err)
	assert.False(t, cfg.Bool(KeyTypecheck, false))
}
