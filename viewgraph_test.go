package viewgraph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_ExecBasicCommands(t *testing.T) {
	e := New()
	ctx := context.Background()

	_, err := e.Exec(ctx, `create graph demo`)
	require.NoError(t, err)
	_, err = e.Exec(ctx, `use demo`)
	require.NoError(t, err)
	_, err = e.Exec(ctx, `create node Person`)
	require.NoError(t, err)
	_, err = e.Exec(ctx, `insert N(1, "Person")`)
	require.NoError(t, err)

	res, err := e.Exec(ctx, `schema`)
	require.NoError(t, err)
	sr, ok := res.(SchemaResult)
	require.True(t, ok)
	assert.Contains(t, sr.NodeLabels, "Person")
}

func TestEngine_ExecParseErrorMapsToExitCode1(t *testing.T) {
	e := New()
	_, err := e.Exec(context.Background(), `this is not a command`)
	require.Error(t, err)
	assert.Equal(t, ExitParseError, ExitCode(err))
}

func TestEngine_ExecUnknownGraphMapsToExitCode2(t *testing.T) {
	e := New()
	_, err := e.Exec(context.Background(), `use ghost`)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "ghost"))
	assert.Equal(t, ExitSchemaError, ExitCode(err))
}

func TestExitCode_NilIsSuccess(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
}
