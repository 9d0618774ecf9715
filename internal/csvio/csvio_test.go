package csvio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadNodes_WithHeader(t *testing.T) {
	rows, err := ReadNodes(strings.NewReader("id,label\n1,Person\n2,Person\n"))
	require.NoError(t, err)
	assert.Equal(t, []NodeRow{{ID: 1, Label: "Person"}, {ID: 2, Label: "Person"}}, rows)
}

func TestReadNodes_WithoutHeader(t *testing.T) {
	rows, err := ReadNodes(strings.NewReader("1,Person\n2,Person\n"))
	require.NoError(t, err)
	assert.Equal(t, []NodeRow{{ID: 1, Label: "Person"}, {ID: 2, Label: "Person"}}, rows)
}

func TestReadEdges_QuotedLabel(t *testing.T) {
	rows, err := ReadEdges(strings.NewReader(`10,1,2,"Knows, well"` + "\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, EdgeRow{ID: 10, Src: 1, Dst: 2, Label: "Knows, well"}, rows[0])
}

func TestReadProps_Basic(t *testing.T) {
	rows, err := ReadProps(strings.NewReader("id,key,value\n1,age,30\n"))
	require.NoError(t, err)
	assert.Equal(t, []PropRow{{ID: 1, Key: "age", Value: "30"}}, rows)
}

func TestReadNodes_MalformedRowFails(t *testing.T) {
	_, err := ReadNodes(strings.NewReader("1,Person,extra\n"))
	require.Error(t, err)
	var csvErr Error
	require.ErrorAs(t, err, &csvErr)
	assert.Equal(t, 1, csvErr.Row)
}
