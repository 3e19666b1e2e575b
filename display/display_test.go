package display

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/typeglyph/annotate"
	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/inherit"
)

func at(line, col, length int) document.Range {
	return document.Range{
		Start: document.Position{Line: line, Character: col},
		End:   document.Position{Line: line, Character: col + length},
	}
}

func sampleTable() *annotate.Table {
	table := annotate.NewTable()
	table.URI = "file:///tmp/calc.java"
	table.PassID = "pass-1"
	table.Groups["Integer>Number>Object"] = &annotate.Group{
		Key:       "Integer>Number>Object",
		Chain:     inherit.Chain{"Integer", "Number", "Object"},
		Locations: []document.Range{at(4, 10, 1), at(2, 8, 1)},
	}
	table.Groups["Calculator"] = &annotate.Group{
		Key:       "Calculator",
		Chain:     inherit.Chain{"Calculator"},
		Locations: []document.Range{at(0, 13, 10)},
	}
	return table
}

func TestTableRows(t *testing.T) {
	rows := TableRows(sampleTable())
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Type", "Inherits", "Count", "Locations"}, rows[0])
	assert.Equal(t, []string{"Calculator", "", "1", "1:14"}, rows[1])
	assert.Equal(t, []string{"Integer", "Number → Object", "2", "3:9, 5:11"}, rows[2])
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, sampleTable()))
	assert.Contains(t, buf.String(), "Calculator")
	assert.Contains(t, buf.String(), "3 locations in 2 groups (pass pass-1)")

	buf.Reset()
	empty := annotate.NewTable()
	empty.URI = "file:///tmp/empty.go"
	require.NoError(t, RenderTable(&buf, empty))
	assert.Equal(t, "No types found in file:///tmp/empty.go\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"count": 2}))
	assert.Contains(t, buf.String(), `"count"`)
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}

func TestShouldOutputJSON(t *testing.T) {
	newCmd := func() (*cobra.Command, *cobra.Command) {
		root := &cobra.Command{Use: "typeglyph"}
		root.PersistentFlags().Bool("json", false, "")
		child := &cobra.Command{Use: "annotate", Run: func(*cobra.Command, []string) {}}
		root.AddCommand(child)
		return root, child
	}

	t.Run("default off", func(t *testing.T) {
		t.Setenv(OutputEnv, "")
		_, child := newCmd()
		assert.False(t, ShouldOutputJSON(child))
	})

	t.Run("global flag", func(t *testing.T) {
		t.Setenv(OutputEnv, "")
		root, child := newCmd()
		require.NoError(t, root.PersistentFlags().Set("json", "true"))
		assert.True(t, ShouldOutputJSON(child))
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(OutputEnv, "JSON")
		_, child := newCmd()
		assert.True(t, ShouldOutputJSON(child))
		assert.True(t, ShouldOutputJSON(nil))
	})

	t.Run("explicit false beats environment", func(t *testing.T) {
		t.Setenv(OutputEnv, "json")
		_, child := newCmd()
		child.Flags().Bool("json", false, "")
		require.NoError(t, child.Flags().Set("json", "false"))
		assert.False(t, ShouldOutputJSON(child))
	})
}
