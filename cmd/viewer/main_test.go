package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/shopdash/pkg/listview"
)

func TestAsk(t *testing.T) {
	var out bytes.Buffer
	ok, err := ask(strings.NewReader("y\n"), &out, "Delete?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Delete? [y/N] ", out.String())

	ok, err = ask(strings.NewReader(""), &out, "Delete?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrintSnapshot(t *testing.T) {
	type row struct {
		ID     string   `json:"id"`
		Status string   `json:"status"`
		Tags   []string `json:"tags"`
	}
	var out bytes.Buffer
	err := printSnapshot(&out, listview.Snapshot{
		View:  "user-orders",
		State: listview.StateSuccess,
		Rows:  []row{{ID: "o1", Status: "Processing", Tags: []string{"a", "b"}}},
		Count: 1,
		Total: 3,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "user-orders: 1 of 3 (success)", lines[0])
	assert.Equal(t, []string{"ID", "STATUS", "TAGS"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"o1", "Processing", "a,b"}, strings.Fields(lines[2]))
}
