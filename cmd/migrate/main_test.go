package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want action
	}{
		{"up", []string{"-up"}, action{kind: actionUp}},
		{"down", []string{"-down"}, action{kind: actionDown}},
		{"steps up", []string{"-steps", "2"}, action{kind: actionSteps, n: 2}},
		{"steps down", []string{"-steps=-1"}, action{kind: actionSteps, n: -1}},
		{"version", []string{"-version"}, action{kind: actionVersion}},
		{"force zero", []string{"-force", "0"}, action{kind: actionForce, n: 0}},
		{"path override", []string{"-up", "-path", "./migrations"}, action{kind: actionUp, path: "./migrations"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAction(tt.args, io.Discard)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAction_Errors(t *testing.T) {
	_, err := parseAction(nil, io.Discard)
	assert.ErrorIs(t, err, errNoAction)

	_, err = parseAction([]string{"-up", "-down"}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one action")

	_, err = parseAction([]string{"-bogus"}, io.Discard)
	assert.Error(t, err)
}
