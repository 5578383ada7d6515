// Package testutil provides bridge fixtures and assertions shared by tests.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pybridge"
	"github.com/reglet-dev/pybridge/internal/pyfake"
)

// AssertPythonError requires err to be a foreign exception of type typeName
// (or a subclass) and returns it.
func AssertPythonError(t *testing.T, err error, typeName string, msgAndArgs ...interface{}) *pybridge.PythonError {
	t.Helper()
	pe, ok := pybridge.AsPythonError(err)
	require.True(t, ok, msgAndArgs...)
	assert.True(t, pe.Matches(typeName), "got %s, want %s", pe.TypeName(), typeName)
	return pe
}

// AssertJSONEqual compares two JSON strings semantically
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()
	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "failed to unmarshal expected JSON")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "failed to unmarshal actual JSON")
	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}

// AssertNoLeaks checks that rt holds exactly base live objects.
func AssertNoLeaks(t *testing.T, rt *pyfake.Runtime, base int, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, base, rt.Live(), msgAndArgs...)
}
