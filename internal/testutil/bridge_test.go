package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBridge(t *testing.T) {
	py, rt := NewBridge(t)
	assert.Equal(t, int64(0), Materialize(t)(py.Eval("0")))
	base := rt.Live()

	assert.Equal(t, []any{int64(1), "a"}, Materialize(t)(py.Eval("[1, 'a']")))
	AssertNoLeaks(t, rt, base)

	_, err := py.Eval("1 / 0")
	pe := AssertPythonError(t, err, "ArithmeticError")
	assert.Equal(t, "ZeroDivisionError", pe.TypeName())
	pe.Release()
}

func TestAssertJSONEqual(t *testing.T) {
	AssertJSONEqual(t, `{"a": 1, "b": [true]}`, `{"b":[true],"a":1}`)
}
