package pyfake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pybridge/domain/entities"
)

func newRuntime(t *testing.T) *Runtime {
	t.Helper()
	r := New()
	require.NoError(t, r.Initialize())
	return r
}

// eval compiles and evaluates expr in a fresh globals dict.
func eval(t *testing.T, r *Runtime, expr string) Ptr {
	t.Helper()
	code := r.CompileString(expr, "<test>", entities.StartEval)
	require.NotZero(t, code, "compile %q: %s", expr, pendingError(r))
	defer r.DecRef(code)
	globals := r.DictNew()
	defer r.DecRef(globals)
	r.DictSetItemString(globals, "__builtins__", r.builtins)
	return r.run(r.obj(code).code, globals)
}

func pendingError(r *Runtime) string {
	if r.errType == 0 {
		return "<none>"
	}
	r.normalizeError()
	return r.obj(r.errType).str + ": " + r.exceptionStr(r.errValue)
}

func TestInitialize_Twice(t *testing.T) {
	r := newRuntime(t)
	assert.True(t, r.IsInitialized())
	assert.Error(t, r.Initialize())
	assert.Equal(t, 2, r.InitCount())
}

func TestListSetItem_OutOfRangeStillSteals(t *testing.T) {
	r := newRuntime(t)
	base := r.Live()

	l := r.ListNew(0)
	s := r.UnicodeFromString("x")
	assert.Equal(t, -1, r.ListSetItem(l, 0, s))
	assert.False(t, r.Alive(s))
	assert.Equal(t, "IndexError: list assignment index out of range", pendingError(r))
	r.ErrClear()

	r.DecRef(l)
	assert.Equal(t, base, r.Live())
}

func TestListSetItem_Steals(t *testing.T) {
	r := newRuntime(t)
	base := r.Live()

	l := r.ListNew(1)
	s := r.UnicodeFromString("x")
	require.Equal(t, 0, r.ListSetItem(l, 0, s))
	assert.Equal(t, 1, r.RefCount(s))

	r.DecRef(l)
	assert.False(t, r.Alive(s))
	assert.Equal(t, base, r.Live())
}

func TestDecRef_UnderflowPanics(t *testing.T) {
	r := newRuntime(t)
	s := r.UnicodeFromString("x")
	r.DecRef(s)
	assert.Panics(t, func() { r.DecRef(s) })
}

func TestDict_InsertionOrder(t *testing.T) {
	r := newRuntime(t)
	d := r.DictNew()
	defer r.DecRef(d)
	for _, k := range []string{"b", "a", "c"} {
		v := r.LongFromLongLong(1)
		r.DictSetItemString(d, k, v)
		r.DecRef(v)
	}
	var keys []string
	pos := 0
	for {
		k, _, ok := r.DictNext(d, &pos)
		if !ok {
			break
		}
		s, _ := r.UnicodeAsUTF8(k)
		keys = append(keys, s)
	}
	assert.Equal(t, []string{"b", "a", "c"}, keys)
}

func TestDict_UnhashableKey(t *testing.T) {
	r := newRuntime(t)
	d := r.DictNew()
	defer r.DecRef(d)
	l := r.ListNew(0)
	defer r.DecRef(l)
	v := r.None()

	assert.Equal(t, -1, r.DictSetItem(d, l, v))
	assert.Equal(t, "TypeError: unhashable type: 'list'", pendingError(r))
}

func TestEval(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 + 2 * 3", "7"},
		{"7 // -2", "-4"},
		{"7 % -2", "-1"},
		{"2 ** 100", "1267650600228229401496703205376"},
		{"1 / 4", "0.25"},
		{"'a' + 'b' * 2", "'abb'"},
		{"[1, 2, 3][1:]", "[2, 3]"},
		{"(1,)", "(1,)"},
		{"{'a': 1, 'b': [None, True]}", "{'a': 1, 'b': [None, True]}"},
		{"len('中文')", "2"},
		{"'{} {x}'.format(1, x='y')", "'1 y'"},
		{"not 1 == 2", "True"},
		{"0 or 'z'", "'z'"},
		{"sorted([3, 1, 2], reverse=True)", "[3, 2, 1]"},
		{"isinstance(True, int)", "True"},
		{"slice(1, None, 2)", "slice(1, None, 2)"},
		{"...", "Ellipsis"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r := newRuntime(t)
			v := eval(t, r, tt.expr)
			require.NotZero(t, v, pendingError(r))
			defer r.DecRef(v)
			assert.Equal(t, tt.want, r.repr(v))
		})
	}
}

func TestEval_Errors(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 / 0", "ZeroDivisionError: division by zero"},
		{"1 // 0", "ZeroDivisionError: integer division or modulo by zero"},
		{"undefined", "NameError: name 'undefined' is not defined"},
		{"[1][5]", "IndexError: list index out of range"},
		{"{'a': 1}['b']", "KeyError: 'b'"},
		{"None.x", "AttributeError: 'NoneType' object has no attribute 'x'"},
		{"1 + 'a'", "TypeError: unsupported operand type(s) for +: 'int' and 'str'"},
		{"b'\\xff'.decode()", "UnicodeDecodeError: 'utf-8' codec can't decode bytes: invalid start byte"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r := newRuntime(t)
			v := eval(t, r, tt.expr)
			require.Zero(t, v)
			assert.Equal(t, tt.want, pendingError(r))
		})
	}
}

func TestCompileString_SyntaxError(t *testing.T) {
	r := newRuntime(t)
	assert.Zero(t, r.CompileString("x = (1,", "<test>", entities.StartFile))
	assert.True(t, r.matches("SyntaxError"))
	r.ErrClear()

	assert.Zero(t, r.CompileString("x = 1", "<test>", entities.StartEval))
	assert.True(t, r.matches("SyntaxError"))
}

func TestRunSimpleString(t *testing.T) {
	r := newRuntime(t)
	require.Equal(t, 0, r.RunSimpleString("x = 40 + 2\nprint('x is', x)"))
	assert.Equal(t, "x is 42\n", r.Stdout.String())

	x := r.obj(r.obj(r.mainModule).ns).dict.getString("x")
	assert.Equal(t, "42", r.repr(x))

	assert.Equal(t, -1, r.RunSimpleString("\nraise ValueError('bad')"))
	assert.False(t, r.ErrorPending())
	assert.Equal(t, "Traceback (most recent call last):\n  File \"<string>\", line 2, in <module>\nValueError: bad\n", r.Stderr.String())
}

func TestImportModule(t *testing.T) {
	r := newRuntime(t)
	r.AddSource("greeting", "import operator\nmessage = 'hi'\ntotal = operator.add(1, 2)")

	m := r.ImportModule("greeting")
	require.NotZero(t, m, pendingError(r))
	defer r.DecRef(m)
	v := r.GetAttrString(m, "total")
	require.NotZero(t, v)
	defer r.DecRef(v)
	assert.Equal(t, "3", r.repr(v))

	assert.Zero(t, r.ImportModule("missing"))
	assert.Equal(t, "ModuleNotFoundError: No module named 'missing'", pendingError(r))
}

func TestImportModule_FailureUnregisters(t *testing.T) {
	r := newRuntime(t)
	r.AddSource("broken", "x = 1\nraise RuntimeError('boom')")

	assert.Zero(t, r.ImportModule("broken"))
	r.ErrClear()
	assert.Zero(t, r.obj(r.sysModules).dict.getString("broken"))
}

func TestGetAttrString_BoundMethod(t *testing.T) {
	r := newRuntime(t)
	base := r.Live()

	l := r.ListNew(0)
	appendFn := r.GetAttrString(l, "append")
	require.NotZero(t, appendFn)
	args := r.TupleNew(1)
	r.TupleSetItem(args, 0, r.LongFromLongLong(9))
	res := r.Call(appendFn, args, 0)
	require.NotZero(t, res)
	assert.Equal(t, "[9]", r.repr(l))

	r.DecRef(res)
	r.DecRef(args)
	r.DecRef(appendFn)
	r.DecRef(l)
	assert.Equal(t, base, r.Live())
}

func TestCall_KeywordArguments(t *testing.T) {
	r := newRuntime(t)
	v := eval(t, r, "dict([('a', 1)], b=2)")
	require.NotZero(t, v, pendingError(r))
	defer r.DecRef(v)
	assert.Equal(t, "{'a': 1, 'b': 2}", r.repr(v))
}

func TestIterNext_DictChangedSize(t *testing.T) {
	r := newRuntime(t)
	d := eval(t, r, "{'a': 1}")
	defer r.DecRef(d)
	it := r.GetIter(d)
	require.NotZero(t, it)
	defer r.DecRef(it)

	v := r.LongFromLongLong(2)
	r.DictSetItemString(d, "b", v)
	r.DecRef(v)

	assert.Zero(t, r.IterNext(it))
	assert.Equal(t, "RuntimeError: dictionary changed size during iteration", pendingError(r))
}

func TestSliceIndices(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"[0, 1, 2, 3, 4, 5, 6, 7, 8][-3:]", "[6, 7, 8]"},
		{"[0, 1, 2, 3, 4, 5, 6, 7, 8][::-2]", "[8, 6, 4, 2, 0]"},
		{"[0, 1, 2, 3, 4, 5, 6, 7, 8][100:]", "[]"},
		{"'hello'[1:4]", "'ell'"},
		{"slice(None, None, -1).indices(5)", "(4, -1, -1)"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r := newRuntime(t)
			v := eval(t, r, tt.expr)
			require.NotZero(t, v, pendingError(r))
			defer r.DecRef(v)
			assert.Equal(t, tt.want, r.repr(v))
		})
	}
}

func TestErrNormalize(t *testing.T) {
	r := newRuntime(t)
	r.ErrSetString(r.types["ValueError"], "bad value")
	typ, value, tb := r.ErrFetch()
	require.False(t, r.ErrorPending())

	typ, value, tb = r.ErrNormalize(typ, value, tb)
	assert.Equal(t, "ValueError('bad value')", r.repr(value))
	r.decrefAll(typ, value, tb)
}

func TestSystemExit_Code(t *testing.T) {
	r := newRuntime(t)
	v := eval(t, r, "SystemExit(3).code")
	require.NotZero(t, v)
	defer r.DecRef(v)
	assert.Equal(t, "3", r.repr(v))
}

func TestNewCallable(t *testing.T) {
	r := newRuntime(t)
	var gotCtx uintptr
	r.SetTrampoline(func(ctx uintptr, args, kwargs Ptr) Ptr {
		gotCtx = ctx
		n := r.TupleSize(args)
		if kwargs != 0 {
			n += r.Length(kwargs)
		}
		return r.LongFromLongLong(int64(n))
	})

	cb := r.NewCallable("cb", 7)
	defer r.DecRef(cb)
	globals := r.DictNew()
	defer r.DecRef(globals)
	r.DictSetItemString(globals, "cb", cb)

	code := r.CompileString("cb(1, 2, key=3)", "<test>", entities.StartEval)
	require.NotZero(t, code)
	defer r.DecRef(code)
	v := r.run(r.obj(code).code, globals)
	require.NotZero(t, v, pendingError(r))
	defer r.DecRef(v)

	assert.Equal(t, uintptr(7), gotCtx)
	assert.Equal(t, "3", r.repr(v))
}

func TestLogging(t *testing.T) {
	r := newRuntime(t)
	require.Equal(t, 0, r.RunSimpleString(
		"import logging\n"+
			"log = logging.getLogger('app')\n"+
			"log.info('hidden')\n"+
			"log.warning('shown', extra={'k': 1})\n"+
			"log.setLevel(logging.DEBUG)\n"+
			"log.debug('now shown')"), r.Stderr.String())

	recs := r.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, LogRecord{Logger: "app", Message: "shown", Level: LevelWarning, Extra: map[string]string{"k": "1"}}, recs[0])
	assert.Equal(t, "now shown", recs[1].Message)
}

func TestRunpy(t *testing.T) {
	r := newRuntime(t)
	r.AddSource("tool", "result = __name__")

	require.Equal(t, 0, r.RunSimpleString("import runpy\ng = runpy.run_module('tool', run_name='__main__')"), r.Stderr.String())
	g := r.obj(r.obj(r.mainModule).ns).dict.getString("g")
	require.NotZero(t, g)
	assert.Equal(t, "'__main__'", r.repr(r.DictGetItemString(g, "result")))
}
