package ember

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/ember/pkg/config"
)

func run(t *testing.T, source string) string {
	t.Helper()
	var out string
	interp := New(config.Default())
	interp.Stdout(func(s string) { out += s })
	res, err := interp.Interpret(source)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	return out
}

func TestEndToEnd_Arithmetic(t *testing.T) {
	assert.Equal(t, "7\n", run(t, "print 1 + 2 * 3;"))
}

func TestEndToEnd_StringConcat(t *testing.T) {
	assert.Equal(t, "foobar\n", run(t, `var a = "foo"; var b = "bar"; print a + b;`))
}

func TestEndToEnd_Fibonacci(t *testing.T) {
	src := `fun fib(n){ if (n<2) return n; return fib(n-1)+fib(n-2);} print fib(10);`
	assert.Equal(t, "55\n", run(t, src))
}

func TestEndToEnd_ClosureOverMutableLocal(t *testing.T) {
	src := `fun outer(){ var x=1; fun inner(){ x=x+1; print x;} return inner;} var f=outer(); f(); f(); f();`
	assert.Equal(t, "2\n3\n4\n", run(t, src))
}

func TestEndToEnd_InheritanceAndSuper(t *testing.T) {
	src := `class A { greet(){ print "hi"; } } class B < A { greet(){ super.greet(); print "B"; } } B().greet();`
	assert.Equal(t, "hi\nB\n", run(t, src))
}

func TestEndToEnd_Initializer(t *testing.T) {
	src := `class C { init(n){ this.n=n; } } var c = C(5); print c.n;`
	assert.Equal(t, "5\n", run(t, src))
}

func TestEndToEnd_BoundMethodReadWithoutCall(t *testing.T) {
	src := `class C { greet(){ print "hi"; } } var c = C(); var m = c.greet; m();`
	assert.Equal(t, "hi\n", run(t, src))
}

func TestRuntimeError_NegateNonNumber(t *testing.T) {
	interp := New(config.Default())
	res, err := interp.Interpret(`print -"x";`)
	require.Error(t, err)
	assert.Equal(t, RuntimeError, res)
	assert.Contains(t, err.Error(), "Operand must be a number.")
}

func TestCompileError_DuplicateLocal(t *testing.T) {
	interp := New(config.Default())
	res, err := interp.Interpret(`{ var a; var a; }`)
	require.Error(t, err)
	assert.Equal(t, CompileError, res)
	assert.Contains(t, err.Error(), "Already a variable with this name in this scope.")
}

func TestCompileError_TopLevelReturn(t *testing.T) {
	interp := New(config.Default())
	res, err := interp.Interpret(`return 1;`)
	require.Error(t, err)
	assert.Equal(t, CompileError, res)
	assert.Contains(t, err.Error(), "Can't return from top-level code.")
}

func TestInterpret_DeterministicAcrossRuns(t *testing.T) {
	src := `fun fib(n){ if (n<2) return n; return fib(n-1)+fib(n-2);} print fib(15);`
	first := run(t, src)
	second := run(t, src)
	assert.Equal(t, first, second)
}

func TestInterpret_GCStressModeMatchesDefaultOutput(t *testing.T) {
	src := `
	class Node { init(v) { this.v = v; } }
	fun build(n) {
		var total = 0;
		var i = 0;
		while (i < n) {
			var node = Node(i);
			total = total + node.v;
			i = i + 1;
		}
		return total;
	}
	print build(200);
	`

	normal := New(config.Default())
	var normalOut string
	normal.Stdout(func(s string) { normalOut += s })
	_, err := normal.Interpret(src)
	require.NoError(t, err)

	stressCfg := config.Default()
	stressCfg.GC.StressMode = true
	stressCfg.GC.InitialThresholdBytes = 1
	stressed := New(stressCfg)
	var stressedOut string
	stressed.Stdout(func(s string) { stressedOut += s })
	_, err = stressed.Interpret(src)
	require.NoError(t, err)

	assert.Equal(t, normalOut, stressedOut)
}
