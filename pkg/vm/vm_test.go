package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/ember/pkg/config"
)

func interpret(t *testing.T, src string) (*VM, string) {
	t.Helper()
	v := New(config.Default())
	var out string
	v.Stdout = func(s string) { out += s }
	res, err := v.Interpret(src)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	return v, out
}

func TestVM_PrintsArithmetic(t *testing.T) {
	_, out := interpret(t, "print (1 + 2) * 3;")
	assert.Equal(t, "9\n", out)
}

func TestVM_InternUniquenessAcrossConcatenation(t *testing.T) {
	v, _ := interpret(t, `var a = "foo" + "bar";`)
	direct := v.Intern("foobar")
	got, ok := v.globals.Get(v.Intern("a"))
	require.True(t, ok)
	assert.Same(t, direct, got.AsObj())
}

func TestVM_StackUnwindsAfterReturn(t *testing.T) {
	v, _ := interpret(t, `fun f(a, b) { return a + b; } var x = f(1, 2);`)
	assert.Empty(t, v.frames)
}

func TestVM_ClassInstanceFieldsAreIndependentPerInstance(t *testing.T) {
	_, out := interpret(t, `
	class Counter { init() { this.n = 0; } bump() { this.n = this.n + 1; print this.n; } }
	var a = Counter();
	var b = Counter();
	a.bump();
	a.bump();
	b.bump();
	`)
	assert.Equal(t, "1\n2\n1\n", out)
}

func TestVM_UndefinedGlobalIsRuntimeError(t *testing.T) {
	v := New(config.Default())
	_, err := v.Interpret(`print undefinedThing;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable 'undefinedThing'")
}

func TestVM_CallArityMismatchIsRuntimeError(t *testing.T) {
	v := New(config.Default())
	_, err := v.Interpret(`fun f(a, b) { return a + b; } f(1);`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected 2 arguments but got 1.")
}

func TestVM_StressModeCollectsWithoutCorruptingState(t *testing.T) {
	cfg := config.Default()
	cfg.GC.StressMode = true
	cfg.GC.InitialThresholdBytes = 1
	v := New(cfg)
	var out string
	v.Stdout = func(s string) { out += s }
	_, err := v.Interpret(`
	fun makeCounter() {
		var count = 0;
		fun counter() {
			count = count + 1;
			return count;
		}
		return counter;
	}
	var c = makeCounter();
	print c();
	print c();
	print c();
	`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
}
