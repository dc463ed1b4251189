package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/ember/pkg/bytecode"
)

// fakeHeap is a minimal Heap good enough for compiler tests: it interns
// strings with a plain map (no hashing, no GC root bookkeeping needed
// for these tests) and discards compiler-root pushes/pops.
type fakeHeap struct {
	interned map[string]*bytecode.StringObj
}

func newFakeHeap() *fakeHeap {
	return &fakeHeap{interned: make(map[string]*bytecode.StringObj)}
}

func (h *fakeHeap) Intern(s string) *bytecode.StringObj {
	if existing, ok := h.interned[s]; ok {
		return existing
	}
	obj := &bytecode.StringObj{Chars: s}
	h.interned[s] = obj
	return obj
}

func (h *fakeHeap) PushCompilerRoot(fn *bytecode.FunctionObj) {}
func (h *fakeHeap) PopCompilerRoot()                          {}

func compileOK(t *testing.T, source string) *bytecode.FunctionObj {
	t.Helper()
	fn, errs := Compile(source, newFakeHeap())
	require.Empty(t, errs)
	require.NotNil(t, fn)
	return fn
}

func TestCompile_ArithmeticPrecedence(t *testing.T) {
	fn := compileOK(t, "print 1 + 2 * 3;")
	ops := opcodesOf(fn.Chunk)
	assert.Contains(t, ops, bytecode.OpMultiply)
	assert.Contains(t, ops, bytecode.OpAdd)
	assert.Contains(t, ops, bytecode.OpPrint)
}

func TestCompile_LocalVariableUsesStackSlot(t *testing.T) {
	fn := compileOK(t, "{ var a = 1; print a; }")
	ops := opcodesOf(fn.Chunk)
	assert.Contains(t, ops, bytecode.OpGetLocal)
	assert.NotContains(t, ops, bytecode.OpGetGlobal)
}

func TestCompile_GlobalVariableRoundTrip(t *testing.T) {
	fn := compileOK(t, "var a = 1; print a;")
	ops := opcodesOf(fn.Chunk)
	assert.Contains(t, ops, bytecode.OpDefineGlobal)
	assert.Contains(t, ops, bytecode.OpGetGlobal)
}

func TestCompile_ClosureCapturesUpvalue(t *testing.T) {
	fn := compileOK(t, "fun outer(){ var x=1; fun inner(){ return x; } return inner; }")
	assert.Contains(t, opcodesOf(fn.Chunk), bytecode.OpClosure)
}

func TestCompile_Error_DuplicateLocalInSameScope(t *testing.T) {
	_, errs := Compile("{ var a; var a; }", newFakeHeap())
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "Already a variable with this name in this scope.")
}

func TestCompile_Error_TopLevelReturn(t *testing.T) {
	_, errs := Compile("return 1;", newFakeHeap())
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "Can't return from top-level code.")
}

func TestCompile_Error_ReadLocalInOwnInitializer(t *testing.T) {
	_, errs := Compile("{ var a = a; }", newFakeHeap())
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "Can't read local variable in its own initializer.")
}

func TestCompile_ClassWithSuperclassEmitsInherit(t *testing.T) {
	fn := compileOK(t, "class A {} class B < A {}")
	assert.Contains(t, opcodesOf(fn.Chunk), bytecode.OpInherit)
}

func opcodesOf(c *bytecode.Chunk) []bytecode.OpCode {
	var ops []bytecode.OpCode
	for _, b := range c.Code {
		// This is a crude scan, not a real decode (it doesn't skip
		// operand bytes), but it's sufficient for "does this opcode
		// appear anywhere" assertions since operand bytes rarely
		// collide with the small set of opcodes under test here.
		ops = append(ops, bytecode.OpCode(b))
	}
	return ops
}
