// Package compiler implements ember's single-pass compiler: lexical
// scanning (via pkg/scanner), Pratt-precedence parsing, and bytecode
// emission all happen in one forward pass over the token stream. There
// is no intermediate AST — every parse rule emits bytecode directly
// into the Function it is building.
package compiler

import (
	"fmt"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/scanner"
)

// Heap is the subset of the VM's object heap the compiler needs: a way
// to intern constant-pool strings, and a way to register the function
// currently being built as a GC root for the duration of compilation,
// so a GC triggered mid-compile never collects an in-progress
// Function that nothing else references yet.
type Heap interface {
	Intern(s string) *bytecode.StringObj
	PushCompilerRoot(fn *bytecode.FunctionObj)
	PopCompilerRoot()
}

// FunctionType distinguishes the four contexts a nested compiler can be
// building code for; each reserves local slot 0 differently and
// enforces different rules around `return`.
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeScript                // the implicit top-level function
	TypeMethod
	TypeInitializer
)

// local is a block-scoped variable slot. Depth -1 means "declared but
// not yet initialized" — reading it in its own initializer is a
// compile error.
type local struct {
	name       scanner.Token
	depth      int
	isCaptured bool
}

// upvalueRef records how one of a function's upvalues is resolved:
// from a local slot in the immediately enclosing function, or from
// that function's own upvalue list (for variables captured through
// more than one level of nesting).
type upvalueRef struct {
	index   byte
	isLocal bool
}

const maxLocals = 256
const maxUpvalues = 256

// funcState is one nested compiler context, one per function
// (including the implicit top-level script). It is linked to its
// enclosing function's funcState via enclosing, forming the chain
// variable resolution walks outward through.
type funcState struct {
	enclosing *funcState

	function *bytecode.FunctionObj
	kind     FunctionType

	locals     []local
	scopeDepth int

	upvalues []upvalueRef
}

// classState tracks the class currently being compiled, so method
// bodies can resolve `this` and `super`, and nested class declarations
// don't leak into an outer one. It chains through nested class
// declarations the same way funcState chains through nested functions.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler drives one full compilation: it owns the scanner, the
// current/previous token pair, accumulated error state, and the
// current function and class nesting.
type Compiler struct {
	heap Heap

	scan      *scanner.Scanner
	current   scanner.Token
	previous  scanner.Token
	hadError  bool
	panicMode bool
	errors    []string

	fn    *funcState
	class *classState
}

// Compile compiles source into a top-level Function ready to be
// wrapped in a Closure and run. On any compile error it returns nil
// along with the accumulated error messages.
func Compile(source string, heap Heap) (*bytecode.FunctionObj, []string) {
	c := &Compiler{
		heap: heap,
		scan: scanner.New(source),
	}
	c.pushFunction(TypeScript, "")

	c.advance()
	for !c.match(scanner.TokenEOF) {
		c.declaration()
	}

	fn, _ := c.endFunction()
	if c.hadError {
		return nil, c.errors
	}
	return fn, nil
}

func (c *Compiler) pushFunction(kind FunctionType, name string) {
	fn := &bytecode.FunctionObj{Chunk: bytecode.NewChunk()}
	if name != "" {
		fn.Name = c.heap.Intern(name)
	}
	c.heap.PushCompilerRoot(fn)

	fs := &funcState{
		enclosing: c.fn,
		function:  fn,
		kind:      kind,
	}
	// Slot 0 is reserved: `this` for methods/initializers, otherwise
	// an empty, unreferenceable name.
	slotName := ""
	if kind == TypeMethod || kind == TypeInitializer {
		slotName = "this"
	}
	fs.locals = append(fs.locals, local{name: scanner.Token{Lexeme: slotName}, depth: 0})
	c.fn = fs
}

// endFunction finishes the innermost function, returning it along with
// the upvalue-resolution list the caller (emitting OP_CLOSURE in the
// enclosing function) needs to follow with (isLocal, index) byte pairs.
func (c *Compiler) endFunction() (*bytecode.FunctionObj, []upvalueRef) {
	c.emitReturn()
	fn := c.fn.function
	upvalues := c.fn.upvalues
	fn.UpvalueCount = len(upvalues)
	c.heap.PopCompilerRoot()
	c.fn = c.fn.enclosing
	return fn, upvalues
}

func (c *Compiler) currentChunk() *bytecode.Chunk {
	return c.fn.function.Chunk
}

// --- token stream -----------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scan.Next()
		if !c.current.Type.IsError() {
			break
		}
		c.errorAtCurrent(c.current.Message)
	}
}

func (c *Compiler) check(t scanner.TokenType) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t scanner.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t scanner.TokenType, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// --- error reporting ----------------------------------------------------

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

func (c *Compiler) error(message string) {
	c.errorAt(c.previous, message)
}

func (c *Compiler) errorAt(tok scanner.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	msg := fmt.Sprintf("[line %d] Error", tok.Line)
	switch tok.Type {
	case scanner.TokenEOF:
		msg += " at end"
	case scanner.TokenErrorUnexpectedChar, scanner.TokenErrorUnterminatedString:
		// lexeme already describes the problem
	default:
		msg += fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	msg += ": " + message

	c.errors = append(c.errors, msg)
	c.hadError = true
}

// synchronize recovers from a parse error by skipping tokens until a
// statement boundary: a semicolon, or the first token of a new
// declaration.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for c.current.Type != scanner.TokenEOF {
		if c.previous.Type == scanner.TokenSemicolon {
			return
		}
		switch c.current.Type {
		case scanner.TokenClass, scanner.TokenFun, scanner.TokenVar,
			scanner.TokenFor, scanner.TokenIf, scanner.TokenWhile,
			scanner.TokenPrint, scanner.TokenReturn:
			return
		}
		c.advance()
	}
}

// --- bytecode emission ---------------------------------------------------

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op bytecode.OpCode) {
	c.currentChunk().WriteOp(op, c.previous.Line)
}

func (c *Compiler) emitOpByte(op bytecode.OpCode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitReturn() {
	if c.fn.kind == TypeInitializer {
		// Initializers implicitly return `this` (local slot 0).
		c.emitOpByte(bytecode.OpGetLocal, 0)
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.emitOp(bytecode.OpReturn)
}

func (c *Compiler) makeConstant(v bytecode.Value) byte {
	idx := c.currentChunk().AddConstant(v)
	if idx > bytecode.MaxConstants-1 {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v bytecode.Value) {
	c.emitOpByte(bytecode.OpConstant, c.makeConstant(v))
}

// emitJump emits a two-byte placeholder jump offset after op and
// returns the offset of its first operand byte, to be patched later.
func (c *Compiler) emitJump(op bytecode.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return c.currentChunk().Len() - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := c.currentChunk().Len() - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
	}
	code := c.currentChunk().Code
	code[offset] = byte(jump >> 8)
	code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(bytecode.OpLoop)
	offset := c.currentChunk().Len() - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

// --- scopes ---------------------------------------------------------------

func (c *Compiler) beginScope() {
	c.fn.scopeDepth++
}

func (c *Compiler) endScope() {
	c.fn.scopeDepth--
	locals := c.fn.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > c.fn.scopeDepth {
		if locals[len(locals)-1].isCaptured {
			c.emitOp(bytecode.OpCloseUpvalue)
		} else {
			c.emitOp(bytecode.OpPop)
		}
		locals = locals[:len(locals)-1]
	}
	c.fn.locals = locals
}
