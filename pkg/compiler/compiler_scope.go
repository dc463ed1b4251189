package compiler

import (
	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/scanner"
)

// identifierConstant interns name.Lexeme and adds it to the current
// chunk's constant pool, returning its index — used for every global
// reference and every property/method name.
func (c *Compiler) identifierConstant(name scanner.Token) byte {
	s := c.heap.Intern(name.Lexeme)
	return c.makeConstant(bytecode.ObjVal(s))
}

func identifiersEqual(a, b scanner.Token) bool {
	return a.Lexeme == b.Lexeme
}

// declareVariable registers the identifier just consumed as a new local
// in the current scope (global declarations are handled separately by
// the caller). Re-declaring a name already local to this exact scope is
// a compile error.
func (c *Compiler) declareVariable(name scanner.Token) {
	if c.fn.scopeDepth == 0 {
		return
	}
	for i := len(c.fn.locals) - 1; i >= 0; i-- {
		l := c.fn.locals[i]
		if l.depth != -1 && l.depth < c.fn.scopeDepth {
			break
		}
		if identifiersEqual(name, l.name) {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name scanner.Token) {
	if len(c.fn.locals) >= maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.fn.locals = append(c.fn.locals, local{name: name, depth: -1})
}

// markInitialized promotes the most recently declared local from
// depth -1 (declared, uninitialized) to the current scope depth. At
// global scope it is a no-op: globals have no local slot to mark.
func (c *Compiler) markInitialized() {
	if c.fn.scopeDepth == 0 {
		return
	}
	c.fn.locals[len(c.fn.locals)-1].depth = c.fn.scopeDepth
}

// resolveLocal looks for name among fs's locals, scanning from the
// innermost declaration outward so shadowing resolves to the nearest
// one. Returns -1 if name is not a local here.
func resolveLocal(fs *funcState, name scanner.Token) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := fs.locals[i]
		if identifiersEqual(name, l.name) {
			if l.depth == -1 {
				return -2 // sentinel: read-before-initialized
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue resolves name as a variable captured from an
// enclosing function, recursing outward. It marks the captured local
// in the enclosing frame and collapses duplicate upvalue entries so
// the same outer variable is never captured twice by the same
// function.
func resolveUpvalue(fs *funcState, name scanner.Token) int {
	if fs.enclosing == nil {
		return -1
	}

	local := resolveLocal(fs.enclosing, name)
	if local >= 0 {
		fs.enclosing.locals[local].isCaptured = true
		return addUpvalue(fs, byte(local), true)
	}
	if local == -2 {
		return -2
	}

	if upvalue := resolveUpvalue(fs.enclosing, name); upvalue >= 0 {
		return addUpvalue(fs, byte(upvalue), false)
	}
	return -1
}

func addUpvalue(fs *funcState, index byte, isLocal bool) int {
	for i, uv := range fs.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fs.upvalues) >= maxUpvalues {
		return -1
	}
	fs.upvalues = append(fs.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(fs.upvalues) - 1
}
