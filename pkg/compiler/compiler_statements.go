package compiler

import (
	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/scanner"
)

// declaration compiles one top-level-or-block declaration, recovering
// to the next statement boundary if a parse error leaves the compiler
// in panicMode.
func (c *Compiler) declaration() {
	switch {
	case c.match(scanner.TokenClass):
		c.classDeclaration()
	case c.match(scanner.TokenFun):
		c.funDeclaration()
	case c.match(scanner.TokenVar):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(scanner.TokenPrint):
		c.printStatement()
	case c.match(scanner.TokenFor):
		c.forStatement()
	case c.match(scanner.TokenIf):
		c.ifStatement()
	case c.match(scanner.TokenReturn):
		c.returnStatement()
	case c.match(scanner.TokenWhile):
		c.whileStatement()
	case c.match(scanner.TokenLeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(scanner.TokenRightBrace) && !c.check(scanner.TokenEOF) {
		c.declaration()
	}
	c.consume(scanner.TokenRightBrace, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(scanner.TokenSemicolon, "Expect ';' after value.")
	c.emitOp(bytecode.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(scanner.TokenSemicolon, "Expect ';' after expression.")
	c.emitOp(bytecode.OpPop)
}

func (c *Compiler) ifStatement() {
	c.consume(scanner.TokenLeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(scanner.TokenRightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop)

	if c.match(scanner.TokenElse) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := c.currentChunk().Len()
	c.consume(scanner.TokenLeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(scanner.TokenRightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.OpPop)
}

// forStatement desugars `for (init; cond; incr) body` into the
// equivalent while-loop bytecode: there are no dedicated loop opcodes.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(scanner.TokenLeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(scanner.TokenSemicolon):
		// no initializer
	case c.match(scanner.TokenVar):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := c.currentChunk().Len()
	exitJump := -1
	if !c.match(scanner.TokenSemicolon) {
		c.expression()
		c.consume(scanner.TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
		c.emitOp(bytecode.OpPop)
	}

	if !c.match(scanner.TokenRightParen) {
		bodyJump := c.emitJump(bytecode.OpJump)
		incrementStart := c.currentChunk().Len()
		c.expression()
		c.emitOp(bytecode.OpPop)
		c.consume(scanner.TokenRightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(bytecode.OpPop)
	}

	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.fn.kind == TypeScript {
		c.error("Can't return from top-level code.")
	}

	if c.match(scanner.TokenSemicolon) {
		c.emitReturn()
		return
	}

	if c.fn.kind == TypeInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(scanner.TokenSemicolon, "Expect ';' after return value.")
	c.emitOp(bytecode.OpReturn)
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(scanner.TokenEqual) {
		c.expression()
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.consume(scanner.TokenSemicolon, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

// parseVariable consumes an identifier and declares it. For a local it
// returns an unused placeholder byte (defineVariable never emits
// OpDefineGlobal for locals); for a global it returns the constant-pool
// index of its interned name.
func (c *Compiler) parseVariable(errorMessage string) byte {
	c.consume(scanner.TokenIdentifier, errorMessage)

	c.declareVariable(c.previous)
	if c.fn.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

func (c *Compiler) defineVariable(global byte) {
	if c.fn.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(bytecode.OpDefineGlobal, global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(TypeFunction)
	c.defineVariable(global)
}

// function compiles one function's parameter list and body into its
// own funcState, then emits OP_CLOSURE in the enclosing function
// followed by one (isLocal, index) byte pair per upvalue the nested
// function captured.
func (c *Compiler) function(kind FunctionType) {
	name := ""
	if c.previous.Type == scanner.TokenIdentifier {
		name = c.previous.Lexeme
	}
	c.pushFunction(kind, name)
	c.beginScope()

	c.consume(scanner.TokenLeftParen, "Expect '(' after function name.")
	if !c.check(scanner.TokenRightParen) {
		for {
			c.fn.function.Arity++
			if c.fn.function.Arity > 255 {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConstant := c.parseVariable("Expect parameter name.")
			c.defineVariable(paramConstant)
			if !c.match(scanner.TokenComma) {
				break
			}
		}
	}
	c.consume(scanner.TokenRightParen, "Expect ')' after parameters.")
	c.consume(scanner.TokenLeftBrace, "Expect '{' before function body.")
	c.block()

	fn, upvalues := c.endFunction()
	idx := c.makeConstant(bytecode.ObjVal(fn))
	c.emitOpByte(bytecode.OpClosure, idx)
	for _, uv := range upvalues {
		if uv.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(uv.index)
	}
}

func (c *Compiler) method() {
	c.consume(scanner.TokenIdentifier, "Expect method name.")
	name := c.previous.Lexeme
	constant := c.identifierConstant(c.previous)

	kind := TypeMethod
	if name == "init" {
		kind = TypeInitializer
	}
	c.function(kind)
	c.emitOpByte(bytecode.OpMethod, constant)
}

func (c *Compiler) classDeclaration() {
	c.consume(scanner.TokenIdentifier, "Expect class name.")
	className := c.previous
	nameConstant := c.identifierConstant(className)
	c.declareVariable(className)

	c.emitOpByte(bytecode.OpClass, nameConstant)
	c.defineVariable(nameConstant)

	cs := &classState{enclosing: c.class}
	c.class = cs

	if c.match(scanner.TokenLess) {
		c.consume(scanner.TokenIdentifier, "Expect superclass name.")
		c.variable(false)
		if identifiersEqual(className, c.previous) {
			c.error("A class can't inherit from itself.")
		}

		c.beginScope()
		c.addLocal(syntheticToken("super"))
		c.defineVariable(0)

		c.namedVariable(className, false)
		c.emitOp(bytecode.OpInherit)
		cs.hasSuperclass = true
	}

	c.namedVariable(className, false)
	c.consume(scanner.TokenLeftBrace, "Expect '{' before class body.")
	for !c.check(scanner.TokenRightBrace) && !c.check(scanner.TokenEOF) {
		c.method()
	}
	c.consume(scanner.TokenRightBrace, "Expect '}' after class body.")
	c.emitOp(bytecode.OpPop) // the class itself, pushed by namedVariable above

	if cs.hasSuperclass {
		c.endScope()
	}
	c.class = cs.enclosing
}
