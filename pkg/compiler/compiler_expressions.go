package compiler

import (
	"strconv"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/scanner"
)

// Precedence orders binding strength from loosest to tightest:
// NONE < ASSIGNMENT < OR < AND < EQUALITY < COMPARISON < TERM < FACTOR
// < UNARY < CALL < PRIMARY.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type rule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[scanner.TokenType]rule

func init() {
	rules = map[scanner.TokenType]rule{
		scanner.TokenLeftParen:    {prefix: (*Compiler).grouping, infix: (*Compiler).call, precedence: PrecCall},
		scanner.TokenDot:          {infix: (*Compiler).dot, precedence: PrecCall},
		scanner.TokenMinus:        {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: PrecTerm},
		scanner.TokenPlus:         {infix: (*Compiler).binary, precedence: PrecTerm},
		scanner.TokenSlash:        {infix: (*Compiler).binary, precedence: PrecFactor},
		scanner.TokenStar:         {infix: (*Compiler).binary, precedence: PrecFactor},
		scanner.TokenBang:         {prefix: (*Compiler).unary},
		scanner.TokenBangEqual:    {infix: (*Compiler).binary, precedence: PrecEquality},
		scanner.TokenEqualEqual:   {infix: (*Compiler).binary, precedence: PrecEquality},
		scanner.TokenGreater:      {infix: (*Compiler).binary, precedence: PrecComparison},
		scanner.TokenGreaterEqual: {infix: (*Compiler).binary, precedence: PrecComparison},
		scanner.TokenLess:         {infix: (*Compiler).binary, precedence: PrecComparison},
		scanner.TokenLessEqual:    {infix: (*Compiler).binary, precedence: PrecComparison},
		scanner.TokenIdentifier:   {prefix: (*Compiler).variable},
		scanner.TokenString:       {prefix: (*Compiler).stringLiteral},
		scanner.TokenNumber:       {prefix: (*Compiler).number},
		scanner.TokenAnd:          {infix: (*Compiler).and, precedence: PrecAnd},
		scanner.TokenOr:           {infix: (*Compiler).or, precedence: PrecOr},
		scanner.TokenFalse:        {prefix: (*Compiler).literal},
		scanner.TokenTrue:         {prefix: (*Compiler).literal},
		scanner.TokenNil:          {prefix: (*Compiler).literal},
		scanner.TokenThis:         {prefix: (*Compiler).this},
		scanner.TokenSuper:        {prefix: (*Compiler).super},
	}
}

func getRule(t scanner.TokenType) rule {
	return rules[t]
}

// expression parses and emits one expression at PrecAssignment, the
// loosest precedence an expression (rather than a bare literal/call
// chain) can start at.
func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

// parsePrecedence is the Pratt parser's core loop: consume one token,
// invoke its prefix rule, then keep consuming and invoking infix rules
// as long as the next token binds at least as tightly as minPrec.
func (c *Compiler) parsePrecedence(minPrec Precedence) {
	c.advance()
	prefixRule := getRule(c.previous.Type).prefix
	if prefixRule == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := minPrec <= PrecAssignment
	prefixRule(c, canAssign)

	for minPrec <= getRule(c.current.Type).precedence {
		c.advance()
		infixRule := getRule(c.previous.Type).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(scanner.TokenEqual) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(canAssign bool) {
	n, _ := strconv.ParseFloat(c.previous.Lexeme, 64)
	c.emitConstant(bytecode.Number(n))
}

func (c *Compiler) stringLiteral(canAssign bool) {
	raw := c.previous.Lexeme
	s := c.heap.Intern(raw[1 : len(raw)-1]) // strip surrounding quotes
	c.emitConstant(bytecode.ObjVal(s))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Type {
	case scanner.TokenFalse:
		c.emitOp(bytecode.OpFalse)
	case scanner.TokenTrue:
		c.emitOp(bytecode.OpTrue)
	case scanner.TokenNil:
		c.emitOp(bytecode.OpNil)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(scanner.TokenRightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.previous.Type
	c.parsePrecedence(PrecUnary)

	switch opType {
	case scanner.TokenBang:
		c.emitOp(bytecode.OpNot)
	case scanner.TokenMinus:
		c.emitOp(bytecode.OpNegate)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.previous.Type
	r := getRule(opType)
	c.parsePrecedence(r.precedence + 1)

	switch opType {
	case scanner.TokenBangEqual:
		c.emitOp(bytecode.OpEqual)
		c.emitOp(bytecode.OpNot)
	case scanner.TokenEqualEqual:
		c.emitOp(bytecode.OpEqual)
	case scanner.TokenGreater:
		c.emitOp(bytecode.OpGreater)
	case scanner.TokenGreaterEqual:
		c.emitOp(bytecode.OpLess)
		c.emitOp(bytecode.OpNot)
	case scanner.TokenLess:
		c.emitOp(bytecode.OpLess)
	case scanner.TokenLessEqual:
		c.emitOp(bytecode.OpGreater)
		c.emitOp(bytecode.OpNot)
	case scanner.TokenPlus:
		c.emitOp(bytecode.OpAdd)
	case scanner.TokenMinus:
		c.emitOp(bytecode.OpSubtract)
	case scanner.TokenStar:
		c.emitOp(bytecode.OpMultiply)
	case scanner.TokenSlash:
		c.emitOp(bytecode.OpDivide)
	}
}

func (c *Compiler) and(canAssign bool) {
	endJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or(canAssign bool) {
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	endJump := c.emitJump(bytecode.OpJump)

	c.patchJump(elseJump)
	c.emitOp(bytecode.OpPop)

	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

// argumentList parses a comma-separated argument list and its closing
// paren. The opening paren has always been consumed already: by
// parsePrecedence for call(), by match in dot() and super().
func (c *Compiler) argumentList() byte {
	argCount := 0
	if !c.check(scanner.TokenRightParen) {
		for {
			c.expression()
			if argCount == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.match(scanner.TokenComma) {
				break
			}
		}
	}
	c.consume(scanner.TokenRightParen, "Expect ')' after arguments.")
	return byte(argCount)
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitOpByte(bytecode.OpCall, argCount)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(scanner.TokenIdentifier, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous)

	switch {
	case canAssign && c.match(scanner.TokenEqual):
		c.expression()
		c.emitOpByte(bytecode.OpSetProperty, name)
	case c.match(scanner.TokenLeftParen):
		argCount := c.argumentList()
		c.emitOpByte(bytecode.OpInvoke, name)
		c.emitByte(argCount)
	default:
		c.emitOpByte(bytecode.OpGetProperty, name)
	}
}

// namedVariable compiles a read or (if canAssign and an '=' follows) a
// write of the variable named by name, resolving it as a local,
// upvalue, or global in that order.
func (c *Compiler) namedVariable(name scanner.Token, canAssign bool) {
	var getOp, setOp bytecode.OpCode
	arg := resolveLocal(c.fn, name)
	if arg == -2 {
		c.error("Can't read local variable in its own initializer.")
		arg = 0
	}
	if arg >= 0 {
		getOp, setOp = bytecode.OpGetLocal, bytecode.OpSetLocal
	} else if arg = resolveUpvalue(c.fn, name); arg == -2 {
		c.error("Can't read local variable in its own initializer.")
		arg = 0
		getOp, setOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
	} else if arg >= 0 {
		getOp, setOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if canAssign && c.match(scanner.TokenEqual) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

func (c *Compiler) this(canAssign bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.variable(false) // `this` is never an assignment target
}

func (c *Compiler) super(canAssign bool) {
	if c.class == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}

	c.consume(scanner.TokenDot, "Expect '.' after 'super'.")
	c.consume(scanner.TokenIdentifier, "Expect superclass method name.")
	name := c.identifierConstant(c.previous)

	c.namedVariable(syntheticToken("this"), false)
	if c.match(scanner.TokenLeftParen) {
		argCount := c.argumentList()
		c.namedVariable(syntheticToken("super"), false)
		c.emitOpByte(bytecode.OpSuperInvoke, name)
		c.emitByte(argCount)
	} else {
		c.namedVariable(syntheticToken("super"), false)
		c.emitOpByte(bytecode.OpGetSuper, name)
	}
}

func syntheticToken(text string) scanner.Token {
	return scanner.Token{Type: scanner.TokenIdentifier, Lexeme: text}
}
