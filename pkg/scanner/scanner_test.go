package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_BasicTokens(t *testing.T) {
	input := `( ) { } , . - + ; / *`
	tests := []TokenType{
		TokenLeftParen, TokenRightParen, TokenLeftBrace, TokenRightBrace,
		TokenComma, TokenDot, TokenMinus, TokenPlus, TokenSemicolon,
		TokenSlash, TokenStar, TokenEOF,
	}

	s := New(input)
	for i, want := range tests {
		tok := s.Next()
		assert.Equalf(t, want, tok.Type, "token %d", i)
	}
}

func TestNext_TwoCharOperators(t *testing.T) {
	input := `! != = == < <= > >=`
	want := []TokenType{
		TokenBang, TokenBangEqual, TokenEqual, TokenEqualEqual,
		TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual,
	}

	s := New(input)
	for _, w := range want {
		tok := s.Next()
		assert.Equal(t, w, tok.Type)
	}
}

func TestNext_Keywords(t *testing.T) {
	input := "and class else false for fun if nil or print return super this true var while"
	want := []TokenType{
		TokenAnd, TokenClass, TokenElse, TokenFalse, TokenFor, TokenFun,
		TokenIf, TokenNil, TokenOr, TokenPrint, TokenReturn, TokenSuper,
		TokenThis, TokenTrue, TokenVar, TokenWhile,
	}

	s := New(input)
	for _, w := range want {
		tok := s.Next()
		require.Equal(t, w, tok.Type)
	}
}

func TestNext_IdentifierNotKeywordPrefix(t *testing.T) {
	s := New("form classroom forest")
	for range 3 {
		tok := s.Next()
		assert.Equal(t, TokenIdentifier, tok.Type)
	}
}

func TestNext_NumberLiteral(t *testing.T) {
	s := New("123 3.14 0.5")
	for _, want := range []string{"123", "3.14", "0.5"} {
		tok := s.Next()
		require.Equal(t, TokenNumber, tok.Type)
		assert.Equal(t, want, tok.Lexeme)
	}
}

func TestNext_StringLiteral(t *testing.T) {
	s := New(`"hello world"`)
	tok := s.Next()
	require.Equal(t, TokenString, tok.Type)
	assert.Equal(t, `"hello world"`, tok.Lexeme)
}

func TestNext_UnterminatedString(t *testing.T) {
	s := New(`"hello`)
	tok := s.Next()
	assert.Equal(t, TokenErrorUnterminatedString, tok.Type)
}

func TestNext_UnexpectedCharacter(t *testing.T) {
	s := New("@")
	tok := s.Next()
	assert.Equal(t, TokenErrorUnexpectedChar, tok.Type)
}

func TestNext_LineComment(t *testing.T) {
	s := New("1 // a comment\n2")
	first := s.Next()
	second := s.Next()
	assert.Equal(t, "1", first.Lexeme)
	assert.Equal(t, 1, first.Line)
	assert.Equal(t, "2", second.Lexeme)
	assert.Equal(t, 2, second.Line)
}

func TestNext_TracksLineNumbers(t *testing.T) {
	s := New("1\n2\n3")
	for i, want := 1, 1; i <= 3; i, want = i+1, want+1 {
		tok := s.Next()
		assert.Equal(t, want, tok.Line)
	}
}

func TestNext_EOFIsStable(t *testing.T) {
	s := New("")
	for range 3 {
		tok := s.Next()
		assert.Equal(t, TokenEOF, tok.Type)
	}
}
