package bytecode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_Truthiness(t *testing.T) {
	assert.True(t, Nil().IsFalsey())
	assert.True(t, Bool(false).IsFalsey())
	assert.False(t, Bool(true).IsFalsey())
	assert.False(t, Number(0).IsFalsey())
	assert.False(t, ObjVal(&StringObj{Chars: ""}).IsFalsey())
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Nil().Equal(Nil()))
	assert.True(t, Bool(true).Equal(Bool(true)))
	assert.False(t, Bool(true).Equal(Bool(false)))
	assert.True(t, Number(1).Equal(Number(1)))
	assert.False(t, Number(1).Equal(Bool(true)))

	nan := Number(math.NaN())
	assert.False(t, nan.Equal(nan), "NaN must not equal itself")
}

func TestValue_ObjEqualityIsPointerIdentity(t *testing.T) {
	a := &StringObj{Chars: "hi"}
	b := &StringObj{Chars: "hi"}
	assert.False(t, ObjVal(a).Equal(ObjVal(b)), "distinct allocations with equal contents must not compare equal")
	assert.True(t, ObjVal(a).Equal(ObjVal(a)))
}

func TestValue_StringRepresentation(t *testing.T) {
	assert.Equal(t, "nil", Nil().String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "3", Number(3).String())
	assert.Equal(t, "3.5", Number(3.5).String())
}
