package bytecode

import "fmt"

// ValueKind tags a Value's variant. This tagged-union representation
// was chosen over NaN-boxing because it reads far more plainly in Go
// than a packed 64-bit word, at the cost of a slightly larger Value
// struct.
type ValueKind byte

const (
	ValNil ValueKind = iota
	ValBool
	ValNumber
	ValObj
)

// Value is a tagged union of nil, boolean, double, or heap object
// reference — the one value representation shared by the compiler's
// constant pool, the VM's stack, and every Table.
type Value struct {
	Kind ValueKind
	num  float64
	b    bool
	obj  Obj
}

func Nil() Value             { return Value{Kind: ValNil} }
func Bool(b bool) Value      { return Value{Kind: ValBool, b: b} }
func Number(n float64) Value { return Value{Kind: ValNumber, num: n} }
func ObjVal(o Obj) Value     { return Value{Kind: ValObj, obj: o} }

func (v Value) IsNil() bool    { return v.Kind == ValNil }
func (v Value) IsBool() bool   { return v.Kind == ValBool }
func (v Value) IsNumber() bool { return v.Kind == ValNumber }
func (v Value) IsObj() bool    { return v.Kind == ValObj }

func (v Value) AsBool() bool      { return v.b }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsObj() Obj        { return v.obj }

// IsFalsey reports truthiness: nil and boolean false are falsey,
// everything else — including 0 and the empty string — is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// Equal implements value equality. Numbers compare by IEEE-754 ==, so
// NaN != NaN. Heap references compare by pointer identity except
// for strings, which are only ever equal when they are the same
// interned object — so string equality degenerates to the same pointer
// comparison as every other object kind.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValNil:
		return true
	case ValBool:
		return v.b == o.b
	case ValNumber:
		return v.num == o.num
	case ValObj:
		return v.obj == o.obj
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValNil:
		return "nil"
	case ValBool:
		if v.b {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.num)
	case ValObj:
		return v.obj.String()
	default:
		return "<?>"
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
