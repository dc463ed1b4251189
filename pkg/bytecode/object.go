package bytecode

import "fmt"

// ObjKind discriminates the fixed, finite set of heap object variants.
// The object kinds are closed and never grow at runtime; the VM and GC
// dispatch on them with type switches over the concrete object types.
type ObjKind byte

const (
	KindString ObjKind = iota
	KindFunction
	KindNative
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
)

// Obj is the interface every heap-allocated object satisfies. ObjHeader
// supplies the common header every object needs — kind, GC mark, and
// the intrusive next-object link — and every concrete object type
// embeds it.
type Obj interface {
	Kind() ObjKind
	IsMarked() bool
	SetMarked(bool)
	NextObj() Obj
	SetNextObj(Obj)
	String() string
}

// ObjHeader is embedded by every concrete object type. It is never used
// on its own.
type ObjHeader struct {
	marked bool
	next   Obj
}

func (h *ObjHeader) IsMarked() bool    { return h.marked }
func (h *ObjHeader) SetMarked(m bool)  { h.marked = m }
func (h *ObjHeader) NextObj() Obj      { return h.next }
func (h *ObjHeader) SetNextObj(o Obj)  { h.next = o }

// StringObj is an immutable, interned byte sequence. Two StringObjs
// with equal Chars are only ever the same pointer — the VM's string
// table guarantees this by construction (see VM.Intern in pkg/vm), so
// StringObj equality can always be pointer equality.
type StringObj struct {
	ObjHeader
	Chars string
	Hash  uint32
}

func (s *StringObj) Kind() ObjKind  { return KindString }
func (s *StringObj) String() string { return s.Chars }

// FunctionObj is a compiled function: its arity, how many upvalues its
// closures must capture, an optional name (nil for the implicit
// top-level script function), and the Chunk holding its bytecode.
type FunctionObj struct {
	ObjHeader
	Arity        int
	UpvalueCount int
	Name         *StringObj // nil for the top-level script
	Chunk        *Chunk
}

func (f *FunctionObj) Kind() ObjKind { return KindFunction }
func (f *FunctionObj) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// NativeFn is a function pointer from the host into the language, given
// the raw argument slice (never including the receiver slot the VM
// keeps the callee in).
type NativeFn func(args []Value) (Value, error)

// NativeObj wraps a NativeFn so it can occupy a Value and be called
// exactly like any language-level function.
type NativeObj struct {
	ObjHeader
	Name string
	Fn   NativeFn
}

func (n *NativeObj) Kind() ObjKind  { return KindNative }
func (n *NativeObj) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }

// UpvalueObj indirects access to a captured local. While open, Location
// points into the VM's value stack; Closed holds the snapshot a value
// is copied into when the stack slot it pointed at is about to leave
// scope. Closed is always the field the GC traces, whether the upvalue
// is open or closed — while open, the stack itself is a root and keeps
// the referent alive.
type UpvalueObj struct {
	ObjHeader
	Location *Value
	Closed   Value
}

func (u *UpvalueObj) Kind() ObjKind  { return KindUpvalue }
func (u *UpvalueObj) String() string { return "<upvalue>" }

// ClosureObj pairs a FunctionObj with the Upvalues it closed over at
// creation time. Upvalues has exactly Function.UpvalueCount entries.
type ClosureObj struct {
	ObjHeader
	Function *FunctionObj
	Upvalues []*UpvalueObj
}

func (c *ClosureObj) Kind() ObjKind { return KindClosure }
func (c *ClosureObj) String() string {
	return fmt.Sprintf("<fn %s>", functionName(c.Function))
}

func functionName(f *FunctionObj) string {
	if f.Name == nil {
		return "script"
	}
	return f.Name.Chars
}

// ClassObj is a named bag of methods, keyed by method name. Methods
// hold *ClosureObj so that inherited methods and directly-declared
// methods are represented identically once installed.
type ClassObj struct {
	ObjHeader
	Name    *StringObj
	Methods map[*StringObj]*ClosureObj
}

func NewClass(name *StringObj) *ClassObj {
	return &ClassObj{Name: name, Methods: make(map[*StringObj]*ClosureObj)}
}

func (c *ClassObj) Kind() ObjKind  { return KindClass }
func (c *ClassObj) String() string { return c.Name.Chars }

// InstanceObj is a live object of some ClassObj, with its own field
// table. Fields are looked up by the StringObj pointer they were
// declared/assigned under, which works because field names are always
// interned strings.
type InstanceObj struct {
	ObjHeader
	Class  *ClassObj
	Fields map[*StringObj]Value
}

func NewInstance(class *ClassObj) *InstanceObj {
	return &InstanceObj{Class: class, Fields: make(map[*StringObj]Value)}
}

func (i *InstanceObj) Kind() ObjKind  { return KindInstance }
func (i *InstanceObj) String() string { return fmt.Sprintf("%s instance", i.Class.Name.Chars) }

// BoundMethodObj pairs a receiver with one of its class's methods. It
// is produced whenever a method is read as a value without being
// immediately invoked (property-get outside the INVOKE fast path).
type BoundMethodObj struct {
	ObjHeader
	Receiver Value
	Method   *ClosureObj
}

func (b *BoundMethodObj) Kind() ObjKind { return KindBoundMethod }
func (b *BoundMethodObj) String() string {
	return fmt.Sprintf("<fn %s>", functionName(b.Method.Function))
}
