// Package vm implements ember's bytecode virtual machine: a stack-based
// interpreter with a fixed value stack walked by a stack pointer, a
// call stack of frames, and instructions executed by advancing an
// instruction pointer through a Chunk's code. Each frame tracks a
// closure, its own instruction pointer, and the base of its stack
// window, so locals for every call live in their own slice of one
// shared stack rather than a separate array per call.
package vm

import (
	"fmt"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/compiler"
	"github.com/kristofer/ember/pkg/config"
	"github.com/kristofer/ember/pkg/debug"
	"github.com/kristofer/ember/pkg/table"
)

// frame is one call's activation record: the closure being executed,
// its own instruction pointer into that closure's chunk, and the index
// into the VM's shared value stack where this call's locals begin.
type frame struct {
	closure *bytecode.ClosureObj
	ip      int
	base    int
}

// VM executes compiled ember bytecode.
type VM struct {
	cfg config.Config

	stack   []bytecode.Value
	frames  []frame
	globals *table.Table
	strings *table.Table // the intern table; FindString backs Intern

	// openUpvalues tracks, by stack index, every UpvalueObj still
	// pointing live into the stack rather than a closed-over copy.
	openUpvalues map[int]*bytecode.UpvalueObj

	objects      bytecode.Obj // intrusive heap list head, for the GC sweep
	bytesAllocd  int64
	nextGC       int64
	compilerRoot []*bytecode.FunctionObj

	initString *bytecode.StringObj

	Stdout func(string) // where OP_PRINT writes; defaults to fmt.Print-based stdout
}

// New builds a VM ready to Interpret source. A zero config.Config
// means config.Default().
func New(cfg config.Config) *VM {
	def := config.Default()
	if cfg.GC.InitialThresholdBytes == 0 {
		cfg.GC.InitialThresholdBytes = def.GC.InitialThresholdBytes
	}
	if cfg.GC.GrowthFactor == 0 {
		cfg.GC.GrowthFactor = def.GC.GrowthFactor
	}
	if cfg.Stack.MaxValues == 0 {
		cfg.Stack.MaxValues = def.Stack.MaxValues
	}
	if cfg.Stack.MaxFrames == 0 {
		cfg.Stack.MaxFrames = def.Stack.MaxFrames
	}
	v := &VM{
		cfg:          cfg,
		stack:        make([]bytecode.Value, 0, cfg.Stack.MaxValues),
		frames:       make([]frame, 0, cfg.Stack.MaxFrames),
		globals:      table.New(),
		strings:      table.New(),
		openUpvalues: make(map[int]*bytecode.UpvalueObj),
		nextGC:       cfg.GC.InitialThresholdBytes,
	}
	v.initString = v.Intern("init")
	v.defineNatives()
	return v
}

// *VM satisfies compiler.Heap, so the VM can be passed directly to
// compiler.Compile.
var _ compiler.Heap = (*VM)(nil)

// Intern returns the canonical StringObj for s, allocating a new one
// only the first time s is seen.
func (v *VM) Intern(s string) *bytecode.StringObj {
	hash := fnv1a(s)
	if existing := v.strings.FindString(s, hash); existing != nil {
		return existing
	}
	obj := &bytecode.StringObj{Chars: s, Hash: hash}
	// Bracket with a temporary push, clox-style: registerObject below
	// can trigger a collection, and until obj is reachable from a root
	// it would otherwise look like garbage to that very cycle.
	v.push(bytecode.ObjVal(obj))
	v.registerObject(obj)
	v.strings.Set(obj, bytecode.Bool(true))
	v.pop()
	return obj
}

func fnv1a(s string) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// PushCompilerRoot and PopCompilerRoot let the compiler register the
// function it is currently building as a GC root, so a collection
// triggered by the string interning that happens mid-compile never
// frees a Function still under construction.
func (v *VM) PushCompilerRoot(fn *bytecode.FunctionObj) {
	v.compilerRoot = append(v.compilerRoot, fn)
	v.registerObject(fn)
}

func (v *VM) PopCompilerRoot() {
	v.compilerRoot = v.compilerRoot[:len(v.compilerRoot)-1]
}

func (v *VM) registerObject(o bytecode.Obj) {
	o.SetNextObj(v.objects)
	v.objects = o
	v.bytesAllocd += objSize(o)
	v.maybeCollect()
}

// Result classifies how an Interpret call finished.
type Result int

const (
	OK Result = iota
	CompileError
	RuntimeErr
)

// Interpret compiles and runs source, returning OK or an error
// explaining the failure. Compile errors are reported eagerly (all
// of them, joined) before any bytecode runs; a runtime error aborts
// execution with a RuntimeError carrying a stack trace.
func (v *VM) Interpret(source string) (Result, error) {
	fn, errs := compiler.Compile(source, v)
	if fn == nil {
		msg := ""
		for i, e := range errs {
			if i > 0 {
				msg += "\n"
			}
			msg += e
		}
		return CompileError, fmt.Errorf("%s", msg)
	}

	if v.cfg.Trace.PrintBytecode {
		v.printBytecode(fn, make(map[*bytecode.FunctionObj]bool))
	}

	closure := &bytecode.ClosureObj{Function: fn}
	v.push(bytecode.ObjVal(closure))
	v.registerObject(closure)
	v.callClosure(closure, 0)

	if err := v.run(); err != nil {
		v.resetAfterError()
		return RuntimeErr, err
	}
	return OK, nil
}

// resetAfterError clears the value stack, call stack, and open-upvalue
// bookkeeping after a runtime error, so a host that reuses this VM for
// another Interpret call (the REPL does) starts the next call with a
// clean base rather than whatever the failing call left behind.
func (v *VM) resetAfterError() {
	v.stack = v.stack[:0]
	v.frames = v.frames[:0]
	for k := range v.openUpvalues {
		delete(v.openUpvalues, k)
	}
}

// printBytecode disassembles fn and every function reachable through
// its constant pool, each exactly once, writing through v.writeStdout
// the same way OP_PRINT output does.
func (v *VM) printBytecode(fn *bytecode.FunctionObj, seen map[*bytecode.FunctionObj]bool) {
	if seen[fn] {
		return
	}
	seen[fn] = true
	v.writeStdout(debug.DisassembleChunk(fn.String(), fn.Chunk))
	for _, c := range fn.Chunk.Constants {
		if c.IsObj() {
			if nested, ok := c.AsObj().(*bytecode.FunctionObj); ok {
				v.printBytecode(nested, seen)
			}
		}
	}
}

func (v *VM) push(val bytecode.Value) {
	v.stack = append(v.stack, val)
}

func (v *VM) pop() bytecode.Value {
	n := len(v.stack) - 1
	val := v.stack[n]
	v.stack = v.stack[:n]
	return val
}

func (v *VM) peek(distance int) bytecode.Value {
	return v.stack[len(v.stack)-1-distance]
}

func (v *VM) currentFrame() *frame {
	return &v.frames[len(v.frames)-1]
}

func (v *VM) readByte(f *frame) byte {
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (v *VM) readShort(f *frame) int {
	hi := v.readByte(f)
	lo := v.readByte(f)
	return int(hi)<<8 | int(lo)
}

func (v *VM) readConstant(f *frame) bytecode.Value {
	return f.closure.Function.Chunk.Constants[v.readByte(f)]
}

func (v *VM) readString(f *frame) *bytecode.StringObj {
	return v.readConstant(f).AsObj().(*bytecode.StringObj)
}
