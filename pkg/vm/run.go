package vm

import (
	"fmt"
	"strings"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/debug"
)

// run executes instructions from the innermost frame until it returns
// out of the outermost one (OP_RETURN from the implicit script
// function) or a runtime error aborts execution.
func (v *VM) run() error {
	for {
		f := v.currentFrame()

		if v.cfg.Trace.ExecutionTrace {
			v.traceInstruction(f)
		}

		op := bytecode.OpCode(v.readByte(f))

		switch op {
		case bytecode.OpConstant:
			v.push(v.readConstant(f))

		case bytecode.OpNil:
			v.push(bytecode.Nil())
		case bytecode.OpTrue:
			v.push(bytecode.Bool(true))
		case bytecode.OpFalse:
			v.push(bytecode.Bool(false))
		case bytecode.OpPop:
			v.pop()

		case bytecode.OpGetLocal:
			slot := v.readByte(f)
			v.push(v.stack[f.base+int(slot)])
		case bytecode.OpSetLocal:
			slot := v.readByte(f)
			v.stack[f.base+int(slot)] = v.peek(0)

		case bytecode.OpGetGlobal:
			name := v.readString(f)
			val, ok := v.globals.Get(name)
			if !ok {
				return v.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			v.push(val)
		case bytecode.OpDefineGlobal:
			name := v.readString(f)
			v.globals.Set(name, v.peek(0))
			v.pop()
		case bytecode.OpSetGlobal:
			name := v.readString(f)
			if _, ok := v.globals.Get(name); !ok {
				return v.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			v.globals.Set(name, v.peek(0))

		case bytecode.OpGetUpvalue:
			slot := v.readByte(f)
			v.push(*f.closure.Upvalues[slot].Location)
		case bytecode.OpSetUpvalue:
			slot := v.readByte(f)
			*f.closure.Upvalues[slot].Location = v.peek(0)

		case bytecode.OpGetProperty:
			if err := v.getProperty(f); err != nil {
				return err
			}
		case bytecode.OpSetProperty:
			if err := v.setProperty(f); err != nil {
				return err
			}
		case bytecode.OpGetSuper:
			name := v.readString(f)
			superclass := v.pop().AsObj().(*bytecode.ClassObj)
			receiver := v.peek(0)
			if err := v.bindMethod(superclass, name, receiver); err != nil {
				return err
			}

		case bytecode.OpEqual:
			b := v.pop()
			a := v.pop()
			v.push(bytecode.Bool(a.Equal(b)))
		case bytecode.OpGreater:
			if err := v.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Bool(a > b) }); err != nil {
				return err
			}
		case bytecode.OpLess:
			if err := v.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Bool(a < b) }); err != nil {
				return err
			}
		case bytecode.OpAdd:
			if err := v.add(); err != nil {
				return err
			}
		case bytecode.OpSubtract:
			if err := v.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Number(a - b) }); err != nil {
				return err
			}
		case bytecode.OpMultiply:
			if err := v.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Number(a * b) }); err != nil {
				return err
			}
		case bytecode.OpDivide:
			if err := v.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Number(a / b) }); err != nil {
				return err
			}
		case bytecode.OpNot:
			v.push(bytecode.Bool(v.pop().IsFalsey()))
		case bytecode.OpNegate:
			if !v.peek(0).IsNumber() {
				return v.runtimeError("Operand must be a number.")
			}
			v.push(bytecode.Number(-v.pop().AsNumber()))

		case bytecode.OpPrint:
			v.writeStdout(v.pop().String() + "\n")

		case bytecode.OpJump:
			offset := v.readShort(f)
			f.ip += offset
		case bytecode.OpJumpIfFalse:
			offset := v.readShort(f)
			if v.peek(0).IsFalsey() {
				f.ip += offset
			}
		case bytecode.OpLoop:
			offset := v.readShort(f)
			f.ip -= offset

		case bytecode.OpCall:
			argCount := int(v.readByte(f))
			if err := v.callValue(v.peek(argCount), argCount); err != nil {
				return err
			}
		case bytecode.OpInvoke:
			method := v.readString(f)
			argCount := int(v.readByte(f))
			if err := v.invoke(method, argCount); err != nil {
				return err
			}
		case bytecode.OpSuperInvoke:
			method := v.readString(f)
			argCount := int(v.readByte(f))
			superclass := v.pop().AsObj().(*bytecode.ClassObj)
			if err := v.invokeFromClass(superclass, method, argCount); err != nil {
				return err
			}

		case bytecode.OpClosure:
			fn := v.readConstant(f).AsObj().(*bytecode.FunctionObj)
			closure := &bytecode.ClosureObj{Function: fn, Upvalues: make([]*bytecode.UpvalueObj, fn.UpvalueCount)}
			// Push before filling Upvalues: capturing an upvalue below
			// can itself allocate and trigger a collection, and by then
			// closure must already be reachable from the stack.
			v.push(bytecode.ObjVal(closure))
			v.registerObject(closure)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := v.readByte(f)
				index := v.readByte(f)
				if isLocal == 1 {
					closure.Upvalues[i] = v.captureUpvalue(f.base + int(index))
				} else {
					closure.Upvalues[i] = f.closure.Upvalues[index]
				}
			}

		case bytecode.OpCloseUpvalue:
			v.closeUpvalues(len(v.stack) - 1)
			v.pop()

		case bytecode.OpReturn:
			result := v.pop()
			v.closeUpvalues(f.base)
			v.frames = v.frames[:len(v.frames)-1]
			if len(v.frames) == 0 {
				v.pop() // the top-level closure itself
				return nil
			}
			v.stack = v.stack[:f.base]
			v.push(result)

		case bytecode.OpClass:
			name := v.readString(f)
			cls := bytecode.NewClass(name)
			v.push(bytecode.ObjVal(cls))
			v.registerObject(cls)
		case bytecode.OpInherit:
			superVal := v.peek(1)
			superclass, ok := superVal.AsObj().(*bytecode.ClassObj)
			if !ok {
				return v.runtimeError("Superclass must be a class.")
			}
			sub := v.peek(0).AsObj().(*bytecode.ClassObj)
			for name, method := range superclass.Methods {
				sub.Methods[name] = method
			}
			v.pop() // drop the subclass; the superclass stays as the `super` local
		case bytecode.OpMethod:
			v.defineMethod(v.readString(f))

		default:
			return v.runtimeError("Unknown opcode %d.", byte(op))
		}
	}
}

// traceInstruction prints the current stack contents followed by the
// instruction about to execute, mirroring clox's DEBUG_TRACE_EXECUTION.
func (v *VM) traceInstruction(f *frame) {
	var b strings.Builder
	b.WriteString("          ")
	for _, val := range v.stack {
		fmt.Fprintf(&b, "[ %s ]", val.String())
	}
	b.WriteByte('\n')
	line, _ := debug.DisassembleInstruction(f.closure.Function.Chunk, f.ip)
	b.WriteString(line)
	b.WriteByte('\n')
	v.writeStdout(b.String())
}

func (v *VM) writeStdout(s string) {
	if v.Stdout != nil {
		v.Stdout(s)
		return
	}
	fmt.Print(s)
}

func (v *VM) numericBinary(op func(a, b float64) bytecode.Value) error {
	if !v.peek(0).IsNumber() || !v.peek(1).IsNumber() {
		return v.runtimeError("Operands must be numbers.")
	}
	b := v.pop().AsNumber()
	a := v.pop().AsNumber()
	v.push(op(a, b))
	return nil
}

func (v *VM) add() error {
	bVal, aVal := v.peek(0), v.peek(1)
	switch {
	case aVal.IsNumber() && bVal.IsNumber():
		b := v.pop().AsNumber()
		a := v.pop().AsNumber()
		v.push(bytecode.Number(a + b))
		return nil
	case isString(aVal) && isString(bVal):
		b := v.pop().AsObj().(*bytecode.StringObj)
		a := v.pop().AsObj().(*bytecode.StringObj)
		v.push(bytecode.ObjVal(v.Intern(a.Chars + b.Chars)))
		return nil
	default:
		return v.runtimeError("Operands must be two numbers or two strings.")
	}
}

func isString(val bytecode.Value) bool {
	if !val.IsObj() {
		return false
	}
	_, ok := val.AsObj().(*bytecode.StringObj)
	return ok
}
