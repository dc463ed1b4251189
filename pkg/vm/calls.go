package vm

import "github.com/kristofer/ember/pkg/bytecode"

// callValue dispatches OP_CALL's callee, which may be a closure, a
// native function, a class (construction), or a bound method.
func (v *VM) callValue(callee bytecode.Value, argCount int) error {
	if !callee.IsObj() {
		return v.runtimeError("Can only call functions and classes.")
	}

	switch obj := callee.AsObj().(type) {
	case *bytecode.ClosureObj:
		return v.callClosure(obj, argCount)
	case *bytecode.NativeObj:
		return v.callNative(obj, argCount)
	case *bytecode.ClassObj:
		instance := bytecode.NewInstance(obj)
		v.stack[len(v.stack)-1-argCount] = bytecode.ObjVal(instance)
		v.registerObject(instance)
		if initializer, ok := obj.Methods[v.initString]; ok {
			return v.callClosure(initializer, argCount)
		}
		if argCount != 0 {
			return v.runtimeError("Expected 0 arguments but got %d.", argCount)
		}
		return nil
	case *bytecode.BoundMethodObj:
		v.stack[len(v.stack)-1-argCount] = obj.Receiver
		return v.callClosure(obj.Method, argCount)
	default:
		return v.runtimeError("Can only call functions and classes.")
	}
}

func (v *VM) callClosure(closure *bytecode.ClosureObj, argCount int) error {
	if argCount != closure.Function.Arity {
		return v.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if len(v.frames) >= v.cfg.Stack.MaxFrames {
		return v.runtimeError("Stack overflow.")
	}
	v.frames = append(v.frames, frame{
		closure: closure,
		ip:      0,
		base:    len(v.stack) - argCount - 1,
	})
	return nil
}

func (v *VM) callNative(native *bytecode.NativeObj, argCount int) error {
	args := make([]bytecode.Value, argCount)
	copy(args, v.stack[len(v.stack)-argCount:])

	result, err := native.Fn(args)
	if err != nil {
		return v.runtimeError("%s", err.Error())
	}

	v.stack = v.stack[:len(v.stack)-argCount-1]
	v.push(result)
	return nil
}

// invoke is the OP_INVOKE fast path: it resolves method on the
// receiver (preferring an instance field of the same name — fields
// shadow methods) and calls it without the intermediate BoundMethod
// allocation a bare get-then-call would need.
func (v *VM) invoke(name *bytecode.StringObj, argCount int) error {
	receiver := v.peek(argCount)
	if !receiver.IsObj() {
		return v.runtimeError("Only instances have methods.")
	}
	instance, ok := receiver.AsObj().(*bytecode.InstanceObj)
	if !ok {
		return v.runtimeError("Only instances have methods.")
	}

	if field, ok := instance.Fields[name]; ok {
		v.stack[len(v.stack)-1-argCount] = field
		return v.callValue(field, argCount)
	}

	return v.invokeFromClass(instance.Class, name, argCount)
}

func (v *VM) invokeFromClass(class *bytecode.ClassObj, name *bytecode.StringObj, argCount int) error {
	method, ok := class.Methods[name]
	if !ok {
		return v.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return v.callClosure(method, argCount)
}

func (v *VM) getProperty(f *frame) error {
	name := v.readString(f)
	receiverVal := v.peek(0)
	if !receiverVal.IsObj() {
		return v.runtimeError("Only instances have properties.")
	}
	instance, ok := receiverVal.AsObj().(*bytecode.InstanceObj)
	if !ok {
		return v.runtimeError("Only instances have properties.")
	}

	if field, ok := instance.Fields[name]; ok {
		v.pop()
		v.push(field)
		return nil
	}

	return v.bindMethod(instance.Class, name, receiverVal)
}

func (v *VM) setProperty(f *frame) error {
	name := v.readString(f)
	receiverVal := v.peek(1)
	instance, ok := receiverVal.AsObj().(*bytecode.InstanceObj)
	if !receiverVal.IsObj() || !ok {
		return v.runtimeError("Only instances have fields.")
	}

	value := v.pop()
	instance.Fields[name] = value
	v.pop() // the instance
	v.push(value)
	return nil
}

// bindMethod resolves name as a method on class, producing a
// BoundMethod pairing it with receiver — this is the path every bare
// (non-call) property read on a method name takes: a method accessed
// without a trailing call still yields a callable BoundMethod, never
// the raw closure.
func (v *VM) bindMethod(class *bytecode.ClassObj, name *bytecode.StringObj, receiver bytecode.Value) error {
	method, ok := class.Methods[name]
	if !ok {
		return v.runtimeError("Undefined property '%s'.", name.Chars)
	}
	bound := &bytecode.BoundMethodObj{Receiver: receiver, Method: method}
	v.pop()
	v.push(bytecode.ObjVal(bound))
	v.registerObject(bound)
	return nil
}

func (v *VM) defineMethod(name *bytecode.StringObj) {
	method := v.pop().AsObj().(*bytecode.ClosureObj)
	class := v.peek(0).AsObj().(*bytecode.ClassObj)
	class.Methods[name] = method
}

// captureUpvalue returns the open UpvalueObj for the stack slot at
// index, reusing an existing one if the same local is already
// captured (so two closures over the same variable share mutations)
// rather than allocating a second upvalue over the same slot.
func (v *VM) captureUpvalue(index int) *bytecode.UpvalueObj {
	if existing, ok := v.openUpvalues[index]; ok {
		return existing
	}
	created := &bytecode.UpvalueObj{Location: &v.stack[index]}
	v.openUpvalues[index] = created
	v.registerObject(created)
	return created
}

// closeUpvalues hoists every open upvalue at or above stack index
// last into its own Closed field, detaching it from the stack slot
// that is about to be popped.
func (v *VM) closeUpvalues(last int) {
	for index, up := range v.openUpvalues {
		if index < last {
			continue
		}
		up.Closed = *up.Location
		up.Location = &up.Closed
		delete(v.openUpvalues, index)
	}
}
