package vm

import (
	"time"

	"github.com/kristofer/ember/pkg/bytecode"
)

// defineNatives installs the host functions exposed to ember source —
// just clock(), grounded on clox's identically-named native.
func (v *VM) defineNatives() {
	v.defineNative("clock", func(args []bytecode.Value) (bytecode.Value, error) {
		return bytecode.Number(float64(time.Now().UnixNano()) / 1e9), nil
	})
}

func (v *VM) defineNative(name string, fn bytecode.NativeFn) {
	obj := &bytecode.NativeObj{Name: name, Fn: fn}
	nameObj := v.Intern(name)
	v.globals.Set(nameObj, bytecode.ObjVal(obj))
	v.registerObject(obj)
}
