package vm

import "github.com/kristofer/ember/pkg/bytecode"

// objSize approximates the bytes an object variant costs, just
// precisely enough to drive the GC's growth-threshold heuristic — the
// collector triggers on accumulated allocation volume, not on an exact
// live-set byte count.
func objSize(o bytecode.Obj) int64 {
	switch o.Kind() {
	case bytecode.KindString:
		return 32
	case bytecode.KindFunction:
		return 64
	case bytecode.KindNative:
		return 32
	case bytecode.KindClosure:
		return 48
	case bytecode.KindUpvalue:
		return 24
	case bytecode.KindClass:
		return 48
	case bytecode.KindInstance:
		return 48
	case bytecode.KindBoundMethod:
		return 32
	default:
		return 16
	}
}

func (v *VM) maybeCollect() {
	if v.cfg.GC.StressMode || v.bytesAllocd > v.nextGC {
		v.collectGarbage()
	}
}

// collectGarbage runs one full mark-and-sweep cycle: mark every root,
// trace outward from there to every object a root can reach, evict
// dead entries from the intern table, then sweep the heap's intrusive
// object list.
func (v *VM) collectGarbage() {
	var grey []bytecode.Obj

	mark := func(o bytecode.Obj) {
		if o == nil || o.IsMarked() {
			return
		}
		o.SetMarked(true)
		grey = append(grey, o)
	}
	markValue := func(val bytecode.Value) {
		if val.IsObj() {
			mark(val.AsObj())
		}
	}

	for _, val := range v.stack {
		markValue(val)
	}
	for _, fr := range v.frames {
		mark(fr.closure)
	}
	for _, up := range v.openUpvalues {
		mark(up)
	}
	for _, fn := range v.compilerRoot {
		mark(fn)
	}
	v.globals.Each(func(key *bytecode.StringObj, val bytecode.Value) {
		mark(key)
		markValue(val)
	})
	if v.initString != nil {
		mark(v.initString)
	}

	for len(grey) > 0 {
		o := grey[len(grey)-1]
		grey = grey[:len(grey)-1]
		v.blacken(o, mark, markValue)
	}

	v.strings.RemoveWhite()
	v.sweep()

	v.nextGC = int64(float64(v.bytesAllocd) * v.cfg.GC.GrowthFactor)
	if v.nextGC < v.cfg.GC.InitialThresholdBytes {
		v.nextGC = v.cfg.GC.InitialThresholdBytes
	}
}

// blacken traces the references held by one grey object; mark appends
// anything newly marked back onto the grey worklist.
func (v *VM) blacken(o bytecode.Obj, mark func(bytecode.Obj), markValue func(bytecode.Value)) {
	markAppend := mark

	// Pointer fields that can be nil (a function's or class's Name, a
	// closure's upvalue slots before OP_CLOSURE fills them) are guarded
	// before they reach markAppend: a nil *T stored in a bytecode.Obj
	// interface parameter is a non-nil interface with a nil payload,
	// so an `== nil` check inside markAppend itself would not catch it.
	switch obj := o.(type) {
	case *bytecode.StringObj:
		// no outgoing references
	case *bytecode.UpvalueObj:
		markValue(obj.Closed)
	case *bytecode.FunctionObj:
		if obj.Name != nil {
			markAppend(obj.Name)
		}
		for _, c := range obj.Chunk.Constants {
			markValue(c)
		}
	case *bytecode.ClosureObj:
		markAppend(obj.Function)
		for _, up := range obj.Upvalues {
			if up != nil {
				markAppend(up)
			}
		}
	case *bytecode.ClassObj:
		if obj.Name != nil {
			markAppend(obj.Name)
		}
		for name, m := range obj.Methods {
			markAppend(name)
			markAppend(m)
		}
	case *bytecode.InstanceObj:
		markAppend(obj.Class)
		for name, f := range obj.Fields {
			markAppend(name)
			markValue(f)
		}
	case *bytecode.BoundMethodObj:
		markValue(obj.Receiver)
		markAppend(obj.Method)
	case *bytecode.NativeObj:
		// Fn is a host closure; nothing heap-allocated to trace
	}
}

// sweep walks the intrusive heap list, dropping every object that
// survived marking without being reached, and unmarks survivors so
// the next cycle starts white again.
func (v *VM) sweep() {
	var prev bytecode.Obj
	cur := v.objects
	var live int64

	for cur != nil {
		if cur.IsMarked() {
			cur.SetMarked(false)
			live += objSize(cur)
			prev = cur
			cur = cur.NextObj()
			continue
		}

		unreached := cur
		cur = cur.NextObj()
		if prev == nil {
			v.objects = cur
		} else {
			prev.SetNextObj(cur)
		}
		_ = unreached
	}

	v.bytesAllocd = live
}
