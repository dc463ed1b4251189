package vm

import (
	"fmt"
	"strings"
)

// StackFrame captures one call's identity and position at the moment
// a RuntimeError was raised: name, source line, instruction pointer.
type StackFrame struct {
	Name       string // function name, or "script" for the top level
	SourceLine int
	IP         int
}

// RuntimeError is a VM-level failure with the call stack captured at
// the point of failure: the message, then one "[line N] in NAME" line
// per frame, innermost first.
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, frame := range e.StackTrace {
		b.WriteString(fmt.Sprintf("\n[line %d] in %s", frame.SourceLine, frame.Name))
	}
	return b.String()
}

// runtimeError builds a RuntimeError from the current call stack,
// innermost frame first, matching clox's runtimeError convention that
// this is the terminal action an opcode handler takes before run()
// returns.
func (v *VM) runtimeError(format string, args ...any) error {
	err := &RuntimeError{Message: fmt.Sprintf(format, args...)}

	for i := len(v.frames) - 1; i >= 0; i-- {
		fr := v.frames[i]
		fn := fr.closure.Function
		line := 0
		// ip has already advanced past the failing instruction, so
		// Lines is read at ip-1: the last byte that instruction
		// consumed (its opcode, or its final operand byte).
		if fr.ip-1 >= 0 && fr.ip-1 < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[fr.ip-1]
		}
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		err.StackTrace = append(err.StackTrace, StackFrame{Name: name, SourceLine: line, IP: fr.ip})
	}

	return err
}
