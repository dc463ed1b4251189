// Package debug implements the bytecode disassembler: a pure reader of
// an already-compiled Chunk, used for debugging output only. It has no
// influence on compilation or execution.
package debug

import (
	"fmt"
	"strings"

	"github.com/kristofer/ember/pkg/bytecode"
)

// DisassembleChunk prints every instruction in c, labeled with name,
// one line per instruction in "offset line mnemonic operand" format
// (with "|" for a line repeating the previous instruction's), plus one
// extra line for each upvalue an OP_CLOSURE captures.
func DisassembleChunk(name string, c *bytecode.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < c.Len(); {
		line, next := DisassembleInstruction(c, offset)
		b.WriteString(line)
		b.WriteByte('\n')
		offset = next
	}
	return b.String()
}

// DisassembleInstruction formats the single instruction at offset and
// returns the offset of the following instruction.
func DisassembleInstruction(c *bytecode.Chunk, offset int) (string, int) {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d ", offset)

	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(&b, "%4d ", c.Lines[offset])
	}

	op := bytecode.OpCode(c.Code[offset])
	switch op {
	case bytecode.OpConstant, bytecode.OpGetGlobal, bytecode.OpDefineGlobal,
		bytecode.OpSetGlobal, bytecode.OpGetProperty, bytecode.OpSetProperty,
		bytecode.OpGetSuper, bytecode.OpClass, bytecode.OpMethod:
		return constantInstruction(&b, op, c, offset)
	case bytecode.OpGetLocal, bytecode.OpSetLocal, bytecode.OpGetUpvalue,
		bytecode.OpSetUpvalue, bytecode.OpCall:
		return byteInstruction(&b, op, c, offset)
	case bytecode.OpJump, bytecode.OpJumpIfFalse:
		return jumpInstruction(&b, op, c, offset, 1)
	case bytecode.OpLoop:
		return jumpInstruction(&b, op, c, offset, -1)
	case bytecode.OpInvoke, bytecode.OpSuperInvoke:
		return invokeInstruction(&b, op, c, offset)
	case bytecode.OpClosure:
		return closureInstruction(&b, c, offset)
	default:
		fmt.Fprintf(&b, "%s", op)
		return b.String(), offset + 1
	}
}

func constantInstruction(b *strings.Builder, op bytecode.OpCode, c *bytecode.Chunk, offset int) (string, int) {
	idx := c.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d '%s'", op, idx, c.Constants[idx])
	return b.String(), offset + 2
}

func byteInstruction(b *strings.Builder, op bytecode.OpCode, c *bytecode.Chunk, offset int) (string, int) {
	slot := c.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d", op, slot)
	return b.String(), offset + 2
}

func jumpInstruction(b *strings.Builder, op bytecode.OpCode, c *bytecode.Chunk, offset int, sign int) (string, int) {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	target := offset + 3 + sign*jump
	fmt.Fprintf(b, "%-16s %4d -> %d", op, offset, target)
	return b.String(), offset + 3
}

func invokeInstruction(b *strings.Builder, op bytecode.OpCode, c *bytecode.Chunk, offset int) (string, int) {
	nameIdx := c.Code[offset+1]
	argCount := c.Code[offset+2]
	fmt.Fprintf(b, "%-16s (%d args) %4d '%s'", op, argCount, nameIdx, c.Constants[nameIdx])
	return b.String(), offset + 3
}

func closureInstruction(b *strings.Builder, c *bytecode.Chunk, offset int) (string, int) {
	offset++
	fnIdx := c.Code[offset]
	offset++
	fmt.Fprintf(b, "%-16s %4d '%s'", bytecode.OpClosure, fnIdx, c.Constants[fnIdx])

	fn := c.Constants[fnIdx].AsObj().(*bytecode.FunctionObj)
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := c.Code[offset]
		index := c.Code[offset+1]
		offset += 2
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(b, "\n%04d      |                     %s %d", offset-2, kind, index)
	}
	return b.String(), offset
}
