package bpf

import "fmt"

// CmpOp is the comparison performed when matching a Condition.
type CmpOp int

const (
	// Eq matches when the argument equals Value.
	Eq CmpOp = iota
	// Ne matches when the argument does not equal Value.
	Ne
	// Gt matches when the argument is greater than Value.
	Gt
	// Ge matches when the argument is greater than or equal to Value.
	Ge
	// Lt matches when the argument is less than Value.
	Lt
	// Le matches when the argument is less than or equal to Value.
	Le
	// MaskedEq matches when (argument & Mask) equals (Value & Mask).
	MaskedEq
)

// Condition is a single predicate a syscall argument must satisfy for a
// Rule to match.
type Condition struct {
	ArgNumber uint8
	Operator  CmpOp
	Value     uint64
	Mask      uint64 // only meaningful when Operator == MaskedEq
}

// NewCondition validates arg and returns a Condition, or
// ErrInvalidArgumentNumber if arg exceeds ArgNumberMax.
func NewCondition(arg uint8, op CmpOp, value uint64) (Condition, error) {
	if arg > ArgNumberMax {
		return Condition{}, ErrInvalidArgumentNumber
	}
	return Condition{ArgNumber: arg, Operator: op, Value: value}, nil
}

// NewMaskedEqCondition validates arg and returns a MaskedEq Condition, or
// ErrInvalidArgumentNumber if arg exceeds ArgNumberMax.
func NewMaskedEqCondition(arg uint8, mask, value uint64) (Condition, error) {
	if arg > ArgNumberMax {
		return Condition{}, ErrInvalidArgumentNumber
	}
	return Condition{ArgNumber: arg, Operator: MaskedEq, Value: value, Mask: mask}, nil
}

// ErrInvalidArgumentNumber is returned when a condition references a
// syscall argument index beyond ArgNumberMax.
var ErrInvalidArgumentNumber = fmt.Errorf("invalid argument number")

// valueSegments splits Value into most/least significant 32-bit halves and
// resolves the little-endian byte offsets of the two halves of the
// argument within struct seccomp_data.
func (c Condition) valueSegments() (msb, lsb uint32, msbOffset, lsbOffset uint8) {
	msb = uint32(c.Value >> 32)
	lsb = uint32(c.Value)

	argOffset := DataArgsOffset + c.ArgNumber*DataArgSize
	// Little-endian: most significant half is the upper word.
	msbOffset = argOffset + DataArgSize/2
	lsbOffset = argOffset

	return msb, lsb, msbOffset, lsbOffset
}

// intoBPF translates the Condition into a BPF fragment. offset is the
// 8-bit relative jump performed when the condition fails, landing control
// at the start of the next rule (or the chain's default action).
func (c Condition) intoBPF(offset uint8) Program {
	var result Program
	switch c.Operator {
	case Eq:
		result = c.intoEqBPF(offset)
	case Ne:
		result = c.intoNeBPF(offset)
	case Gt:
		result = c.intoGtBPF(offset)
	case Ge:
		result = c.intoGeBPF(offset)
	case Lt:
		result = c.intoLtBPF(offset)
	case Le:
		result = c.intoLeBPF(offset)
	case MaskedEq:
		result = c.intoMaskedEqBPF(offset, c.Mask)
	default:
		panic("bpf: unknown comparison operator")
	}
	if len(result) > ConditionMaxLen {
		panic("bpf: condition expanded past ConditionMaxLen")
	}
	return result
}

// intoEqBPF: msb must equal; then lsb must equal; else jump offset.
func (c Condition) intoEqBPF(offset uint8) Program {
	msb, lsb, msbOffset, lsbOffset := c.valueSegments()
	return Program{
		Stmt(LD+W+ABS, uint32(msbOffset)),
		Jump(JMP+JEQ+K, msb, 0, offset+2),
		Stmt(LD+W+ABS, uint32(lsbOffset)),
		Jump(JMP+JEQ+K, lsb, 0, offset),
	}
}

// intoGeBPF: msb greater matches outright; msb equal falls through to lsb
// >= comparison; msb less jumps out.
func (c Condition) intoGeBPF(offset uint8) Program {
	msb, lsb, msbOffset, lsbOffset := c.valueSegments()
	return Program{
		Stmt(LD+W+ABS, uint32(msbOffset)),
		Jump(JMP+JGT+K, msb, 3, 0),
		Jump(JMP+JEQ+K, msb, 0, offset+2),
		Stmt(LD+W+ABS, uint32(lsbOffset)),
		Jump(JMP+JGE+K, lsb, 0, offset),
	}
}

// intoGtBPF: symmetric to intoGeBPF with a strict lsb comparison.
func (c Condition) intoGtBPF(offset uint8) Program {
	msb, lsb, msbOffset, lsbOffset := c.valueSegments()
	return Program{
		Stmt(LD+W+ABS, uint32(msbOffset)),
		Jump(JMP+JGT+K, msb, 3, 0),
		Jump(JMP+JEQ+K, msb, 0, offset+2),
		Stmt(LD+W+ABS, uint32(lsbOffset)),
		Jump(JMP+JGT+K, lsb, 0, offset),
	}
}

// intoLeBPF: symmetric to intoGeBPF, comparing in the opposite direction.
func (c Condition) intoLeBPF(offset uint8) Program {
	msb, lsb, msbOffset, lsbOffset := c.valueSegments()
	return Program{
		Stmt(LD+W+ABS, uint32(msbOffset)),
		Jump(JMP+JGT+K, msb, offset+3, 0),
		Jump(JMP+JEQ+K, msb, 0, 2),
		Stmt(LD+W+ABS, uint32(lsbOffset)),
		Jump(JMP+JGT+K, lsb, offset, 0),
	}
}

// intoLtBPF: symmetric to intoGtBPF, comparing in the opposite direction.
func (c Condition) intoLtBPF(offset uint8) Program {
	msb, lsb, msbOffset, lsbOffset := c.valueSegments()
	return Program{
		Stmt(LD+W+ABS, uint32(msbOffset)),
		Jump(JMP+JGT+K, msb, offset+3, 0),
		Jump(JMP+JEQ+K, msb, 0, 2),
		Stmt(LD+W+ABS, uint32(lsbOffset)),
		Jump(JMP+JGE+K, lsb, offset, 0),
	}
}

// intoMaskedEqBPF ANDs each half with the matching half of mask before
// comparing.
func (c Condition) intoMaskedEqBPF(offset uint8, mask uint64) Program {
	_, _, msbOffset, lsbOffset := c.valueSegments()
	maskedValue := c.Value & mask
	msb := uint32(maskedValue >> 32)
	lsb := uint32(maskedValue)
	maskMSB := uint32(mask >> 32)
	maskLSB := uint32(mask)

	return Program{
		Stmt(LD+W+ABS, uint32(msbOffset)),
		Stmt(ALU+AND+K, maskMSB),
		Jump(JMP+JEQ+K, msb, 0, offset+3),
		Stmt(LD+W+ABS, uint32(lsbOffset)),
		Stmt(ALU+AND+K, maskLSB),
		Jump(JMP+JEQ+K, lsb, 0, offset),
	}
}

// intoNeBPF: msb equal falls through to check lsb; if lsb also equal,
// jump offset (condition fails since value was fully equal).
func (c Condition) intoNeBPF(offset uint8) Program {
	msb, lsb, msbOffset, lsbOffset := c.valueSegments()
	return Program{
		Stmt(LD+W+ABS, uint32(msbOffset)),
		Jump(JMP+JEQ+K, msb, 0, 2),
		Stmt(LD+W+ABS, uint32(lsbOffset)),
		Jump(JMP+JEQ+K, lsb, offset, 0),
	}
}
