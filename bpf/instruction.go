// Package bpf implements a high level wrapper over classic BPF instructions
// for seccomp filtering: a fixed-shape instruction model, a comparison
// condition compiler and a rule compiler. The filter compiler that ties a
// policy into a single program is policy.Compile.
package bpf

import "encoding/binary"

// BPF instruction classes. See /usr/include/linux/bpf_common.h.
const (
	LD  uint16 = 0x00
	ALU uint16 = 0x04
	JMP uint16 = 0x05
	RET uint16 = 0x06
)

// BPF ld/ldx fields.
const (
	W   uint16 = 0x00
	ABS uint16 = 0x20
)

// BPF alu fields.
const (
	AND uint16 = 0x50
)

// BPF jmp fields.
const (
	JA  uint16 = 0x00
	JEQ uint16 = 0x10
	JGT uint16 = 0x20
	JGE uint16 = 0x30
	K   uint16 = 0x00
)

// Return codes for BPF programs. See /usr/include/linux/seccomp.h.
const (
	RetAllow uint32 = 0x7fff0000
	RetErrno uint32 = 0x00050000
	RetKill  uint32 = 0x00000000
	RetLog   uint32 = 0x7ffc0000
	RetTrace uint32 = 0x7ff00000
	RetTrap  uint32 = 0x00030000
	RetMask  uint32 = 0x0000ffff
)

// AuditArchX86_64 is the x86-64 little-endian architecture identifier from
// /usr/include/linux/audit.h: EM_X86_64 | __AUDIT_ARCH_64BIT | __AUDIT_ARCH_LE.
const AuditArchX86_64 uint32 = 62 | 0x80000000 | 0x40000000

// MaxLen is the maximum number of instructions a BPF program may contain.
const MaxLen = 4096

// seccomp_data field offsets and sizes, in bytes:
//
//	struct seccomp_data {
//	    int nr;
//	    __u32 arch;
//	    __u64 instruction_pointer;
//	    __u64 args[6];
//	};
const (
	DataNROffset   uint8 = 0
	DataArgsOffset uint8 = 16
	DataArgSize    uint8 = 8
)

// ArgNumberMax is the highest valid syscall argument index.
const ArgNumberMax uint8 = 5

// ConditionMaxLen is the maximum number of instructions a single condition
// may expand to.
const ConditionMaxLen = 6

// Instruction is wire-compatible with the kernel's struct sock_filter:
// (u16 code, u8 jt, u8 jf, u32 k).
type Instruction struct {
	Code uint16
	Jt   uint8
	Jf   uint8
	K    uint32
}

// Stmt builds a non-jumping BPF instruction.
func Stmt(code uint16, k uint32) Instruction {
	return Instruction{Code: code, K: k}
}

// Jump builds a jumping BPF instruction.
func Jump(code uint16, k uint32, jt, jf uint8) Instruction {
	return Instruction{Code: code, Jt: jt, Jf: jf, K: k}
}

// Program is an ordered, immutable sequence of BPF instructions.
type Program []Instruction

// Bytes marshals the program into the kernel's little-endian sock_filter
// wire format: one 8-byte record per instruction.
func (p Program) Bytes() []byte {
	out := make([]byte, 0, len(p)*8)
	for _, ins := range p {
		var buf [8]byte
		binary.LittleEndian.PutUint16(buf[0:2], ins.Code)
		buf[2] = ins.Jt
		buf[3] = ins.Jf
		binary.LittleEndian.PutUint32(buf[4:8], ins.K)
		out = append(out, buf[:]...)
	}
	return out
}

// ValidateArchitecture builds the 3-instruction prologue that kills the
// process unless seccomp_data.arch matches the expected audit identifier.
func ValidateArchitecture() Program {
	return Program{
		Stmt(LD+W+ABS, 4),
		Jump(JMP+JEQ+K, AuditArchX86_64, 1, 0),
		Stmt(RET+K, RetKill),
	}
}

// ExamineSyscall loads the syscall number for subsequent comparison.
func ExamineSyscall() Program {
	return Program{Stmt(LD+W+ABS, uint32(DataNROffset))}
}

// AllowSyscall emits the basic-level "if nr == syscallNumber, allow" pair.
func AllowSyscall(syscallNumber int64) Program {
	return Program{
		Jump(JMP+JEQ+K, uint32(syscallNumber), 0, 1),
		Stmt(RET+K, RetAllow),
	}
}

// SignalProcess emits the return instruction for the basic level's default
// action (trap).
func SignalProcess() Program {
	return Program{Stmt(RET+K, RetTrap)}
}
