// Package seccomp installs a compiled BPF program into the kernel through
// prctl, at one of three filtering levels.
package seccomp

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"

	"jailer/bpf"
	"jailer/policy"
)

// Level selects how thoroughly syscalls are examined before a process is
// allowed to make them.
type Level int

const (
	// LevelNone installs no filter; every syscall passes through.
	LevelNone Level = iota
	// LevelBasic allows a fixed set of syscall numbers and traps everything
	// else, ignoring argument values entirely.
	LevelBasic
	// LevelAdvanced installs a compiled policy that examines both the
	// syscall number and its arguments.
	LevelAdvanced
)

// ErrUnknownLevel is returned by Install for a Level outside [LevelNone,
// LevelAdvanced].
var ErrUnknownLevel = errors.New("seccomp: unknown filtering level")

// sockFprog mirrors the kernel's struct sock_fprog: a length-prefixed
// pointer to an array of sock_filter records.
type sockFprog struct {
	len    uint16
	filter *bpf.Instruction
}

// Install builds the BPF program for level and loads it into the calling
// thread via prctl(PR_SET_SECCOMP). For LevelBasic, allowedSyscalls gives
// the permitted syscall numbers; for LevelAdvanced, p is the policy to
// compile, default action included. Both are ignored for LevelNone.
//
// Install also sets PR_SET_NO_NEW_PRIVS, required by the kernel before an
// unprivileged process may install a seccomp filter.
func Install(level Level, allowedSyscalls []int64, p *policy.Policy) error {
	var program bpf.Program
	program = append(program, bpf.ValidateArchitecture()...)

	switch level {
	case LevelNone:
		return nil
	case LevelBasic:
		program = append(program, bpf.ExamineSyscall()...)
		for _, syscallNumber := range allowedSyscalls {
			program = append(program, bpf.AllowSyscall(syscallNumber)...)
		}
		program = append(program, bpf.SignalProcess()...)
	case LevelAdvanced:
		compiled, err := policy.Compile(p)
		if err != nil {
			return err
		}
		program = append(program, compiled...)
	default:
		return ErrUnknownLevel
	}

	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return err
	}

	prog := sockFprog{
		len:    uint16(len(program)),
		filter: &program[0],
	}
	return unix.Prctl(unix.PR_SET_SECCOMP, unix.SECCOMP_MODE_FILTER, uintptr(unsafe.Pointer(&prog)), 0, 0)
}
