package bpf

import "testing"

func TestStmtAndJump(t *testing.T) {
	got := Stmt(LD+W+ABS, 16)
	want := Instruction{Code: 0x20, Jt: 0, Jf: 0, K: 16}
	if got != want {
		t.Errorf("Stmt = %+v, want %+v", got, want)
	}

	gotJump := Jump(JMP+JEQ+K, 10, 2, 5)
	wantJump := Instruction{Code: 0x15, Jt: 2, Jf: 5, K: 10}
	if gotJump != wantJump {
		t.Errorf("Jump = %+v, want %+v", gotJump, wantJump)
	}
}

func TestValidateArchitecture(t *testing.T) {
	got := ValidateArchitecture()
	want := Program{
		{Code: 32, Jt: 0, Jf: 0, K: 4},
		{Code: 21, Jt: 1, Jf: 0, K: 0xC000003E},
		{Code: 6, Jt: 0, Jf: 0, K: 0},
	}
	if !programsEqual(got, want) {
		t.Errorf("ValidateArchitecture() = %+v, want %+v", got, want)
	}
}

func TestExamineSyscall(t *testing.T) {
	got := ExamineSyscall()
	want := Program{{Code: 32, Jt: 0, Jf: 0, K: 0}}
	if !programsEqual(got, want) {
		t.Errorf("ExamineSyscall() = %+v, want %+v", got, want)
	}
}

func TestAllowSyscall(t *testing.T) {
	got := AllowSyscall(123)
	want := Program{
		{Code: 21, Jt: 0, Jf: 1, K: 123},
		{Code: 6, Jt: 0, Jf: 0, K: 0x7FFF0000},
	}
	if !programsEqual(got, want) {
		t.Errorf("AllowSyscall(123) = %+v, want %+v", got, want)
	}
}

func TestSignalProcess(t *testing.T) {
	got := SignalProcess()
	want := Program{{Code: 6, Jt: 0, Jf: 0, K: 0x30000}}
	if !programsEqual(got, want) {
		t.Errorf("SignalProcess() = %+v, want %+v", got, want)
	}
}

func programsEqual(a, b Program) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
