package seccomp

import (
	"testing"

	"jailer/policy"
)

func TestDefaultAllowedSyscallsNonEmpty(t *testing.T) {
	if len(DefaultAllowedSyscalls) == 0 {
		t.Fatal("DefaultAllowedSyscalls is empty")
	}
	seen := make(map[int64]bool, len(DefaultAllowedSyscalls))
	for _, n := range DefaultAllowedSyscalls {
		if seen[n] {
			t.Errorf("duplicate syscall number %d", n)
		}
		seen[n] = true
	}
}

func TestDefaultAdvancedPolicyCompiles(t *testing.T) {
	p, err := DefaultAdvancedPolicy()
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("DefaultAdvancedPolicy returned nil policy")
	}
	prog, err := policy.Compile(p)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(prog) == 0 {
		t.Fatal("Compile() returned an empty program")
	}
}
