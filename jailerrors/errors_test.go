package jailerrors

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	underlying := fmt.Errorf("boom")
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"canonicalize", NewCanonicalize("/foo", underlying), "Failed to canonicalize path /foo: boom"},
		{"canonicalize errno", NewCanonicalize("/foo", syscall.ENOENT), "Failed to canonicalize path /foo: No such file or directory (os error 2)"},
		{"cgroup line not found", NewCgroupLineNotFound("cpu", "/proc/mounts"), "cpu configurations not found in /proc/mounts"},
		{"cgroup line not unique", NewCgroupLineNotUnique("/proc/mounts", "cpu"), "Found more than one cgroups configuration line in /proc/mounts for cpu"},
		{"cgroup inherit from parent", NewCgroupInheritFromParent("/foo", "/foo/bar"), "Failed to inherit cgroups configurations from file /foo/bar in path /foo"},
		{"missing argument", NewMissingArgument("exec-file"), "Missing argument: exec-file"},
		{"unexpected kvm fd", NewUnexpectedKvmFd(42), "Unexpected value for the /dev/kvm fd: 42"},
		{"unexpected kvm fd (spec scenario)", NewUnexpectedKvmFd(42), "Unexpected value for the /dev/kvm fd: 42"},
		{"unexpected listener fd", NewUnexpectedListenerFd(7), "Unexpected value for the socket listener fd: 7"},
		{"invalid uid", NewUid("abc"), "Invalid uid: abc"},
		{"invalid gid", NewGid("xyz"), "Invalid gid: xyz"},
		{"pivot root", NewPivotRoot(underlying), "Failed to pivot root: boom"},
		{"missing argument (spec scenario)", NewMissingArgument("id"), "Missing argument: id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	a := NewPivotRoot(fmt.Errorf("one"))
	b := NewPivotRoot(fmt.Errorf("two"))
	if !errors.Is(a, b) {
		t.Fatal("expected errors with the same Kind to match via errors.Is")
	}

	c := NewUid("1000")
	if errors.Is(a, c) {
		t.Fatal("expected errors with different Kinds not to match")
	}
}

func TestErrorUnwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying failure")
	err := NewOpenDevKvm(underlying)
	if !errors.Is(err, underlying) {
		t.Fatal("expected errors.Is to reach the wrapped error")
	}
}
