package jail

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"jailer/jailerrors"
	"jailer/seccomp"
)

func tempExecFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vmm-bin")
	if err := os.WriteFile(path, []byte("#!/bin/true\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSpecValidateAccepts(t *testing.T) {
	exec := tempExecFile(t)
	s := &Spec{
		ID:           "vm-1",
		ExecFile:     exec,
		NumaNode:     0,
		UID:          1000,
		GID:          1000,
		SeccompLevel: seccomp.LevelAdvanced,
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if s.ChrootBaseDir != DefaultChrootBaseDir {
		t.Errorf("ChrootBaseDir = %q, want default %q", s.ChrootBaseDir, DefaultChrootBaseDir)
	}
}

func TestSpecValidateRejectsBadInstanceID(t *testing.T) {
	exec := tempExecFile(t)
	tests := []string{"", "-leading-hyphen", "has space", "has/slash"}
	for _, id := range tests {
		s := &Spec{ID: id, ExecFile: exec, SeccompLevel: seccomp.LevelBasic}
		err := s.Validate()
		if err == nil {
			t.Errorf("id %q: expected error, got nil", id)
			continue
		}
		if id == "" {
			if !errors.Is(err, jailerrors.NewMissingArgument("id")) {
				t.Errorf("id %q: want missing-argument error, got %v", id, err)
			}
			continue
		}
		if !errors.Is(err, jailerrors.NewInvalidInstanceID(nil)) {
			t.Errorf("id %q: want invalid-instance-id error, got %v", id, err)
		}
	}
}

func TestSpecValidateRejectsLongInstanceID(t *testing.T) {
	exec := tempExecFile(t)
	long := make([]byte, maxInstanceIDLen+1)
	for i := range long {
		long[i] = 'a'
	}
	s := &Spec{ID: string(long), ExecFile: exec, SeccompLevel: seccomp.LevelNone}
	if err := s.Validate(); !errors.Is(err, jailerrors.NewInvalidInstanceID(nil)) {
		t.Fatalf("want invalid-instance-id error, got %v", err)
	}
}

func TestSpecValidateRejectsMissingExecFile(t *testing.T) {
	s := &Spec{ID: "vm-1", ExecFile: "/nonexistent/path/to/binary", SeccompLevel: seccomp.LevelNone}
	err := s.Validate()
	if err == nil {
		t.Fatal("expected error for missing exec file")
	}
}

func TestSpecValidateRejectsDirectoryExecFile(t *testing.T) {
	dir := t.TempDir()
	s := &Spec{ID: "vm-1", ExecFile: dir, SeccompLevel: seccomp.LevelNone}
	if err := s.Validate(); !errors.Is(err, jailerrors.NewNotAFile(dir)) {
		t.Fatalf("want not-a-file error, got %v", err)
	}
}

func TestSpecValidateRejectsBadSeccompLevel(t *testing.T) {
	exec := tempExecFile(t)
	s := &Spec{ID: "vm-1", ExecFile: exec, SeccompLevel: seccomp.Level(3)}
	if err := s.Validate(); !errors.Is(err, jailerrors.NewSeccompLevel(nil)) {
		t.Fatalf("want seccomp-level error, got %v", err)
	}
}

func TestSpecChrootDirAndSocketPath(t *testing.T) {
	s := &Spec{
		ID:            "vm-1",
		ExecFile:      "/usr/bin/jailed-vmm",
		ChrootBaseDir: "/srv/jailer",
	}
	wantChroot := "/srv/jailer/jailed-vmm/vm-1/root"
	if got := s.ChrootDir(); got != wantChroot {
		t.Errorf("ChrootDir() = %q, want %q", got, wantChroot)
	}
	wantSocket := "/srv/jailer/jailed-vmm/vm-1/api.socket"
	if got := s.SocketPath(); got != wantSocket {
		t.Errorf("SocketPath() = %q, want %q", got, wantSocket)
	}
}
