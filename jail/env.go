package jail

import (
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"jailer/jailerrors"
)

// Environment is the result of BuildEnvironment: the fixed descriptors and
// filesystem layout Activate consumes to turn this process into the
// jailed binary.
type Environment struct {
	Spec       *Spec
	ChrootDir  string
	ListenerFd int
	KvmFile    *os.File
}

// BuildEnvironment runs the ordered setup steps that must happen before
// Activate: fd sanitation, opening /dev/kvm onto fd 3, creating the
// chroot directory, binding the API listener onto fd 4, cgroup
// placement, NUMA pinning, and staging the target binary inside the
// chroot. Every step after fd sanitation depends on the one before it,
// so callers must not reorder them.
//
// The returned Environment's KvmFile keeps fd 3 open and reachable: the
// jailed binary expects /dev/kvm to already be open on that descriptor
// when it execs, so nothing here may close it, and the *os.File value
// itself must stay referenced all the way through Activate or the Go
// runtime's finalizer would close the fd out from under the jail.
func BuildEnvironment(spec *Spec) (*Environment, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	if err := sanitizeFds(); err != nil {
		return nil, err
	}

	kvm, err := openDevKvm()
	if err != nil {
		return nil, err
	}

	chrootDir := spec.ChrootDir()
	if err := os.MkdirAll(chrootDir, 0o755); err != nil {
		kvm.Close()
		return nil, jailerrors.NewCreateDir(chrootDir, err)
	}

	listenerFd, err := createListener(spec.SocketPath())
	if err != nil {
		kvm.Close()
		return nil, err
	}

	cpusetDir, err := setupCgroups(spec.ID)
	if err != nil {
		kvm.Close()
		unix.Close(listenerFd)
		return nil, err
	}

	if err := pinNumaNode(cpusetDir, spec.NumaNode); err != nil {
		kvm.Close()
		unix.Close(listenerFd)
		return nil, err
	}

	if err := stageExecutable(spec.ExecFile, chrootDir); err != nil {
		kvm.Close()
		unix.Close(listenerFd)
		return nil, err
	}

	return &Environment{Spec: spec, ChrootDir: chrootDir, ListenerFd: listenerFd, KvmFile: kvm}, nil
}

// stageExecutable copies the target binary into the chroot under its own
// basename, preserving its permission bits so it's still executable once
// the jail has pivoted into this directory as root.
func stageExecutable(execFile, chrootDir string) error {
	src, err := os.Open(execFile)
	if err != nil {
		return jailerrors.NewFileOpen(execFile, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return jailerrors.NewFileOpen(execFile, err)
	}

	dstPath := filepath.Join(chrootDir, filepath.Base(execFile))
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return jailerrors.NewCopy(execFile, dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return jailerrors.NewCopy(execFile, dstPath, err)
	}
	return nil
}
