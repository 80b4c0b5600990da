package jail

import (
	"math"
	"os"

	"golang.org/x/sys/unix"

	"jailer/jailerrors"
)

// kvmFd and listenerFd are the fixed descriptor numbers /dev/kvm and the
// API listener must land in; kvmFd is also the lowest descriptor
// sanitizeFds closes. maxOpenFd is the upper bound sanitizeFds uses when
// the RLIMIT_NOFILE soft limit cannot be read or is unlimited.
const (
	kvmFd      = 3
	listenerFd = 4
	maxOpenFd  = 1024
)

// sanitizeFds closes every fd from kvmFd up to the process's RLIMIT_NOFILE
// soft limit (maxOpenFd if that limit cannot be read or is unlimited),
// ignoring EBADF for descriptors that were never open. This guarantees the
// subsequent /dev/kvm open and listener creation land on the fixed
// descriptor numbers the jailed binary expects, regardless of what the
// parent process happened to have open.
func sanitizeFds() error {
	limit := maxOpenFd
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err == nil && rl.Cur <= math.MaxInt32 {
		limit = int(rl.Cur)
	}
	for fd := kvmFd; fd < limit; fd++ {
		if err := unix.Close(fd); err != nil && err != unix.EBADF {
			return err
		}
	}
	return nil
}

// openDevKvm opens /dev/kvm and verifies it landed on fd 3, the
// descriptor number the jailed binary is hard-coded to expect because
// sanitizeFds ran first.
func openDevKvm() (*os.File, error) {
	f, err := os.OpenFile("/dev/kvm", os.O_RDWR, 0)
	if err != nil {
		return nil, jailerrors.NewOpenDevKvm(err)
	}
	fd := int(f.Fd())
	if fd != kvmFd {
		f.Close()
		return nil, jailerrors.NewUnexpectedKvmFd(fd)
	}
	if err := unsetCloexec(fd); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// createListener binds a UNIX socket at path and verifies it landed on
// fd 4. It goes straight through unix.Socket/Bind/Listen rather than
// net.ListenUnix, because net.UnixListener.File dup's the descriptor and
// the caller needs the original fd, not a copy, to land on a fixed
// number.
func createListener(path string) (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, jailerrors.NewUnixListener(err)
	}
	if fd != listenerFd {
		unix.Close(fd)
		return -1, jailerrors.NewUnexpectedListenerFd(fd)
	}

	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, jailerrors.NewUnixListener(err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, jailerrors.NewUnixListener(err)
	}

	if err := unsetCloexec(fd); err != nil {
		unix.Close(fd)
		return -1, err
	}

	return fd, nil
}

// unsetCloexec clears FD_CLOEXEC on fd so it's inherited across the exec
// that replaces this process with the jailed binary.
func unsetCloexec(fd int) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return jailerrors.NewGetOldFdFlags(err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags&^unix.FD_CLOEXEC); err != nil {
		return jailerrors.NewUnsetCloexec(err)
	}
	return nil
}
