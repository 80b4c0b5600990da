// Package jailerrors provides the fixed-message error kinds produced while
// building and activating a sandbox environment. Every kind renders a
// specific, stable message so callers and logs can depend on its wording;
// errors.Is matches any two *Error values of the same Kind (for example
// one built by the matching New* constructor), so a failure can be
// classified without parsing text.
package jailerrors

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// Kind classifies a jailer error.
type Kind int

const (
	KindCanonicalize Kind = iota
	KindCgroupInheritFromParent
	KindCgroupLineNotFound
	KindCgroupLineNotUnique
	KindChangeDevNetTunOwner
	KindChdirNewRoot
	KindCloseNetNsFd
	KindCloseDevNullFd
	KindCopy
	KindCreateDir
	KindDup2
	KindExec
	KindFileName
	KindFileOpen
	KindGetOldFdFlags
	KindGid
	KindInvalidInstanceID
	KindMissingArgument
	KindMissingParent
	KindMkdirOldRoot
	KindMknodDevNetTun
	KindMountBind
	KindMountPropagationPrivate
	KindNotAFile
	KindNumaNode
	KindOpenDevKvm
	KindOpenDevNull
	KindPivotRoot
	KindReadLine
	KindReadToString
	KindRmOldRootDir
	KindSeccompLevel
	KindSetCurrentDir
	KindSetNetNs
	KindSetSid
	KindUid
	KindUmountOldRoot
	KindUnexpectedKvmFd
	KindUnexpectedListenerFd
	KindUnshareNewNs
	KindUnixListener
	KindUnsetCloexec
	KindWrite
)

// Error is a jailer error with a fixed message shape per Kind.
type Error struct {
	Kind  Kind
	Path  string
	Path2 string
	Str   string
	Int   int
	Err   error
}

// formatErr renders err the way the original jailer's io::Error Display
// does: a capitalized, human-readable description followed by the raw
// errno in parens when the underlying error is a syscall errno, e.g.
// "No such file or directory (os error 2)". Errors that aren't a raw
// errno (already-wrapped or synthetic errors) are rendered as-is.
func formatErr(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return err.Error()
	}
	msg := errno.Error()
	if msg == "" {
		return err.Error()
	}
	return fmt.Sprintf("%s%s (os error %d)", strings.ToUpper(msg[:1]), msg[1:], int(errno))
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindCanonicalize:
		return fmt.Sprintf("Failed to canonicalize path %s: %s", e.Path, formatErr(e.Err))
	case KindCgroupInheritFromParent:
		return fmt.Sprintf("Failed to inherit cgroups configurations from file %s in path %s", e.Str, e.Path)
	case KindCgroupLineNotFound:
		return fmt.Sprintf("%s configurations not found in %s", e.Str, e.Path)
	case KindCgroupLineNotUnique:
		return fmt.Sprintf("Found more than one cgroups configuration line in %s for %s", e.Path, e.Str)
	case KindChangeDevNetTunOwner:
		return fmt.Sprintf("Failed to change owner for /dev/net/tun: %s", formatErr(e.Err))
	case KindChdirNewRoot:
		return fmt.Sprintf("Failed to chdir into chroot directory: %s", formatErr(e.Err))
	case KindCloseNetNsFd:
		return fmt.Sprintf("Failed to close netns fd: %s", formatErr(e.Err))
	case KindCloseDevNullFd:
		return fmt.Sprintf("Failed to close /dev/null fd: %s", formatErr(e.Err))
	case KindCopy:
		return fmt.Sprintf("Failed to copy %s to %s: %s", e.Path, e.Path2, formatErr(e.Err))
	case KindCreateDir:
		return fmt.Sprintf("Failed to create directory %s: %s", e.Path, formatErr(e.Err))
	case KindDup2:
		return fmt.Sprintf("Failed to duplicate fd: %s", formatErr(e.Err))
	case KindExec:
		return fmt.Sprintf("Failed to exec into the jailed binary: %s", formatErr(e.Err))
	case KindFileName:
		return fmt.Sprintf("Failed to extract filename from path %s", e.Path)
	case KindFileOpen:
		return fmt.Sprintf("Failed to open file %s: %s", e.Path, formatErr(e.Err))
	case KindGetOldFdFlags:
		return fmt.Sprintf("Failed to get flags from fd: %s", formatErr(e.Err))
	case KindGid:
		return fmt.Sprintf("Invalid gid: %s", e.Str)
	case KindInvalidInstanceID:
		return fmt.Sprintf("Invalid instance ID: %s", e.Err)
	case KindMissingArgument:
		return fmt.Sprintf("Missing argument: %s", e.Str)
	case KindMissingParent:
		return fmt.Sprintf("File %s doesn't have a parent", e.Path)
	case KindMkdirOldRoot:
		return fmt.Sprintf("Failed to create the jail root directory before pivoting root: %s", formatErr(e.Err))
	case KindMknodDevNetTun:
		return fmt.Sprintf("Failed to create /dev/net/tun via mknod inside the jail: %s", formatErr(e.Err))
	case KindMountBind:
		return fmt.Sprintf("Failed to bind mount the jail root directory: %s", formatErr(e.Err))
	case KindMountPropagationPrivate:
		return fmt.Sprintf("Failed to change the propagation type to private: %s", formatErr(e.Err))
	case KindNotAFile:
		return fmt.Sprintf("%s is not a file", e.Path)
	case KindNumaNode:
		return fmt.Sprintf("Invalid numa node: %s", e.Str)
	case KindOpenDevKvm:
		return fmt.Sprintf("Failed to open /dev/kvm: %s", formatErr(e.Err))
	case KindOpenDevNull:
		return fmt.Sprintf("Failed to open /dev/null: %s", formatErr(e.Err))
	case KindPivotRoot:
		return fmt.Sprintf("Failed to pivot root: %s", formatErr(e.Err))
	case KindReadLine:
		return fmt.Sprintf("Failed to read line from %s: %s", e.Path, formatErr(e.Err))
	case KindReadToString:
		return fmt.Sprintf("Failed to read file %s into a string: %s", e.Path, formatErr(e.Err))
	case KindRmOldRootDir:
		return fmt.Sprintf("Failed to remove old jail root directory: %s", formatErr(e.Err))
	case KindSeccompLevel:
		return fmt.Sprintf("Failed to parse seccomp level: %v", e.Err)
	case KindSetCurrentDir:
		return fmt.Sprintf("Failed to change current directory: %s", formatErr(e.Err))
	case KindSetNetNs:
		return fmt.Sprintf("Failed to join network namespace: netns: %s", formatErr(e.Err))
	case KindSetSid:
		return fmt.Sprintf("Failed to daemonize: setsid: %s", formatErr(e.Err))
	case KindUid:
		return fmt.Sprintf("Invalid uid: %s", e.Str)
	case KindUmountOldRoot:
		return fmt.Sprintf("Failed to unmount the old jail root: %s", formatErr(e.Err))
	case KindUnexpectedKvmFd:
		return fmt.Sprintf("Unexpected value for the /dev/kvm fd: %d", e.Int)
	case KindUnexpectedListenerFd:
		return fmt.Sprintf("Unexpected value for the socket listener fd: %d", e.Int)
	case KindUnshareNewNs:
		return fmt.Sprintf("Failed to unshare into new mount namespace: %s", formatErr(e.Err))
	case KindUnixListener:
		return fmt.Sprintf("Failed to bind to the Unix socket: %s", formatErr(e.Err))
	case KindUnsetCloexec:
		return fmt.Sprintf("Failed to unset the O_CLOEXEC flag on the socket fd: %s", formatErr(e.Err))
	case KindWrite:
		return fmt.Sprintf("Failed to write to %s: %s", e.Path, formatErr(e.Err))
	default:
		return "jailer: unknown error"
	}
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func NewCanonicalize(path string, err error) *Error {
	return &Error{Kind: KindCanonicalize, Path: path, Err: err}
}

func NewCgroupInheritFromParent(path, filename string) *Error {
	return &Error{Kind: KindCgroupInheritFromParent, Path: path, Str: filename}
}

func NewCgroupLineNotFound(controller, procMounts string) *Error {
	return &Error{Kind: KindCgroupLineNotFound, Str: controller, Path: procMounts}
}

func NewCgroupLineNotUnique(procMounts, controller string) *Error {
	return &Error{Kind: KindCgroupLineNotUnique, Path: procMounts, Str: controller}
}

func NewChangeDevNetTunOwner(err error) *Error {
	return &Error{Kind: KindChangeDevNetTunOwner, Err: err}
}

func NewChdirNewRoot(err error) *Error { return &Error{Kind: KindChdirNewRoot, Err: err} }

func NewCloseNetNsFd(err error) *Error { return &Error{Kind: KindCloseNetNsFd, Err: err} }

func NewCloseDevNullFd(err error) *Error { return &Error{Kind: KindCloseDevNullFd, Err: err} }

func NewCopy(src, dst string, err error) *Error {
	return &Error{Kind: KindCopy, Path: src, Path2: dst, Err: err}
}

func NewCreateDir(path string, err error) *Error {
	return &Error{Kind: KindCreateDir, Path: path, Err: err}
}

func NewDup2(err error) *Error { return &Error{Kind: KindDup2, Err: err} }

func NewExec(err error) *Error { return &Error{Kind: KindExec, Err: err} }

func NewFileName(path string) *Error { return &Error{Kind: KindFileName, Path: path} }

func NewFileOpen(path string, err error) *Error {
	return &Error{Kind: KindFileOpen, Path: path, Err: err}
}

func NewGetOldFdFlags(err error) *Error { return &Error{Kind: KindGetOldFdFlags, Err: err} }

func NewGid(gid string) *Error { return &Error{Kind: KindGid, Str: gid} }

func NewInvalidInstanceID(err error) *Error {
	return &Error{Kind: KindInvalidInstanceID, Err: err}
}

func NewMissingArgument(arg string) *Error { return &Error{Kind: KindMissingArgument, Str: arg} }

func NewMissingParent(path string) *Error { return &Error{Kind: KindMissingParent, Path: path} }

func NewMkdirOldRoot(err error) *Error { return &Error{Kind: KindMkdirOldRoot, Err: err} }

func NewMknodDevNetTun(err error) *Error { return &Error{Kind: KindMknodDevNetTun, Err: err} }

func NewMountBind(err error) *Error { return &Error{Kind: KindMountBind, Err: err} }

func NewMountPropagationPrivate(err error) *Error {
	return &Error{Kind: KindMountPropagationPrivate, Err: err}
}

func NewNotAFile(path string) *Error { return &Error{Kind: KindNotAFile, Path: path} }

func NewNumaNode(node string) *Error { return &Error{Kind: KindNumaNode, Str: node} }

func NewOpenDevKvm(err error) *Error { return &Error{Kind: KindOpenDevKvm, Err: err} }

func NewOpenDevNull(err error) *Error { return &Error{Kind: KindOpenDevNull, Err: err} }

func NewPivotRoot(err error) *Error { return &Error{Kind: KindPivotRoot, Err: err} }

func NewReadLine(path string, err error) *Error {
	return &Error{Kind: KindReadLine, Path: path, Err: err}
}

func NewReadToString(path string, err error) *Error {
	return &Error{Kind: KindReadToString, Path: path, Err: err}
}

func NewRmOldRootDir(err error) *Error { return &Error{Kind: KindRmOldRootDir, Err: err} }

func NewSeccompLevel(err error) *Error { return &Error{Kind: KindSeccompLevel, Err: err} }

func NewSetCurrentDir(err error) *Error { return &Error{Kind: KindSetCurrentDir, Err: err} }

func NewSetNetNs(err error) *Error { return &Error{Kind: KindSetNetNs, Err: err} }

func NewSetSid(err error) *Error { return &Error{Kind: KindSetSid, Err: err} }

func NewUid(uid string) *Error { return &Error{Kind: KindUid, Str: uid} }

func NewUmountOldRoot(err error) *Error { return &Error{Kind: KindUmountOldRoot, Err: err} }

func NewUnexpectedKvmFd(fd int) *Error { return &Error{Kind: KindUnexpectedKvmFd, Int: fd} }

func NewUnexpectedListenerFd(fd int) *Error {
	return &Error{Kind: KindUnexpectedListenerFd, Int: fd}
}

func NewUnshareNewNs(err error) *Error { return &Error{Kind: KindUnshareNewNs, Err: err} }

func NewUnixListener(err error) *Error { return &Error{Kind: KindUnixListener, Err: err} }

func NewUnsetCloexec(err error) *Error { return &Error{Kind: KindUnsetCloexec, Err: err} }

func NewWrite(path string, err error) *Error { return &Error{Kind: KindWrite, Path: path, Err: err} }

// ErrInvalidSeccompLevel and ErrInvalidInstanceID are sentinel validation
// errors that don't carry per-instance context.
var (
	ErrInvalidSeccompLevel = errors.New("jailer: seccomp level must be 0, 1, or 2")

	// ErrInvalidInstanceID is wrapped by NewInvalidInstanceID when an
	// instance id fails the character-class or length check.
	ErrInvalidInstanceID = errors.New("jailer: instance id must be 1-64 alphanumeric or hyphen characters and cannot start with a hyphen")
)
