package jail

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"jailer/jailerrors"
	"jailer/policy"
	"jailer/seccomp"
)

// Activate turns the calling process into the jailed binary: it joins
// the target network namespace if requested, isolates into a private
// mount namespace, pivots root into env.ChrootDir, creates the device
// nodes the binary needs, optionally daemonizes, drops privileges,
// installs the seccomp filter, and finally execs the staged binary. On
// success Activate never returns; a returned error means none of the
// steps after it ran.
//
// seccompPolicy is only consulted when env.Spec.SeccompLevel is
// LevelAdvanced; callers may pass nil otherwise. The filter is installed
// last, immediately before execJailed, because it constrains what the
// jailed binary may do going forward — installing it any earlier would
// have the jailer itself, mid-activation, trip the filter on its own
// unshare/mount/mknod/setuid calls, none of which are in the jailed
// binary's allowed set.
func Activate(env *Environment, startTimeUs, startTimeCPUUs int64, seccompPolicy *policy.Policy) error {
	spec := env.Spec

	if spec.NetNS != "" {
		if err := joinNetNS(spec.NetNS); err != nil {
			return err
		}
	}

	if err := unshareMountNS(); err != nil {
		return err
	}

	if err := makeRootPrivate("/"); err != nil {
		return err
	}

	if err := bindMountSelf(env.ChrootDir); err != nil {
		return err
	}

	if err := pivotRoot(env.ChrootDir); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(devNetTunPath), 0o755); err != nil {
		return jailerrors.NewCreateDir(filepath.Dir(devNetTunPath), err)
	}
	if err := createDevNetTun(spec.UID, spec.GID); err != nil {
		return err
	}

	if spec.Daemonize {
		if err := daemonize(); err != nil {
			return err
		}
	}

	if err := dropPrivileges(spec.GID, spec.UID); err != nil {
		return err
	}

	if spec.SeccompLevel != seccomp.LevelNone {
		if err := seccomp.Install(spec.SeccompLevel, seccomp.DefaultAllowedSyscalls, seccompPolicy); err != nil {
			return err
		}
	}

	return execJailed(spec, startTimeUs, startTimeCPUUs)
}

// daemonize detaches the process from its controlling terminal and
// redirects stdin/stdout/stderr to /dev/null, in that order: setsid must
// run before the fd redirection so the new session has no controlling
// terminal to inherit through the reopened descriptors.
func daemonize() error {
	if _, err := unix.Setsid(); err != nil {
		return jailerrors.NewSetSid(err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return jailerrors.NewOpenDevNull(err)
	}
	defer devNull.Close()

	fd := int(devNull.Fd())
	for _, target := range []int{unix.Stdin, unix.Stdout, unix.Stderr} {
		if err := unix.Dup2(fd, target); err != nil {
			return jailerrors.NewDup2(err)
		}
	}
	return nil
}

// dropPrivileges sets the group id before the user id: once the uid is
// dropped the process generally no longer has permission to change its
// gid, so the order is not interchangeable.
func dropPrivileges(gid, uid int) error {
	if err := unix.Setgid(gid); err != nil {
		return jailerrors.NewGid(strconv.Itoa(gid))
	}
	if err := unix.Setuid(uid); err != nil {
		return jailerrors.NewUid(strconv.Itoa(uid))
	}
	return nil
}

// jailedArgv builds the fixed argument vector the jailed binary expects
// on every invocation, rooted at binPath as argv[0].
func jailedArgv(binPath string, spec *Spec, startTimeUs, startTimeCPUUs int64) []string {
	return []string{
		binPath,
		"--id", spec.ID,
		"--jailed",
		"--seccomp-level", fmt.Sprintf("%d", int(spec.SeccompLevel)),
		"--start-time-us", strconv.FormatInt(startTimeUs, 10),
		"--start-time-cpu-us", strconv.FormatInt(startTimeCPUUs, 10),
	}
}

// execJailed replaces the current process image with the staged binary.
func execJailed(spec *Spec, startTimeUs, startTimeCPUUs int64) error {
	binPath := filepath.Join("/", filepath.Base(spec.ExecFile))
	argv := jailedArgv(binPath, spec, startTimeUs, startTimeCPUUs)
	if err := syscall.Exec(binPath, argv, os.Environ()); err != nil {
		return jailerrors.NewExec(err)
	}
	return nil
}
