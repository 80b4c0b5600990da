package jail

import (
	"golang.org/x/sys/unix"

	"jailer/jailerrors"
)

// joinNetNS joins the network namespace at path by opening it and calling
// setns(2) with CLONE_NEWNET. It must run before unshareMountNS, since
// setns requires the calling thread not yet be isolated into a private
// mount namespace that hides the namespace file.
func joinNetNS(path string) error {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return jailerrors.NewSetNetNs(err)
	}
	err = unix.Setns(fd, unix.CLONE_NEWNET)
	if closeErr := unix.Close(fd); closeErr != nil && err == nil {
		return jailerrors.NewCloseNetNsFd(closeErr)
	}
	if err != nil {
		return jailerrors.NewSetNetNs(err)
	}
	return nil
}

// unshareMountNS detaches the calling process into a new mount namespace
// so that the pivot_root and bind mounts that follow are invisible to the
// parent.
func unshareMountNS() error {
	if err := unix.Unshare(unix.CLONE_NEWNS); err != nil {
		return jailerrors.NewUnshareNewNs(err)
	}
	return nil
}
