package jail

import (
	"golang.org/x/sys/unix"

	"jailer/jailerrors"
)

const (
	devNetTunPath  = "/dev/net/tun"
	devNetTunMajor = 10
	devNetTunMinor = 200
)

// createDevNetTun creates the /dev/net/tun character device inside the
// jail (char devices aren't visible across a pivot_root unless the new
// root carries its own /dev) and chowns it to the target uid/gid so the
// unprivileged jailed process can still open it.
func createDevNetTun(uid, gid int) error {
	dev := int(unix.Mkdev(devNetTunMajor, devNetTunMinor))
	mode := uint32(unix.S_IFCHR | 0o600)
	if err := unix.Mknod(devNetTunPath, mode, dev); err != nil {
		return jailerrors.NewMknodDevNetTun(err)
	}
	if err := unix.Chown(devNetTunPath, uid, gid); err != nil {
		return jailerrors.NewChangeDevNetTunOwner(err)
	}
	return nil
}
