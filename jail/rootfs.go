package jail

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"jailer/jailerrors"
)

const oldRootDirName = "old_root"

// makeRootPrivate marks the new mount namespace's root propagation
// MS_PRIVATE so that the bind mount and pivot_root below, and anything
// the jailed binary mounts afterward, never propagate back to the
// parent mount namespace. This must operate on "/", not the chroot
// target: the chroot directory isn't a mount point yet at this point in
// activation, and a mount anywhere else in the tree would otherwise
// still be visible to the host.
func makeRootPrivate(root string) error {
	if err := unix.Mount("", root, "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
		return jailerrors.NewMountPropagationPrivate(err)
	}
	return nil
}

// bindMountSelf bind-mounts chrootDir onto itself, the standard trick that
// makes a directory a mount point so pivot_root accepts it as the new root.
func bindMountSelf(chrootDir string) error {
	if err := unix.Mount(chrootDir, chrootDir, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return jailerrors.NewMountBind(err)
	}
	return nil
}

// pivotRoot makes chrootDir the process's new root filesystem. Unlike a
// chroot-based jail, this leaves no path back to the old root visible
// anywhere in the mount tree. There is no chroot(2) fallback: if
// pivot_root fails the jail refuses to start, because a chroot-only jail
// leaves the host filesystem reachable via "..".
func pivotRoot(chrootDir string) error {
	oldRoot := filepath.Join(chrootDir, oldRootDirName)
	if err := os.Mkdir(oldRoot, 0o700); err != nil && !os.IsExist(err) {
		return jailerrors.NewMkdirOldRoot(err)
	}

	if err := unix.PivotRoot(chrootDir, oldRoot); err != nil {
		return jailerrors.NewPivotRoot(err)
	}

	if err := unix.Chdir("/"); err != nil {
		return jailerrors.NewChdirNewRoot(err)
	}

	oldRootAfterPivot := filepath.Join("/", oldRootDirName)
	if err := unix.Unmount(oldRootAfterPivot, unix.MNT_DETACH); err != nil {
		return jailerrors.NewUmountOldRoot(err)
	}

	if err := os.RemoveAll(oldRootAfterPivot); err != nil {
		return jailerrors.NewRmOldRootDir(err)
	}

	return nil
}
