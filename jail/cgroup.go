package jail

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"jailer/jailerrors"
)

// Controllers is the fixed set of cgroup v1 controllers a jail places its
// process under.
var Controllers = []string{"cpu", "cpuset", "pids"}

// procMountsPath is a var rather than a const so tests can point it at a
// fixture file instead of the real /proc/mounts.
var procMountsPath = "/proc/mounts"

// cgroupSubpath is the path segment created under each controller's
// mountpoint, mirroring the structure used for the chroot and socket
// paths: <mountpoint>/firecracker/<id>/.
func cgroupSubpath(id string) string {
	return filepath.Join("firecracker", id)
}

// resolveCgroupMount finds the single /proc/mounts line describing the
// cgroup v1 mount for controller and returns its mountpoint. Cgroup v1
// controllers can be comounted (e.g. "cpu,cpuacct"), so a match is any
// mount whose comma-separated option list contains controller exactly.
func resolveCgroupMount(controller string) (string, error) {
	f, err := os.Open(procMountsPath)
	if err != nil {
		return "", jailerrors.NewFileOpen(procMountsPath, err)
	}
	defer f.Close()

	var matches []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[2] != "cgroup" {
			continue
		}
		for _, opt := range strings.Split(fields[3], ",") {
			if opt == controller {
				matches = append(matches, fields[1])
				break
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", jailerrors.NewReadLine(procMountsPath, err)
	}

	switch len(matches) {
	case 0:
		return "", jailerrors.NewCgroupLineNotFound(controller, procMountsPath)
	case 1:
		return matches[0], nil
	default:
		return "", jailerrors.NewCgroupLineNotUnique(procMountsPath, controller)
	}
}

// inheritCgroupFile copies a single cgroup control file's value from the
// cgroup directory parentDir into the cgroup directory childDir. Used for
// cpuset.cpus and cpuset.mems, which a child cgroup must set explicitly
// before any task can be attached to it.
func inheritCgroupFile(parentDir, childDir, name string) error {
	parentPath := filepath.Join(parentDir, name)
	value, err := os.ReadFile(parentPath)
	if err != nil {
		return jailerrors.NewCgroupInheritFromParent(parentDir, name)
	}
	childPath := filepath.Join(childDir, name)
	if err := os.WriteFile(childPath, value, 0o644); err != nil {
		return jailerrors.NewWrite(childPath, err)
	}
	return nil
}

// setupCgroups creates firecracker/<id>/ under each of cpu, cpuset, and
// pids, inherits cpuset.cpus and cpuset.mems from the parent cgroup (a
// freshly created cpuset cgroup starts empty and refuses tasks until
// those are set; firecracker/ is filled from the mountpoint's root cgroup
// first, then firecracker/<id>/ from firecracker/), and attaches the calling process by writing its pid to
// each controller's tasks file. It returns the resolved cpuset cgroup
// directory so numa pinning can write to it afterward.
func setupCgroups(id string) (cpusetDir string, err error) {
	dirs := make(map[string]string, len(Controllers))
	for _, controller := range Controllers {
		mountpoint, err := resolveCgroupMount(controller)
		if err != nil {
			return "", err
		}
		dir := filepath.Join(mountpoint, cgroupSubpath(id))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", jailerrors.NewCreateDir(dir, err)
		}
		dirs[controller] = dir
	}

	cpusetMountpoint, err := resolveCgroupMount("cpuset")
	if err != nil {
		return "", err
	}
	cpusetDir = dirs["cpuset"]
	cpusetParent := filepath.Dir(cpusetDir)
	for _, name := range []string{"cpuset.cpus", "cpuset.mems"} {
		if err := inheritCgroupFile(cpusetMountpoint, cpusetParent, name); err != nil {
			return "", err
		}
		if err := inheritCgroupFile(cpusetParent, cpusetDir, name); err != nil {
			return "", err
		}
	}

	pid := strconv.Itoa(os.Getpid())
	for _, dir := range dirs {
		tasksPath := filepath.Join(dir, "tasks")
		if err := os.WriteFile(tasksPath, []byte(pid), 0o644); err != nil {
			return "", jailerrors.NewWrite(tasksPath, err)
		}
	}

	return cpusetDir, nil
}
