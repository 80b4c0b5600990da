package jail

import (
	"os"
	"path/filepath"
	"strconv"

	"jailer/jailerrors"
)

// pinNumaNode restricts the jailed process to a single NUMA node by
// writing its number to both cpuset.cpus and cpuset.mems in the cgroup
// directory setupCgroups already attached the process to. This overrides
// the broader range inherited from the parent cgroup.
func pinNumaNode(cpusetDir string, node int) error {
	value := strconv.Itoa(node)
	for _, name := range []string{"cpuset.cpus", "cpuset.mems"} {
		path := filepath.Join(cpusetDir, name)
		if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
			return jailerrors.NewWrite(path, err)
		}
	}
	return nil
}
