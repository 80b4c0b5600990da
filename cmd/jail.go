package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"jailer/jail"
	"jailer/logging"
	"jailer/policy"
	"jailer/seccomp"
)

var (
	jailID           string
	jailExecFile     string
	jailNode         int
	jailUID          int
	jailGID          int
	jailChrootBase   string
	jailNetNS        string
	jailDaemonize    bool
	jailSeccompLevel int
)

var jailCmd = &cobra.Command{
	Use:   "jail",
	Short: "Build and activate a jailed execution environment",
	Long: `jail builds the isolated environment for a microVM binary (fixed
file descriptors, a pivoted root filesystem, cgroup placement and NUMA
pinning) and then activates it, replacing this process with the target
binary inside the jail.`,
	RunE: runJail,
}

func init() {
	rootCmd.AddCommand(jailCmd)

	jailCmd.Flags().StringVar(&jailID, "id", "", "jail instance id (required)")
	jailCmd.Flags().StringVar(&jailExecFile, "exec-file", "", "path to the binary to jail (required)")
	jailCmd.Flags().IntVar(&jailNode, "node", -1, "NUMA node to pin the jail to (required)")
	jailCmd.Flags().IntVar(&jailUID, "uid", -1, "uid to run the jailed process as (required)")
	jailCmd.Flags().IntVar(&jailGID, "gid", -1, "gid to run the jailed process as (required)")
	jailCmd.Flags().StringVar(&jailChrootBase, "chroot-base-dir", jail.DefaultChrootBaseDir, "base directory for jail chroots")
	jailCmd.Flags().StringVar(&jailNetNS, "netns", "", "path to a network namespace to join before pivoting root")
	jailCmd.Flags().BoolVar(&jailDaemonize, "daemonize", false, "detach from the controlling terminal before exec'ing the jailed binary")
	jailCmd.Flags().IntVar(&jailSeccompLevel, "seccomp-level", 2, "seccomp filtering level: 0 (none), 1 (basic), 2 (advanced)")

	for _, required := range []string{"id", "exec-file", "node", "uid", "gid"} {
		_ = jailCmd.MarkFlagRequired(required)
	}
}

func runJail(cmd *cobra.Command, args []string) error {
	log := logging.WithPID(logging.WithJail(logging.Default(), jailID), unix.Getpid())

	spec := &jail.Spec{
		ID:            jailID,
		ExecFile:      jailExecFile,
		NumaNode:      jailNode,
		UID:           jailUID,
		GID:           jailGID,
		ChrootBaseDir: jailChrootBase,
		NetNS:         jailNetNS,
		Daemonize:     jailDaemonize,
		SeccompLevel:  seccomp.Level(jailSeccompLevel),
	}

	startTime := time.Now()
	startCPU := cpuTimeUs()

	pathLog := logging.WithPath(log, spec.ChrootDir())
	pathLog.Info("building jail environment")
	env, err := jail.BuildEnvironment(spec)
	if err != nil {
		pathLog.Error("failed to build jail environment", "error", err)
		return fmt.Errorf("jail: %w", err)
	}

	var seccompPolicy *policy.Policy
	if spec.SeccompLevel == seccomp.LevelAdvanced {
		var err error
		seccompPolicy, err = seccomp.DefaultAdvancedPolicy()
		if err != nil {
			return fmt.Errorf("jail: building seccomp policy: %w", err)
		}
	}

	log.Info("activating jail", "exec_file", spec.ExecFile)
	startTimeUs := startTime.UnixMicro()
	err = jail.Activate(env, startTimeUs, cpuTimeUs()-startCPU, seccompPolicy)
	log.Error("activation returned unexpectedly", "error", err)
	return fmt.Errorf("jail: activating: %w", err)
}

// cpuTimeUs returns this process's own CPU time (user+system) in
// microseconds, used to report how much CPU the jailer itself burned
// building the environment before handing off to the jailed binary.
func cpuTimeUs() int64 {
	var usage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &usage); err != nil {
		return 0
	}
	toUs := func(tv unix.Timeval) int64 {
		return int64(tv.Sec)*1_000_000 + int64(tv.Usec)
	}
	return toUs(usage.Utime) + toUs(usage.Stime)
}
