// Package jail builds and activates the isolated execution environment a
// jailed binary runs inside: a pivoted root filesystem, cgroup placement,
// NUMA pinning, fixed inherited file descriptors, dropped privileges, and
// a final exec.
package jail

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"jailer/jailerrors"
	"jailer/seccomp"
)

// instanceIDPattern matches a non-empty run of alphanumerics and hyphens
// that does not start with a hyphen.
var instanceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

const maxInstanceIDLen = 64

// Spec is the validated set of parameters a jail invocation is built from.
type Spec struct {
	ID            string
	ExecFile      string
	NumaNode      int
	UID           int
	GID           int
	ChrootBaseDir string
	NetNS         string
	Daemonize     bool
	SeccompLevel  seccomp.Level
}

// DefaultChrootBaseDir is used when a Spec doesn't set ChrootBaseDir.
const DefaultChrootBaseDir = "/srv/jailer"

// Validate checks every field of the spec and normalizes ChrootBaseDir to
// its default when empty.
func (s *Spec) Validate() error {
	if s.ID == "" {
		return jailerrors.NewMissingArgument("id")
	}
	if len(s.ID) > maxInstanceIDLen || !instanceIDPattern.MatchString(s.ID) {
		return jailerrors.NewInvalidInstanceID(jailerrors.ErrInvalidInstanceID)
	}
	if s.ExecFile == "" {
		return jailerrors.NewMissingArgument("exec-file")
	}
	if !filepath.IsAbs(s.ExecFile) {
		abs, err := filepath.Abs(s.ExecFile)
		if err != nil {
			return jailerrors.NewCanonicalize(s.ExecFile, err)
		}
		s.ExecFile = abs
	}
	info, err := os.Stat(s.ExecFile)
	if err != nil {
		return jailerrors.NewFileOpen(s.ExecFile, err)
	}
	if !info.Mode().IsRegular() {
		return jailerrors.NewNotAFile(s.ExecFile)
	}
	if s.NumaNode < 0 {
		return jailerrors.NewNumaNode(strconv.Itoa(s.NumaNode))
	}
	if s.UID < 0 {
		return jailerrors.NewUid(strconv.Itoa(s.UID))
	}
	if s.GID < 0 {
		return jailerrors.NewGid(strconv.Itoa(s.GID))
	}
	if s.SeccompLevel < seccomp.LevelNone || s.SeccompLevel > seccomp.LevelAdvanced {
		return jailerrors.NewSeccompLevel(jailerrors.ErrInvalidSeccompLevel)
	}
	if s.ChrootBaseDir == "" {
		s.ChrootBaseDir = DefaultChrootBaseDir
	}
	return nil
}

// ChrootDir computes <base>/<exec-file-basename>/<id>/root.
func (s *Spec) ChrootDir() string {
	return filepath.Join(s.ChrootBaseDir, filepath.Base(s.ExecFile), s.ID, "root")
}

// SocketPath computes <base>/<exec-file-basename>/<id>/api.socket, the
// listener's path, a sibling of the chroot directory (not inside it).
func (s *Spec) SocketPath() string {
	return filepath.Join(s.ChrootBaseDir, filepath.Base(s.ExecFile), s.ID, "api.socket")
}
