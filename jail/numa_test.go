package jail

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPinNumaNodeWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	if err := pinNumaNode(dir, 2); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"cpuset.cpus", "cpuset.mems"} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "2" {
			t.Errorf("%s = %q, want %q", name, got, "2")
		}
	}
}
