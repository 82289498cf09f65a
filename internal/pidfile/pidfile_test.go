package pidfile_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/studease/chatease-ws/internal/pidfile"
)

func TestCreateWritesPidAndRemoveCleansUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatease.pid")

	f, err := pidfile.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := fmt.Sprintf("%d\n", os.Getpid())
	if string(data) != want {
		t.Fatalf("pidfile contents = %q, want %q", data, want)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Fatal("expected trailing newline")
	}

	if err := f.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected pidfile to be gone after Remove")
	}

	// Second Remove must not error.
	if err := f.Remove(); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}
