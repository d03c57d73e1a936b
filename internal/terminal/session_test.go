package terminal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdrev/Studio/internal/domain"
)

func TestResolveDir(t *testing.T) {
	assert.Equal(t, "/var/log", resolveDir("/home/me", "/var/log"))
	assert.Equal(t, "/home/me/work", resolveDir("/home/me", "work"))
	assert.Equal(t, "/home", resolveDir("/home/me", ".."))
	assert.Equal(t, "/home/me", resolveDir("/home/me", "."))
}

type fakeSink struct {
	mu     sync.Mutex
	output strings.Builder
	errors []string
}

func (s *fakeSink) SendEvent(id domain.ConnID, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e := v.(type) {
	case outputEvent:
		s.output.WriteString(e.Data)
	case errorEvent:
		s.errors = append(s.errors, e.Message)
	}
}

func (s *fakeSink) contains(sub string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Contains(s.output.String(), sub)
}

func (s *fakeSink) errorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errors)
}

// newShellSupervisor opens a real /bin/sh session behind a pty. Skips on
// environments without pty support.
func newShellSupervisor(t *testing.T) (*Supervisor, *fakeSink, domain.ConnID) {
	t.Helper()
	sink := &fakeSink{}
	sup := NewSupervisor(Config{Shell: "/bin/sh", HomeDir: t.TempDir()}, sink)

	id := domain.ConnID("conn-term")
	if err := sup.Open(id); err != nil {
		t.Skipf("cannot open pty session: %v", err)
	}
	t.Cleanup(func() { sup.Close(id) })
	return sup, sink, id
}

func TestInputEchoesThroughPty(t *testing.T) {
	sup, sink, id := newShellSupervisor(t)

	sup.Input(id, []byte("echo terminal_ro_undtrip\r"))
	require.Eventually(t, func() bool { return sink.contains("terminal_ro_undtrip") },
		5*time.Second, 20*time.Millisecond)
}

func TestSetDirectoryRejectsMissingPath(t *testing.T) {
	sup, sink, id := newShellSupervisor(t)

	sup.SetDirectory(id, "definitely-not-a-dir")
	require.Eventually(t, func() bool { return sink.contains("Error: Directory definitely-not-a-dir not found") },
		5*time.Second, 20*time.Millisecond)
}

func TestSetDirectoryChangesShellCwd(t *testing.T) {
	sup, sink, id := newShellSupervisor(t)

	dir := t.TempDir()
	sup.SetDirectory(id, dir)
	sup.Input(id, []byte("pwd\r"))
	require.Eventually(t, func() bool { return sink.contains(dir) },
		5*time.Second, 20*time.Millisecond)
}

func TestSetDirectoryTracksRelativePaths(t *testing.T) {
	sup, sink, id := newShellSupervisor(t)

	base := t.TempDir()
	nested := filepath.Join(base, "nested")
	require.NoError(t, os.Mkdir(nested, 0o755))

	sup.SetDirectory(id, base)
	sup.SetDirectory(id, "nested")
	sup.Input(id, []byte(fmt.Sprintf("test \"$PWD\" = %q && echo nested_ok_marker\r", nested)))
	require.Eventually(t, func() bool { return sink.contains("nested_ok_marker") },
		5*time.Second, 20*time.Millisecond)
}

func TestResize(t *testing.T) {
	sup, sink, id := newShellSupervisor(t)

	sup.Resize(id, 132, 43)
	sup.Input(id, []byte("stty size\r"))
	require.Eventually(t, func() bool { return sink.contains("43 132") },
		5*time.Second, 20*time.Millisecond)
}

func TestOpenIsIdempotent(t *testing.T) {
	sup, _, id := newShellSupervisor(t)

	require.NoError(t, sup.Open(id))
	sup.mu.Lock()
	n := len(sup.sessions)
	sup.mu.Unlock()
	assert.Equal(t, 1, n)
}

func TestCloseIsQuietAndIdempotent(t *testing.T) {
	sup, sink, id := newShellSupervisor(t)

	sup.Close(id)
	sup.Close(id)

	// A deliberate teardown must not be reported as a crashed shell.
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, sink.errorCount())

	require.NotPanics(t, func() {
		sup.Input(id, []byte("ignored\r"))
		sup.Resize(id, 80, 24)
		sup.SetDirectory(id, "/")
	})
}

func TestShellExitReportsError(t *testing.T) {
	sup, sink, id := newShellSupervisor(t)

	sup.Input(id, []byte("exit\r"))
	require.Eventually(t, func() bool { return sink.errorCount() == 1 },
		5*time.Second, 20*time.Millisecond)

	sup.mu.Lock()
	_, registered := sup.sessions[id]
	sup.mu.Unlock()
	assert.False(t, registered, "a dead session must be reaped")
}
