// Package terminal supervises one interactive shell session per connection,
// hosted in a pseudo-terminal and bridged to the owning connection as raw
// byte events.
package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/creack/pty"

	"github.com/kdrev/Studio/internal/core"
	"github.com/kdrev/Studio/internal/domain"
)

const (
	defaultCols = 80
	defaultRows = 30
)

type outputEvent struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Session owns one shell process behind a pty plus the advisory tracked
// directory. The tracking mirrors shell `cd` side effects; it does not
// sandbox anything.
type Session struct {
	connID domain.ConnID
	cmd    *exec.Cmd
	ptmx   *os.File

	mu     sync.Mutex
	dir    string
	closed bool
}

func openSession(cfg Config, id domain.ConnID) (*Session, error) {
	shell := cfg.Shell
	if shell == "" {
		shell = "bash"
	}
	home := cfg.HomeDir
	if home == "" {
		home = os.Getenv("HOME")
	}

	cmd := exec.Command(shell)
	cmd.Dir = home
	cmd.Env = append(os.Environ(), "TERM=xterm-color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: defaultRows, Cols: defaultCols})
	if err != nil {
		return nil, fmt.Errorf("start shell: %w", err)
	}

	return &Session{connID: id, cmd: cmd, ptmx: ptmx, dir: home}, nil
}

// pump forwards pty output to the connection until the pty is gone, either
// because we closed it or because the shell exited on its own.
func (s *Session) pump(sink core.EventSink) {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			sink.SendEvent(s.connID, outputEvent{Type: "output", Data: string(buf[:n])})
		}
		if err != nil {
			break
		}
	}
	if !s.isClosed() {
		// The shell died underneath us.
		sink.SendEvent(s.connID, errorEvent{Type: "terminal-error", Message: "terminal session ended"})
		s.terminate()
	}
	_ = s.cmd.Wait()
}

// SetDirectory resolves the requested directory against the tracked one,
// validates it, and drives the shell there. An invalid path produces a
// visible error line in the terminal instead of failing silently.
func (s *Session) SetDirectory(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	target := resolveDir(s.dir, dir)
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(s.ptmx, "echo \"Error: Directory %s not found\"\r", dir)
		return
	}
	s.dir = target
	fmt.Fprintf(s.ptmx, "cd %q && clear\r", target)
}

func resolveDir(current, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(current, dir)
}

// Input writes keystrokes verbatim. The write blocks under pty backpressure;
// interactive input is never dropped.
func (s *Session) Input(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrSessionClosed
	}
	_, err := s.ptmx.Write(data)
	return err
}

func (s *Session) Resize(cols, rows uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrSessionClosed
	}
	return pty.Setsize(s.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

// terminate is idempotent and tolerates an already-exited shell.
func (s *Session) terminate() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.ptmx.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
