// Package broadcast supervises one outbound transcoding pipeline per
// connection: chunked media in from the client, ffmpeg in the middle, an
// RTMPS ingest endpoint on the far side.
package broadcast

import (
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kdrev/Studio/internal/domain"
)

// transcodeArgs is the fixed encoding profile: webm from stdin, re-encoded
// to H.264/AAC in flv at 2500k/30fps with a 2s keyframe interval. Nothing
// here is negotiated per session.
func transcodeArgs(ingestURL string) []string {
	return []string{
		"-f", "webm",
		"-i", "-",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-tune", "zerolatency",
		"-r", "30",
		"-g", "60",
		"-keyint_min", "30",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-profile:v", "main",
		"-b:v", "2500k",
		"-maxrate", "2500k",
		"-bufsize", "5000k",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-f", "flv",
		ingestURL,
	}
}

// chunkBuffer bounds how many chunks may queue for a transcoder that reads
// slower than the client sends. Everything past it is dropped.
const chunkBuffer = 64

// Session owns one transcoder process and the buffered channel feeding it.
// The media path is best-effort: a stalled or dead transcoder fills the OS
// pipe and then the buffer, and chunks beyond that are dropped, never
// blocking the caller.
type Session struct {
	connID domain.ConnID
	cmd    *exec.Cmd

	mu     sync.Mutex
	buf    chan []byte
	closed bool

	// closed by the stderr reader once it has drained the pipe; Wait must
	// not run before then.
	stderrDone chan struct{}
}

func newSession(id domain.ConnID, ffmpegPath string, args []string) (*Session, error) {
	cmd := exec.Command(ffmpegPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("transcoder stdin: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("transcoder stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start transcoder: %w", err)
	}

	s := &Session{
		connID:     id,
		cmd:        cmd,
		buf:        make(chan []byte, chunkBuffer),
		stderrDone: make(chan struct{}),
	}
	go s.feed(stdin)
	go func() {
		logStderr(id, stderr)
		close(s.stderrDone)
	}()
	return s, nil
}

// feed is the sole writer to the transcoder's stdin. Only this goroutine
// ever blocks on the pipe; a failed write marks the rest of the stream
// droppable. Closing the buffer closes stdin so the transcoder drains and
// exits on its own.
func (s *Session) feed(sink io.WriteCloser) {
	writable := true
	for chunk := range s.buf {
		if !writable {
			continue
		}
		if _, err := sink.Write(chunk); err != nil {
			writable = false
			log.Warn().Err(err).Str("module", "broadcast").Str("conn", string(s.connID)).Msg("sink write failed, dropping chunks")
		}
	}
	_ = sink.Close()
}

// Write queues one chunk without ever blocking. A full buffer or a closed
// session drops the chunk silently.
func (s *Session) Write(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.buf <- chunk:
	default:
	}
}

// closeSink signals end-of-input; the feeder drains the buffer, closes
// stdin and the transcoder exits on its own. Idempotent.
func (s *Session) closeSink() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.buf)
}

// kill hard-stops the process after the sink is closed; used on connection
// teardown where waiting for a drain makes no sense.
func (s *Session) kill() {
	s.closeSink()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

func logStderr(id domain.ConnID, r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			log.Debug().Str("module", "broadcast").Str("conn", string(id)).Str("ffmpeg", string(buf[:n])).Msg("transcoder stderr")
		}
		if err != nil {
			return
		}
	}
}
