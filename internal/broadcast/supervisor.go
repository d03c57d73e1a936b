package broadcast

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kdrev/Studio/internal/core"
	"github.com/kdrev/Studio/internal/domain"
)

type Config struct {
	FFmpegPath string
	// IngestURL is the ingest endpoint template with one %s for the
	// stream key.
	IngestURL string
}

// Ingest keys are opaque tokens; the check only front-loads the obvious
// garbage before a doomed transcoder gets spawned.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,}$`)

type startedEvent struct {
	Type string `json:"type"`
	OK   bool   `json:"ok"`
}

type stoppedEvent struct {
	Type string `json:"type"`
	OK   bool   `json:"ok"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Supervisor holds at most one broadcast session per connection. A dead
// transcoder is never left registered as active: the exit watcher removes
// it and reports the failure to the owning connection.
type Supervisor struct {
	cfg  Config
	sink core.EventSink

	mu       sync.Mutex
	sessions map[domain.ConnID]*Session
}

func NewSupervisor(cfg Config, sink core.EventSink) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		sink:     sink,
		sessions: make(map[domain.ConnID]*Session),
	}
}

// Start validates the key, spawns the transcoder and registers the session.
// The second Start without an intervening Stop fails with ErrStreamActive
// and leaves the running session untouched.
func (s *Supervisor) Start(id domain.ConnID, key string) error {
	if !keyPattern.MatchString(key) {
		return core.ErrInvalidStreamKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		return core.ErrStreamActive
	}

	sess, err := newSession(id, s.cfg.FFmpegPath, transcodeArgs(fmt.Sprintf(s.cfg.IngestURL, key)))
	if err != nil {
		return err
	}
	s.sessions[id] = sess
	log.Info().Str("module", "broadcast").Str("conn", string(id)).Msg("stream started")

	go s.watch(id, sess)
	s.sink.SendEvent(id, startedEvent{Type: "stream-started", OK: true})
	return nil
}

// Data forwards one media chunk, best-effort. No session, or a sink that
// went unwritable: the chunk is dropped without an error to the client.
func (s *Supervisor) Data(id domain.ConnID, chunk []byte) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.Write(chunk)
}

// Stop closes the sink so the transcoder drains and exits cleanly, and
// unregisters the session. Stopping without a session is a no-op with no
// event.
func (s *Supervisor) Stop(id domain.ConnID) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.closeSink()
	log.Info().Str("module", "broadcast").Str("conn", string(id)).Msg("stream stopped")
	s.sink.SendEvent(id, stoppedEvent{Type: "stream-stopped", OK: true})
}

// Close is the disconnect path: sink closed and process killed, no events.
func (s *Supervisor) Close(id domain.ConnID) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.kill()
		log.Info().Str("module", "broadcast").Str("conn", string(id)).Msg("stream closed on disconnect")
	}
}

// watch reaps the transcoder. If the session is still registered when the
// process exits, the exit was unexpected: report it and unregister.
func (s *Supervisor) watch(id domain.ConnID, sess *Session) {
	// Wait closes the pipes; the stderr reader must finish first.
	<-sess.stderrDone
	err := sess.cmd.Wait()

	s.mu.Lock()
	cur, ok := s.sessions[id]
	if ok && cur == sess {
		delete(s.sessions, id)
	} else {
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		// Stop or Close already took it out; a clean drain-and-exit.
		return
	}

	sess.closeSink()
	msg := "transcoder exited"
	if err != nil {
		msg = fmt.Sprintf("transcoder exited: %v", err)
	}
	log.Error().Err(err).Str("module", "broadcast").Str("conn", string(id)).Msg("transcoder exited while registered")
	s.sink.SendEvent(id, errorEvent{Type: "stream-error", Message: msg})
}
