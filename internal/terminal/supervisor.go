package terminal

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kdrev/Studio/internal/core"
	"github.com/kdrev/Studio/internal/domain"
)

type Config struct {
	Shell   string
	HomeDir string
}

// Supervisor holds at most one terminal session per connection and routes
// terminal-bound messages to it. Messages for a connection without a live
// session are dropped with a log line.
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

// Open spawns the shell for this connection. Opening twice is a no-op.
func (s *Supervisor) Open(id domain.ConnID) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	sess, err := openSession(s.cfg, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	log.Info().Str("module", "terminal").Str("conn", string(id)).Msg("terminal session opened")

	go func() {
		sess.pump(s.sink)
		s.reap(id, sess)
	}()
	return nil
}

func (s *Supervisor) SetDirectory(id domain.ConnID, dir string) {
	if sess, ok := s.get(id); ok {
		sess.SetDirectory(dir)
	}
}

func (s *Supervisor) Input(id domain.ConnID, data []byte) {
	sess, ok := s.get(id)
	if !ok {
		return
	}
	if err := sess.Input(data); err != nil {
		log.Warn().Err(err).Str("module", "terminal").Str("conn", string(id)).Msg("terminal input write")
	}
}

func (s *Supervisor) Resize(id domain.ConnID, cols, rows uint16) {
	sess, ok := s.get(id)
	if !ok {
		return
	}
	if err := sess.Resize(cols, rows); err != nil {
		log.Warn().Err(err).Str("module", "terminal").Str("conn", string(id)).Msg("terminal resize")
	}
}

// Close tears the connection's session down. Safe to call without a session
// and safe to call twice.
func (s *Supervisor) Close(id domain.ConnID) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.terminate()
		log.Info().Str("module", "terminal").Str("conn", string(id)).Msg("terminal session closed")
	}
}

func (s *Supervisor) get(id domain.ConnID) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		log.Debug().Str("module", "terminal").Str("conn", string(id)).Msg("no terminal session")
	}
	return sess, ok
}

// reap unregisters a session whose pump has finished, unless it was already
// replaced or removed.
func (s *Supervisor) reap(id domain.ConnID, sess *Session) {
	s.mu.Lock()
	if cur, ok := s.sessions[id]; ok && cur == sess {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
}
