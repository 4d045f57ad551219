package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/steveyiyo/imavoice/internal/metrics"
	"github.com/steveyiyo/imavoice/internal/repo/memory"
	"github.com/steveyiyo/imavoice/pkg/types"
)

var ErrSessionNotFound = errors.New("session: not found")

// Service creates sessions and runs one Orchestrator per attached stream.
type Service struct {
	Repo     *memory.SessionRepo
	Backend  Backend
	Defaults Options
	Metrics  *metrics.Metrics

	log  zerolog.Logger
	mu   sync.Mutex
	live map[string]*run
}

type run struct {
	cancel context.CancelFunc
}

func NewService(repo *memory.SessionRepo, backend Backend, defaults Options) *Service {
	return &Service{
		Repo:     repo,
		Backend:  backend,
		Defaults: defaults,
		Metrics:  defaults.Metrics,
		log:      defaults.Logger.With().Str("component", "sessions").Logger(),
		live:     map[string]*run{},
	}
}

func (s *Service) Create(locale string, music bool) *memory.Session {
	if locale == "" {
		locale = s.Defaults.Locale
	}
	sess := &memory.Session{
		ID:        "sess_" + uuid.NewString(),
		CreatedAt: time.Now(),
		Locale:    locale,
		Music:     music || s.Defaults.Music,
		Mode:      ModeIdle.String(),
		Emotion:   "default",
	}
	s.Repo.Save(sess)
	s.log.Info().Str("session", sess.ID).Str("locale", locale).Msg("session created")
	return sess
}

func (s *Service) Summary(id string) (types.SummaryResp, bool) {
	sess, ok := s.Repo.Get(id)
	if !ok {
		return types.SummaryResp{}, false
	}
	return types.SummaryResp{
		SessionID:  sess.ID,
		CreatedAt:  sess.CreatedAt.UnixMilli(),
		Locale:     sess.Locale,
		Connected:  sess.Connected,
		Mode:       sess.Mode,
		Emotion:    sess.Emotion,
		RetryCount: sess.RetryCount,
		Turns:      sess.Turns,
		Fallbacks:  sess.Fallbacks,
		Commands:   sess.Commands,
	}, true
}

// Start runs an Orchestrator for session id on p until ctx is done or the
// session is closed. A second Start for the same id replaces the first.
func (s *Service) Start(ctx context.Context, id string, p Platform) (*Orchestrator, error) {
	sess, ok := s.Repo.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}

	opts := s.Defaults
	opts.Locale = sess.Locale
	opts.Music = sess.Music
	opts.Logger = s.Defaults.Logger.With().Str("session", id).Logger()
	opts.OnChange = func(v View) {
		s.Repo.Update(id, func(rec *memory.Session) {
			rec.Mode = v.Mode.String()
			rec.Emotion = v.Emotion.String()
			rec.RetryCount = v.RetryCount
			rec.Turns = v.Turns
			rec.Fallbacks = v.Fallbacks
			rec.Commands = v.Commands
		})
	}
	o := New(p, s.Backend, opts)

	ctx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel}
	s.mu.Lock()
	if prev, ok := s.live[id]; ok {
		prev.cancel()
	}
	s.live[id] = r
	s.mu.Unlock()

	s.Repo.Update(id, func(rec *memory.Session) { rec.Connected = true })
	s.Metrics.SessionOpened()

	go func() {
		_ = o.Run(ctx)
		s.Metrics.SessionClosed()
		s.mu.Lock()
		current := false
		if s.live[id] == r {
			delete(s.live, id)
			current = true
		}
		s.mu.Unlock()
		if current {
			s.Repo.Update(id, func(rec *memory.Session) { rec.Connected = false })
		}
		cancel()
	}()
	return o, nil
}

// Close stops the running Orchestrator of id, if any, and forgets the session.
func (s *Service) Close(id string) bool {
	s.mu.Lock()
	if r, ok := s.live[id]; ok {
		r.cancel()
		delete(s.live, id)
	}
	s.mu.Unlock()
	ok := s.Repo.Delete(id)
	if ok {
		s.log.Info().Str("session", id).Msg("session closed")
	}
	return ok
}

// Shutdown stops every running Orchestrator.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.live {
		r.cancel()
		delete(s.live, id)
	}
}
