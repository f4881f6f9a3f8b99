package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/bus"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/config"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/feed"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/gateway"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/session"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/store"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/view"
)

// Service ties the gateway, the session manager, and the reactive content
// views together behind one object the HTTP layer talks to.
type Service struct {
	cfg      config.Config
	gw       *gateway.Gateway
	sessions *session.Manager
	events   *bus.Bus

	experiences  *view.View[[]store.Experience]
	skills       *view.View[[]store.Skill]
	projects     *view.View[[]store.Project]
	competitions *view.View[[]store.Competition]
	about        *view.View[*store.About]
	resume       *view.View[*store.ResumeFile]
	views        view.Set

	// one admin write per collection at a time; duplicate submissions are
	// rejected instead of queued
	writeMu  sync.Mutex
	inFlight map[string]bool
}

func New(cfg config.Config, gw *gateway.Gateway, sessions *session.Manager, changeFeed feed.Feed, events *bus.Bus) *Service {
	s := &Service{
		cfg:      cfg,
		gw:       gw,
		sessions: sessions,
		events:   events,
		inFlight: map[string]bool{},
	}

	s.experiences = view.New(feed.Experiences, gw.Experiences, changeFeed, events, bus.DataUpdated)
	s.skills = view.New(feed.Skills, gw.Skills, changeFeed, events, bus.DataUpdated)
	s.projects = view.New(feed.Projects, gw.Projects, changeFeed, events, bus.DataUpdated)
	s.competitions = view.New(feed.Competitions, gw.Competitions, changeFeed, events, bus.DataUpdated)
	s.about = view.New(feed.About, gw.About, changeFeed, events, bus.DataUpdated)
	s.resume = view.New(feed.Resumes, gw.ActiveResume, changeFeed, events, bus.ResumeUpdated)

	return s
}

// Open mounts every content view: initial fetch plus feed and broadcast
// registrations.
func (s *Service) Open(ctx context.Context) error {
	type opener interface {
		Close()
	}
	for _, v := range []struct {
		name string
		open func(context.Context) error
		o    opener
	}{
		{feed.Experiences, s.experiences.Open, s.experiences},
		{feed.Skills, s.skills.Open, s.skills},
		{feed.Projects, s.projects.Open, s.projects},
		{feed.Competitions, s.competitions.Open, s.competitions},
		{feed.About, s.about.Open, s.about},
		{feed.Resumes, s.resume.Open, s.resume},
	} {
		if err := v.open(ctx); err != nil {
			s.views.Close()
			return fmt.Errorf("open %s view: %w", v.name, err)
		}
		s.views.Add(v.o)
	}
	return nil
}

// Close releases every view's subscriptions.
func (s *Service) Close() {
	s.views.Close()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.gw.Ping(ctx)
}

func (s *Service) StorageReachable(ctx context.Context) bool {
	return s.gw.StorageReachable(ctx)
}

func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// beginWrite marks a collection as having an admin write in flight. Returns
// false when one already is, which the HTTP layer maps to 409.
func (s *Service) beginWrite(collection string) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.inFlight[collection] {
		return false
	}
	s.inFlight[collection] = true
	return true
}

func (s *Service) endWrite(collection string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	delete(s.inFlight, collection)
}

// Public read surface, served from the reactive view snapshots.

func (s *Service) Experiences() []store.Experience   { return s.experiences.Snapshot() }
func (s *Service) Skills() []store.Skill             { return s.skills.Snapshot() }
func (s *Service) Projects() []store.Project         { return s.projects.Snapshot() }
func (s *Service) Competitions() []store.Competition { return s.competitions.Snapshot() }
func (s *Service) About() *store.About               { return s.about.Snapshot() }
func (s *Service) ActiveResume() *store.ResumeFile   { return s.resume.Snapshot() }

func (s *Service) Theme(ctx context.Context, visitor string) string {
	return s.gw.Theme(ctx, visitor)
}

func (s *Service) SaveTheme(ctx context.Context, visitor, theme string) error {
	return s.gw.SaveTheme(ctx, visitor, theme)
}

func (s *Service) Gateway() *gateway.Gateway {
	return s.gw
}
