// Package gateway is the narrow data access layer between the HTTP surface
// and the backing services. Writes notify the change feed and the broadcast
// bus; reads degrade to empty results so the public page never crashes on a
// backend hiccup.
package gateway

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/bus"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/feed"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/store"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrUploadRejected     = errors.New("upload rejected")
	ErrUploadFailed       = errors.New("upload failed")
	ErrDeleteAccessDenied = errors.New("access denied")
)

type recordStore interface {
	Ping(ctx context.Context) error

	ListExperiences(ctx context.Context) ([]store.Experience, error)
	CreateExperience(ctx context.Context, item store.Experience) (store.Experience, error)
	UpdateExperience(ctx context.Context, id string, item store.Experience) (store.Experience, error)
	DeleteExperience(ctx context.Context, id string) error

	ListSkills(ctx context.Context) ([]store.Skill, error)
	CreateSkill(ctx context.Context, item store.Skill) (store.Skill, error)
	UpdateSkill(ctx context.Context, id string, item store.Skill) (store.Skill, error)
	DeleteSkill(ctx context.Context, id string) error

	ListProjects(ctx context.Context) ([]store.Project, error)
	CreateProject(ctx context.Context, item store.Project) (store.Project, error)
	UpdateProject(ctx context.Context, id string, item store.Project) (store.Project, error)
	DeleteProject(ctx context.Context, id string) error

	ListCompetitions(ctx context.Context) ([]store.Competition, error)
	CreateCompetition(ctx context.Context, item store.Competition) (store.Competition, error)
	UpdateCompetition(ctx context.Context, id string, item store.Competition) (store.Competition, error)
	DeleteCompetition(ctx context.Context, id string) error

	GetAbout(ctx context.Context) (*store.About, error)
	UpsertAbout(ctx context.Context, content string) (store.About, error)

	ListResumeFiles(ctx context.Context) ([]store.ResumeFile, error)
	GetResumeFile(ctx context.Context, id string) (store.ResumeFile, error)
	GetActiveResume(ctx context.Context) (*store.ResumeFile, error)
	DeactivateResumes(ctx context.Context, userID string) error
	InsertResumeFile(ctx context.Context, item store.ResumeFile) (store.ResumeFile, error)
	DeleteResumeFile(ctx context.Context, id string) error

	GetThemePreference(ctx context.Context, userSession string) (string, error)
	SaveThemePreference(ctx context.Context, userSession, theme string) error
}

type blobStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
	Reachable(ctx context.Context) bool
}

// AuthGate supplies the id of the currently signed-in remote user, or an
// error when no active remote session exists. Resume operations are the only
// callers; content CRUD is gated at the HTTP layer.
type AuthGate interface {
	RemoteUserID(ctx context.Context) (string, error)
}

type Gateway struct {
	store  recordStore
	blob   blobStore
	gate   AuthGate
	feed   feed.Feed
	events *bus.Bus
}

func New(recordStore recordStore, blobStore blobStore, gate AuthGate, changeFeed feed.Feed, events *bus.Bus) *Gateway {
	return &Gateway{store: recordStore, blob: blobStore, gate: gate, feed: changeFeed, events: events}
}

func (g *Gateway) Ping(ctx context.Context) error {
	return g.store.Ping(ctx)
}

func (g *Gateway) StorageReachable(ctx context.Context) bool {
	return g.blob.Reachable(ctx)
}

// Experiences

func (g *Gateway) Experiences(ctx context.Context) []store.Experience {
	items, err := g.store.ListExperiences(ctx)
	if err != nil {
		log.Printf("gateway: list experiences failed, serving empty: %v", err)
		return []store.Experience{}
	}
	if items == nil {
		items = []store.Experience{}
	}
	return items
}

func (g *Gateway) CreateExperience(ctx context.Context, item store.Experience) (store.Experience, error) {
	created, err := g.store.CreateExperience(ctx, item)
	if err != nil {
		return store.Experience{}, err
	}
	g.notify(ctx, feed.Experiences, feed.Insert, created.ID, bus.DataUpdated)
	return created, nil
}

func (g *Gateway) UpdateExperience(ctx context.Context, id string, item store.Experience) (store.Experience, error) {
	updated, err := g.store.UpdateExperience(ctx, id, item)
	if err != nil {
		return store.Experience{}, err
	}
	g.notify(ctx, feed.Experiences, feed.Update, id, bus.DataUpdated)
	return updated, nil
}

func (g *Gateway) DeleteExperience(ctx context.Context, id string) error {
	if err := g.store.DeleteExperience(ctx, id); err != nil {
		return err
	}
	g.notify(ctx, feed.Experiences, feed.Delete, id, bus.DataUpdated)
	return nil
}

// Skills

func (g *Gateway) Skills(ctx context.Context) []store.Skill {
	items, err := g.store.ListSkills(ctx)
	if err != nil {
		log.Printf("gateway: list skills failed, serving empty: %v", err)
		return []store.Skill{}
	}
	if items == nil {
		items = []store.Skill{}
	}
	return items
}

func (g *Gateway) CreateSkill(ctx context.Context, item store.Skill) (store.Skill, error) {
	created, err := g.store.CreateSkill(ctx, item)
	if err != nil {
		return store.Skill{}, err
	}
	g.notify(ctx, feed.Skills, feed.Insert, created.ID, bus.DataUpdated)
	return created, nil
}

func (g *Gateway) UpdateSkill(ctx context.Context, id string, item store.Skill) (store.Skill, error) {
	updated, err := g.store.UpdateSkill(ctx, id, item)
	if err != nil {
		return store.Skill{}, err
	}
	g.notify(ctx, feed.Skills, feed.Update, id, bus.DataUpdated)
	return updated, nil
}

func (g *Gateway) DeleteSkill(ctx context.Context, id string) error {
	if err := g.store.DeleteSkill(ctx, id); err != nil {
		return err
	}
	g.notify(ctx, feed.Skills, feed.Delete, id, bus.DataUpdated)
	return nil
}

// Projects

func (g *Gateway) Projects(ctx context.Context) []store.Project {
	items, err := g.store.ListProjects(ctx)
	if err != nil {
		log.Printf("gateway: list projects failed, serving empty: %v", err)
		return []store.Project{}
	}
	if items == nil {
		items = []store.Project{}
	}
	return items
}

func (g *Gateway) CreateProject(ctx context.Context, item store.Project) (store.Project, error) {
	created, err := g.store.CreateProject(ctx, item)
	if err != nil {
		return store.Project{}, err
	}
	g.notify(ctx, feed.Projects, feed.Insert, created.ID, bus.DataUpdated)
	return created, nil
}

func (g *Gateway) UpdateProject(ctx context.Context, id string, item store.Project) (store.Project, error) {
	updated, err := g.store.UpdateProject(ctx, id, item)
	if err != nil {
		return store.Project{}, err
	}
	g.notify(ctx, feed.Projects, feed.Update, id, bus.DataUpdated)
	return updated, nil
}

func (g *Gateway) DeleteProject(ctx context.Context, id string) error {
	if err := g.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	g.notify(ctx, feed.Projects, feed.Delete, id, bus.DataUpdated)
	return nil
}

// Competitions

func (g *Gateway) Competitions(ctx context.Context) []store.Competition {
	items, err := g.store.ListCompetitions(ctx)
	if err != nil {
		log.Printf("gateway: list competitions failed, serving empty: %v", err)
		return []store.Competition{}
	}
	if items == nil {
		items = []store.Competition{}
	}
	return items
}

func (g *Gateway) CreateCompetition(ctx context.Context, item store.Competition) (store.Competition, error) {
	created, err := g.store.CreateCompetition(ctx, item)
	if err != nil {
		return store.Competition{}, err
	}
	g.notify(ctx, feed.Competitions, feed.Insert, created.ID, bus.DataUpdated)
	return created, nil
}

func (g *Gateway) UpdateCompetition(ctx context.Context, id string, item store.Competition) (store.Competition, error) {
	updated, err := g.store.UpdateCompetition(ctx, id, item)
	if err != nil {
		return store.Competition{}, err
	}
	g.notify(ctx, feed.Competitions, feed.Update, id, bus.DataUpdated)
	return updated, nil
}

func (g *Gateway) DeleteCompetition(ctx context.Context, id string) error {
	if err := g.store.DeleteCompetition(ctx, id); err != nil {
		return err
	}
	g.notify(ctx, feed.Competitions, feed.Delete, id, bus.DataUpdated)
	return nil
}

// About

func (g *Gateway) About(ctx context.Context) *store.About {
	item, err := g.store.GetAbout(ctx)
	if err != nil {
		log.Printf("gateway: get about failed, serving none: %v", err)
		return nil
	}
	return item
}

func (g *Gateway) UpdateAbout(ctx context.Context, content string) (store.About, error) {
	item, err := g.store.UpsertAbout(ctx, content)
	if err != nil {
		return store.About{}, err
	}
	g.notify(ctx, feed.About, feed.Update, item.ID, bus.DataUpdated)
	return item, nil
}

// Theme preferences

func (g *Gateway) Theme(ctx context.Context, userSession string) string {
	theme, err := g.store.GetThemePreference(ctx, userSession)
	if err != nil {
		log.Printf("gateway: get theme failed, defaulting to light: %v", err)
		return "light"
	}
	if theme == "" {
		return "light"
	}
	return theme
}

func (g *Gateway) SaveTheme(ctx context.Context, userSession, theme string) error {
	if err := g.store.SaveThemePreference(ctx, userSession, theme); err != nil {
		return err
	}
	g.notify(ctx, feed.Themes, feed.Update, userSession, "")
	return nil
}

// notify publishes the change event and, when a topic is given, the
// broadcast. Feed errors are logged only: a missed invalidation means a
// briefly stale view, never a failed write.
func (g *Gateway) notify(ctx context.Context, collection string, kind feed.Kind, recordID string, topic bus.Topic) {
	if err := g.feed.Publish(ctx, feed.Event{Collection: collection, Kind: kind, RecordID: recordID}); err != nil {
		log.Printf("gateway: publish change event for %s failed: %v", collection, err)
	}
	if topic != "" {
		g.events.Publish(topic)
	}
}
