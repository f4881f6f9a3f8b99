package gateway

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/bus"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/feed"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/store"
)

type fakeRecordStore struct {
	listExperiencesFn  func(context.Context) ([]store.Experience, error)
	createExperienceFn func(context.Context, store.Experience) (store.Experience, error)
	insertResumeFn     func(context.Context, store.ResumeFile) (store.ResumeFile, error)
	getResumeFn        func(context.Context, string) (store.ResumeFile, error)
	getActiveResumeFn  func(context.Context) (*store.ResumeFile, error)
	getThemeFn         func(context.Context, string) (string, error)
	upsertAboutFn      func(context.Context, string) (store.About, error)
	getAboutFn         func(context.Context) (*store.About, error)
	deactivateCalls    int
	deactivatedUser    string
	insertedResumes    []store.ResumeFile
	deletedResumeIDs   []string
}

func (f *fakeRecordStore) Ping(context.Context) error { return nil }

func (f *fakeRecordStore) ListExperiences(ctx context.Context) ([]store.Experience, error) {
	if f.listExperiencesFn != nil {
		return f.listExperiencesFn(ctx)
	}
	return nil, nil
}
func (f *fakeRecordStore) CreateExperience(ctx context.Context, item store.Experience) (store.Experience, error) {
	if f.createExperienceFn != nil {
		return f.createExperienceFn(ctx, item)
	}
	item.ID = "exp-1"
	return item, nil
}
func (f *fakeRecordStore) UpdateExperience(_ context.Context, id string, item store.Experience) (store.Experience, error) {
	item.ID = id
	return item, nil
}
func (f *fakeRecordStore) DeleteExperience(context.Context, string) error { return nil }

func (f *fakeRecordStore) ListSkills(context.Context) ([]store.Skill, error) { return nil, nil }
func (f *fakeRecordStore) CreateSkill(_ context.Context, item store.Skill) (store.Skill, error) {
	item.ID = "skill-1"
	return item, nil
}
func (f *fakeRecordStore) UpdateSkill(_ context.Context, id string, item store.Skill) (store.Skill, error) {
	item.ID = id
	return item, nil
}
func (f *fakeRecordStore) DeleteSkill(context.Context, string) error { return nil }

func (f *fakeRecordStore) ListProjects(context.Context) ([]store.Project, error) { return nil, nil }
func (f *fakeRecordStore) CreateProject(_ context.Context, item store.Project) (store.Project, error) {
	item.ID = "project-1"
	return item, nil
}
func (f *fakeRecordStore) UpdateProject(_ context.Context, id string, item store.Project) (store.Project, error) {
	item.ID = id
	return item, nil
}
func (f *fakeRecordStore) DeleteProject(context.Context, string) error { return nil }

func (f *fakeRecordStore) ListCompetitions(context.Context) ([]store.Competition, error) {
	return nil, nil
}
func (f *fakeRecordStore) CreateCompetition(_ context.Context, item store.Competition) (store.Competition, error) {
	item.ID = "comp-1"
	return item, nil
}
func (f *fakeRecordStore) UpdateCompetition(_ context.Context, id string, item store.Competition) (store.Competition, error) {
	item.ID = id
	return item, nil
}
func (f *fakeRecordStore) DeleteCompetition(context.Context, string) error { return nil }

func (f *fakeRecordStore) GetAbout(ctx context.Context) (*store.About, error) {
	if f.getAboutFn != nil {
		return f.getAboutFn(ctx)
	}
	return nil, nil
}
func (f *fakeRecordStore) UpsertAbout(ctx context.Context, content string) (store.About, error) {
	if f.upsertAboutFn != nil {
		return f.upsertAboutFn(ctx, content)
	}
	return store.About{ID: "about-1", Content: content}, nil
}

func (f *fakeRecordStore) ListResumeFiles(context.Context) ([]store.ResumeFile, error) {
	return f.insertedResumes, nil
}
func (f *fakeRecordStore) GetResumeFile(ctx context.Context, id string) (store.ResumeFile, error) {
	if f.getResumeFn != nil {
		return f.getResumeFn(ctx, id)
	}
	return store.ResumeFile{}, errors.New("not found")
}
func (f *fakeRecordStore) GetActiveResume(ctx context.Context) (*store.ResumeFile, error) {
	if f.getActiveResumeFn != nil {
		return f.getActiveResumeFn(ctx)
	}
	for i := len(f.insertedResumes) - 1; i >= 0; i-- {
		if f.insertedResumes[i].IsActive {
			return &f.insertedResumes[i], nil
		}
	}
	return nil, nil
}
func (f *fakeRecordStore) DeactivateResumes(_ context.Context, userID string) error {
	f.deactivateCalls++
	f.deactivatedUser = userID
	for i := range f.insertedResumes {
		if f.insertedResumes[i].UserID == userID {
			f.insertedResumes[i].IsActive = false
		}
	}
	return nil
}
func (f *fakeRecordStore) InsertResumeFile(ctx context.Context, item store.ResumeFile) (store.ResumeFile, error) {
	if f.insertResumeFn != nil {
		return f.insertResumeFn(ctx, item)
	}
	item.ID = "resume-id"
	f.insertedResumes = append(f.insertedResumes, item)
	return item, nil
}
func (f *fakeRecordStore) DeleteResumeFile(_ context.Context, id string) error {
	f.deletedResumeIDs = append(f.deletedResumeIDs, id)
	return nil
}

func (f *fakeRecordStore) GetThemePreference(ctx context.Context, userSession string) (string, error) {
	if f.getThemeFn != nil {
		return f.getThemeFn(ctx, userSession)
	}
	return "", nil
}
func (f *fakeRecordStore) SaveThemePreference(context.Context, string, string) error { return nil }

type fakeBlob struct {
	putCalls    int
	removeCalls int
	removedKeys []string
	putErr      error
	lastKey     string
}

func (f *fakeBlob) Put(_ context.Context, key string, _ io.Reader, _ int64, _ string) error {
	f.putCalls++
	f.lastKey = key
	return f.putErr
}
func (f *fakeBlob) Remove(_ context.Context, key string) error {
	f.removeCalls++
	f.removedKeys = append(f.removedKeys, key)
	return nil
}
func (f *fakeBlob) PublicURL(key string) string {
	return "https://files.example.com/resumes/" + key
}
func (f *fakeBlob) Reachable(context.Context) bool { return true }

type fakeGate struct {
	userID string
	err    error
}

func (f *fakeGate) RemoteUserID(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.userID, nil
}

func newTestGateway(rs *fakeRecordStore, fb *fakeBlob, gate *fakeGate) (*Gateway, *feed.MemoryFeed, *bus.Bus) {
	changeFeed := feed.NewMemoryFeed()
	events := bus.New()
	return New(rs, fb, gate, changeFeed, events), changeFeed, events
}

func TestReadPathDegradesToEmpty(t *testing.T) {
	rs := &fakeRecordStore{
		listExperiencesFn: func(context.Context) ([]store.Experience, error) {
			return nil, errors.New("connection refused")
		},
	}
	g, _, _ := newTestGateway(rs, &fakeBlob{}, &fakeGate{userID: "user-1"})

	items := g.Experiences(context.Background())
	if items == nil {
		t.Fatal("expected empty slice, not nil")
	}
	if len(items) != 0 {
		t.Fatalf("expected empty result on read failure, got %d items", len(items))
	}
}

func TestWritePublishesFeedAndBus(t *testing.T) {
	rs := &fakeRecordStore{}
	g, changeFeed, events := newTestGateway(rs, &fakeBlob{}, &fakeGate{userID: "user-1"})

	var feedEvents []feed.Event
	sub, err := changeFeed.Subscribe(feed.Experiences, func(e feed.Event) { feedEvents = append(feedEvents, e) })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	var broadcasts int
	events.Subscribe(bus.DataUpdated, func() { broadcasts++ })

	created, err := g.CreateExperience(context.Background(), store.Experience{Role: "Engineer"})
	if err != nil {
		t.Fatalf("CreateExperience failed: %v", err)
	}

	if len(feedEvents) != 1 || feedEvents[0].Kind != feed.Insert || feedEvents[0].RecordID != created.ID {
		t.Fatalf("expected insert event for %s, got %+v", created.ID, feedEvents)
	}
	if broadcasts != 1 {
		t.Fatalf("expected one dataUpdated broadcast, got %d", broadcasts)
	}
}

func TestUploadRejectsWrongMimeBeforeAnyNetworkCall(t *testing.T) {
	rs := &fakeRecordStore{}
	fb := &fakeBlob{}
	gate := &fakeGate{userID: "user-1"}
	g, _, _ := newTestGateway(rs, fb, gate)

	_, err := g.UploadResume(context.Background(), ResumeUpload{
		Filename: "headshot.png",
		MimeType: "image/png",
		Size:     1024,
		Content:  strings.NewReader("png-bytes"),
	})
	if !errors.Is(err, ErrUploadRejected) {
		t.Fatalf("expected ErrUploadRejected, got %v", err)
	}
	if fb.putCalls != 0 {
		t.Fatalf("blob contacted %d times for a rejected upload", fb.putCalls)
	}
	if rs.deactivateCalls != 0 || len(rs.insertedResumes) != 0 {
		t.Fatal("store contacted for a rejected upload")
	}
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	fb := &fakeBlob{}
	g, _, _ := newTestGateway(&fakeRecordStore{}, fb, &fakeGate{userID: "user-1"})

	_, err := g.UploadResume(context.Background(), ResumeUpload{
		Filename: "resume.pdf",
		MimeType: "application/pdf",
		Size:     6 * 1024 * 1024,
		Content:  strings.NewReader("pdf-bytes"),
	})
	if !errors.Is(err, ErrUploadRejected) {
		t.Fatalf("expected ErrUploadRejected, got %v", err)
	}
	if fb.putCalls != 0 {
		t.Fatal("blob contacted for an oversize upload")
	}
}

func TestUploadRequiresRemoteSession(t *testing.T) {
	fb := &fakeBlob{}
	g, _, _ := newTestGateway(&fakeRecordStore{}, fb, &fakeGate{err: errors.New("no session")})

	_, err := g.UploadResume(context.Background(), ResumeUpload{
		Filename: "resume.pdf",
		MimeType: "application/pdf",
		Size:     1024,
		Content:  strings.NewReader("pdf-bytes"),
	})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if fb.putCalls != 0 {
		t.Fatal("blob contacted without a remote session")
	}
}

func TestUploadDeactivatesPreviousActiveResume(t *testing.T) {
	rs := &fakeRecordStore{}
	g, _, _ := newTestGateway(rs, &fakeBlob{}, &fakeGate{userID: "user-1"})
	ctx := context.Background()

	upload := func(name string) store.ResumeFile {
		t.Helper()
		record, err := g.UploadResume(ctx, ResumeUpload{
			Filename: name,
			MimeType: "application/pdf",
			Size:     1024,
			Content:  strings.NewReader("pdf-bytes"),
		})
		if err != nil {
			t.Fatalf("UploadResume(%s) failed: %v", name, err)
		}
		return record
	}

	upload("first.pdf")
	second := upload("second.pdf")

	if rs.deactivatedUser != "user-1" {
		t.Fatalf("expected deactivation for user-1, got %q", rs.deactivatedUser)
	}

	var active []store.ResumeFile
	for _, item := range g.ResumeFiles(ctx) {
		if item.IsActive {
			active = append(active, item)
		}
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly one active resume, got %d", len(active))
	}
	if active[0].Filename != second.Filename {
		t.Fatalf("expected the most recent upload active, got %q", active[0].Filename)
	}
}

func TestUploadInsertFailureRemovesOrphanedBlob(t *testing.T) {
	rs := &fakeRecordStore{
		insertResumeFn: func(context.Context, store.ResumeFile) (store.ResumeFile, error) {
			return store.ResumeFile{}, errors.New("constraint violation")
		},
	}
	fb := &fakeBlob{}
	g, _, _ := newTestGateway(rs, fb, &fakeGate{userID: "user-1"})

	_, err := g.UploadResume(context.Background(), ResumeUpload{
		Filename: "resume.pdf",
		MimeType: "application/pdf",
		Size:     1024,
		Content:  strings.NewReader("pdf-bytes"),
	})
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
	if fb.removeCalls != 1 {
		t.Fatalf("expected one compensating blob removal, got %d", fb.removeCalls)
	}
	if fb.removedKeys[0] != fb.lastKey {
		t.Fatalf("expected the uploaded key removed, got %q", fb.removedKeys[0])
	}
}

func TestDeleteResumeVerifiesOwnership(t *testing.T) {
	rs := &fakeRecordStore{
		getResumeFn: func(context.Context, string) (store.ResumeFile, error) {
			return store.ResumeFile{
				ID:      "resume-1",
				UserID:  "someone-else",
				FileURL: "https://files.example.com/resumes/resume-123-abc.pdf",
			}, nil
		},
	}
	fb := &fakeBlob{}
	g, _, _ := newTestGateway(rs, fb, &fakeGate{userID: "user-1"})

	err := g.DeleteResume(context.Background(), "resume-1")
	if !errors.Is(err, ErrDeleteAccessDenied) {
		t.Fatalf("expected ErrDeleteAccessDenied, got %v", err)
	}
	if fb.removeCalls != 0 || len(rs.deletedResumeIDs) != 0 {
		t.Fatal("nothing must be deleted when ownership check fails")
	}
}

func TestDeleteResumeRemovesBlobAndRow(t *testing.T) {
	rs := &fakeRecordStore{
		getResumeFn: func(context.Context, string) (store.ResumeFile, error) {
			return store.ResumeFile{
				ID:      "resume-1",
				UserID:  "user-1",
				FileURL: "https://files.example.com/resumes/resume-123-abc.pdf",
			}, nil
		},
	}
	fb := &fakeBlob{}
	g, changeFeed, _ := newTestGateway(rs, fb, &fakeGate{userID: "user-1"})

	var feedEvents []feed.Event
	sub, _ := changeFeed.Subscribe(feed.Resumes, func(e feed.Event) { feedEvents = append(feedEvents, e) })
	defer sub.Unsubscribe()

	if err := g.DeleteResume(context.Background(), "resume-1"); err != nil {
		t.Fatalf("DeleteResume failed: %v", err)
	}
	if len(fb.removedKeys) != 1 || fb.removedKeys[0] != "resume-123-abc.pdf" {
		t.Fatalf("expected blob key extracted from URL, got %v", fb.removedKeys)
	}
	if len(rs.deletedResumeIDs) != 1 || rs.deletedResumeIDs[0] != "resume-1" {
		t.Fatalf("expected row deleted, got %v", rs.deletedResumeIDs)
	}
	if len(feedEvents) != 1 || feedEvents[0].Kind != feed.Delete {
		t.Fatalf("expected delete feed event, got %+v", feedEvents)
	}
}

func TestThemeDefaultsToLightOnFailure(t *testing.T) {
	rs := &fakeRecordStore{
		getThemeFn: func(context.Context, string) (string, error) {
			return "", errors.New("backend down")
		},
	}
	g, _, _ := newTestGateway(rs, &fakeBlob{}, &fakeGate{userID: "user-1"})

	if theme := g.Theme(context.Background(), "visitor-1"); theme != "light" {
		t.Fatalf("expected light fallback, got %q", theme)
	}
}

func TestUpdateAboutUpserts(t *testing.T) {
	var upserted string
	rs := &fakeRecordStore{
		upsertAboutFn: func(_ context.Context, content string) (store.About, error) {
			upserted = content
			return store.About{ID: "about-1", Content: content}, nil
		},
	}
	g, _, _ := newTestGateway(rs, &fakeBlob{}, &fakeGate{userID: "user-1"})

	item, err := g.UpdateAbout(context.Background(), "hello")
	if err != nil {
		t.Fatalf("UpdateAbout failed: %v", err)
	}
	if upserted != "hello" || item.Content != "hello" {
		t.Fatalf("expected upsert of content, got %q / %+v", upserted, item)
	}
}
