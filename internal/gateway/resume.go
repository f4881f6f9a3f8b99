package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/bus"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/feed"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/store"
)

const (
	resumeMimeType  = "application/pdf"
	maxResumeSize   = 5 * 1024 * 1024
	resumeKeyPrefix = "resume-"
)

type ResumeUpload struct {
	Filename string
	MimeType string
	Size     int64
	Content  io.Reader
}

func (g *Gateway) ResumeFiles(ctx context.Context) []store.ResumeFile {
	items, err := g.store.ListResumeFiles(ctx)
	if err != nil {
		log.Printf("gateway: list resume files failed, serving empty: %v", err)
		return []store.ResumeFile{}
	}
	if items == nil {
		items = []store.ResumeFile{}
	}
	return items
}

func (g *Gateway) ActiveResume(ctx context.Context) *store.ResumeFile {
	item, err := g.store.GetActiveResume(ctx)
	if err != nil {
		log.Printf("gateway: get active resume failed, serving none: %v", err)
		return nil
	}
	return item
}

// UploadResume validates the file before any network call, stores the blob,
// deactivates all previously active resumes for the user, then inserts the
// new active record. A failed insert triggers a best-effort removal of the
// just-uploaded blob so storage does not accumulate orphans.
func (g *Gateway) UploadResume(ctx context.Context, upload ResumeUpload) (store.ResumeFile, error) {
	if upload.MimeType != resumeMimeType {
		return store.ResumeFile{}, fmt.Errorf("%w: only PDF files are allowed", ErrUploadRejected)
	}
	if upload.Size > maxResumeSize {
		return store.ResumeFile{}, fmt.Errorf("%w: file size must be less than 5MB", ErrUploadRejected)
	}
	if upload.Size <= 0 {
		return store.ResumeFile{}, fmt.Errorf("%w: empty file", ErrUploadRejected)
	}

	userID, err := g.gate.RemoteUserID(ctx)
	if err != nil {
		return store.ResumeFile{}, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	key := newResumeKey()
	if err := g.blob.Put(ctx, key, upload.Content, upload.Size, resumeMimeType); err != nil {
		return store.ResumeFile{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	if err := g.store.DeactivateResumes(ctx, userID); err != nil {
		log.Printf("gateway: could not deactivate existing resumes: %v", err)
	}

	record, err := g.store.InsertResumeFile(ctx, store.ResumeFile{
		Filename: upload.Filename,
		FileURL:  g.blob.PublicURL(key),
		FileSize: upload.Size,
		MimeType: resumeMimeType,
		IsActive: true,
		UserID:   userID,
	})
	if err != nil {
		if removeErr := g.blob.Remove(ctx, key); removeErr != nil {
			log.Printf("gateway: could not clean up orphaned blob %s: %v", key, removeErr)
		}
		return store.ResumeFile{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	g.notify(ctx, feed.Resumes, feed.Insert, record.ID, bus.ResumeUpdated)
	return record, nil
}

// DeleteResume verifies the caller owns the record before removing the blob
// (best-effort) and the row.
func (g *Gateway) DeleteResume(ctx context.Context, id string) error {
	userID, err := g.gate.RemoteUserID(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	record, err := g.store.GetResumeFile(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: resume file not found", ErrDeleteAccessDenied)
	}
	if record.UserID != userID {
		return fmt.Errorf("%w: you can only delete your own resume files", ErrDeleteAccessDenied)
	}

	if key := resumeKeyFromURL(record.FileURL); key != "" {
		if err := g.blob.Remove(ctx, key); err != nil {
			log.Printf("gateway: could not delete blob %s: %v", key, err)
		}
	}

	if err := g.store.DeleteResumeFile(ctx, id); err != nil {
		return fmt.Errorf("delete resume record: %w", err)
	}

	g.notify(ctx, feed.Resumes, feed.Delete, id, bus.ResumeUpdated)
	return nil
}

func newResumeKey() string {
	return fmt.Sprintf("%s%d-%s.pdf", resumeKeyPrefix, time.Now().UnixMilli(), uuid.NewString()[:8])
}

func resumeKeyFromURL(fileURL string) string {
	idx := strings.LastIndex(fileURL, "/")
	if idx < 0 || idx == len(fileURL)-1 {
		return ""
	}
	key := fileURL[idx+1:]
	if !strings.HasPrefix(key, resumeKeyPrefix) {
		return ""
	}
	return key
}
