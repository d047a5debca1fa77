package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"

	"annotate/internal/interfaces"
	"annotate/internal/models"
)

var errVideoNotFound = errorx.Wrap(errors.New("video not found"), errorx.NotExist)

type VideoURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ServiceVideo struct {
	container *do.Injector
	repo      interfaces.Repository
	store     interfaces.ObjectStore
	config    *Config
}

func NewServiceVideo(container *do.Injector) (*ServiceVideo, error) {
	repo, err := do.Invoke[interfaces.Repository](container)
	if err != nil {
		return nil, err
	}

	store, err := do.Invoke[interfaces.ObjectStore](container)
	if err != nil {
		return nil, err
	}

	config, err := do.Invoke[*Config](container)
	if err != nil {
		return nil, err
	}

	return &ServiceVideo{container, repo, store, config}, nil
}

func videoContentType(filename, contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "application/octet-stream" {
		mediaType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
		if i := strings.IndexByte(mediaType, ';'); i >= 0 {
			mediaType = mediaType[:i]
		}
	}
	if !strings.HasPrefix(mediaType, "video/") {
		return "", errorx.Wrap(errors.New("file must be a video"), errorx.Invalid)
	}
	return mediaType, nil
}

// UploadVideo streams r to the object store and swaps it in as the transcript video.
// The previous object is removed only after the new one is recorded.
func (service *ServiceVideo) UploadVideo(ctx context.Context, actor *models.User, transcriptID int64, filename string, contentType string, r io.Reader) (*models.Transcript, error) {
	transcript, err := requireAdminTranscript(ctx, service.repo, actor, transcriptID)
	if err != nil {
		return nil, err
	}

	contentType, err = videoContentType(filename, contentType)
	if err != nil {
		return nil, err
	}

	name := VideoObjectName(transcript.ID, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
	if _, err := service.store.Upload(ctx, name, contentType, r); err != nil {
		return nil, err
	}

	previous := transcript.VideoObject
	now := time.Now()
	transcript.VideoObject = &name
	transcript.VideoContentType = &contentType
	transcript.VideoUploadedAt = &now
	if err := service.repo.UpdateTranscriptVideo(ctx, transcript); err != nil {
		if derr := service.store.Delete(ctx, name); derr != nil {
			log.Printf("delete orphan video object %s: %v", name, derr)
		}
		return nil, err
	}

	if previous != nil && *previous != name {
		if err := service.store.Delete(ctx, *previous); err != nil {
			log.Printf("delete previous video object %s: %v", *previous, err)
		}
	}

	return decorate(transcript), nil
}

func (service *ServiceVideo) DeleteVideo(ctx context.Context, actor *models.User, transcriptID int64) error {
	transcript, err := requireAdminTranscript(ctx, service.repo, actor, transcriptID)
	if err != nil {
		return err
	}
	if transcript.VideoObject == nil {
		return errVideoNotFound
	}

	object := *transcript.VideoObject
	transcript.VideoObject = nil
	transcript.VideoContentType = nil
	transcript.VideoUploadedAt = nil
	if err := service.repo.UpdateTranscriptVideo(ctx, transcript); err != nil {
		return err
	}

	if err := service.store.Delete(ctx, object); err != nil {
		return fmt.Errorf("delete video object: %w", err)
	}
	return nil
}

func (service *ServiceVideo) VideoURL(ctx context.Context, actor *models.User, transcriptID int64) (*VideoURL, error) {
	transcript, _, err := readableTranscript(ctx, service.repo, actor, transcriptID)
	if err != nil {
		return nil, err
	}
	if transcript.VideoObject == nil {
		return nil, errVideoNotFound
	}

	ttl := service.config.VideoURLTTL
	url, err := service.store.SignedURL(ctx, *transcript.VideoObject, ttl)
	if err != nil {
		return nil, err
	}
	return &VideoURL{URL: url, ExpiresAt: time.Now().Add(ttl)}, nil
}
