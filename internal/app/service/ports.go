package service

import (
	"context"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
)

// Clock returns the current instant. Services normalize it to UTC.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

func (c Clock) now() time.Time {
	if c == nil {
		return SystemClock()
	}
	return c().UTC()
}

// SummaryCache stores computed dashboard summaries per workspace.
type SummaryCache interface {
	Get(ctx context.Context, workspaceID uint, dest interface{}) (bool, error)
	Set(ctx context.Context, workspaceID uint, value interface{}) error
	Invalidate(ctx context.Context, workspaceID uint) error
}

// EventPublisher fans report events out to a workspace's live clients.
type EventPublisher interface {
	Publish(event model.ReportEvent)
}

// ArtifactStorage holds rendered report documents behind signed URLs.
type ArtifactStorage interface {
	PresignUpload(ctx context.Context, key, contentType string) (url string, expiresAt time.Time, err error)
	PresignDownload(ctx context.Context, key string) (url string, expiresAt time.Time, err error)
}

type nopSummaryCache struct{}

func (nopSummaryCache) Get(context.Context, uint, interface{}) (bool, error) { return false, nil }
func (nopSummaryCache) Set(context.Context, uint, interface{}) error         { return nil }
func (nopSummaryCache) Invalidate(context.Context, uint) error               { return nil }

type nopEventPublisher struct{}

func (nopEventPublisher) Publish(model.ReportEvent) {}
