package api

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lysyi3m/news-digest/app/database"
	"github.com/lysyi3m/news-digest/app/digest"
	"github.com/lysyi3m/news-digest/app/feed"
	"github.com/lysyi3m/news-digest/app/publish"
	"github.com/lysyi3m/news-digest/app/tasks"
)

type ControllerInterface interface {
	TryStart(trigger string, req digest.Request) (string, bool)
	Snapshot() digest.State
	Subscribe() (<-chan digest.State, func())
}

type ArtifactStore interface {
	Latest(format string) (*publish.Artifact, error)
}

type Sender interface {
	Send(ctx context.Context, path string, override string) error
}

type SourceCatalog interface {
	GetConfig(name string) (*feed.Config, error)
	GetEnabledConfigs() []*feed.Config
	GetConfigCount() int
}

var (
	_ ControllerInterface = (*tasks.Controller)(nil)
	_ ArtifactStore       = (*publish.Artifacts)(nil)
	_ Sender              = (*publish.Mailer)(nil)
	_ SourceCatalog       = (*feed.ConfigCache)(nil)
)

type Handler struct {
	controller ControllerInterface
	runRepo    database.RunRepository
	artifacts  ArtifactStore
	sender     Sender
	sources    SourceCatalog
	upgrader   websocket.Upgrader
}

type GenerateResponse struct {
	RunID    string       `json:"run_id"`
	Sections []string     `json:"sections"`
	State    digest.State `json:"state"`
}

type ContentsResponse struct {
	Titles      []string          `json:"titles"`
	GeneratedAt *time.Time        `json:"generated_at"`
	Epub        *publish.Artifact `json:"epub"`
	Mobi        *publish.Artifact `json:"mobi"`
}
