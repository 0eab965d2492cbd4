package api

import (
	"context"

	"github.com/lysyi3m/secnews/app/database"
	"github.com/lysyi3m/secnews/app/feed"
	"github.com/lysyi3m/secnews/app/history"
	"github.com/lysyi3m/secnews/app/pipeline"
)

type PipelineInterface interface {
	Run(ctx context.Context) (*pipeline.Report, error)
	LastReport() *pipeline.Report
	Sources() []feed.Source
	SnapshotPath() string
	ArchivePath() string
	History() *history.Partitioner
}

var _ PipelineInterface = (*pipeline.Pipeline)(nil)

type GeneratorInterface interface {
	Run(channel feed.Channel, items []feed.Item) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	pipeline  PipelineInterface
	articles  database.ArticleRepository
	generator GeneratorInterface
	version   string
}
