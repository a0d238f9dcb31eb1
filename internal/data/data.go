package data

import (
	"log/slog"

	"github.com/devricklin/echo-relay/internal/biz/repo"
	"github.com/devricklin/echo-relay/internal/conf"
	"github.com/devricklin/echo-relay/internal/infra/openai"
)

// Repositories contains all repositories
type Repositories struct {
	Classifier repo.ClassifierRepo // nil when no model is configured
	Feed       repo.FeedRepo
	Samples    repo.SampleRepo
}

// NewRepositories creates all repositories
func NewRepositories(cfg *conf.Config, logger *slog.Logger) (*Repositories, error) {
	var client *openai.Client
	if cfg.ClassifierEnabled() {
		client = openai.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, logger)
	}

	classifier, err := NewClassifierRepo(client, cfg.Relay.Classifier, cfg.LLM.ClassifyTimeout())
	if err != nil {
		return nil, err
	}

	feed, err := NewFeedRepo()
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Classifier: classifier,
		Feed:       feed,
		Samples:    cfg.Relay,
	}, nil
}

// Close releases repository resources
func (r *Repositories) Close() error {
	if r.Feed != nil {
		return r.Feed.Close()
	}
	return nil
}
