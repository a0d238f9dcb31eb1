package data

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/devricklin/echo-relay/internal/biz/domain"
	"github.com/devricklin/echo-relay/internal/biz/repo"
	"github.com/devricklin/echo-relay/internal/conf"
	"github.com/devricklin/echo-relay/internal/infra/openai"
)

const relevanceSchemaName = "relevance_decision"

// classifierRepo implements the relevance classifier on an OpenAI-compatible model
type classifierRepo struct {
	client  *openai.Client
	prompts conf.ClassifierPrompts
	timeout time.Duration
	schema  *jsonschema.Definition
}

// NewClassifierRepo creates a classifier repository.
// Returns nil when client is nil so callers can treat the model as unconfigured.
func NewClassifierRepo(client *openai.Client, prompts conf.ClassifierPrompts, timeout time.Duration) (repo.ClassifierRepo, error) {
	if client == nil {
		return nil, nil
	}

	schema, err := jsonschema.GenerateSchemaForType(domain.ClassificationResult{})
	if err != nil {
		return nil, fmt.Errorf("generate relevance schema: %w", err)
	}

	return &classifierRepo{
		client:  client,
		prompts: prompts,
		timeout: timeout,
		schema:  schema,
	}, nil
}

// Classify implements repo.ClassifierRepo
func (r *classifierRepo) Classify(ctx context.Context, req domain.ClassificationRequest) (*domain.ClassificationResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	content, err := r.client.ChatStructured(ctx, openai.StructuredRequest{
		SystemPrompt: r.prompts.SystemPrompt,
		UserMessage:  r.prompts.RenderPrompt(req.Message, req.Topic),
		SchemaName:   relevanceSchemaName,
		Schema:       r.schema,
		Temperature:  r.prompts.Temperature,
		MaxTokens:    r.prompts.MaxTokens,
	})
	if err != nil {
		return nil, domain.NewClassificationError("model call", err)
	}

	var result domain.ClassificationResult
	if err := openai.DecodeStructured(content, r.schema, &result); err != nil {
		return nil, domain.NewClassificationError("parse response", err)
	}

	return &result, nil
}
