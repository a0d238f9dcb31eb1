package repo

import (
	"context"

	"github.com/devricklin/echo-relay/internal/biz/domain"
)

// ClassifierRepo is the relevance model boundary
type ClassifierRepo interface {
	// Classify judges whether req.Message belongs to req.Topic.
	// Implementations return *domain.ClassificationError on any failure.
	Classify(ctx context.Context, req domain.ClassificationRequest) (*domain.ClassificationResult, error)
}
