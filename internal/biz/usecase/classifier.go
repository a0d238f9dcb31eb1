package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/devricklin/echo-relay/internal/biz/domain"
	"github.com/devricklin/echo-relay/internal/biz/repo"
)

// ClassifierUsecase is the relevance classifier: one model call per message,
// no retries, every failure mapped to *domain.ClassificationError
type ClassifierUsecase struct {
	classifierRepo repo.ClassifierRepo
	log            *slog.Logger
}

// NewClassifierUsecase creates a new classifier usecase.
// A nil repo yields a classifier that always fails with ErrClassifierNotConfigured.
func NewClassifierUsecase(classifierRepo repo.ClassifierRepo, logger *slog.Logger) *ClassifierUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifierUsecase{
		classifierRepo: classifierRepo,
		log:            logger.With("component", "classifier"),
	}
}

// Classify judges whether message is relevant to topic
func (uc *ClassifierUsecase) Classify(ctx context.Context, message, topic string) (*domain.ClassificationResult, error) {
	req := domain.ClassificationRequest{
		Message: strings.TrimSpace(message),
		Topic:   strings.TrimSpace(topic),
	}
	if err := req.Validate(); err != nil {
		return nil, domain.NewClassificationError("validate request", err)
	}

	if uc.classifierRepo == nil {
		return nil, domain.NewClassificationError("", domain.ErrClassifierNotConfigured)
	}

	result, err := uc.classifierRepo.Classify(ctx, req)
	if err != nil {
		uc.log.Warn("Classification failed", "topic", req.Topic, "error", err)
		return nil, domain.NewClassificationError("classify", err)
	}
	if result == nil {
		return nil, domain.NewClassificationError("classify", errors.New("empty result"))
	}
	if strings.TrimSpace(result.Reason) == "" {
		return nil, domain.NewClassificationError("validate response", errors.New("reason is empty"))
	}

	uc.log.Debug("Classified message",
		"topic", req.Topic,
		"relevant", result.IsRelevant,
		"reason", result.Reason,
	)
	return result, nil
}

// IsConfigured returns whether a model backend is wired
func (uc *ClassifierUsecase) IsConfigured() bool {
	return uc.classifierRepo != nil
}
