package biz

import (
	"log/slog"

	"github.com/devricklin/echo-relay/internal/biz/repo"
	"github.com/devricklin/echo-relay/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Classifier *usecase.ClassifierUsecase
	Samples    *usecase.SampleUsecase
}

// NewUsecases creates all usecases
func NewUsecases(classifierRepo repo.ClassifierRepo, sampleRepo repo.SampleRepo, logger *slog.Logger) *Usecases {
	return &Usecases{
		Classifier: usecase.NewClassifierUsecase(classifierRepo, logger),
		Samples:    usecase.NewSampleUsecase(sampleRepo),
	}
}
