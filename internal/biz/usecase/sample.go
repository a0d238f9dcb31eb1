package usecase

import (
	"sync"

	"github.com/devricklin/echo-relay/internal/biz/domain"
	"github.com/devricklin/echo-relay/internal/biz/repo"
)

// SampleUsecase hands out the sample sequence round-robin
type SampleUsecase struct {
	samples []domain.SampleMessage

	mu      sync.Mutex
	counter int
}

// NewSampleUsecase creates a new sample rotation
func NewSampleUsecase(sampleRepo repo.SampleRepo) *SampleUsecase {
	var samples []domain.SampleMessage
	if sampleRepo != nil {
		samples = sampleRepo.Samples()
	}
	return &SampleUsecase{samples: samples}
}

// Next returns the next sample and advances the counter.
// ok is false when the sequence is empty.
func (uc *SampleUsecase) Next() (sample domain.SampleMessage, ok bool) {
	if len(uc.samples) == 0 {
		return domain.SampleMessage{}, false
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	sample = uc.samples[uc.counter%len(uc.samples)]
	uc.counter++
	return sample, true
}

// Counter returns how many samples have been handed out
func (uc *SampleUsecase) Counter() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.counter
}

// Len returns the sequence length
func (uc *SampleUsecase) Len() int {
	return len(uc.samples)
}
