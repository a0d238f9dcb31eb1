package repo

import "github.com/devricklin/echo-relay/internal/biz/domain"

// SampleRepo provides the fixed sample message sequence
type SampleRepo interface {
	// Samples returns the sequence in order
	Samples() []domain.SampleMessage
}
