package speech

import (
	"sync"

	"github.com/memorylane/backend/internal/models"
)

// BandRegistry holds the most recent load band per user, fed by speech
// analysis and read by the quiz engine when encoding scheduler states.
type BandRegistry struct {
	mu sync.RWMutex
	m  map[string]models.CognitiveLoadBand
}

func NewBandRegistry() *BandRegistry {
	return &BandRegistry{m: make(map[string]models.CognitiveLoadBand)}
}

func (r *BandRegistry) Set(userID string, band models.CognitiveLoadBand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[userID] = band
}

// CurrentBand returns the latest band for a user, defaulting to moderate
// when no speech sample has been analyzed yet.
func (r *BandRegistry) CurrentBand(userID string) models.CognitiveLoadBand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if band, ok := r.m[userID]; ok {
		return band
	}
	return models.BandModerate
}
