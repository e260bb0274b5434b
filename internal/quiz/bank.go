package quiz

import (
	"math/rand"

	"github.com/memorylane/backend/internal/models"
)

// ItemBank is the read-only content collaborator. The engine assumes it is
// stable for the duration of a session.
type ItemBank interface {
	Item(id int64) (*models.MemoryItem, error)
	ItemsByDifficulty(level int) ([]models.MemoryItem, error)
	ItemsByCategory(category string) ([]models.MemoryItem, error)
}

// ReviewScheduler is the slice of the Q-learning scheduler the engine
// needs. A nil or failing scheduler degrades the session to the fixed
// default interval policy instead of blocking the quiz flow.
type ReviewScheduler interface {
	ReviewOutcome(itemID int64, difficulty int, correct bool, latencySec float64, band models.CognitiveLoadBand) (models.Action, float64, error)
}

// BandSource supplies the latest cognitive-load band per user.
type BandSource interface {
	CurrentBand(userID string) models.CognitiveLoadBand
}

// mixedWeights is the draw distribution across difficulty buckets for
// "mixed" sessions (easy, medium, hard).
var mixedWeights = [3]float64{0.4, 0.4, 0.2}

// drawMixed selects n items without replacement using the weighted
// distribution, renormalizing as buckets drain.
func drawMixed(rng *rand.Rand, buckets [3][]models.MemoryItem, n int) []models.MemoryItem {
	pools := buckets
	for i := range pools {
		rng.Shuffle(len(pools[i]), func(a, b int) {
			pools[i][a], pools[i][b] = pools[i][b], pools[i][a]
		})
	}

	picked := make([]models.MemoryItem, 0, n)
	for len(picked) < n {
		total := 0.0
		for i := range pools {
			if len(pools[i]) > 0 {
				total += mixedWeights[i]
			}
		}
		if total == 0 {
			break
		}
		r := rng.Float64() * total
		for i := range pools {
			if len(pools[i]) == 0 {
				continue
			}
			r -= mixedWeights[i]
			if r <= 0 {
				picked = append(picked, pools[i][0])
				pools[i] = pools[i][1:]
				break
			}
		}
	}
	return picked
}
