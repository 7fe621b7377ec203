package services

import (
	"math/rand"

	"luckydraw/internal/models"
)

// SampleWinners picks min(n, len(pool)) distinct participants uniformly at
// random without replacement. pool is not modified.
func SampleWinners(pool []models.Participant, n int, rng *rand.Rand) []models.Participant {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	remaining := append([]models.Participant(nil), pool...)
	n = min(n, len(remaining))

	winners := make([]models.Participant, 0, n)
	for i := 0; i < n; i++ {
		idx := rng.Intn(len(remaining))
		winners = append(winners, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return winners
}

// DisplayBatchSize is the number of names shown per shuffle frame when
// drawing n winners.
func DisplayBatchSize(n int) int {
	return max(n*4, 20)
}

// sampleDisplayBatch picks size participants with replacement. It only feeds
// the shuffle animation.
func sampleDisplayBatch(pool []models.Participant, size int, rng *rand.Rand) []models.Participant {
	if len(pool) == 0 || size <= 0 {
		return nil
	}
	batch := make([]models.Participant, size)
	for i := range batch {
		batch[i] = pool[rng.Intn(len(pool))]
	}
	return batch
}
