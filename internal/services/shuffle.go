package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"luckydraw/internal/models"
)

// Shuffler produces the cosmetic name frames shown while a draw is running.
// Frames are resampled on every tick and have no bearing on the outcome.
type Shuffler struct {
	pool     []models.Participant
	size     int
	interval time.Duration
	rng      *rand.Rand

	mu    sync.RWMutex
	frame []models.Participant
	seq   uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewShuffler returns a shuffler over a private copy of pool.
func NewShuffler(pool []models.Participant, drawCount int, interval time.Duration, seed int64) *Shuffler {
	return &Shuffler{
		pool:     append([]models.Participant(nil), pool...),
		size:     DisplayBatchSize(drawCount),
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
		done:     make(chan struct{}),
	}
}

// Start rolls the first frame and keeps rolling until Stop is called.
func (sh *Shuffler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	sh.cancel = cancel
	sh.roll()

	go func() {
		defer close(sh.done)
		ticker := time.NewTicker(sh.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sh.roll()
			}
		}
	}()
}

// Stop cancels the ticker and waits for the loop to exit.
func (sh *Shuffler) Stop() {
	if sh.cancel == nil {
		return
	}
	sh.cancel()
	<-sh.done
}

// Done is closed once the shuffler has stopped.
func (sh *Shuffler) Done() <-chan struct{} {
	return sh.done
}

func (sh *Shuffler) roll() {
	batch := sampleDisplayBatch(sh.pool, sh.size, sh.rng)
	sh.mu.Lock()
	sh.frame = batch
	sh.seq++
	sh.mu.Unlock()
}

// Frame returns a copy of the current frame and its sequence number.
func (sh *Shuffler) Frame() ([]models.Participant, uint64) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return append([]models.Participant(nil), sh.frame...), sh.seq
}

// Frames emits every new frame until the shuffler stops or ctx is done.
func (sh *Shuffler) Frames(ctx context.Context) <-chan []models.Participant {
	out := make(chan []models.Participant)
	go func() {
		defer close(out)
		ticker := time.NewTicker(sh.interval)
		defer ticker.Stop()
		var last uint64
		for {
			frame, seq := sh.Frame()
			if seq != last {
				last = seq
				select {
				case out <- frame:
				case <-ctx.Done():
					return
				case <-sh.done:
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-sh.done:
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}
