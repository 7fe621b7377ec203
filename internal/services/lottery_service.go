package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"
	"luckydraw/internal/models"
	"luckydraw/internal/storage"
)

// Status reflects whether the last round trip to the store succeeded.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOnline     Status = "online"
	StatusOffline    Status = "offline"
)

// Participant filters used by the management view.
const (
	FilterAll     = "all"
	FilterPending = "pending"
	FilterWinner  = "winner"
)

// Placeholders rendered when a winner references a deleted participant or prize.
const (
	UnknownParticipant = "未知人员"
	UnknownPrize       = "未知奖项"
	UnknownField       = "---"
)

const persistTimeout = 5 * time.Second

// DrawResult is the outcome of one completed draw.
type DrawResult struct {
	Prize   models.Prize         `json:"prize"`
	Winners []models.Participant `json:"winners"`
	Records []models.Winner      `json:"records"`
}

// ceremony is a running start/stop draw.
type ceremony struct {
	prizeID   string
	requested int
	shuffler  *Shuffler
}

// LotteryService owns the application state and pushes every change to the
// store. Store failures are logged and reflected in Status; they never fail
// the mutation, which always applies to the local state.
type LotteryService struct {
	mu     sync.RWMutex
	state  models.AppState
	store  storage.Store
	status Status

	rng          *rand.Rand
	now          func() time.Time
	newID        func() string
	tickInterval time.Duration

	active     *ceremony
	lastResult *DrawResult
}

// Option configures a LotteryService.
type Option func(*LotteryService)

// WithRand sets the random source used for draws.
func WithRand(rng *rand.Rand) Option {
	return func(s *LotteryService) { s.rng = rng }
}

// WithClock sets the clock used for winner timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *LotteryService) { s.now = now }
}

// WithIDGenerator sets the id generator for new records.
func WithIDGenerator(newID func() string) Option {
	return func(s *LotteryService) { s.newID = newID }
}

// WithTickInterval sets how often the shuffle animation rolls a new frame.
func WithTickInterval(d time.Duration) Option {
	return func(s *LotteryService) { s.tickInterval = d }
}

// NewLotteryService creates a service backed by store, starting from the
// default state until Init or Sync loads the stored record.
func NewLotteryService(store storage.Store, opts ...Option) *LotteryService {
	s := &LotteryService{
		state:        models.DefaultState(),
		store:        store,
		status:       StatusConnecting,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
		newID:        uuid.NewString,
		tickInterval: 40 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the stored record, falling back to defaults. A store failure is
// returned for logging but the service stays usable.
func (s *LotteryService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := storage.LoadOrDefault(ctx, s.store)
	s.state = state
	s.markLocked(err)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	logger.Infof("Loaded state: %d participants, %d prizes, %d winners",
		len(state.Participants), len(state.Prizes), len(state.Winners))
	return nil
}

func (s *LotteryService) markLocked(err error) {
	if err != nil {
		s.status = StatusOffline
		return
	}
	s.status = StatusOnline
}

// persistLocked pushes patch to the store. Callers hold the write lock so
// patches reach the store in mutation order.
func (s *LotteryService) persistLocked(ctx context.Context, patch models.StatePatch) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	err := s.store.Patch(ctx, patch)
	if err != nil {
		logger.Warningf("Update queued/failed: %v", err)
	}
	s.markLocked(err)
}

// Status returns the current connectivity status.
func (s *LotteryService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// State returns a copy of the whole state.
func (s *LotteryService) State() models.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Participants returns a copy of the participant list.
func (s *LotteryService) Participants() []models.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Participant{}, s.state.Participants...)
}

// Prizes returns a copy of the prize list.
func (s *LotteryService) Prizes() []models.Prize {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Prize{}, s.state.Prizes...)
}

// Winners returns a copy of the winner records in draw order.
func (s *LotteryService) Winners() []models.Winner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Winner{}, s.state.Winners...)
}

// SiteConfig returns the branding.
func (s *LotteryService) SiteConfig() models.SiteConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SiteConfig
}

// Prize returns the prize with id.
func (s *LotteryService) Prize(id string) (models.Prize, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.prizeIndexLocked(id)
	if idx < 0 {
		return models.Prize{}, ErrPrizeNotFound
	}
	return s.state.Prizes[idx], nil
}

// LastResult returns the most recent draw of this process, if any.
func (s *LotteryService) LastResult() *DrawResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastResult
}

// PoolSize returns the number of participants not yet marked as winners.
func (s *LotteryService) PoolSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.poolLocked())
}

func (s *LotteryService) poolLocked() []models.Participant {
	var pool []models.Participant
	for _, p := range s.state.Participants {
		if !p.IsWinner {
			pool = append(pool, p)
		}
	}
	return pool
}

func (s *LotteryService) prizeIndexLocked(id string) int {
	for i, p := range s.state.Prizes {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// FilterParticipants returns participants whose name, code or department
// contains query (case-insensitive) and whose winner flag matches status.
func (s *LotteryService) FilterParticipants(query, status string) []models.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.Participant{}
	for _, p := range s.state.Participants {
		if status == FilterWinner && !p.IsWinner {
			continue
		}
		if status == FilterPending && p.IsWinner {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Code), q) &&
			!strings.Contains(strings.ToLower(p.Department), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ReplaceParticipants replaces the participant list.
func (s *LotteryService) ReplaceParticipants(ctx context.Context, participants []models.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Participants = append([]models.Participant{}, participants...)
	s.persistLocked(ctx, models.StatePatch{Participants: &s.state.Participants})
}

// ReplacePrizes replaces the prize list.
func (s *LotteryService) ReplacePrizes(ctx context.Context, prizes []models.Prize) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Prizes = append([]models.Prize{}, prizes...)
	s.persistLocked(ctx, models.StatePatch{Prizes: &s.state.Prizes})
}

// UpdateSiteConfig replaces the branding. The brand name is required.
func (s *LotteryService) UpdateSiteConfig(ctx context.Context, cfg models.SiteConfig) error {
	cfg.BrandName = strings.TrimSpace(cfg.BrandName)
	cfg.EventName = strings.TrimSpace(cfg.EventName)
	if cfg.BrandName == "" {
		return fmt.Errorf("%w: brand name is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SiteConfig = cfg
	s.persistLocked(ctx, models.StatePatch{SiteConfig: &cfg})
	return nil
}

// ImportState replaces the whole state and overwrites the stored record.
func (s *LotteryService) ImportState(ctx context.Context, state models.AppState) {
	state = state.Normalize().Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	err := s.store.Save(ctx, state)
	if err != nil {
		logger.Warningf("Full state import failed to persist: %v", err)
	}
	s.markLocked(err)
}

// AddParticipant registers one participant. Name and code are required.
func (s *LotteryService) AddParticipant(ctx context.Context, name, code, department string) (models.Participant, error) {
	name, code, department = strings.TrimSpace(name), strings.TrimSpace(code), strings.TrimSpace(department)
	if name == "" || code == "" {
		return models.Participant{}, fmt.Errorf("%w: name and code are required", ErrInvalidInput)
	}
	if department == "" {
		department = models.DefaultDepartment
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Participant{ID: s.newID(), Name: name, Code: code, Department: department}
	s.state.Participants = append(s.state.Participants, p)
	s.persistLocked(ctx, models.StatePatch{Participants: &s.state.Participants})
	return p, nil
}

// ImportParticipants parses delimited text and appends the participants.
// Malformed lines are dropped.
func (s *LotteryService) ImportParticipants(ctx context.Context, text string) []models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	parsed, skipped := ParseParticipants(text, s.newID)
	if skipped > 0 {
		logger.Infof("Skipped %d malformed participant lines", skipped)
	}
	if len(parsed) == 0 {
		return nil
	}
	s.state.Participants = append(s.state.Participants, parsed...)
	s.persistLocked(ctx, models.StatePatch{Participants: &s.state.Participants})
	return parsed
}

// RemoveParticipant deletes a participant. Winner records that reference it
// are kept and render as unknown.
func (s *LotteryService) RemoveParticipant(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]models.Participant, 0, len(s.state.Participants))
	for _, p := range s.state.Participants {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(s.state.Participants) {
		return ErrParticipantNotFound
	}
	s.state.Participants = kept
	s.persistLocked(ctx, models.StatePatch{Participants: &s.state.Participants})
	return nil
}

// AddPrize appends a prize with default values and returns it for editing.
func (s *LotteryService) AddPrize(ctx context.Context) models.Prize {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Prize{ID: s.newID(), Name: "新奖项", Count: 1}
	s.state.Prizes = append(s.state.Prizes, p)
	s.persistLocked(ctx, models.StatePatch{Prizes: &s.state.Prizes})
	return p
}

// AddPrizes appends prizes, assigning ids and resetting drawn counts. Entries
// without a name or slot count are dropped.
func (s *LotteryService) AddPrizes(ctx context.Context, prizes []models.Prize) []models.Prize {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []models.Prize
	for _, p := range prizes {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" || p.Count < 1 {
			continue
		}
		p.ID = s.newID()
		p.DrawnCount = 0
		added = append(added, p)
	}
	if len(added) == 0 {
		return nil
	}
	s.state.Prizes = append(s.state.Prizes, added...)
	s.persistLocked(ctx, models.StatePatch{Prizes: &s.state.Prizes})
	return added
}

// UpdatePrize edits name, count, description and image of the prize with
// update.ID. The drawn count is kept and the new count may not go below it.
func (s *LotteryService) UpdatePrize(ctx context.Context, update models.Prize) (models.Prize, error) {
	update.Name = strings.TrimSpace(update.Name)
	if update.Name == "" {
		return models.Prize{}, fmt.Errorf("%w: prize name is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.prizeIndexLocked(update.ID)
	if idx < 0 {
		return models.Prize{}, ErrPrizeNotFound
	}
	current := s.state.Prizes[idx]
	if update.Count < 1 || update.Count < current.DrawnCount {
		return models.Prize{}, fmt.Errorf("%w: count must be at least %d", ErrInvalidInput, max(1, current.DrawnCount))
	}

	current.Name = update.Name
	current.Count = update.Count
	current.Description = strings.TrimSpace(update.Description)
	current.Image = strings.TrimSpace(update.Image)

	prizes := append([]models.Prize{}, s.state.Prizes...)
	prizes[idx] = current
	s.state.Prizes = prizes
	s.persistLocked(ctx, models.StatePatch{Prizes: &s.state.Prizes})
	return current, nil
}

// RemovePrize deletes a prize. Winner records that reference it are kept and
// render as unknown.
func (s *LotteryService) RemovePrize(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.prizeIndexLocked(id)
	if idx < 0 {
		return ErrPrizeNotFound
	}
	prizes := append([]models.Prize{}, s.state.Prizes[:idx]...)
	s.state.Prizes = append(prizes, s.state.Prizes[idx+1:]...)
	s.persistLocked(ctx, models.StatePatch{Prizes: &s.state.Prizes})
	return nil
}

// checkDrawLocked validates a draw of requested winners for prizeID and
// returns the prize index and the eligible pool.
func (s *LotteryService) checkDrawLocked(prizeID string, requested int) (int, []models.Participant, error) {
	idx := s.prizeIndexLocked(prizeID)
	if idx < 0 {
		return -1, nil, ErrPrizeNotFound
	}
	if s.state.Prizes[idx].Remaining() == 0 {
		return -1, nil, ErrPrizeExhausted
	}
	pool := s.poolLocked()
	if len(pool) == 0 {
		return -1, nil, ErrPoolEmpty
	}
	if requested < 1 {
		return -1, nil, ErrInvalidCount
	}
	return idx, pool, nil
}

// Draw picks min(requested, remaining slots, pool size) distinct winners for
// the prize and records them.
func (s *LotteryService) Draw(ctx context.Context, prizeID string, requested int) (*DrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, ErrDrawInProgress
	}
	return s.drawLocked(ctx, prizeID, requested)
}

func (s *LotteryService) drawLocked(ctx context.Context, prizeID string, requested int) (*DrawResult, error) {
	idx, pool, err := s.checkDrawLocked(prizeID, requested)
	if err != nil {
		return nil, err
	}
	prize := s.state.Prizes[idx]
	winners := SampleWinners(pool, min(requested, prize.Remaining()), s.rng)

	ts := s.now().UnixMilli()
	won := make(map[string]bool, len(winners))
	records := make([]models.Winner, 0, len(winners))
	for _, w := range winners {
		won[w.ID] = true
		records = append(records, models.Winner{ID: s.newID(), ParticipantID: w.ID, PrizeID: prize.ID, Timestamp: ts})
	}

	participants := make([]models.Participant, len(s.state.Participants))
	for i, p := range s.state.Participants {
		if won[p.ID] {
			p.IsWinner = true
		}
		participants[i] = p
	}
	prizes := append([]models.Prize{}, s.state.Prizes...)
	prizes[idx].DrawnCount += len(winners)
	allWinners := append(append([]models.Winner{}, s.state.Winners...), records...)

	s.state.Participants = participants
	s.state.Prizes = prizes
	s.state.Winners = allWinners
	s.persistLocked(ctx, models.StatePatch{
		Participants: &s.state.Participants,
		Prizes:       &s.state.Prizes,
		Winners:      &s.state.Winners,
	})

	result := &DrawResult{Prize: prizes[idx], Winners: winners, Records: records}
	s.lastResult = result
	logger.Infof("Drew %d winner(s) for prize %q (%d/%d)", len(winners), prize.Name, prizes[idx].DrawnCount, prize.Count)
	return result, nil
}

// StartDraw validates the draw and starts the shuffle animation.
func (s *LotteryService) StartDraw(prizeID string, requested int) (*Shuffler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, ErrDrawInProgress
	}
	idx, pool, err := s.checkDrawLocked(prizeID, requested)
	if err != nil {
		return nil, err
	}
	shown := min(requested, s.state.Prizes[idx].Remaining(), len(pool))
	sh := NewShuffler(pool, shown, s.tickInterval, s.rng.Int63())
	sh.Start()
	s.active = &ceremony{prizeID: prizeID, requested: requested, shuffler: sh}
	return sh, nil
}

// ActiveDraw returns the running shuffler, if any.
func (s *LotteryService) ActiveDraw() (*Shuffler, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil, "", false
	}
	return s.active.shuffler, s.active.prizeID, true
}

// StopDraw stops the animation and only then computes the real outcome.
func (s *LotteryService) StopDraw(ctx context.Context) (*DrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, ErrNoActiveDraw
	}
	c := s.active
	s.active = nil
	c.shuffler.Stop()
	return s.drawLocked(ctx, c.prizeID, c.requested)
}

// CancelDraw stops the animation without drawing.
func (s *LotteryService) CancelDraw() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveDraw
	}
	s.active.shuffler.Stop()
	s.active = nil
	return nil
}

// ClearHistory removes all winner records, clears every winner flag and
// resets drawn counts. Participants and prizes are kept.
func (s *LotteryService) ClearHistory(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants := make([]models.Participant, len(s.state.Participants))
	for i, p := range s.state.Participants {
		p.IsWinner = false
		participants[i] = p
	}
	prizes := make([]models.Prize, len(s.state.Prizes))
	for i, p := range s.state.Prizes {
		p.DrawnCount = 0
		prizes[i] = p
	}
	s.state.Participants = participants
	s.state.Prizes = prizes
	s.state.Winners = []models.Winner{}
	s.lastResult = nil
	s.persistLocked(ctx, models.StatePatch{
		Participants: &s.state.Participants,
		Prizes:       &s.state.Prizes,
		Winners:      &s.state.Winners,
	})
	logger.Info("Cleared draw history")
}

// History returns winner records joined with their participant and prize,
// newest first.
func (s *LotteryService) History() []models.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participants := make(map[string]models.Participant, len(s.state.Participants))
	for _, p := range s.state.Participants {
		participants[p.ID] = p
	}
	prizes := make(map[string]models.Prize, len(s.state.Prizes))
	for _, p := range s.state.Prizes {
		prizes[p.ID] = p
	}

	// Walk backwards so records drawn in the same millisecond also come
	// out newest first after the stable sort.
	entries := make([]models.HistoryEntry, 0, len(s.state.Winners))
	for i := len(s.state.Winners) - 1; i >= 0; i-- {
		w := s.state.Winners[i]
		e := models.HistoryEntry{
			Winner:          w,
			ParticipantName: UnknownParticipant,
			ParticipantCode: UnknownField,
			Department:      UnknownField,
			PrizeName:       UnknownPrize,
		}
		if p, ok := participants[w.ParticipantID]; ok {
			e.ParticipantName, e.ParticipantCode, e.Department = p.Name, p.Code, p.Department
		}
		if p, ok := prizes[w.PrizeID]; ok {
			e.PrizeName = p.Name
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries
}

// Sync reloads the stored record and replaces the local state with it. This
// is how changes made by other operators arrive; last writer wins.
func (s *LotteryService) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrCorrupt) {
		// The record was removed or broken elsewhere; write ours back.
		err = s.store.Save(ctx, s.state)
		s.markLocked(err)
		return err
	}
	s.markLocked(err)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	s.state = state.Normalize()
	return nil
}
