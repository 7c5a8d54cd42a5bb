package client

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/progress"
	"github.com/trezcool/elevana/core/user"
)

// ProgressBackend is the server side of a student's progress.
type ProgressBackend interface {
	GetStudentProfile(ctx context.Context) (user.Profile, error)
	AwardXP(ctx context.Context, amount int) (user.Profile, error)
}

// ProgressService publishes the signed-in student's level progress and streak stage.
// A failed call keeps the last known state.
type ProgressService struct {
	backend ProgressBackend

	mu       sync.Mutex
	inflight int

	profile  *Value[*user.Profile]
	progress *Value[progress.Progress]
	streak   *Value[progress.StreakStage]
	loading  *Value[bool]
}

func NewProgressService(backend ProgressBackend) *ProgressService {
	return &ProgressService{
		backend:  backend,
		profile:  NewValue[*user.Profile](nil),
		progress: NewValue(progress.LevelFor(0)),
		streak:   NewValue(progress.StreakStageFor(0)),
		loading:  NewValue(false),
	}
}

func (svc *ProgressService) Profile() Observable[*user.Profile]       { return svc.profile }
func (svc *ProgressService) Progress() Observable[progress.Progress]  { return svc.progress }
func (svc *ProgressService) Streak() Observable[progress.StreakStage] { return svc.streak }
func (svc *ProgressService) Loading() Observable[bool]                { return svc.loading }

// Load fetches the student profile and publishes its progress.
func (svc *ProgressService) Load(ctx context.Context) error {
	return svc.call(ctx, svc.backend.GetStudentProfile)
}

// AddXP rewards the student with amount XP, which must be positive.
func (svc *ProgressService) AddXP(ctx context.Context, amount int) error {
	if amount <= 0 {
		return core.NewValidationError(
			errors.New("xp amount must be positive"),
			core.FieldError{Field: "amount", Error: "must be greater than 0"},
		)
	}
	return svc.call(ctx, func(ctx context.Context) (user.Profile, error) {
		return svc.backend.AwardXP(ctx, amount)
	})
}

// SetStreakDays publishes the streak stage for a number of consecutive active days.
func (svc *ProgressService) SetStreakDays(days int) {
	svc.streak.Set(progress.StreakStageFor(days))
}

func (svc *ProgressService) call(ctx context.Context, fn func(context.Context) (user.Profile, error)) error {
	svc.mu.Lock()
	svc.inflight++
	if svc.inflight == 1 {
		svc.loading.Set(true)
	}
	svc.mu.Unlock()

	profile, err := fn(ctx)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.inflight--
	if svc.inflight == 0 {
		svc.loading.Set(false)
	}
	if err != nil {
		return err
	}
	if cur := svc.profile.Get(); cur != nil && cur.ID == profile.ID && profile.XP < cur.XP {
		// a stale answer overtaken by a later award
		return nil
	}
	svc.profile.Set(&profile)
	svc.progress.Set(progress.LevelFor(profile.XP))
	return nil
}
