// Package demo implements the time-boxed trial identity: a fixed-credential
// demo account signed in at startup, wiped and reseeded once per day, and
// expired after a fixed number of days. It layers on the session manager
// rather than replacing it.
//
// The demo account is shared: concurrent demo visitors see each other's
// changes and share one reset schedule. Per-visitor isolation would need
// ephemeral tenants and is deliberately not attempted here.
package demo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stagedesk/internal/config"
	"stagedesk/internal/jobs"
	"stagedesk/internal/models"
	"stagedesk/internal/platform"
	"stagedesk/internal/queue"
	"stagedesk/internal/session"
)

const (
	routineRegisterDemo = "register-demo-account"
	countdownInterval   = 24 * time.Hour
)

// Controller drives the demo lifecycle: Inactive (demo disabled), Active
// (signed in, timers armed), Torn down (Stop called).
type Controller struct {
	cfg       config.DemoConfig
	mgr       *session.Manager
	client    *platform.Client
	publisher *queue.Publisher
	sched     *jobs.Scheduler
	log       zerolog.Logger

	// sleep is the settle delay between demo sign-up and the retry
	// sign-in; swapped out in tests.
	sleep func(time.Duration)

	mu      sync.Mutex
	state   models.DemoState
	stopped bool

	expireOnce sync.Once
}

func NewController(
	cfg config.DemoConfig,
	mgr *session.Manager,
	client *platform.Client,
	publisher *queue.Publisher,
	log zerolog.Logger,
) *Controller {
	return &Controller{
		cfg:       cfg,
		mgr:       mgr,
		client:    client,
		publisher: publisher,
		sched:     jobs.NewScheduler(log),
		log:       log,
		sleep:     time.Sleep,
		state: models.DemoState{
			IsDemoMode:    cfg.Enabled,
			DaysRemaining: cfg.Days,
		},
	}
}

// Start enters the Active state: exactly one sign-in attempt (or one
// sign-up-then-sign-in sequence when the demo identity does not exist yet)
// happens before any timer is armed.
func (c *Controller) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}

	if err := c.mgr.SignIn(ctx, c.cfg.Email, c.cfg.Password); err != nil {
		if !errors.Is(err, platform.ErrInvalidCredentials) {
			return err
		}
		if err := c.mgr.SignUp(ctx, c.cfg.Email, c.cfg.Password, session.ProfileFields{
			DisplayName: "Demo User",
			Company:     "StageDesk Demo",
		}); err != nil {
			return err
		}
		c.sleep(c.cfg.SettleDelay)
		if err := c.mgr.SignIn(ctx, c.cfg.Email, c.cfg.Password); err != nil {
			return err
		}
	}

	c.registerAccount(ctx)

	if err := c.sched.AddEvery(c.cfg.ResetInterval, c.runScheduledReset); err != nil {
		return err
	}
	if err := c.sched.AddEvery(countdownInterval, c.tickCountdown); err != nil {
		return err
	}
	c.sched.Start()

	c.log.Info().
		Str("email", c.cfg.Email).
		Int("days", c.cfg.Days).
		Msg("demo session active")
	return nil
}

// registerAccount tells the backend this identity is a demo account.
// Bookkeeping only; failure does not abort the demo.
func (c *Controller) registerAccount(ctx context.Context) {
	token := c.accessToken()
	if _, err := c.client.InvokeFunction(ctx, routineRegisterDemo, token, map[string]string{
		"email": c.cfg.Email,
	}); err != nil {
		c.log.Warn().Err(err).Msg("demo account registration failed")
	}
}

func (c *Controller) accessToken() string {
	state := c.mgr.State()
	if state.Session == nil {
		return ""
	}
	return state.Session.AccessToken
}

// State returns a copy of the demo state.
func (c *Controller) State() models.DemoState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Expired reports whether the demo period has run out. The route guard
// redirects to /login?demo=expired once this is true.
func (c *Controller) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Expired
}

// ResetNow wipes and reseeds the demo data on user request, through the
// same maintenance task the daily timer uses.
func (c *Controller) ResetNow(ctx context.Context) error {
	return c.publisher.Enqueue(ctx, queue.TaskDemoReset, map[string]any{
		"email": c.cfg.Email,
	})
}

func (c *Controller) runScheduledReset() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.ResetNow(ctx); err != nil {
		c.log.Error().Err(err).Msg("scheduled demo reset failed")
	}
}

// tickCountdown decrements the remaining days; at zero the demo expires
// exactly once. Writes after Stop are dropped.
func (c *Controller) tickCountdown() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.state.DaysRemaining--
	expired := c.state.DaysRemaining <= 0
	if expired {
		c.state.Expired = true
	}
	c.mu.Unlock()

	if expired {
		c.expireOnce.Do(func() {
			c.log.Info().Msg("demo session expired")
			c.emitUsage("demo_expired")
		})
	}
}

// Stop tears the demo down: timers cancelled, best-effort cleanup, usage
// event emitted. Teardown never propagates errors.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped || !c.state.IsDemoMode {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	c.sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.publisher.Enqueue(ctx, queue.TaskDemoCleanup, map[string]any{
		"email": c.cfg.Email,
	}); err != nil {
		c.log.Warn().Err(err).Msg("demo cleanup enqueue failed")
	}

	if err := c.mgr.SignOut(ctx); err != nil {
		c.log.Warn().Err(err).Msg("demo sign-out failed")
	}
	c.mgr.Close()

	c.emitUsage("demo_ended")
}

func (c *Controller) emitUsage(event string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.publisher.Enqueue(ctx, queue.TaskDemoUsage, map[string]any{
		"email": c.cfg.Email,
		"event": event,
	}); err != nil {
		c.log.Warn().Err(err).Str("event", event).Msg("usage event emit failed")
	}
}
