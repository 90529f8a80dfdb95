package tasks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"stagedesk/internal/platform"
	"stagedesk/internal/queue"
)

// Routine names the hosted platform exposes for demo maintenance.
const (
	RoutineResetDemo   = "reset-demo-data"
	RoutineCleanupDemo = "cleanup-demo-account"
	RoutineTrackUsage  = "track-demo-usage"
)

// Processor executes demo maintenance tasks by invoking the matching
// server routine on the hosted platform.
type Processor struct {
	client *platform.Client
	logger zerolog.Logger
}

func NewProcessor(client *platform.Client, logger zerolog.Logger) *Processor {
	return &Processor{
		client: client,
		logger: logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	taskType, _ := msg.Values["type"].(string)
	email, _ := msg.Values["email"].(string)

	switch taskType {
	case queue.TaskDemoReset:
		p.logger.Info().Str("email", email).Msg("resetting demo data")
		_, err := p.client.InvokeFunction(ctx, RoutineResetDemo, "", map[string]string{"email": email})
		return err
	case queue.TaskDemoCleanup:
		p.logger.Info().Str("email", email).Msg("cleaning up demo account")
		_, err := p.client.InvokeFunction(ctx, RoutineCleanupDemo, "", map[string]string{"email": email})
		return err
	case queue.TaskDemoUsage:
		event, _ := msg.Values["event"].(string)
		_, err := p.client.InvokeFunction(ctx, RoutineTrackUsage, "", map[string]string{
			"email": email,
			"event": event,
		})
		return err
	default:
		return fmt.Errorf("unknown task type %q", taskType)
	}
}
