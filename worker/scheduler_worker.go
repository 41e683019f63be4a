package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/engine"
)

// SchedulerWorker drives the periodic sweep that promotes scheduled
// campaigns into dispatch once their send time arrives.
type SchedulerWorker struct {
	Engine   *engine.Engine
	Logger   *log.Logger
	Interval time.Duration
}

func NewSchedulerWorker(eng *engine.Engine, interval time.Duration, logger *log.Logger) *SchedulerWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SchedulerWorker{
		Engine:   eng,
		Logger:   logger,
		Interval: interval,
	}
}

// Start runs the sweep until ctx is cancelled. Duplicate ticks are harmless:
// promotion is idempotent.
func (sw *SchedulerWorker) Start(ctx context.Context) {
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", sw.Interval), func() {
		sw.Engine.SweepDueCampaigns(ctx)
	})
	if err != nil {
		sw.Logger.Printf("Failed to register sweep schedule: %v", err)
		return
	}

	c.Start()
	sw.Logger.Printf("Scheduler worker started (sweep every %s)", sw.Interval)

	<-ctx.Done()
	sw.Logger.Println("Scheduler worker shutting down...")
	<-c.Stop().Done()
}
