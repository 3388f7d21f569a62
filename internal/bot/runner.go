package bot

import (
	"context"
	"sync"
	"time"

	"imagenbot/internal/logger"
	"imagenbot/internal/telegram"
)

// Poller is the inbound slice of the chat API the runner needs.
type Poller interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]telegram.Update, error)
}

// Runner long-polls for updates and fans them out to a fixed pool of
// workers. Updates are acknowledged by advancing the poll offset, so a
// crashed handler never blocks the queue.
type Runner struct {
	poller      Poller
	svc         *Service
	concurrency int
	pollTimeout int
}

func NewRunner(p Poller, svc *Service, concurrency, pollTimeoutSeconds int) *Runner {
	if concurrency <= 0 {
		concurrency = 2
	}
	if concurrency > 50 {
		concurrency = 50
	}
	if pollTimeoutSeconds <= 0 {
		pollTimeoutSeconds = 30
	}
	return &Runner{poller: p, svc: svc, concurrency: concurrency, pollTimeout: pollTimeoutSeconds}
}

// Run blocks until ctx is cancelled, then drains in-flight handlers.
func (r *Runner) Run(ctx context.Context) {
	jobs := make(chan telegram.Update, r.concurrency*2)

	var wg sync.WaitGroup
	wg.Add(r.concurrency)
	for i := 0; i < r.concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for u := range jobs {
				start := time.Now()
				r.svc.HandleUpdate(ctx, u)
				if cost := time.Since(start); cost > 2*time.Second {
					logger.Debug().Int("worker", workerID).Int64("update_id", u.UpdateID).
						Dur("cost", cost).Msg("slow update")
				}
			}
		}(i)
	}

	logger.Info().Int("concurrency", r.concurrency).Msg("bot started")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("bot shutting down")
			close(jobs)
			wg.Wait()
			return
		default:
		}

		updates, err := r.poller.GetUpdates(ctx, offset, r.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error().Err(err).Msg("poll failed")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			jobs <- u
		}
	}
}
