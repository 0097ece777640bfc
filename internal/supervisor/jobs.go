package supervisor

import (
	"time"

	"go.uber.org/zap"

	"ratio-jump-trader/internal/config"
	"ratio-jump-trader/internal/store"
)

// Engine is the subset of trader.Engine the supervisor needs to drive
// a scouting cycle, kept narrow so this package doesn't import trader.
type Engine interface {
	Scout() error
	UpdateValues() error
}

// ScheduleTradingJobs registers the five jobs crypto_trading.py's
// main() wires up: scouting, value-history snapshots, scout/value
// history pruning, and periodic progress logging.
func ScheduleTradingJobs(sup *Supervisor, engine Engine, s *store.Store, logger *zap.Logger, cfg config.Trading) error {
	scoutSleep := time.Duration(cfg.ScoutSleepTime) * time.Second
	if scoutSleep <= 0 {
		scoutSleep = 5 * time.Second
	}

	jobs := []Job{
		{Tag: "scouting", Interval: scoutSleep, Fn: engine.Scout},
		{Tag: "updating value history", Interval: time.Minute, Fn: engine.UpdateValues},
		{Tag: "pruning scout history", Interval: time.Minute, Fn: func() error {
			return s.PruneScoutHistory(7 * 24 * time.Hour)
		}},
		{Tag: "pruning value history", Interval: time.Hour, Fn: func() error {
			return s.PruneValueHistory(30 * 24 * time.Hour)
		}},
		{Tag: "logging progress", Interval: progressInterval(cfg.LogProgressAfterHours), Fn: func() error {
			report, err := ProgressReport(s)
			if err != nil {
				return err
			}
			logger.Info("Progress report\n" + report)
			return nil
		}},
	}

	for _, job := range jobs {
		if err := sup.Schedule(job); err != nil {
			return err
		}
	}
	return nil
}

func progressInterval(hours float64) time.Duration {
	if hours <= 0 {
		hours = 1
	}
	return time.Duration(hours * float64(time.Hour))
}
