package strata

import (
	"time"

	"go.uber.org/zap"
)

// frameBudget is the soft per-tick time limit at 60 Hz. Ticks that blow
// past it are logged even outside debug mode.
const frameBudget = 16 * time.Millisecond

// tickStats holds per-tick metrics. Only logged when debug is on or the
// frame budget is exceeded.
type tickStats struct {
	placed     int
	converging bool
	elapsed    time.Duration
}

func (e *Engine) logTick(st tickStats) {
	if st.elapsed > frameBudget {
		e.log.Warn("tick exceeded frame budget",
			zap.Duration("elapsed", st.elapsed),
			zap.Int("placed", st.placed),
			zap.Int("nodes", e.scene.Len()))
		return
	}
	if !e.debug {
		return
	}
	e.log.Debug("tick",
		zap.Duration("elapsed", st.elapsed),
		zap.Int("placed", st.placed),
		zap.Bool("converging", st.converging))
}
