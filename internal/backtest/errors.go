package backtest

import (
	"fmt"
	"time"
)

// ConfigurationError reports invalid run parameters. It is returned before
// any run state is created.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid backtest configuration: " + e.Reason
}

// StrategyError reports a failure raised inside a strategy callback. Under
// the default policy it aborts the run to failed; the equity points recorded
// before the failing tick are preserved on the returned Result.
type StrategyError struct {
	Tick time.Time
	Err  error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy failed at %s: %v", e.Tick.Format(time.RFC3339), e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}
