package filter

import (
	"errors"
	"fmt"

	"github.com/sweeney/sensor-node/internal/clock"
	"github.com/sweeney/sensor-node/internal/config"
)

// ErrUnknownFilter is returned by Build for an unsupported filter type.
var ErrUnknownFilter = errors.New("unknown filter type")

// Build turns filter configuration into a sensor filter list. decimals is the
// sensor's accuracy, used by filter_out.
func Build(cfgs []config.FilterConfig, timers Timers, clk clock.Clock, decimals int) ([]Filter[float64], error) {
	out := make([]Filter[float64], 0, len(cfgs))
	for i, c := range cfgs {
		f, err := build(c, timers, clk, decimals)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func build(c config.FilterConfig, timers Timers, clk clock.Clock, decimals int) (Filter[float64], error) {
	switch c.Type {
	case "offset":
		return Offset(c.Value), nil
	case "multiply":
		return Multiply(c.Value), nil
	case "calibrate_linear":
		return CalibrateLinear{Slope: c.Value, Bias: c.Bias}, nil
	case "clamp":
		if c.Min > c.Max {
			return nil, fmt.Errorf("clamp: min %v above max %v", c.Min, c.Max)
		}
		return Clamp{Min: c.Min, Max: c.Max}, nil
	case "filter_out":
		return NewFilterOut(c.Value, decimals), nil
	case "delta":
		return NewDelta(c.Value), nil
	case "throttle":
		return NewThrottle(clk, c.Period), nil
	case "sliding_window_moving_average":
		return NewSlidingWindowAverage(c.Window, c.SendEvery, c.SendFirstAt), nil
	case "exponential_moving_average":
		if c.Alpha <= 0 || c.Alpha > 1 {
			return nil, fmt.Errorf("exponential_moving_average: alpha %v outside (0, 1]", c.Alpha)
		}
		return NewExponentialMovingAverage(c.Alpha, c.SendEvery), nil
	case "median":
		return NewMedian(c.Window, c.SendEvery, c.SendFirstAt), nil
	case "quantile":
		return NewQuantile(c.Window, c.SendEvery, c.SendFirstAt, c.Value), nil
	case "min":
		return NewMin(c.Window, c.SendEvery, c.SendFirstAt), nil
	case "max":
		return NewMax(c.Window, c.SendEvery, c.SendFirstAt), nil
	case "debounce":
		return NewDebounce(timers, c.Period), nil
	case "heartbeat":
		return NewHeartbeat(timers, c.Period), nil
	case "throttle_average":
		return NewThrottleAverage(timers, c.Period), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, c.Type)
	}
}
