package util

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// ParseConcurrency accepts either a bare integer ("12") or a percentage of
// the CPU count, runtime.NumCPU ("50%"), and returns the resolved concurrency, always at least
// 1. The percentage form exists so CI configs can scale with the runner
// instead of hard-coding a number that's wrong on half the fleet.
func ParseConcurrency(concurrencyRaw string) (int, error) {
	if concurrencyRaw == "" {
		return 10, nil
	}
	if strings.HasSuffix(concurrencyRaw, "%") {
		percent, err := strconv.ParseFloat(strings.TrimSuffix(concurrencyRaw, "%"), 64)
		if err != nil || percent <= 0 {
			return 0, fmt.Errorf("invalid concurrency percentage: %v", concurrencyRaw)
		}
		concurrency := int(percent * float64(runtime.NumCPU()) / 100)
		if concurrency < 1 {
			return 1, nil
		}
		return concurrency, nil
	}

	concurrency, err := strconv.ParseInt(concurrencyRaw, 10, 32)
	if err != nil || concurrency < 1 {
		return 0, fmt.Errorf("invalid concurrency value: %v; expected a positive integer or a percentage", concurrencyRaw)
	}
	return int(concurrency), nil
}
