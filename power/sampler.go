// Package power estimates the energy cost of local model generations.
//
// A background loop samples GPU draw, learns the idle baseline with an
// exponential moving average, and integrates the excess draw while a
// generation is active. Telemetry is best-effort: sampling errors are
// swallowed and retried on the next tick, and tracker failures never
// affect session correctness.
package power

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Sampler reads the current GPU power draw in watts.
type Sampler interface {
	GPUPower(ctx context.Context) (watts float64, err error)
}

// NvidiaSampler reads power draw via nvidia-smi.
type NvidiaSampler struct{}

// GPUPower queries the first GPU's instantaneous draw.
func (NvidiaSampler) GPUPower(ctx context.Context) (float64, error) {
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=power.draw", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return 0, fmt.Errorf("nvidia-smi failed: %w", err)
	}

	// One line per GPU; the first is enough.
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	watts, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected nvidia-smi output %q: %w", line, err)
	}
	return watts, nil
}
