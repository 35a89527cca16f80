package actions

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/distatus/battery"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"terminator/internal/ports"
)

type System struct {
	// Sample is the CPU measuring window; one second when zero.
	Sample time.Duration
}

func (s System) CPUPercent(ctx context.Context) (float64, error) {
	window := s.Sample
	if window <= 0 {
		window = time.Second
	}
	pct, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return 0, fmt.Errorf("cpu: %w", err)
	}
	if len(pct) == 0 {
		return 0, errors.New("cpu: no samples")
	}
	return pct[0], nil
}

func (System) MemoryPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("memory: %w", err)
	}
	return vm.UsedPercent, nil
}

func (System) Battery(context.Context) (ports.BatteryStatus, error) {
	bats, err := battery.GetAll()
	for _, b := range bats {
		if b == nil || b.Full <= 0 {
			continue
		}
		return ports.BatteryStatus{
			Percent:  b.Current / b.Full * 100,
			Charging: b.State.Raw == battery.Charging || b.State.Raw == battery.Full,
		}, nil
	}
	if err != nil {
		return ports.BatteryStatus{}, fmt.Errorf("battery: %w", err)
	}
	return ports.BatteryStatus{}, fmt.Errorf("battery: %w", ports.ErrNotFound)
}

func (System) Describe(ctx context.Context) (ports.SystemInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return ports.SystemInfo{}, fmt.Errorf("host info: %w", err)
	}
	arch := info.KernelArch
	if arch == "" {
		arch = runtime.GOARCH
	}
	return ports.SystemInfo{
		OS:       info.OS,
		Platform: info.Platform,
		Version:  info.PlatformVersion,
		Arch:     arch,
		Hostname: info.Hostname,
	}, nil
}
