// Package health samples the server process itself for the dashboard's
// server card.
package health

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

type Status struct {
	PID           int     `json:"pid"`
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryRSSMB   float64 `json:"memoryRssMb"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds int     `json:"uptimeSeconds"`
}

// Sample reads the current process stats. CPU and memory readings are best
// effort; a probe failure leaves the field at zero rather than failing the
// endpoint.
func Sample(startedAt time.Time) Status {
	st := Status{
		PID:           os.Getpid(),
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int(time.Since(startedAt).Seconds()),
	}

	p, err := process.NewProcess(int32(st.PID))
	if err != nil {
		return st
	}
	if cpu, err := p.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		st.MemoryRSSMB = float64(mem.RSS) / (1024 * 1024)
	}
	return st
}
