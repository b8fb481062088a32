package monitor

import (
	"strings"
	"testing"
)

func TestCheckStatus(t *testing.T) {
	healthy := Status{CPUPercent: 20, MemoryPercent: 50, DiskFreeGB: 100}

	tests := []struct {
		name       string
		mutate     func(*Status)
		wantOK     bool
		wantReason string
	}{
		{
			name:   "healthy",
			mutate: func(*Status) {},
			wantOK: true,
		},
		{
			name:       "cpu over threshold",
			mutate:     func(st *Status) { st.CPUPercent = 95 },
			wantOK:     false,
			wantReason: "CPU",
		},
		{
			name:       "memory over threshold",
			mutate:     func(st *Status) { st.MemoryPercent = 90 },
			wantOK:     false,
			wantReason: "memory",
		},
		{
			name:       "disk under threshold",
			mutate:     func(st *Status) { st.DiskFreeGB = 2 },
			wantOK:     false,
			wantReason: "disk",
		},
		{
			name:   "cpu exactly at threshold passes",
			mutate: func(st *Status) { st.CPUPercent = MaxCPUPercent },
			wantOK: true,
		},
		{
			name:   "unknown disk reading does not block",
			mutate: func(st *Status) { st.DiskFreeGB = 0 },
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := healthy
			tt.mutate(&st)
			ok, reason := CheckStatus(st)
			if ok != tt.wantOK {
				t.Errorf("CheckStatus() = %v (%s), want %v", ok, reason, tt.wantOK)
			}
			if !ok && !strings.Contains(reason, tt.wantReason) {
				t.Errorf("reason = %q, want mention of %q", reason, tt.wantReason)
			}
		})
	}
}

func TestSampleDoesNotPanic(t *testing.T) {
	m := New("")
	st := m.Sample()
	if st.Runtime < 0 {
		t.Errorf("negative runtime: %v", st.Runtime)
	}
}
