//go:build linux

package energy

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ja7ad/heartbeat/pkg/system/proc"
	"github.com/ja7ad/heartbeat/pkg/system/util"
)

func init() {
	Register("model", func(o Options) (Backend, error) {
		return NewModel(o.Model), nil
	})
}

// ModelConfig holds CPU power model coefficients.
// Units:
//   - PIdle/PMax: Watts
//   - Gamma: dimensionless (CPU nonlinearity)
//   - Alpha: fraction of idle to charge to the process share [0..1]
//   - Smoothing: EMA alpha for machine utilization [0..1], 1 disables
type ModelConfig struct {
	PIdle     float64 `yaml:"p_idle"`
	PMax      float64 `yaml:"p_max"`
	Gamma     float64 `yaml:"gamma"`
	Alpha     float64 `yaml:"alpha"`
	Smoothing float64 `yaml:"smoothing"`
	PID       int     `yaml:"pid"`
}

// DefaultModelConfig returns reasonable coefficients for a small server.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		PIdle:     5.0,  // W at idle
		PMax:      20.0, // W at full utilization
		Gamma:     1.3,  // CPU curve exponent
		Alpha:     0.0,  // fraction of idle to distribute
		Smoothing: 0.5,
	}
}

// merged fills unset (non-positive) coefficients from the defaults.
func (c ModelConfig) merged() ModelConfig {
	m := DefaultModelConfig()
	if c.PIdle > 0 {
		m.PIdle = c.PIdle
	}
	if c.PMax > 0 {
		m.PMax = c.PMax
	}
	if c.Gamma > 0 {
		m.Gamma = c.Gamma
	}
	if c.Alpha >= 0 && c.Alpha <= 1 {
		m.Alpha = c.Alpha
	}
	if c.Smoothing > 0 && c.Smoothing <= 1 {
		m.Smoothing = c.Smoothing
	}
	if m.PMax < m.PIdle {
		m.PMax = m.PIdle
	}
	m.PID = c.PID
	if m.PID <= 0 {
		m.PID = os.Getpid()
	}
	return m
}

// Power returns the modeled process power for one utilization sample.
func (c ModelConfig) Power(u proc.Utilization) float64 {
	uvm := util.Clamp01(u.UVm)
	up := util.Clamp01(u.UProc)
	if uvm <= 1e-12 {
		return 0
	}

	// CPU dynamic power at VM level, attributed by share
	pdyn := (c.PMax - c.PIdle) * util.Pow(uvm, c.Gamma)
	share := up / uvm
	if share > 1 {
		share = 1
	}
	return share*pdyn + c.Alpha*c.PIdle*share
}

// Model estimates energy from CPU utilization when no hardware sensor exists.
type Model struct {
	cfg ModelConfig
	now func() int64

	mu      sync.Mutex
	sampler *proc.Sampler
	startNs int64
	total   float64
}

var _ Backend = (*Model)(nil)

// NewModel returns a model backend; zero coefficients take the defaults.
func NewModel(cfg ModelConfig) *Model {
	return &Model{cfg: cfg.merged(), now: nowNs}
}

func (m *Model) Init(context.Context) error {
	s, err := proc.NewSampler(m.cfg.PID, m.cfg.Smoothing)
	if err != nil {
		return fmt.Errorf("energy: model: %w", err)
	}
	m.mu.Lock()
	m.sampler, m.startNs, m.total = s, m.now(), 0
	m.mu.Unlock()
	return nil
}

func (m *Model) Read(lastNs, currNs int64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sampler == nil {
		return 0, ErrNotInitialized
	}
	if lastNs < 0 {
		lastNs = m.startNs
	}
	dt := util.DiffSec(lastNs, currNs)
	if dt <= 0 {
		return m.total, nil
	}

	u, err := m.sampler.Sample(dt)
	if err != nil {
		return m.total, err
	}
	m.total += m.cfg.Power(u) * dt
	return m.total, nil
}

func (m *Model) Finish() error {
	m.mu.Lock()
	m.sampler = nil
	m.mu.Unlock()
	return nil
}

func (m *Model) Source() string {
	return fmt.Sprintf("CPU model (pid %d, %.1f-%.1f W)", m.cfg.PID, m.cfg.PIdle, m.cfg.PMax)
}
