// Package monitor periodically publishes the simulation status to a file
// and, when configured, to InfluxDB.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/roadsim/roadsim/internal/influx"
	"github.com/roadsim/roadsim/internal/logging"
	"github.com/roadsim/roadsim/internal/worker"
)

// DefaultInterval is how often the status is published.
const DefaultInterval = time.Second

// StatusMeasurement is the influx measurement of status points.
const StatusMeasurement = "status"

// StatusSource reports the current status.
type StatusSource interface {
	Status() worker.Status
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager *logging.SlogManager
	Source     StatusSource
	// Influx is optional.
	Influx *influx.Manager
	// StatusPath is rewritten on every cycle when set.
	StatusPath string
	Interval   time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the status as indented JSON plus the matching point.
func (s *Service) GetProgramStatus(now time.Time) (string, *influxdb2_write.Point) {
	st := s.deps.Source.Status()

	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}

	point := influxdb2_write.NewPoint(
		StatusMeasurement,
		map[string]string{"world": st.World},
		map[string]interface{}{
			"tick":             int64(st.Tick),
			"vehicles":         st.Vehicles,
			"damaged":          st.Damaged,
			"best_mileage":     st.BestMileage,
			"last_db_write_ms": float64(st.LastDBWrite.Microseconds()) / 1000,
		},
		now,
	)
	return string(raw), point
}

// Publish writes one status cycle.
func (s *Service) Publish(ctx context.Context) error {
	statusStr, point := s.GetProgramStatus(time.Now())

	if s.deps.StatusPath != "" {
		if err := os.WriteFile(s.deps.StatusPath, []byte(statusStr+"\n"), 0644); err != nil {
			return fmt.Errorf("writing status file: %w", err)
		}
	}
	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(ctx, influx.BucketHost, point); err != nil {
			return err
		}
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if s.deps.Source == nil {
		s.mu.Unlock()
		return fmt.Errorf("monitor needs a status source")
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(s.stopChan, s.done)
	return nil
}

func (s *Service) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	logger := s.deps.LogManager.Logger()
	logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.Publish(context.Background()); err != nil {
				logger.Error("Error publishing status", "error", err)
			}
		}
	}
}

// Stop stops the status monitor and waits for the last cycle to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
