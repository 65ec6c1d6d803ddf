// Package websocket streams runs to a live dashboard. Run lifecycle and
// tick stats go out as JSON envelopes; saved worlds and brains are kept by
// a local store and announced on the stream.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/roadsim/roadsim/internal/config"
	"github.com/roadsim/roadsim/internal/storage/memory"
	"github.com/roadsim/roadsim/pkg/core"
	"github.com/rs/zerolog"
)

// Message types of the stream.
const (
	TypeStartRun  = "start_run"
	TypeEndRun    = "end_run"
	TypeTick      = "tick"
	TypeSaveWorld = "save_world"
	TypeSaveBrain = "save_brain"
)

// Envelope wraps every message sent over the socket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's reply to start_run and end_run.
type AckMessage struct {
	Type string `json:"type"`
	For  string `json:"for"`
}

// TickPayload is one tick of the run identified by RunID.
type TickPayload struct {
	RunID uint `json:"runId"`
	core.TickStats
}

// SavedPayload announces a save. Data is the saved world or brain.
type SavedPayload struct {
	Name string `json:"name"`
	Data any    `json:"data"`
}

// Saves keeps worlds and brains; the stream itself cannot load them back.
type Saves interface {
	Init() error
	Close() error
	SaveWorld(name string, w *core.WorldData) error
	LoadWorld(name string) (*core.WorldData, error)
	SaveBrain(name string, c *core.CarData) error
	LoadBrain(name string) (*core.CarData, error)
}

// Config holds the stream endpoint. Saves defaults to an in-memory store.
type Config struct {
	URL    string
	Secret string
	Saves  Saves
}

// Backend implements storage.Backend over a websocket connection.
type Backend struct {
	cfg   Config
	conn  *connection
	saves Saves

	mu        sync.Mutex
	run       *core.Run
	nextRunID atomic.Uint64
}

// New creates a websocket backend. Nothing is dialed until Init.
func New(cfg Config, log zerolog.Logger) *Backend {
	saves := cfg.Saves
	if saves == nil {
		saves = memory.New(config.MemoryConfig{})
	}
	return &Backend{
		cfg:   cfg,
		conn:  newConnection(log),
		saves: saves,
	}
}

// Init prepares the local store and connects to the stream.
func (b *Backend) Init() error {
	if err := b.saves.Init(); err != nil {
		return err
	}
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects and closes the local store.
func (b *Backend) Close() error {
	return errors.Join(b.conn.close(), b.saves.Close())
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (b *Backend) send(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartRun numbers the run, announces it and waits for the server's ack.
// The announcement is replayed after a reconnect.
func (b *Backend) StartRun(r *core.Run) error {
	r.ID = uint(b.nextRunID.Add(1))
	data, err := marshalEnvelope(TypeStartRun, r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	run := *r
	b.run = &run
	b.mu.Unlock()
	b.conn.setReplay(data)

	return b.conn.sendAndWait(data, TypeStartRun, ackTimeout)
}

// RecordTick streams s without waiting. Ticks are dropped when the send
// buffer is full.
func (b *Backend) RecordTick(s *core.TickStats) error {
	b.mu.Lock()
	run := b.run
	b.mu.Unlock()
	if run == nil {
		return core.ErrNoRun
	}
	return b.send(TypeTick, TickPayload{RunID: run.ID, TickStats: *s})
}

// EndRun announces the end of the current run and waits for the ack.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	run := b.run
	b.run = nil
	b.mu.Unlock()
	if run == nil {
		return core.ErrNoRun
	}
	b.conn.setReplay(nil)

	run.EndedAt = timeNow()
	data, err := marshalEnvelope(TypeEndRun, run)
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, TypeEndRun, ackTimeout)
}

// SaveWorld stores w locally and announces it.
func (b *Backend) SaveWorld(name string, w *core.WorldData) error {
	if err := b.saves.SaveWorld(name, w); err != nil {
		return err
	}
	return b.send(TypeSaveWorld, SavedPayload{Name: name, Data: w})
}

func (b *Backend) LoadWorld(name string) (*core.WorldData, error) {
	return b.saves.LoadWorld(name)
}

// SaveBrain stores c locally and announces it.
func (b *Backend) SaveBrain(name string, c *core.CarData) error {
	if err := b.saves.SaveBrain(name, c); err != nil {
		return err
	}
	return b.send(TypeSaveBrain, SavedPayload{Name: name, Data: c})
}

func (b *Backend) LoadBrain(name string) (*core.CarData, error) {
	return b.saves.LoadBrain(name)
}
