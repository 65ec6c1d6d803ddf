package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/roadsim/roadsim/internal/config"
	"github.com/roadsim/roadsim/internal/dispatcher"
	"github.com/roadsim/roadsim/pkg/core"
)

// readWorldFile decodes a saved world. The world is named after the file.
func readWorldFile(path string) (string, core.WorldData, error) {
	var data core.WorldData
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", data, fmt.Errorf("reading world file: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", data, fmt.Errorf("decoding world file %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return name, data, nil
}

// runHeadless trains on world.file: spawn, tick, then keep the best brain
// under "<world>_best".
func (a *app) runHeadless(cfg config.SimulationConfig) error {
	if cfg.WorldFile == "" {
		return errors.New("world.file is not set; use -script to build a world")
	}
	name, data, err := readWorldFile(cfg.WorldFile)
	if err != nil {
		return err
	}
	summary, err := a.worker.ImportWorld(name, data)
	if err != nil {
		return err
	}
	a.logger.Info("World loaded", "world", summary.Name, "segments", summary.Segments, "markings", summary.Markings)

	run := func(command string, args ...string) (any, error) {
		return a.dispatcher.Dispatch(dispatcher.Event{Command: command, Args: args, Timestamp: time.Now()})
	}

	if _, err := run(":SIM:SPAWN:"); err != nil {
		return err
	}
	started := time.Now()
	res, err := run(":SIM:TICK:", strconv.Itoa(cfg.Ticks))
	if err != nil {
		return err
	}
	a.logger.Info("Run complete", "ticks", cfg.Ticks, "duration", time.Since(started))
	fmt.Println(formatResult(res))

	brain := name + "_best"
	if _, err := run(":BRAIN:SAVE:", brain); err != nil {
		return err
	}
	fmt.Println(formatResult(a.worker.Status()))
	a.logger.Info("Saved best brain", "brain", brain)
	return nil
}
