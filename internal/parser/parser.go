// Package parser turns raw host command arguments into typed commands.
// It performs no I/O and holds no simulation state.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roadsim/roadsim/internal/geometry"
)

// ErrMissingArgs is returned when a command has fewer arguments than it needs.
var ErrMissingArgs = errors.New("missing arguments")

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// Hosts that only have a number type serialize counts as floats.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parsePoint reads two consecutive floats starting at data[i].
func parsePoint(data []string, i int, what string) (geometry.Point, error) {
	x, err := strconv.ParseFloat(data[i], 64)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("error parsing %s x: %w", what, err)
	}
	y, err := strconv.ParseFloat(data[i+1], 64)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("error parsing %s y: %w", what, err)
	}
	return geometry.Point{X: x, Y: y}, nil
}

func need(data []string, n int, cmd string) error {
	if len(data) < n {
		return fmt.Errorf("%s: %w: got %d, need %d", cmd, ErrMissingArgs, len(data), n)
	}
	return nil
}

// Parser provides pure []string -> command struct conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Service is what the command handlers need from a parser.
type Service interface {
	ParseGenerate(data []string) (GenerateCommand, error)
	ParseName(data []string, fallback string) (string, error)
	ParseMarking(data []string) (MarkingCommand, error)
	ParseRoute(data []string) (RouteCommand, error)
	ParseTicks(data []string) (int, error)
	ParseAmount(data []string, fallback float64) (float64, error)
}

var _ Service = (*Parser)(nil)
