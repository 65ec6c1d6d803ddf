package parser

import (
	"fmt"
	"strconv"

	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/internal/util"
)

// RouteCommand asks for a corridor between two positions.
type RouteCommand struct {
	Start  geometry.Point
	Target geometry.Point
}

// ParseRoute parses [x1, y1, x2, y2].
func (p *Parser) ParseRoute(data []string) (RouteCommand, error) {
	var cmd RouteCommand
	if err := need(data, 4, "route"); err != nil {
		return cmd, err
	}
	data = util.CleanArgs(data)

	var err error
	if cmd.Start, err = parsePoint(data, 0, "start"); err != nil {
		return cmd, err
	}
	if cmd.Target, err = parsePoint(data, 2, "target"); err != nil {
		return cmd, err
	}
	return cmd, nil
}

// ParseTicks parses an optional tick count. No argument means one tick.
func (p *Parser) ParseTicks(data []string) (int, error) {
	if len(data) == 0 || util.CleanArgs(data[:1])[0] == "" {
		return 1, nil
	}
	n, err := parseUintFromFloat(util.CleanArgs(data[:1])[0])
	if err != nil {
		return 0, fmt.Errorf("error parsing tick count: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("tick count must be positive")
	}
	return int(n), nil
}

// ParseAmount parses an optional mutation amount in [0, 1].
func (p *Parser) ParseAmount(data []string, fallback float64) (float64, error) {
	amount := fallback
	if len(data) > 0 {
		if s := util.CleanArgs(data[:1])[0]; s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, fmt.Errorf("error parsing mutation amount: %w", err)
			}
			amount = v
		}
	}
	if amount < 0 || amount > 1 {
		return 0, fmt.Errorf("mutation amount %v outside [0, 1]", amount)
	}
	return amount, nil
}
