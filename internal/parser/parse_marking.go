package parser

import (
	"fmt"

	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/internal/marking"
	"github.com/roadsim/roadsim/internal/util"
)

// MarkingCommand places one marking.
type MarkingCommand struct {
	Kind      marking.Kind
	Center    geometry.Point
	Direction geometry.Point
}

// ParseMarking parses [kind, x, y, dx, dy].
func (p *Parser) ParseMarking(data []string) (MarkingCommand, error) {
	var cmd MarkingCommand
	if err := need(data, 5, "marking"); err != nil {
		return cmd, err
	}
	data = util.CleanArgs(data)

	kind, err := marking.ParseKind(data[0])
	if err != nil {
		return cmd, fmt.Errorf("error parsing marking kind: %w", err)
	}
	cmd.Kind = kind

	if cmd.Center, err = parsePoint(data, 1, "center"); err != nil {
		return cmd, err
	}
	if cmd.Direction, err = parsePoint(data, 3, "direction"); err != nil {
		return cmd, err
	}
	return cmd, nil
}
