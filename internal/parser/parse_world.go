package parser

import (
	"errors"
	"fmt"

	"github.com/roadsim/roadsim/internal/util"
)

// GenerateCommand names a world and the polylines its graph is built from.
type GenerateCommand struct {
	Name      string
	Polylines []string
}

// ParseGenerate parses [name, polyline...].
func (p *Parser) ParseGenerate(data []string) (GenerateCommand, error) {
	var cmd GenerateCommand
	if err := need(data, 2, "generate"); err != nil {
		return cmd, err
	}
	data = util.CleanArgs(data)
	if data[0] == "" {
		return cmd, errors.New("generate: empty world name")
	}
	cmd.Name = data[0]
	for i, pl := range data[1:] {
		if pl == "" {
			p.logger.Warn("Skipping empty polyline", "index", i)
			continue
		}
		cmd.Polylines = append(cmd.Polylines, pl)
	}
	if len(cmd.Polylines) == 0 {
		return cmd, fmt.Errorf("generate %s: no polylines", cmd.Name)
	}
	return cmd, nil
}

// ParseName returns the first argument, or fallback when there is none.
// An empty result is an error.
func (p *Parser) ParseName(data []string, fallback string) (string, error) {
	name := fallback
	if len(data) > 0 {
		if n := util.CleanArgs(data[:1])[0]; n != "" {
			name = n
		}
	}
	if name == "" {
		return "", fmt.Errorf("name: %w", ErrMissingArgs)
	}
	return name, nil
}
