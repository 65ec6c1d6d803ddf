package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/roadsim/roadsim/internal/dispatcher"
)

// maxLine bounds a script line; polylines can be long.
const maxLine = 1 << 20

// runScript dispatches every command line of r and writes one reply line
// per command to w. Failing commands are reported and skipped; the number
// of failures is returned.
func runScript(r io.Reader, w io.Writer, d *dispatcher.Dispatcher, now func() time.Time) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	failed := 0
	for lineNo := 1; scanner.Scan(); lineNo++ {
		e, ok := dispatcher.ParseLine(scanner.Text(), now())
		if !ok {
			continue
		}
		result, err := d.Dispatch(e)
		if err != nil {
			failed++
			fmt.Fprintf(w, "%d %s error: %v\n", lineNo, e.Command, err)
			continue
		}
		fmt.Fprintf(w, "%d %s ok %s\n", lineNo, e.Command, formatResult(result))
	}
	if err := scanner.Err(); err != nil {
		return failed, fmt.Errorf("reading script: %w", err)
	}
	return failed, nil
}

func formatResult(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func (a *app) runScriptFile(path string) error {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		in = f
	}

	failed, err := runScript(in, os.Stdout, a.dispatcher, time.Now)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d commands failed", failed)
	}
	return nil
}
