package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// stdinPrompter reads answers line by line from r and writes prompts to w.
type stdinPrompter struct {
	r *bufio.Reader
	w io.Writer
}

func newStdinPrompter(r io.Reader, w io.Writer) *stdinPrompter {
	return &stdinPrompter{r: bufio.NewReader(r), w: w}
}

type promptResult struct {
	line string
	err  error
}

// Prompt implements session.Prompter. A cancelled ctx abandons the read.
func (p *stdinPrompter) Prompt(ctx context.Context, message string) (string, error) {
	fmt.Fprint(p.w, message)

	ch := make(chan promptResult, 1)
	go func() {
		line, err := p.r.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- promptResult{line: strings.TrimRight(line, "\r\n"), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return "", fmt.Errorf("reading answer: %w", res.err)
		}
		return res.line, nil
	}
}
