package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the operator for a single line of input.
type Prompter interface {
	Prompt(ctx context.Context, message string) (string, error)
}

// ConsolePrompter reads answers line by line from an input stream.
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsolePrompter creates a prompter that writes questions to out and
// reads answers from in.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: bufio.NewReader(in), out: out}
}

// Prompt blocks until a line is read. The context is checked before
// reading only; console reads cannot be interrupted.
func (p *ConsolePrompter) Prompt(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := fmt.Fprint(p.out, message+" "); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
