// internal/console/prompter.go
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xkilldash9x/webpilot/api/schemas"
)

// ErrNoInput is returned when the input stream ends before a line is read.
var ErrNoInput = errors.New("no input available")

type lineResult struct {
	text string
	err  error
}

// Prompter talks to the operator over a line-oriented terminal. It answers
// confirmation gates and the ask_human tool. Prompts block until the operator
// replies or ctx is cancelled.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	mu      sync.Mutex
	pending chan lineResult
}

var (
	_ schemas.ConfirmationProvider = (*Prompter)(nil)
	_ schemas.QuestionProvider     = (*Prompter)(nil)
)

// NewPrompter reads answers from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// readLine returns the next line without its terminator. A read abandoned
// through ctx stays pending and its line is delivered to the next call.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == nil {
		ch := make(chan lineResult, 1)
		go func() {
			text, err := p.in.ReadString('\n')
			ch <- lineResult{text: text, err: err}
		}()
		p.pending = ch
	}

	select {
	case r := <-p.pending:
		p.pending = nil
		text := strings.TrimRight(r.text, "\r\n")
		if r.err != nil {
			if errors.Is(r.err, io.EOF) && text != "" {
				return text, nil
			}
			if errors.Is(r.err, io.EOF) {
				return "", ErrNoInput
			}
			return "", fmt.Errorf("failed to read input: %w", r.err)
		}
		return text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Prompt writes label and returns the trimmed reply.
func (p *Prompter) Prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.readLine(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question. Only "yes" or "y" approves.
func (p *Prompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	answer, err := p.Prompt(ctx, fmt.Sprintf("\n!! %s (yes/no): ", prompt))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "yes", "y":
		return true, nil
	default:
		return false, nil
	}
}

// Ask relays a question from the agent and returns the operator's answer verbatim.
func (p *Prompter) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprintf(p.out, "\nAgent asks: %s\n", question)
	return p.Prompt(ctx, "Your answer: ")
}

// ReadTask prompts for the task. An empty reply falls back to defaultTask.
func (p *Prompter) ReadTask(ctx context.Context, defaultTask string) (string, error) {
	task, err := p.Prompt(ctx, "Enter task for the agent: ")
	if err != nil && !errors.Is(err, ErrNoInput) {
		return "", err
	}
	if task == "" {
		fmt.Fprintf(p.out, "Using default task: %s\n", defaultTask)
		return defaultTask, nil
	}
	return task, nil
}

// WaitForEnter shows message and blocks until a line is read or input ends.
func (p *Prompter) WaitForEnter(ctx context.Context, message string) error {
	_, err := p.Prompt(ctx, "\n"+message)
	if errors.Is(err, ErrNoInput) {
		return nil
	}
	return err
}
