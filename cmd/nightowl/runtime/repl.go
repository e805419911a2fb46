package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/harunnryd/nightowl/internal/adapter"
	owlErrors "github.com/harunnryd/nightowl/internal/errors"
)

// Submitter is what the REPL feeds lines into.
type Submitter interface {
	Submit(ctx context.Context, text string) error
}

type REPL struct {
	submitter Submitter
	in        io.Reader
	out       io.Writer
}

func NewREPL(submitter Submitter, in io.Reader, out io.Writer) *REPL {
	return &REPL{submitter: submitter, in: in, out: out}
}

// Run reads lines until /exit, end of input or ctx is done. Replies arrive
// asynchronously through the CLI output adapter.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			text := strings.TrimSpace(line)
			if text == "" {
				fmt.Fprint(r.out, adapter.CLIPrompt)
				continue
			}
			if isExit(text) {
				return nil
			}
			if err := r.submitter.Submit(ctx, text); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				fmt.Fprintf(r.out, "%s\n%s", submitErrorText(err), adapter.CLIPrompt)
			}
		}
	}
}

func isExit(text string) bool {
	switch strings.ToLower(text) {
	case "/exit", "/quit":
		return true
	}
	return false
}

func submitErrorText(err error) string {
	switch {
	case errors.Is(err, owlErrors.ErrRateLimited):
		return "Easy there. Give it a minute and ask again."
	case errors.Is(err, owlErrors.ErrTransient):
		return "Busy right now, try that again in a moment."
	default:
		return "Sorry, that didn't go through: " + err.Error()
	}
}
