package adapter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"charm.land/lipgloss/v2"
)

const CLIPrompt = "> "

// CLIAdapter prints replies to a terminal. Input is read by the chat
// command, which submits each line through ingress.
type CLIAdapter struct {
	mu      sync.Mutex
	out     io.Writer
	running bool

	replyStyle lipgloss.Style
	errStyle   lipgloss.Style
}

func NewCLIAdapter(out io.Writer) *CLIAdapter {
	if out == nil {
		out = os.Stdout
	}
	return &CLIAdapter{
		out:        out,
		replyStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		errStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func (a *CLIAdapter) Name() string {
	return "cli"
}

func (a *CLIAdapter) Send(ctx context.Context, replyTo string, content string) error {
	style := a.replyStyle
	if strings.HasPrefix(content, "Sorry,") {
		style = a.errStyle
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// \r and the erase sequence clear a prompt that may already be printed.
	_, err := fmt.Fprintf(a.out, "\r\033[K%s\n%s", style.Render(content), CLIPrompt)
	return err
}

func (a *CLIAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	a.running = true
	fmt.Fprintln(a.out, "nightowl chat. Name a neighborhood to start, /help for commands, /exit to quit.")
	fmt.Fprint(a.out, CLIPrompt)
	a.mu.Unlock()

	go func() {
		<-ctx.Done()
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	return nil
}

func (a *CLIAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	return nil
}

func (a *CLIAdapter) Health(ctx context.Context) error {
	return nil
}
