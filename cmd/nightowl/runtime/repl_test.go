package runtime

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	owlErrors "github.com/harunnryd/nightowl/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubmitter struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (s *recordingSubmitter) Submit(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
	return s.err
}

func TestREPL_SubmitsUntilExit(t *testing.T) {
	sub := &recordingSubmitter{}
	in := strings.NewReader("east village\n\n  free stuff  \n/exit\nnever sent\n")
	var out bytes.Buffer

	require.NoError(t, NewREPL(sub, in, &out).Run(context.Background()))
	assert.Equal(t, []string{"east village", "free stuff"}, sub.lines)
}

func TestREPL_StopsAtEndOfInput(t *testing.T) {
	sub := &recordingSubmitter{}
	require.NoError(t, NewREPL(sub, strings.NewReader("soho"), &bytes.Buffer{}).Run(context.Background()))
	assert.Equal(t, []string{"soho"}, sub.lines)
}

func TestREPL_ReportsSubmitErrors(t *testing.T) {
	sub := &recordingSubmitter{err: owlErrors.RateLimited("too many")}
	var out bytes.Buffer

	require.NoError(t, NewREPL(sub, strings.NewReader("soho\n/quit\n"), &out).Run(context.Background()))
	assert.Contains(t, out.String(), "Give it a minute")
}

func TestREPL_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocked, w := io.Pipe()
	defer w.Close()
	assert.NoError(t, NewREPL(&recordingSubmitter{}, blocked, &bytes.Buffer{}).Run(ctx))
}
