package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubExec struct {
	loggedIn bool
	calls    []string
}

func (s *stubExec) isLoggedIn() bool { return s.loggedIn }

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	return nil
}

func (s *stubExec) Register(ctx context.Context) error { return s.record("register") }
func (s *stubExec) Login(ctx context.Context) error    { return s.record("login") }
func (s *stubExec) Logout(ctx context.Context) error   { return s.record("logout") }
func (s *stubExec) Status(ctx context.Context) error   { return s.record("status") }
func (s *stubExec) Upload(ctx context.Context) error   { return s.record("upload") }
func (s *stubExec) Download(ctx context.Context) error { return s.record("download") }
func (s *stubExec) Merge(ctx context.Context) error    { return s.record("merge") }
func (s *stubExec) List(ctx context.Context) error     { return s.record("list") }

func runScript(t *testing.T, exec *stubExec, script string) []string {
	t.Helper()

	var out []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		out = append(out, fmt.Sprintln(a...))
		return 0, nil
	}
	defer func() { printlnFn = orig }()

	scanner := bufio.NewScanner(strings.NewReader(script))
	runREPL(context.Background(), exec, func() string { return "test" }, scanner)
	return out
}

func TestREPLDispatch(t *testing.T) {
	exec := &stubExec{loggedIn: true}
	runScript(t, exec, "status\nupload\ndownload\nmerge\nlist\nlogout\nexit\n")
	assert.Equal(t, []string{"status", "upload", "download", "merge", "list", "logout"}, exec.calls)
}

func TestREPLUnknownCommand(t *testing.T) {
	exec := &stubExec{}
	out := runScript(t, exec, "frobnicate\nquit\n")
	assert.Empty(t, exec.calls)

	joined := strings.Join(out, "")
	assert.Contains(t, joined, "Unknown command: frobnicate")
	assert.Contains(t, joined, "Bye!")
}

func TestREPLHelpFollowsSessionState(t *testing.T) {
	out := runScript(t, &stubExec{}, "help\nexit\n")
	assert.Contains(t, strings.Join(out, ""), "register, login")

	out = runScript(t, &stubExec{loggedIn: true}, "help\nexit\n")
	assert.Contains(t, strings.Join(out, ""), "upload, download, merge")
}

func TestREPLSkipsBlankLinesAndStopsOnEOF(t *testing.T) {
	exec := &stubExec{}
	runScript(t, exec, "\n\nstatus\n")
	assert.Equal(t, []string{"status"}, exec.calls)
}
