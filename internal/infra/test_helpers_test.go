package infra

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// fakeShell is a scripted ShellRunner. Responses are keyed by the joined
// argument list; unknown commands fail.
type fakeShell struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func newFakeShell() *fakeShell {
	return &fakeShell{
		responses: make(map[string]string),
		errs:      make(map[string]error),
	}
}

func (f *fakeShell) on(cmd, out string) *fakeShell {
	f.responses[cmd] = out
	return f
}

func (f *fakeShell) fail(cmd string, err error) *fakeShell {
	f.errs[cmd] = err
	return f
}

func (f *fakeShell) Shell(ctx context.Context, args ...string) (string, error) {
	key := strings.Join(args, " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)

	if err := f.errs[key]; err != nil {
		return "", err
	}
	out, ok := f.responses[key]
	if !ok {
		return "", fmt.Errorf("unexpected command %q", key)
	}
	return out, nil
}

func (f *fakeShell) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// fakeRunner is a CommandRunner recording host invocations.
type fakeRunner struct {
	mu    sync.Mutex
	out   string
	err   error
	calls [][]string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	return []byte(r.out), r.err
}
