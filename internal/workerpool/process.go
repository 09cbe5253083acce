package workerpool

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"
)

// ProcessSpawner runs each worker as a child process speaking
// newline-delimited JSON over stdin/stdout. The child's stderr is inherited.
type ProcessSpawner struct {
	// Command is the worker binary; empty means this executable.
	Command string
	Args    []string
	// Env is appended to the parent's environment.
	Env    []string
	Logger *slog.Logger
}

func NewProcessSpawner(command string, args []string, logger *slog.Logger) *ProcessSpawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessSpawner{Command: command, Args: args, Logger: logger}
}

func (s *ProcessSpawner) resolve() (string, error) {
	if s.Command == "" {
		return os.Executable()
	}
	return exec.LookPath(s.Command)
}

// Available is false on runtimes that cannot start subprocesses, or when the
// worker command does not resolve.
func (s *ProcessSpawner) Available() bool {
	switch runtime.GOOS {
	case "js", "wasip1", "ios", "android":
		return false
	}
	_, err := s.resolve()
	return err == nil
}

// Spawn starts a child. The child is not tied to ctx; it lives until
// Terminate.
func (s *ProcessSpawner) Spawn(ctx context.Context) (Executor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve()
	if err != nil {
		return nil, fmt.Errorf("resolve worker command: %w", err)
	}

	cmd := exec.Command(path, s.Args...)
	cmd.Env = append(os.Environ(), s.Env...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	s.Logger.Debug("worker process started", "pid", cmd.Process.Pid, "command", path)

	return &processExecutor{
		cmd:   cmd,
		stdin: stdin,
		enc:   json.NewEncoder(stdin),
		dec:   json.NewDecoder(bufio.NewReader(stdout)),
	}, nil
}

type processExecutor struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu  sync.Mutex
	enc *json.Encoder
	dec *json.Decoder

	once    sync.Once
	waitErr error
}

// Execute writes one request and reads one response. ctx is not watched here:
// the pool unblocks a stuck call by terminating the process.
func (e *processExecutor) Execute(_ context.Context, req Request) (Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.enc.Encode(req); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}
	var resp Response
	if err := e.dec.Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.ID != req.ID {
		return Response{}, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	return resp, nil
}

// Terminate kills the child and reaps it. Wait runs only after an in-flight
// Execute has stopped reading stdout.
func (e *processExecutor) Terminate() error {
	e.once.Do(func() {
		_ = e.stdin.Close()
		if err := e.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			e.waitErr = err
			return
		}
		// the kill closes the child's end of stdout, so a blocked Decode returns
		e.mu.Lock()
		defer e.mu.Unlock()
		var exitErr *exec.ExitError
		if err := e.cmd.Wait(); err != nil && !errors.As(err, &exitErr) {
			e.waitErr = err
		}
	})
	return e.waitErr
}
