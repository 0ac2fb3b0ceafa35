package bridge

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/c360/ticketfront/errors"
	"github.com/c360/ticketfront/protocol"
)

// process is one running backend with line-oriented stdio.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	done   chan struct{}
	logger *slog.Logger

	mu      sync.Mutex
	waitErr error
}

// startProcess launches the backend. It is stopped when ctx is cancelled.
// A missing executable is fatal; other start failures are transient.
func startProcess(ctx context.Context, cfg BackendConfig, logger *slog.Logger) (*process, error) {
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	cmd.WaitDelay = 2 * time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.WrapFatal(err, "bridge", "startProcess", "open stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.WrapFatal(err, "bridge", "startProcess", "open stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.WrapFatal(err, "bridge", "startProcess", "open stderr")
	}

	if err := cmd.Start(); err != nil {
		wrapped := fmt.Errorf("%w: %v", errors.ErrBackendUnavailable, err)
		if stderrors.Is(err, exec.ErrNotFound) || stderrors.Is(err, os.ErrNotExist) || stderrors.Is(err, os.ErrPermission) {
			return nil, errors.WrapFatal(wrapped, "bridge", "startProcess", "start "+cfg.Command)
		}
		return nil, errors.WrapTransient(wrapped, "bridge", "startProcess", "start "+cfg.Command)
	}

	p := &process{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan string, 64),
		done:   make(chan struct{}),
		logger: logger.With("pid", cmd.Process.Pid),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		p.readStdout(stdout)
	}()
	go func() {
		defer readers.Done()
		p.captureStderr(stderr)
	}()
	go func() {
		readers.Wait()
		err := cmd.Wait()
		p.mu.Lock()
		p.waitErr = err
		p.mu.Unlock()
		close(p.done)
	}()

	p.logger.Info("backend started", "command", cfg.Command)
	return p, nil
}

func (p *process) readStdout(stdout io.Reader) {
	defer close(p.lines)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.lines <- strings.TrimRight(scanner.Text(), "\r")
	}
}

func (p *process) captureStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		p.logger.Debug("backend stderr", "line", scanner.Text())
	}
}

// Done is closed once the process has exited and its output is drained.
func (p *process) Done() <-chan struct{} {
	return p.done
}

// Err returns the exit error after Done is closed.
func (p *process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Exchange writes msg as one line and returns the reply framed for the
// command named in msg. idle ends replies of unannounced length; timeout
// bounds the wait for the first line.
func (p *process) Exchange(ctx context.Context, msg string, idle, timeout time.Duration) (string, error) {
	p.dropStale()

	if _, err := io.WriteString(p.stdin, msg+"\n"); err != nil {
		return "", errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrBackendUnavailable, err), "bridge", "Exchange", "write command")
	}

	first, err := p.nextLine(ctx, timeout)
	if err != nil {
		return "", err
	}

	_, name, _ := protocol.ParseWire(msg)
	extra, known := protocol.ExpectedLines(name, first)

	reply := []string{first}
	if known {
		for i := 0; i < extra; i++ {
			line, err := p.nextLine(ctx, timeout)
			if err != nil {
				return "", err
			}
			reply = append(reply, line)
		}
		return strings.Join(reply, "\n"), nil
	}

	for {
		line, err := p.nextLine(ctx, idle)
		if err != nil {
			if stderrors.Is(err, errors.ErrReplyTimeout) || stderrors.Is(err, errors.ErrBackendUnavailable) {
				break
			}
			return "", err
		}
		reply = append(reply, line)
	}
	return strings.Join(reply, "\n"), nil
}

// nextLine waits up to wait for one stdout line.
func (p *process) nextLine(ctx context.Context, wait time.Duration) (string, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", errors.WrapTransient(fmt.Errorf("%w: backend exited", errors.ErrBackendUnavailable), "bridge", "Exchange", "read reply")
		}
		return line, nil
	case <-timer.C:
		return "", errors.WrapTransient(errors.ErrReplyTimeout, "bridge", "Exchange", "read reply")
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "bridge", "Exchange", "read reply")
	}
}

// dropStale discards output left over from an earlier reply so it is not
// taken as the answer to the next command.
func (p *process) dropStale() {
	for {
		select {
		case line, ok := <-p.lines:
			if !ok {
				return
			}
			p.logger.Warn("dropping unrequested backend output", "line", line)
		default:
			return
		}
	}
}

// Stop closes stdin and kills the process if it has not exited within grace.
func (p *process) Stop(grace time.Duration) {
	_ = p.stdin.Close()
	select {
	case <-p.done:
	case <-time.After(grace):
		_ = p.cmd.Process.Kill()
		<-p.done
	}
	p.logger.Info("backend stopped", "error", p.Err())
}
