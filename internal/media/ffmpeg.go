package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"video-processing-service/internal/logging"
)

const stderrTailLines = 20

// TransformError reports a failed ffmpeg invocation together with the last lines it wrote to stderr.
type TransformError struct {
	Op     string // transcode | resize
	Input  string
	Output string
	Stderr string
	Err    error
}

func (e *TransformError) Error() string {
	msg := fmt.Sprintf("%s %s -> %s: %v", e.Op, e.Input, e.Output, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *TransformError) Unwrap() error { return e.Err }

// FFmpeg runs the ffmpeg binary for video transcodes and thumbnail resizes.
type FFmpeg struct {
	bin string
	log *slog.Logger
}

func New(bin string, logger *slog.Logger) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin, log: logging.WithComponent(logger, "ffmpeg")}
}

// Check reports whether the configured binary can be found.
func (f *FFmpeg) Check() error {
	if _, err := exec.LookPath(f.bin); err != nil {
		return fmt.Errorf("ffmpeg binary not found: %w", err)
	}
	return nil
}

// TranscodeArgs scales to the target height keeping the aspect ratio; -2 keeps the width even for libx264.
func TranscodeArgs(in, out string, height int) []string {
	return []string{
		"-y",
		"-i", in,
		"-vf", "scale=-2:" + strconv.Itoa(height),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		out,
	}
}

// ResizeArgs covers the whole width x height box and crops the overflow.
func ResizeArgs(in, out string, width, height int) []string {
	w, h := strconv.Itoa(width), strconv.Itoa(height)
	return []string{
		"-y",
		"-i", in,
		"-vf", "scale=" + w + ":" + h + ":force_original_aspect_ratio=increase,crop=" + w + ":" + h,
		"-frames:v", "1",
		out,
	}
}

func (f *FFmpeg) Transcode(ctx context.Context, in, out string, height int) error {
	if height <= 0 {
		return &TransformError{Op: "transcode", Input: in, Output: out, Err: fmt.Errorf("invalid height %d", height)}
	}
	return f.run(ctx, "transcode", in, out, TranscodeArgs(in, out, height))
}

func (f *FFmpeg) Resize(ctx context.Context, in, out string, width, height int) error {
	if width <= 0 || height <= 0 {
		return &TransformError{Op: "resize", Input: in, Output: out, Err: fmt.Errorf("invalid size %dx%d", width, height)}
	}
	return f.run(ctx, "resize", in, out, ResizeArgs(in, out, width, height))
}

// run starts the process and waits for its single result on a channel.
// Cancelling ctx kills the process.
func (f *FFmpeg) run(ctx context.Context, op, in, out string, args []string) error {
	logger := logging.FromContext(ctx, f.log).With("tool", "ffmpeg", "op", op, "output", out)

	cmd := exec.CommandContext(ctx, f.bin, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &TransformError{Op: op, Input: in, Output: out, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &TransformError{Op: op, Input: in, Output: out, Err: err}
	}
	logger.Info("ffmpeg started", "pid", cmd.Process.Pid)

	tail := newTailBuffer(stderrTailLines)
	done := make(chan error, 1)
	go func() {
		streamLines(stderr, func(line string) {
			tail.add(line)
			logger.Debug("ffmpeg stderr", "line", line)
		})
		done <- cmd.Wait()
	}()

	if err := <-done; err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return &TransformError{Op: op, Input: in, Output: out, Stderr: tail.String(), Err: err}
	}

	logger.Info("ffmpeg finished")
	return nil
}

// streamLines splits on both \n and \r since ffmpeg rewrites its progress line in place.
func streamLines(r io.Reader, fn func(string)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
			return i + 1, data[:i], nil
		}
		if atEOF && len(data) > 0 {
			return len(data), data, nil
		}
		return 0, nil, nil
	})
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			fn(line)
		}
	}
	// drain so Wait does not block on a full pipe after a scanner error
	_, _ = io.Copy(io.Discard, r)
}

type tailBuffer struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{max: n}
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
