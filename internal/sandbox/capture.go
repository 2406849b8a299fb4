package sandbox

import (
	"bytes"
	"io"
	"log"
	"log/slog"
	"os"
)

// Capture redirects diagnostic output for the duration of one controller
// call. stop restores the previous streams and returns what was written.
type Capture interface {
	Start() (stop func() (string, error), err error)
}

// Streams captures the process stdout and stderr, the standard logger and the
// default slog logger. A default slog handler holds its own writer, so it is
// swapped for one writing into the pipe rather than relying on os.Stderr.
type Streams struct{}

func (Streams) Start() (func() (string, error), error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	stdout, stderr := os.Stdout, os.Stderr
	logOut, logFlags := log.Writer(), log.Flags()
	prevSlog := slog.Default()
	os.Stdout, os.Stderr = w, w
	// SetDefault rewires the log package, so it goes first.
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})))
	log.SetOutput(w)

	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(&buf, r)
		done <- err
	}()

	return func() (string, error) {
		os.Stdout, os.Stderr = stdout, stderr
		slog.SetDefault(prevSlog)
		log.SetOutput(logOut)
		log.SetFlags(logFlags)
		w.Close()
		err := <-done
		r.Close()
		return buf.String(), err
	}, nil
}

// NoCapture lets output through untouched.
type NoCapture struct{}

func (NoCapture) Start() (func() (string, error), error) {
	return func() (string, error) { return "", nil }, nil
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
