package logging

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Output selects where logs go: a size-rotated file when path is set,
// stderr otherwise. The returned closer must be closed on shutdown.
func Output(path string) io.WriteCloser {
	if path == "" {
		return nopCloser{os.Stderr}
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
