package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// A Logger writes log output to stdout and a log file.
// The file of the previous run is kept with the suffix ".last".
type Logger struct {
	file *os.File
}

func newLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return nil, err
	}
	os.Rename(path, lastLogPath(path))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}

	return &Logger{file: f}, nil
}

// lastLogPath turns log/latest.txt into log/last.txt.
func lastLogPath(path string) string {
	dir, name := filepath.Split(path)
	if name == "latest.txt" {
		return filepath.Join(dir, "last.txt")
	}
	return path + ".last"
}

func (l *Logger) Write(p []byte) (int, error) {
	fmt.Print(string(p))

	if _, err := l.file.Write(p); err != nil {
		return 0, err
	}

	return len(p), nil
}

func (l *Logger) Close() error {
	return l.file.Close()
}
