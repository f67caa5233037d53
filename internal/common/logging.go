package common

import (
	"io"
	"log"
	"os"
)

var (
	logger = log.New(os.Stderr, "[divelog] ", log.LstdFlags|log.Lmicroseconds)
)

func Logf(format string, args ...interface{}) {
	logger.Printf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}

// SetLogOutput redirects the package logger, e.g. into a rotating file
// writer configured by the daemon.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}
