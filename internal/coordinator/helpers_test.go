package coordinator

import (
	"io"
	"log/slog"
	"math/rand"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}
