// Package eventlog is the structured event sink the harness scores
// correctness against: every membership-table insert or evict must produce
// a NODE_ADDED or NODE_REMOVED record naming the affected peer.
package eventlog

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gossipmesh/internal/membership/addrcodec"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Log wraps a process-wide *slog.Logger and exposes the two wire-level
// observables the harness expects.
type Log struct {
	logger *slog.Logger
}

// New builds a Log around an existing slog.Logger. Pass nil to use
// slog.Default().
func New(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Configure installs a process-wide slog default logger at the given level
// and returns a Log wrapping it.
func Configure(level string) (*Log, error) {
	parsed, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parsed})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return New(logger), nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", LevelInfo:
		return slog.LevelInfo, nil
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelWarn:
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("eventlog: invalid log level %q", level)
	}
}

// NodeAdded records that self learned of added as a new member.
func (l *Log) NodeAdded(self, added addrcodec.Address) {
	l.logger.Info("membership change", "event", "NODE_ADDED", "self", self.String(), "peer", added.String())
}

// NodeRemoved records that self evicted removed from its table.
func (l *Log) NodeRemoved(self, removed addrcodec.Address) {
	l.logger.Info("membership change", "event", "NODE_REMOVED", "self", self.String(), "peer", removed.String())
}

// DroppedFrame records a frame dropped for being malformed or carrying an
// unknown tag. Never surfaced as an error — purely observational.
func (l *Log) DroppedFrame(self addrcodec.Address, reason error) {
	l.logger.Warn("dropped frame", "self", self.String(), "reason", reason)
}

// SkippedEntry records a peer entry that was silently skipped while
// processing a JOINREP or heartbeat (self-references), rather than
// returned as an error.
func (l *Log) SkippedEntry(self addrcodec.Address, reason error) {
	l.logger.Debug("skipped peer entry", "self", self.String(), "reason", reason)
}
