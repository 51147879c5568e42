package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cachesweep/internal/domain/model"
)

const (
	MetaDir         = "meta"
	LatestRunFile   = "latest-run.json"
	fileTimeLayout  = "20060102150405"
	maxNameAttempts = 8
)

var marshalRunLog = func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

// Writer persists one RunLog file per invocation under Dir.
type Writer struct {
	Dir string

	log    *zap.Logger
	now    func() time.Time
	pid    int
	suffix func() string
}

func NewWriter(dir string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		Dir:    dir,
		log:    log,
		now:    time.Now,
		pid:    os.Getpid(),
		suffix: randomSuffix,
	}
}

func randomSuffix() string {
	return uuid.New().String()[:8]
}

// FileName is run-<YYYYMMDDhhmmss>-<pid>-<8 hex>.json, sortable by time.
func FileName(ts time.Time, pid int, suffix string) string {
	return fmt.Sprintf("run-%s-%d-%s.json", ts.UTC().Format(fileTimeLayout), pid, suffix)
}

// Write persists rl and returns the final path. The latest-run pointer is
// refreshed afterwards on a best-effort basis.
func (w *Writer) Write(ctx context.Context, rl model.RunLog) (string, error) {
	_ = ctx
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", &WriteError{Kind: ErrLogDir, Dir: w.Dir, Err: err}
	}

	if rl.Version == 0 {
		rl.Version = model.RunLogVersion
	}
	if rl.Timestamp.IsZero() {
		rl.Timestamp = w.now()
	}
	rl.Timestamp = rl.Timestamp.UTC()

	data, err := marshalRunLog(rl)
	if err != nil {
		w.log.Warn("run log payload could not be serialized; writing error record", zap.Error(err))
		data = fallbackRecord(rl, err)
	}

	final, suffix, err := w.reserveName(rl.Timestamp)
	if err != nil {
		return "", err
	}
	if err := durableWrite(final, data, fmt.Sprintf("%d.%s", w.pid, suffix), false); err != nil {
		return "", err
	}

	w.updateLatest(filepath.Base(final))
	return final, nil
}

func (w *Writer) reserveName(ts time.Time) (string, string, error) {
	var final string
	for i := 0; i < maxNameAttempts; i++ {
		suffix := w.suffix()
		final = filepath.Join(w.Dir, FileName(ts, w.pid, suffix))
		if _, err := os.Lstat(final); os.IsNotExist(err) {
			return final, suffix, nil
		}
	}
	return "", "", &WriteError{Kind: ErrLogWrite, Dir: w.Dir, FinalPath: final, Err: fmt.Errorf("no free file name after %d attempts", maxNameAttempts)}
}

type errorRecord struct {
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	DryRun    bool      `json:"dryRun"`
	Error     string    `json:"error"`
}

func fallbackRecord(rl model.RunLog, cause error) []byte {
	b, err := json.MarshalIndent(errorRecord{
		Version:   rl.Version,
		Timestamp: rl.Timestamp,
		Command:   rl.Command,
		DryRun:    rl.DryRun,
		Error:     "run log serialization failed: " + cause.Error(),
	}, "", "  ")
	if err != nil {
		return []byte(`{"version":1,"error":"run log serialization failed"}`)
	}
	return b
}

// updateLatest is non-critical: every failure is logged and dropped, never
// returned, so the primary run log stays authoritative.
func (w *Writer) updateLatest(logFile string) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Debug("latest-run pointer update panicked", zap.Any("panic", r))
		}
	}()

	metaDir := filepath.Join(w.Dir, MetaDir)
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		w.log.Debug("latest-run pointer skipped", zap.Error(err))
		return
	}
	data, err := json.MarshalIndent(model.LatestRunPointer{UpdatedAt: w.now().UTC(), LogFile: logFile}, "", "  ")
	if err != nil {
		w.log.Debug("latest-run pointer skipped", zap.Error(err))
		return
	}
	if err := durableWrite(filepath.Join(metaDir, LatestRunFile), data, fmt.Sprintf("%d.%s", w.pid, randomSuffix()), true); err != nil {
		w.log.Debug("latest-run pointer skipped", zap.Error(err))
	}
}
