package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"shipforge.ai/internal/protocol"
)

// DefaultMaxFileBytes caps one report log file. Past it, a new part opens
// within the same hour.
const DefaultMaxFileBytes int64 = 256 << 20

// JSONLZstdWriter appends one JSON document per line to hourly files under
// baseDir. The first file of an hour is <prefix>-YYYY-MM-DD-HH.jsonl.zst; once
// it holds maxBytes of JSONL, parts <prefix>-YYYY-MM-DD-HH.pNNN.jsonl.zst
// follow. Names sort in write order. maxBytes <= 0 disables the cap.
type JSONLZstdWriter struct {
	baseDir  string
	prefix   string
	maxBytes int64
	now      func() time.Time

	mu   sync.Mutex
	hour string
	part int
	// size counts uncompressed bytes, except that a reopened file starts
	// from its size on disk.
	size int64
	f    *os.File
	enc  *zstd.Encoder
	buf  *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string, maxBytes int64) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir:  baseDir,
		prefix:   prefix,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (w *JSONLZstdWriter) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.hour {
		if err := w.openLocked(hour, w.lastPart(hour)); err != nil {
			return err
		}
	}
	if w.maxBytes > 0 && w.size > 0 && w.size+int64(len(line)) > w.maxBytes {
		if err := w.openLocked(hour, w.part+1); err != nil {
			return err
		}
	}
	if _, err := w.buf.Write(line); err != nil {
		return err
	}
	w.size += int64(len(line))
	return w.buf.Flush()
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) openLocked(hour string, part int) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(w.baseDir, w.fileName(hour, part)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	var size int64
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc = f, enc
	w.buf = bufio.NewWriterSize(enc, 128*1024)
	w.hour, w.part, w.size = hour, part, size
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err error
	if w.buf != nil {
		err = w.buf.Flush()
		w.buf = nil
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
		w.enc = nil
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	w.hour = ""
	return err
}

func (w *JSONLZstdWriter) fileName(hour string, part int) string {
	if part == 0 {
		return fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour)
	}
	return fmt.Sprintf("%s-%s.p%03d.jsonl.zst", w.prefix, hour, part)
}

// lastPart finds the highest part already on disk for hour, so a restarted
// writer keeps appending where the previous one stopped.
func (w *JSONLZstdWriter) lastPart(hour string) int {
	ents, err := os.ReadDir(w.baseDir)
	if err != nil {
		return 0
	}
	stem := fmt.Sprintf("%s-%s.p", w.prefix, hour)
	last := 0
	for _, e := range ents {
		name := e.Name()
		if !strings.HasPrefix(name, stem) || !strings.HasSuffix(name, ".jsonl.zst") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, stem), ".jsonl.zst"))
		if err == nil && n > last {
			last = n
		}
	}
	return last
}

// ReportEntry is one line of the report log.
type ReportEntry struct {
	RecordedAt string             `json:"recorded_at"`
	RunID      string             `json:"run_id"`
	Report     protocol.ReportMsg `json:"report"`
}

// ReportLogger writes one compressed JSONL entry per validation run.
type ReportLogger struct{ w *JSONLZstdWriter }

// NewReportLogger writes under <dataDir>/reports. maxFileBytes <= 0 uses
// DefaultMaxFileBytes.
func NewReportLogger(dataDir string, maxFileBytes int64) *ReportLogger {
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	return &ReportLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "reports"), "reports", maxFileBytes)}
}

func (l *ReportLogger) WriteReport(runID string, m protocol.ReportMsg) error {
	if l == nil {
		return nil
	}
	return l.w.Write(ReportEntry{
		RecordedAt: l.w.now().UTC().Format(time.RFC3339Nano),
		RunID:      runID,
		Report:     m,
	})
}

func (l *ReportLogger) Close() error {
	if l == nil {
		return nil
	}
	return l.w.Close()
}
