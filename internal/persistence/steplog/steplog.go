// Package steplog appends one JSON line per completed simulation step and
// reads them back for replay audits. Files ending in ".zst" are
// zstd-compressed.
package steplog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"botworld.ai/internal/sim/world"
)

// Writer is an append-only step log. It satisfies world.StepLogger.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	w := &Writer{f: f}
	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		w.enc = enc
		w.w = bufio.NewWriterSize(enc, 128*1024)
	} else {
		w.w = bufio.NewWriterSize(f, 128*1024)
	}
	return w, nil
}

func (w *Writer) WriteStep(rec world.StepRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return os.ErrClosed
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var err error
	if w.w != nil {
		_ = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	return err
}

// Reader iterates the records of one step log in write order.
type Reader struct {
	f   *os.File
	dec *zstd.Decoder
	sc  *bufio.Scanner

	line int
	rec  world.StepRecord
	err  error
}

func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{f: f}
	var src io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		r.dec = dec
		src = dec
	}
	r.sc = bufio.NewScanner(bufio.NewReaderSize(src, 128*1024))
	r.sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return r, nil
}

// Next advances to the following record. It returns false at end of log or
// on error; check Err afterwards.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	for r.sc.Scan() {
		r.line++
		raw := r.sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, &r.rec); err != nil {
			r.err = fmt.Errorf("step log line %d: %w", r.line, err)
			return false
		}
		return true
	}
	r.err = r.sc.Err()
	return false
}

func (r *Reader) Record() world.StepRecord { return r.rec }

func (r *Reader) Err() error { return r.err }

func (r *Reader) Close() error {
	if r.dec != nil {
		r.dec.Close()
	}
	return r.f.Close()
}
