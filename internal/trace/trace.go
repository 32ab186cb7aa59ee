// Package trace records a run as zstd-compressed JSON lines: one header line
// followed by one frame line per recorded tick. A trace carries enough to
// rebuild the run and check that it replays to the same frames.
package trace

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/vovakirdan/tui-traffic/internal/config"
	"github.com/vovakirdan/tui-traffic/internal/sim"
)

// Extension is appended to every trace file name.
const Extension = ".jsonl.zst"

const (
	kindHeader = "header"
	kindFrame  = "frame"
)

var (
	// ErrNoHeader is returned when a trace does not start with a header line.
	ErrNoHeader = errors.New("trace: missing header")
	// ErrMismatch is returned by Verify when a replayed frame differs.
	ErrMismatch = errors.New("trace: replay mismatch")
)

// Header is the first line of a trace.
type Header struct {
	Kind      string            `json:"kind"`
	RunID     string            `json:"run_id"`
	Scene     string            `json:"scene"`
	SceneFile string            `json:"scene_file,omitempty"`
	Config    sim.Config        `json:"config"`
	Ramp      config.RampConfig `json:"ramp"`
	Every     uint64            `json:"every"`
	Tiles     []sim.TileView    `json:"tiles"`
}

// Frame is one recorded tick.
type Frame struct {
	Kind string `json:"kind"`
	sim.Snapshot
	Spawned []uint64 `json:"spawned,omitempty"`
	Exited  []uint64 `json:"exited,omitempty"`
	Digest  string   `json:"digest"`
}

// Digest hashes the drawable state of a snapshot.
func Digest(s sim.Snapshot) string {
	s.Tiles = nil
	b, err := json.Marshal(s)
	if err != nil {
		// Snapshots only hold plain values.
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

// FileName returns the conventional trace path for a run.
func FileName(dir, scene, runID string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", scene, runID, Extension))
}

// Framer is anything that can produce the current frame.
type Framer interface {
	Frame() sim.Snapshot
}

// Recorder writes a trace file. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	path   string
	every  uint64
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
	frames uint64
}

// Create opens a trace file at path and writes the header. A frame is
// recorded on ticks that are a multiple of every; zero means every tick.
func Create(path string, h Header, every uint64) (*Recorder, error) {
	if every == 0 {
		every = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("trace: %w", err)
	}

	r := &Recorder{
		path:  path,
		every: every,
		f:     f,
		enc:   enc,
		w:     bufio.NewWriterSize(enc, 128*1024),
	}

	h.Kind = kindHeader
	h.Every = every
	if err := r.writeLine(h); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// Path returns the file being written.
func (r *Recorder) Path() string { return r.path }

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Observe records the state after a step when the tick is due.
func (r *Recorder) Observe(w Framer, res sim.StepResult) error {
	if res.Tick%r.every != 0 {
		return nil
	}

	snap := w.Frame()
	fr := Frame{Kind: kindFrame, Snapshot: snap, Digest: Digest(snap)}
	for _, ev := range res.Spawned {
		fr.Spawned = append(fr.Spawned, ev.ID)
	}
	for _, ev := range res.Exited {
		fr.Exited = append(fr.Exited, ev.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writeLine(fr); err != nil {
		return err
	}
	r.frames++
	return nil
}

func (r *Recorder) writeLine(v any) error {
	if r.w == nil {
		return fmt.Errorf("trace: %s is closed", r.path)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	if _, err := r.w.Write(b); err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	if err := r.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.w != nil {
		errs = append(errs, r.w.Flush())
		r.w = nil
	}
	if r.enc != nil {
		errs = append(errs, r.enc.Close())
		r.enc = nil
	}
	if r.f != nil {
		errs = append(errs, r.f.Close())
		r.f = nil
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	return nil
}

// Reader reads a trace file frame by frame.
type Reader struct {
	f      *os.File
	dec    *zstd.Decoder
	sc     *bufio.Scanner
	header Header
}

// Open opens a trace and reads its header.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("trace: %w", err)
	}

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	r := &Reader{f: f, dec: dec, sc: sc}

	if !sc.Scan() {
		_ = r.Close()
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("trace: %s: %w", filepath.Base(path), err)
		}
		return nil, ErrNoHeader
	}
	if err := json.Unmarshal(sc.Bytes(), &r.header); err != nil || r.header.Kind != kindHeader {
		_ = r.Close()
		return nil, ErrNoHeader
	}
	return r, nil
}

// Header returns the trace header.
func (r *Reader) Header() Header { return r.header }

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (Frame, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return Frame{}, fmt.Errorf("trace: %w", err)
		}
		return Frame{}, io.EOF
	}
	var fr Frame
	if err := json.Unmarshal(r.sc.Bytes(), &fr); err != nil {
		return Frame{}, fmt.Errorf("trace: unmarshal: %w", err)
	}
	if fr.Kind != kindFrame {
		return Frame{}, fmt.Errorf("trace: unexpected line kind %q", fr.Kind)
	}
	return fr, nil
}

// Close releases the file.
func (r *Reader) Close() error {
	r.dec.Close()
	return r.f.Close()
}

// Summary describes a trace without keeping its frames.
type Summary struct {
	Header      Header
	Frames      uint64
	FirstTick   uint64
	LastTick    uint64
	PeakVehicle int
	Spawned     int
	Exited      int
}

// Summarize reads a whole trace.
func Summarize(path string) (Summary, error) {
	r, err := Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer r.Close()

	s := Summary{Header: r.Header()}
	for {
		fr, err := r.Next()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return s, err
		}
		if s.Frames == 0 {
			s.FirstTick = fr.Tick
		}
		s.Frames++
		s.LastTick = fr.Tick
		s.PeakVehicle = max(s.PeakVehicle, len(fr.Vehicles))
		s.Spawned += len(fr.Spawned)
		s.Exited += len(fr.Exited)
	}
}

// Options returns the sim options needed to rebuild the recorded run.
func (h Header) Options() []sim.Option {
	return config.RampOptions(h.Ramp, h.Config.SpawnEvery)
}

// Stepper is a world that can be advanced and observed.
type Stepper interface {
	Framer
	Step() (sim.StepResult, error)
	Tick() uint64
}

// Verify replays a trace against a freshly built world and compares the
// digest of every recorded frame. It returns the number of frames checked.
func Verify(path string, build func(Header) (Stepper, error)) (uint64, error) {
	r, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	w, err := build(r.Header())
	if err != nil {
		return 0, fmt.Errorf("trace: rebuild: %w", err)
	}

	var checked uint64
	for {
		fr, err := r.Next()
		if errors.Is(err, io.EOF) {
			return checked, nil
		}
		if err != nil {
			return checked, err
		}
		if fr.Tick < w.Tick() {
			return checked, fmt.Errorf("%w: frame for tick %d after tick %d", ErrMismatch, fr.Tick, w.Tick())
		}
		for w.Tick() < fr.Tick {
			if _, err := w.Step(); err != nil {
				return checked, fmt.Errorf("trace: replay: %w", err)
			}
		}
		if got := Digest(w.Frame()); got != fr.Digest {
			return checked, fmt.Errorf("%w at tick %d: got %s, recorded %s", ErrMismatch, fr.Tick, got, fr.Digest)
		}
		checked++
	}
}
