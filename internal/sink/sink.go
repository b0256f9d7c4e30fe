// Package sink builds the result callbacks of "store" steps.
//
// A store sink turns the (success, result) pair of a terminal instruction
// into one integer and writes it through a backend: a scoreboard, a field
// of structured data, or a boss bar. With raw results the value is the
// result itself; otherwise it is 1 for success and 0 for failure.
package sink

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/engine"
)

// Value is what a sink writes for one outcome.
func Value(success bool, result int, raw bool) int {
	if raw {
		return result
	}
	if success {
		return 1
	}
	return 0
}

// Writer stores one computed value.
type Writer interface {
	// Target describes where values go, e.g. "score @s kills".
	Target() string
	Write(value int) error
}

// Write is one journaled store.
type Write struct {
	Target  string
	Raw     bool
	Success bool
	Result  int
	Value   int
	// Error is the backend failure, empty when the write succeeded.
	Error string
}

// Journal records every write a sink attempts.
type Journal interface {
	RecordWrite(w Write)
}

// Sink is an engine.Sink writing through a Writer.
type Sink struct {
	writer  Writer
	raw     bool
	journal Journal
	logger  *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithJournal records writes into j.
func WithJournal(j Journal) Option {
	return func(s *Sink) {
		s.journal = j
	}
}

// WithLogger sets the logger for backend failures. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = l
	}
}

// New returns a sink writing the stored value of every outcome to w.
func New(w Writer, raw bool, opts ...Option) *Sink {
	s := &Sink{writer: w, raw: raw, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnResult writes the value for (success, result). A backend failure is
// logged and journaled; it never reaches the chain, which already ended.
func (s *Sink) OnResult(success bool, result int) {
	v := Value(success, result, s.raw)
	err := s.writer.Write(v)
	if err != nil {
		s.logger.Error("store write failed",
			"target", s.writer.Target(),
			"value", v,
			"error", err)
	}
	if s.journal != nil {
		w := Write{
			Target:  s.writer.Target(),
			Raw:     s.raw,
			Success: success,
			Result:  result,
			Value:   v,
		}
		if err != nil {
			w.Error = err.Error()
		}
		s.journal.RecordWrite(w)
	}
}

func (s *Sink) String() string {
	mode := "success"
	if s.raw {
		mode = "result"
	}
	return "store " + mode + " " + s.writer.Target()
}

// ScoreWriter sets one objective for a fixed list of score holders.
type ScoreWriter struct {
	Board     Scoreboard
	Objective string
	Holders   []string
}

func (w ScoreWriter) Target() string {
	return fmt.Sprintf("score %v %s", w.Holders, w.Objective)
}

func (w ScoreWriter) Write(value int) error {
	for _, h := range w.Holders {
		if err := w.Board.SetScore(w.Objective, h, value); err != nil {
			return fmt.Errorf("set score %s of %s: %w", w.Objective, h, err)
		}
	}
	return nil
}

// DataWriter sets a numeric field. The value is scaled, floored and then
// narrowed to Type.
type DataWriter struct {
	Storage DataStorage
	Ref     DataRef
	Path    data.Path
	Type    data.Type
	Scale   float64
}

func (w DataWriter) Target() string {
	return fmt.Sprintf("%s %s %s %g", w.Ref, w.Path, w.Type, w.Scale)
}

func (w DataWriter) Write(value int) error {
	n, err := Scaled(value, w.Scale, w.Type)
	if err != nil {
		return err
	}
	return w.Storage.SetData(w.Ref, w.Path, n)
}

// Scaled computes floor(value * scale) narrowed to t.
func Scaled(value int, scale float64, t data.Type) (data.Numeric, error) {
	return data.Narrow(t, math.Floor(float64(value)*scale))
}

// BossBarWriter sets the value or the maximum of a boss bar.
type BossBarWriter struct {
	Bars BossBars
	ID   string
	Max  bool
}

func (w BossBarWriter) Target() string {
	if w.Max {
		return "bossbar " + w.ID + " max"
	}
	return "bossbar " + w.ID + " value"
}

func (w BossBarWriter) Write(value int) error {
	return w.Bars.SetBossBar(w.ID, w.Max, value)
}

var _ engine.Sink = (*Sink)(nil)
