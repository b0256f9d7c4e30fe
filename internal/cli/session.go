package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chainexec/internal/config"
	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/datapack"
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/sink"
	"github.com/roach88/chainexec/internal/store"
	"github.com/roach88/chainexec/internal/telemetry"
	"github.com/roach88/chainexec/internal/world"
)

// session is one configured world with its datapack, engine and, when a
// database is set, its store.
type session struct {
	cfg      config.Config
	logger   *slog.Logger
	world    *world.World
	compiler *datapack.Compiler
	registry *datapack.Registry
	engine   *engine.Engine
	store    *store.Store
	shutdown func(context.Context) error

	last engine.Invocation
}

// openSession builds a session from the configuration, the world file,
// the database and the datapacks. A non-nil observer replaces the
// telemetry observer. Failures are reported through f.
func openSession(ctx context.Context, opts *RootOptions, f *OutputFormatter, packs []string, observer engine.ObserverFactory) (*session, error) {
	cfg, err := opts.Config()
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	s := &session{cfg: cfg, logger: opts.Logger(f.GetErrWriter())}

	worldOpts := []world.Option{world.WithLogger(s.logger)}
	if cfg.Seed != 0 {
		worldOpts = append(worldOpts, world.WithSeed(cfg.Seed))
	}
	s.world = world.New(worldOpts...)
	if opts.World != "" {
		state, err := loadState(opts.World)
		if err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load world", err)
		}
		if err := s.world.Apply(state); err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to apply world", err)
		}
	}

	var backends *sink.Backends
	listeners := []engine.InvocationListener{s}
	if cfg.Database != "" {
		st, err := store.Open(cfg.Database)
		if err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		s.store = st
		if err := st.LoadWorld(ctx, s.world); err != nil {
			s.closeStore()
			return nil, f.Fail(ExitCommandError, ErrCodeStore, "failed to load world from database", err)
		}
		b := store.NewBackend(st, s.logger)
		backends = &sink.Backends{
			Scores:   sink.ScoreTee{s.world, b},
			Data:     sink.DataTee{s.world, b},
			BossBars: sink.BossBarTee{s.world, b},
			Journal:  b,
			Logger:   s.logger,
		}
		listeners = append(listeners, b)
		f.VerboseLog("Loaded world from %s", cfg.Database)
	}

	s.compiler = datapack.NewCompiler(s.world, backends)
	s.compiler.Predicates.MaxArea = cfg.MaxArea

	s.registry = datapack.NewRegistry()
	if len(packs) > 0 {
		pack, err := datapack.Load(packs...)
		if err != nil {
			s.closeStore()
			return nil, f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load datapack", err)
		}
		reg, err := pack.Build(s.compiler)
		if err != nil {
			s.closeStore()
			return nil, f.Fail(ExitFailure, ErrCodeBuildFailed, "datapack did not build", err)
		}
		s.registry = reg
		f.VerboseLog("Loaded %d function(s) from %d file(s)", len(reg.Functions()), len(pack.Files))
	}

	if observer == nil && cfg.OTelEndpoint != "" {
		shutdown, err := telemetry.Setup(ctx, cfg.OTelEndpoint, telemetry.ServiceName)
		if err != nil {
			s.closeStore()
			return nil, f.Fail(ExitCommandError, ErrCodeConfig, "failed to set up tracing", err)
		}
		s.shutdown = shutdown
		observer = telemetry.Observer(nil)
	}

	engineOpts := []engine.Option{
		engine.WithLogger(s.logger),
		engine.WithLimits(cfg.Limits()),
		engine.WithFunctions(s.registry),
		engine.WithTraceOpener(engine.DirTraceOpener{Dir: cfg.TraceDir}),
	}
	for _, l := range listeners {
		engineOpts = append(engineOpts, engine.WithListener(l))
	}
	if observer != nil {
		engineOpts = append(engineOpts, engine.WithObserver(observer))
	}
	s.engine = engine.New(engineOpts...)
	return s, nil
}

// loadState reads a YAML world state. Unknown fields are rejected.
func loadState(path string) (world.State, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return world.State{}, err
	}
	var state world.State
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&state); err != nil {
		return world.State{}, fmt.Errorf("%s: %w", path, err)
	}
	return state, nil
}

func (s *session) InvocationStarted(_ context.Context, inv engine.Invocation) {
	s.last = inv
}

func (s *session) InvocationFinished(context.Context, engine.Invocation, engine.Result, error) {}

// source returns the command source of an invocation: the server, or the
// single entity selector as matches.
func (s *session) source(as string, out engine.Output) (engine.Source, error) {
	server := engine.NewSource("Server", out)
	if as == "" {
		return server, nil
	}
	sel, err := world.ParseSelector(as)
	if err != nil {
		return engine.Source{}, err
	}
	es := sel.Select(s.world, server)
	if len(es) != 1 {
		return engine.Source{}, fmt.Errorf("--as %s: matched %d entities, want 1", as, len(es))
	}
	return engine.SourceFor(es[0], out), nil
}

// call runs a function or tag with SNBT macro arguments.
func (s *session) call(ctx context.Context, as, name, args string) (InvocationReport, error) {
	var compound data.Compound
	if args != "" {
		c, err := data.ParseCompound(args)
		if err != nil {
			return InvocationReport{}, fmt.Errorf("invalid --args: %w", err)
		}
		compound = c
	}
	log := &messageLog{}
	src, err := s.source(as, log)
	if err != nil {
		return InvocationReport{}, err
	}
	s.last = engine.Invocation{}
	res, runErr := s.engine.Call(ctx, src, name, compound)
	return s.report("function "+name, res, runErr, log), nil
}

// exec compiles and runs one command line. Syntax errors are returned.
func (s *session) exec(ctx context.Context, as, line string) (InvocationReport, error) {
	chain, err := s.compiler.Compile(line)
	if err != nil {
		return InvocationReport{}, err
	}
	log := &messageLog{}
	src, err := s.source(as, log)
	if err != nil {
		return InvocationReport{}, err
	}
	s.last = engine.Invocation{}
	res, runErr := s.engine.Execute(ctx, src, chain)
	return s.report(chain.Input, res, runErr, log), nil
}

func (s *session) report(input string, res engine.Result, err error, log *messageLog) InvocationReport {
	r := InvocationReport{
		Input:    input,
		ID:       s.last.ID,
		Seq:      s.last.Seq,
		Reported: res.Reported,
		Success:  res.Success,
		Value:    res.Value,
		Tasks:    res.Tasks,
		Messages: log.messages,
	}
	if err != nil {
		r.Error = err.Error()
		r.Kind = string(engine.KindOf(err))
	}
	return r
}

// close saves the world to the database and shuts telemetry down.
func (s *session) close(ctx context.Context) error {
	var errs []error
	if s.store != nil {
		if err := s.store.SaveWorld(ctx, s.world); err != nil {
			errs = append(errs, fmt.Errorf("save world: %w", err))
		}
	}
	if err := s.closeStore(); err != nil {
		errs = append(errs, err)
	}
	if s.shutdown != nil {
		if err := s.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *session) closeStore() error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// Message is one line an invocation sent to its source.
type Message struct {
	Text    string `json:"text"`
	Failure bool   `json:"failure,omitempty"`
}

type messageLog struct {
	messages []Message
}

func (l *messageLog) SendMessage(text string, failure bool) {
	l.messages = append(l.messages, Message{Text: text, Failure: failure})
}

// InvocationReport is the outcome of one invocation.
type InvocationReport struct {
	Input    string    `json:"input"`
	ID       string    `json:"id,omitempty"`
	Seq      int64     `json:"seq,omitempty"`
	Reported bool      `json:"reported"`
	Success  bool      `json:"success"`
	Value    int       `json:"value"`
	Tasks    int       `json:"tasks"`
	Error    string    `json:"error,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// Failed reports whether the invocation ended with an error.
func (r InvocationReport) Failed() bool { return r.Error != "" }

func (r InvocationReport) String() string {
	var b strings.Builder
	b.WriteString(r.Input)
	switch {
	case r.Failed():
		fmt.Fprintf(&b, ": error %s: %s", r.Kind, r.Error)
	case !r.Reported:
		b.WriteString(": no result")
	case r.Success:
		fmt.Fprintf(&b, ": success value=%d", r.Value)
	default:
		b.WriteString(": failure")
	}
	fmt.Fprintf(&b, " tasks=%d", r.Tasks)
	for _, m := range r.Messages {
		mark := "|"
		if m.Failure {
			mark = "!"
		}
		fmt.Fprintf(&b, "\n  %s %s", mark, m.Text)
	}
	return b.String()
}
