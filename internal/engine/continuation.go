package engine

// Continuation evaluates a chain from Stage on for a set of sources.
//
// Steps run stage by stage over the whole source set. Redirects and forks
// replace each source with what they produce, conditionals filter, store
// steps attach sinks. At the terminal one task is queued per remaining
// source. Original is the source the chain started from; it receives
// errors that are not tied to a single derived source.
type Continuation struct {
	Chain    Chain
	Stage    int
	Sources  []Source
	Mods     ChainModifiers
	Original Source
	// Announce reports the chain to the tracer before it starts.
	Announce bool

	// filter, when set, replaces Sources with those accepted by the
	// isolated function calls of an IfFunction step.
	filter *functionFilter
}

func (c Continuation) execute(ctl *Control) error {
	q := ctl.q
	if c.Announce {
		q.events().OnCommand(ctl.frame.depth, c.Chain.Input)
	}

	sources, mods := c.Sources, c.Mods
	if c.filter != nil {
		var rejected bool
		sources, rejected = c.filter.accepted()
		if rejected && !mods.Forked() {
			ctl.reportError(c.Original, NewConditionalFailed(), false)
			return nil
		}
	}

	forkLimit := q.engine.limits.MaxForkCount
	for stage := c.Stage; stage < len(c.Chain.Steps); stage++ {
		step := c.Chain.Steps[stage]
		switch st := step.(type) {
		case IfFunction:
			return c.queueIfFunction(ctl, st, stage, sources, mods)
		case Redirect:
			if st.Producer.Forks() {
				mods = mods.SetForked()
			}
		}

		next := make([]Source, 0, len(sources))
		for _, src := range sources {
			produced, err := applyStep(step, src, mods)
			if err != nil {
				ctl.reportError(src, err, mods.Forked())
				if !mods.Forked() {
					return nil
				}
				continue
			}
			if forkLimit > 0 && len(next)+len(produced) > forkLimit {
				ctl.reportError(c.Original, NewForkLimitExceeded(forkLimit), mods.Forked())
				return nil
			}
			next = append(next, produced...)
		}
		sources = next
	}

	return c.runTerminal(ctl, sources, mods)
}

func applyStep(step Step, src Source, mods ChainModifiers) ([]Source, error) {
	switch st := step.(type) {
	case Redirect:
		out, err := st.Producer.Expand(src)
		if err != nil {
			return nil, err
		}
		if st.Producer.Forks() {
			for i := range out {
				out[i] = out[i].ClearCallback()
			}
		}
		return out, nil
	case Conditional:
		return filterConditional(src, st, mods)
	case StoreResult:
		sink, err := st.Target.Bind(src, st.Raw)
		if err != nil {
			return nil, err
		}
		return []Source{src.WithCallback(src.Callback().Attach(sink))}, nil
	default:
		return nil, NewCommandFailed("unsupported step %T", step)
	}
}

func (c Continuation) runTerminal(ctl *Control, sources []Source, mods ChainModifiers) error {
	if len(sources) == 0 {
		if mods.IsReturn() {
			ctl.QueueNext(Fallthrough{})
		}
		return nil
	}

	q := ctl.q
	switch t := c.Chain.Terminal.(type) {
	case Run:
		c.queueLeaves(ctl, t.Instruction, sources, mods)
	case Test:
		c.queueLeaves(ctl, testInstruction{cond: t.Condition, expect: t.Expect}, sources, mods)
	case Return:
		src := sources[0]
		src.Callback().OnSuccess(t.Value)
		ctl.frame.ReturnSuccess(t.Value)
		ctl.frame.Discard()
	case ReturnFail:
		src := sources[0]
		src.Callback().OnFailure()
		ctl.frame.ReturnFailure()
		ctl.frame.Discard()
	case ReturnRun:
		ctl.frame.Discard()
		ctl.QueueNext(Continuation{
			Chain:    t.Chain,
			Sources:  sources,
			Mods:     mods.SetReturn(),
			Original: c.Original,
		})
	case Functions:
		for _, src := range sources {
			bc := ctl.branch(src, mods)
			if err := q.callFunctions(bc, t, src, mods); err != nil {
				if bc == ctl {
					return err
				}
				q.unwind(bc.region, err)
			}
		}
	case TraceFunctions:
		for _, src := range sources {
			bc := ctl.branch(src, mods)
			if err := q.traceFunctions(bc, t, src, mods); err != nil {
				if bc == ctl {
					return err
				}
				q.unwind(bc.region, err)
			}
		}
	default:
		ctl.reportError(c.Original, NewCommandFailed("Incomplete command: %s", c.Chain.Input), mods.Forked())
	}
	return nil
}

// queueLeaves schedules one instruction run per source. In return mode only
// the first source runs and its result also goes to the frame.
func (c Continuation) queueLeaves(ctl *Control, ins Instruction, sources []Source, mods ChainModifiers) {
	if mods.IsReturn() {
		first := sources[0]
		first = first.WithCallback(first.Callback().Then(ctl.frame.Returns()))
		sources = []Source{first}
	}
	for _, src := range sources {
		task := RunInstruction{Instruction: ins, Source: src, Command: c.Chain.Input, Mods: mods}
		if mods.Forked() {
			ctl.queueAt(task, ctl.frame, ctl.region.child(c.Original))
			continue
		}
		ctl.QueueNext(task)
	}
}

// queueIfFunction runs the step's functions in an isolated call per source
// and queues the rest of the chain over the sources that passed.
func (c Continuation) queueIfFunction(ctl *Control, st IfFunction, stage int, sources []Source, mods ChainModifiers) error {
	q := ctl.q
	programs, err := q.engine.resolve(st.Name)
	if err != nil {
		ctl.reportError(c.Original, err, mods.Forked())
		return nil
	}

	filter := &functionFilter{expect: st.Expect}
	for _, src := range sources {
		args, err := arguments(st.Args, src)
		if err != nil {
			ctl.reportError(src, err, mods.Forked())
			if !mods.Forked() {
				return nil
			}
			continue
		}

		cand := filter.add(src)
		probe := src.ClearCallback().Silenced().WithCallback(NewCallback(SinkFunc(func(success bool, result int) {
			if success && result != 0 {
				cand.passed = true
			}
		})))
		ctl.QueueNext(IsolatedCall{
			Source: src,
			Body: func(inner *Control) error {
				return inner.q.queueFunctions(inner, programs, args, probe, probe, DefaultModifiers)
			},
		})
	}

	ctl.QueueNext(Continuation{
		Chain:    c.Chain,
		Stage:    stage + 1,
		Mods:     mods,
		Original: c.Original,
		filter:   filter,
	})
	return nil
}

type functionFilter struct {
	expect     bool
	candidates []*candidate
}

type candidate struct {
	src    Source
	passed bool
}

func (f *functionFilter) add(src Source) *candidate {
	c := &candidate{src: src}
	f.candidates = append(f.candidates, c)
	return c
}

// accepted returns the sources whose outcome matched the expectation and
// whether any was rejected.
func (f *functionFilter) accepted() ([]Source, bool) {
	var out []Source
	rejected := false
	for _, c := range f.candidates {
		if c.passed == f.expect {
			out = append(out, c.src)
		} else {
			rejected = true
		}
	}
	return out, rejected
}
