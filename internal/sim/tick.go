package sim

import (
	"context"
	"fmt"
	"runtime/debug"

	"evacsim/internal/grid"
	"evacsim/internal/logging"
	"evacsim/internal/navigation"
	"evacsim/internal/telemetry"
)

// Run ticks until every agent is terminal or the tick budget is spent.
// The context is checked between ticks. Panics inside the loop are returned
// as ErrSimulationFault.
func (s *Simulator) Run(ctx context.Context) (res *Result, err error) {
	log := logging.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("simulation panic", "run_id", s.runID, "tick", s.tick, "panic", r, "stack", string(debug.Stack()))
			res, err = nil, fmt.Errorf("%w: tick %d: %v", ErrSimulationFault, s.tick, r)
		}
	}()

	if s.phase == Initialized {
		s.start(ctx)
	}
	for s.phase != Complete {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.Tick(ctx)
	}
	return s.Result(), nil
}

func (s *Simulator) start(ctx context.Context) {
	s.phase = Running
	logging.FromContext(ctx).Debug("starting run", "run_id", s.runID, "seed", s.seed, "agents", len(s.agents), "max_ticks", s.opts.MaxTicks)
	rw, ok := s.writer.(RunWriter)
	if !ok {
		return
	}
	rows, cols := s.grid.Shape()
	exits := s.grid.Exits()
	ex := make([][2]int, len(exits))
	for i, e := range exits {
		ex[i] = e.XY()
	}
	row := telemetry.RunRow{
		Kind:              telemetry.KindRun,
		RunID:             s.runID,
		Rows:              rows,
		Cols:              cols,
		Plan:              grid.Text(s.grid),
		Exits:             ex,
		Agents:            len(s.agents),
		MaxTicks:          s.opts.MaxTicks,
		SpreadProbability: s.opts.SpreadProbability,
		Seed:              s.seed,
		Timestamp:         s.now().UTC(),
	}
	if err := rw.WriteRun(row); err != nil {
		logging.FromContext(ctx).Error("run header write failed", "run_id", s.runID, "err", err)
	}
}

// Tick advances the run by one step:
//  1. spread fire
//  2. move every evacuating agent along the fresh distance field
//  3. mark agents on exits escaped, then agents on fire burned
//  4. record and emit the snapshot
func (s *Simulator) Tick(ctx context.Context) {
	if s.phase == Complete {
		return
	}
	if s.phase == Initialized {
		s.start(ctx)
	}
	log := logging.FromContext(ctx)
	s.tick++

	s.hazard = s.fire.Step(s.hazard)

	field := navigation.NewField(s.grid, s.hazard, s.opts.Neighborhood)
	for i := range s.agents {
		if s.agents[i].Status != StatusEvacuating {
			continue
		}
		s.agents[i].Pos = s.nav.Step(field, s.agents[i].Pos)
	}

	var events []telemetry.EventRow
	for i := range s.agents {
		a := &s.agents[i]
		if a.Status != StatusEvacuating {
			continue
		}
		switch {
		case s.grid.IsExit(a.Pos):
			a.Status = StatusEscaped
		case s.hazard.Burning(a.Pos):
			a.Status = StatusBurned
		default:
			continue
		}
		events = append(events, telemetry.EventRow{
			Kind:      telemetry.KindEvent,
			RunID:     s.runID,
			Tick:      s.tick,
			AgentID:   a.ID,
			EventType: string(a.Status),
			X:         a.Pos.Col,
			Y:         a.Pos.Row,
			Timestamp: s.now().UTC(),
		})
	}

	snap := Snapshot{Tick: s.tick, Fire: s.hazard.Cells(), Agents: s.Agents()}
	s.history = append(s.history, snap)

	if s.allTerminal() || s.tick >= s.opts.MaxTicks {
		s.phase = Complete
	}
	s.emit(ctx, snap, events)

	if s.phase == Complete {
		t := countTotals(s.agents)
		log.Debug("run complete", "run_id", s.runID, "ticks", s.tick, "escaped", t.Escaped, "burned", t.Burned, "unresolved", t.Unresolved)
	}
}

func (s *Simulator) emit(ctx context.Context, snap Snapshot, events []telemetry.EventRow) {
	if s.writer == nil {
		return
	}
	log := logging.FromContext(ctx)
	if err := s.writer.WriteFrame(s.frameRow(snap)); err != nil {
		log.Error("frame write failed", "run_id", s.runID, "tick", snap.Tick, "err", err)
	}
	if ew, ok := s.writer.(EventWriter); ok {
		for _, e := range events {
			if err := ew.WriteEvent(e); err != nil {
				log.Error("event write failed", "run_id", s.runID, "agent_id", e.AgentID, "err", err)
			}
		}
	}
	if s.phase != Complete {
		return
	}
	if sw, ok := s.writer.(SummaryWriter); ok {
		if err := sw.WriteSummary(s.summaryRow()); err != nil {
			log.Error("summary write failed", "run_id", s.runID, "err", err)
		}
	}
}

func (s *Simulator) frameRow(snap Snapshot) telemetry.FrameRow {
	row := telemetry.FrameRow{
		Kind:      telemetry.KindFrame,
		RunID:     s.runID,
		Tick:      snap.Tick,
		FireMap:   make([][2]int, len(snap.Fire)),
		Agents:    make([]telemetry.AgentRow, len(snap.Agents)),
		Burning:   len(snap.Fire),
		Timestamp: s.now().UTC(),
	}
	for i, c := range snap.Fire {
		row.FireMap[i] = c.YX()
	}
	for i, a := range snap.Agents {
		row.Agents[i] = telemetry.AgentRow{ID: a.ID, X: a.Pos.Col, Y: a.Pos.Row, Status: string(a.Status)}
		switch a.Status {
		case StatusEscaped:
			row.Escaped++
		case StatusBurned:
			row.Burned++
		default:
			row.Evacuating++
		}
	}
	return row
}

func (s *Simulator) summaryRow() telemetry.SummaryRow {
	t := countTotals(s.agents)
	return telemetry.SummaryRow{
		Kind:              telemetry.KindSummary,
		RunID:             s.runID,
		TotalAgents:       t.TotalAgents,
		Escaped:           t.Escaped,
		Burned:            t.Burned,
		Unresolved:        t.Unresolved,
		Ticks:             s.tick,
		Seed:              s.seed,
		SpreadProbability: s.opts.SpreadProbability,
		Timestamp:         s.now().UTC(),
	}
}
