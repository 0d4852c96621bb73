package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"evacsim/internal/fire"
	"evacsim/internal/grid"
	"evacsim/internal/job"
	"evacsim/internal/sim"

	"github.com/gorilla/websocket"
	"github.com/matryer/way"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

// statusBody is the polling response. Result is present only when complete
// and Error only when failed.
type statusBody struct {
	Status   job.Status  `json:"status"`
	Result   *sim.Result `json:"result,omitempty"`
	Error    string      `json:"error,omitempty"`
	Progress int         `json:"progress"`
	MaxTicks int         `json:"max_ticks"`
}

func newStatusBody(j job.Job) statusBody {
	return statusBody{Status: j.Status, Result: j.Result, Error: j.Error, Progress: j.Progress, MaxTicks: j.MaxTicks}
}

type progressMsg struct {
	Status   job.Status `json:"status"`
	Progress int        `json:"progress"`
	MaxTicks int        `json:"max_ticks"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, badRequest("parse upload: %v", err))
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, badRequest("missing file field"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, badRequest("read upload: %v", err))
		return
	}

	plan, err := grid.DecodePlan(hdr.Filename, data, s.cfg.Classifier)
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := plan.Grid()
	if err != nil {
		writeError(w, err)
		return
	}
	opts, err := s.requestOptions(r, plan)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := s.jobs.Submit(r.Context(), g, opts)
	if err != nil {
		s.log.Warn("submit rejected", "file", hdr.Filename, "err", err)
		writeError(w, err)
		return
	}
	rows, cols := g.Shape()
	s.log.Info("simulation submitted", "job_id", id, "file", hdr.Filename, "rows", rows, "cols", cols)
	writeJSON(w, http.StatusOK, submitResponse{JobID: id})
}

// requestOptions merges plan markers and form overrides into the defaults.
func (s *Server) requestOptions(r *http.Request, plan *grid.Plan) (sim.Options, error) {
	opts := s.cfg.Defaults
	if len(plan.Agents) > 0 {
		opts.Agents = plan.Agents
	}
	if len(plan.Ignition) > 0 {
		opts.Ignition = fire.IgniteFixed
		opts.IgnitionPoints = plan.Ignition
	}
	if v := r.FormValue("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return opts, badRequest("seed: %v", err)
		}
		opts.Seed = n
	}
	if v := r.FormValue("num_agents"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, badRequest("num_agents: %v", err)
		}
		opts.NumAgents = n
	}
	if v := r.FormValue("max_ticks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, badRequest("max_ticks: %v", err)
		}
		opts.MaxTicks = n
	}
	if v := r.FormValue("p_spread"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, badRequest("p_spread: %v", err)
		}
		opts.SpreadProbability = p
	}
	if err := opts.Validate(); err != nil {
		return opts, badRequest("%v", err)
	}
	return opts, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := way.Param(r.Context(), "job_id")
	j, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatusBody(j))
}

// handleStream pushes progress over a websocket until the job is terminal.
// The last message is the full status body.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := way.Param(ctx, "job_id")
	if _, err := s.jobs.Get(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "job_id", id, "err", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.log.Warn("websocket read failed", "job_id", id, "err", err)
				}
				return
			}
		}
	}()

	t := time.NewTicker(s.cfg.StreamInterval)
	defer t.Stop()
	last := progressMsg{Progress: -1}
	for {
		j, err := s.jobs.Get(ctx, id)
		if err != nil {
			_ = conn.WriteJSON(errorBody{Error: err.Error()})
			return
		}
		if j.Status.Terminal() {
			if err := conn.WriteJSON(newStatusBody(j)); err != nil {
				s.log.Warn("websocket write failed", "job_id", id, "err", err)
				return
			}
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
		msg := progressMsg{Status: j.Status, Progress: j.Progress, MaxTicks: j.MaxTicks}
		if msg != last {
			if err := conn.WriteJSON(msg); err != nil {
				s.log.Warn("websocket write failed", "job_id", id, "err", err)
				return
			}
			last = msg
		}
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
