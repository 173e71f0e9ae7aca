package api

import (
	"fmt"
	"net/http"
	"time"
)

// ─── POST /api/internal/sequence/run ─────────────────────────────────────────

type runSequenceResponse struct {
	Locked     bool `json:"locked"`
	Leads      int  `json:"leads"`
	Sent       int  `json:"sent"`
	NotDue     int  `json:"not_due"`
	Completed  int  `json:"completed"`
	Suppressed int  `json:"suppressed"`
	Duplicates int  `json:"duplicates"`
	Failed     int  `json:"failed"`
}

// handleRunSequence runs one sequencer pass for an external scheduler. A pass
// already running elsewhere is reported as locked with 200 so the scheduler
// does not retry.
func (s *Server) handleRunSequence(w http.ResponseWriter, r *http.Request) {
	if s.sequencer == nil {
		respondErr(w, http.StatusNotFound, "not found")
		return
	}

	// The server's WriteTimeout is sized for ordinary requests.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(s.cfg.SequenceTimeout + 10*time.Second)); err != nil {
		s.logger.Debug("sequence: write deadline not extended", "error", err)
	}

	stats, err := s.sequencer.Run(r.Context(), s.now())
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("run sequence: %w", err))
		return
	}

	respond(w, http.StatusOK, runSequenceResponse(stats))
}
