package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jamiesonbates/trendscout/internal/analysis"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 4 * 1024
)

// Progress weights per stage, in pipeline order. The percent reported for
// a stage is the cumulative weight up to and including it.
var progressSteps = []struct {
	Stage   string
	Percent int
}{
	{analysis.StageTrendContext, 10},
	{analysis.StageProblemExtraction, 30},
	{analysis.StageMarketMaturity, 40},
	{analysis.StageGoalExtraction, 50},
	{analysis.StageCategorySelection, 60},
	{analysis.StageFeatureGeneration, 75},
	{analysis.StageCompetitorAnalysis, 85},
	{analysis.StageFeatureEnhancement, 95},
}

type wsProgressMessage struct {
	Type    string `json:"type"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Step    int    `json:"step"`
	Total   int    `json:"total_steps"`
	Percent int    `json:"percent"`
}

type wsCompleteMessage struct {
	Type   string                    `json:"type"`
	Result analysis.ResponseEnvelope `json:"result"`
}

type wsErrorMessage struct {
	Type  string `json:"type"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

func progressFor(stage string) (step, percent int) {
	for i, s := range progressSteps {
		if s.Stage == stage {
			return i + 1, s.Percent
		}
	}
	return 0, 0
}

// handleWebSocket runs one analysis per connection. The client sends a
// single request envelope; the server streams progress frames and closes
// with a complete or error frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	var req analysis.RequestEnvelope
	if err := conn.ReadJSON(&req); err != nil {
		_ = writeWS(conn, wsErrorMessage{Type: "error", Error: "invalid request"})
		return
	}

	// Stage callbacks fire from the pipeline goroutine; serialize writes.
	var writeMu sync.Mutex
	send := func(v any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = writeWS(conn, v)
	}

	result, err := s.analyzer.RunWithProgress(r.Context(), req, func(stage, message string) {
		step, percent := progressFor(stage)
		send(wsProgressMessage{
			Type:    "progress",
			Stage:   stage,
			Message: message,
			Step:    step,
			Total:   len(progressSteps),
			Percent: percent,
		})
	})
	if err != nil {
		s.log.WithFields(map[string]any{
			"keyword": req.Keyword,
			"stage":   analysis.StageNameFromError(err),
		}).WithError(err).Error("websocket analysis failed")
		send(wsErrorMessage{Type: "error", Stage: analysis.StageNameFromError(err), Error: err.Error()})
		return
	}

	env := analysis.BuildResponse(result)
	if _, err := s.store.SaveRun(env); err != nil {
		s.log.WithError(err).Error("persist run failed")
	}
	send(wsCompleteMessage{Type: "complete", Result: env})
}

func writeWS(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}
