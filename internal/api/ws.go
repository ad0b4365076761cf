package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/webmproject/presubmit/internal/model"
	"github.com/webmproject/presubmit/internal/presubmit"
	"github.com/webmproject/presubmit/internal/report"
)

// upgrader keeps gorilla's default origin check: browsers may only connect
// from a page served by this host.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 64,
	WriteBufferSize: 1024 * 64,
}

// WebSocket message types from client.
const (
	wsMsgRun = "run"
)

// WebSocket message types to client.
const (
	wsMsgCheckDone = "check_done"
	wsMsgVerdict   = "verdict"
	wsMsgError     = "error"
)

// wsMessage is the envelope for WebSocket messages in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wsRun is the payload for "run" messages.
type wsRun struct {
	Gate    string `json:"gate"`
	Diff    string `json:"diff"`
	RepoDir string `json:"repo_dir,omitempty"`
}

// wsCheckDone is streamed once per check, in battery order.
type wsCheckDone struct {
	report.JSONCheck
	Diagnostics []report.JSONDiagnostic `json:"diagnostics"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read", "err", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendWSError(conn, "invalid message format")
			continue
		}

		switch msg.Type {
		case wsMsgRun:
			s.handleWSRun(r, conn, msg.Data)
		default:
			s.sendWSError(conn, "unknown message type: "+msg.Type)
		}
	}
}

// handleWSRun runs a gate and streams each check result as it completes,
// then the verdict. Results arrive on the handler goroutine, so writes to
// conn never overlap.
func (s *Server) handleWSRun(r *http.Request, conn *websocket.Conn, data json.RawMessage) {
	var req wsRun
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWSError(conn, "invalid run data")
		return
	}
	gate, err := model.ParseGate(req.Gate)
	if err != nil {
		s.sendWSError(conn, err.Error())
		return
	}
	if req.Diff == "" {
		s.sendWSError(conn, "diff is required")
		return
	}

	sink := presubmit.SinkFunc(func(res model.CheckResult) {
		msg := wsCheckDone{
			JSONCheck:   report.NewJSONCheck(res),
			Diagnostics: []report.JSONDiagnostic{},
		}
		for _, d := range res.Diagnostics {
			msg.Diagnostics = append(msg.Diagnostics, report.NewJSONDiagnostic(d))
		}
		s.sendWSMessage(conn, wsMsgCheckDone, msg)
	})

	dir := s.repoDir(req.RepoDir)
	run, err := s.runner(dir, sink)
	if err != nil {
		s.sendWSError(conn, err.Error())
		return
	}
	v, err := run.Run(r.Context(), gate, patchSource(req.Diff, dir))
	if err != nil {
		s.sendWSError(conn, err.Error())
		return
	}
	s.sendWSMessage(conn, wsMsgVerdict, report.NewJSONVerdict(v))
}

func (s *Server) sendWSMessage(conn *websocket.Conn, msgType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.log.Error("ws marshal", "err", err)
		return
	}
	msg := wsMessage{Type: msgType, Data: raw}
	if err := conn.WriteJSON(msg); err != nil {
		s.log.Warn("ws write", "err", err)
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, errMsg string) {
	s.sendWSMessage(conn, wsMsgError, map[string]string{"message": errMsg})
}
