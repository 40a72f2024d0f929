package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"poolpack/internal/api"
	"poolpack/internal/archive"
	"poolpack/internal/logging"
	"poolpack/internal/progress"
	"poolpack/internal/services"
)

// handleBatch streams a build as NDJSON. Malformed and invalid requests are
// rejected with a JSON error before the stream opens.
func (s *apiServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body api.BatchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	req := body.ToRequest(consumerID(r))
	if err := s.daemon.builder.Validate(req); err != nil {
		writeError(w, services.HTTPStatus(err), err.Error())
		return
	}

	// Builds outlive the server-wide write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	sink, err := progress.NewNDJSONSink(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.runBuild(r.Context(), req, sink)
}

// handleBatchWS runs the same protocol over a WebSocket. The first client
// message is the request; every event is one text frame.
func (s *apiServer) handleBatchWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log().Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()
	sink := progress.NewWebSocketSink(conn, wsWriteTimeout)

	conn.SetReadLimit(maxBatchBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsRequestTimeout))
	var body api.BatchRequest
	if err := conn.ReadJSON(&body); err != nil {
		_ = sink.Emit(progress.Failure(fmt.Sprintf("invalid request: %v", err)))
		closeWebSocket(conn, websocket.CloseUnsupportedData)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	req := body.ToRequest(consumerID(r))
	if err := s.daemon.builder.Validate(req); err != nil {
		_ = sink.Emit(progress.Failure(err.Error()))
		closeWebSocket(conn, websocket.ClosePolicyViolation)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// Reading is the only way to observe a client close frame.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	s.runBuild(ctx, req, sink)
	closeWebSocket(conn, websocket.CloseNormalClosure)
}

func (s *apiServer) runBuild(ctx context.Context, req archive.Request, sink progress.Sink) {
	result, err := s.daemon.builder.Build(ctx, req, sink)
	logger := logging.WithContext(ctx, s.log())
	switch {
	case err == nil:
		logger.Debug("batch delivered",
			logging.String(logging.FieldBatchID, result.BatchID),
			logging.String(logging.FieldLocator, result.Artifact.Locator),
		)
	case errors.Is(err, archive.ErrAborted):
		logger.Debug("batch aborted by client", logging.Error(err))
	default:
		logger.Debug("batch failed", logging.Error(err))
	}
}

func closeWebSocket(conn *websocket.Conn, code int) {
	msg := websocket.FormatCloseMessage(code, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
