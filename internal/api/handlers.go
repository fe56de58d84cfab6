package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/mkuran/gatewarden/internal/api/presenter"
	"github.com/mkuran/gatewarden/internal/buildinfo"
	"github.com/mkuran/gatewarden/internal/trust"
)

// handleHealth responds with a simple OK status to indicate the server is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAbout responds with service information including version and commit hash.
func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}

func DecodePayload(r *http.Request, dest any, allowEmpty bool) error {
	switch r.Header.Get("Content-Type") {
	case "application/json", "":
		// strict encoding for JSON
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(dest); err != nil {
			if !errors.Is(err, io.EOF) || !allowEmpty {
				return err
			}
		}
		// ensure there's no extra data
		if dec.More() {
			return errors.New("extra data in request body")
		}
		return nil
	default:
		return errors.New("unsupported content type")
	}
}

// handleAuthorize evaluates one authorizer request. The HTTP status is
// 200 whenever a decision was rendered; the decision body carries the
// actual outcome, exactly as the Lambda would return it.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var request events.APIGatewayCustomAuthorizerRequestTypeRequest
	if err := DecodePayload(r, &request, true /* allow empty */); err != nil {
		logger.Warn().Err(err).Msg("failed to decode authorizer request payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	decision := s.gate.Authorize(ctx, request)
	presenter.JSON(w, r, decision, http.StatusOK)
}

// handleKeys lists the trust anchor's current key set.
func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	set, err := s.fetcher.Fetch(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to fetch key set")
		presenter.Err(w, r, err, "failed to fetch key set")
		return
	}

	presenter.JSON(w, r, trust.Summarize(set), http.StatusOK)
}

// handleEvents returns recent decision events. Only available when the
// memory recorder is configured; other sinks are write-only.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.memory == nil {
		presenter.Error(w, r, "decision events are only readable with the memory audit recorder", http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	presenter.JSON(w, r, s.memory.Recent(limit), http.StatusOK)
}
