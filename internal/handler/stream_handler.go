// Package handler exposes the play engine's HTTP surface.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tunelease/server/internal/catalog"
	"github.com/tunelease/server/internal/domain"
	"github.com/tunelease/server/internal/media"
	"github.com/tunelease/server/internal/policy"
	"github.com/tunelease/server/internal/service"
	"github.com/tunelease/server/internal/session"
	apperrors "github.com/tunelease/server/pkg/errors"
	"github.com/tunelease/server/pkg/httputil"
	"github.com/tunelease/server/pkg/logger"
	"github.com/tunelease/server/pkg/telemetry"
)

// PlayTokenHeader carries the play-session token. The server issues a fresh
// value on every streaming response; the client echoes the latest one on its
// next range request.
const PlayTokenHeader = "X-Play-Token"

// StreamHandler serves audio bytes and drives play validation as a side
// effect of serving them.
type StreamHandler struct {
	tracks    catalog.TrackCatalog
	companies catalog.CompanyDirectory
	source    media.Source
	tracker   *session.Tracker
	writer    *service.LedgerWriter
	metrics   *telemetry.Provider
	log       logger.Logger
}

// NewStreamHandler creates the streaming handler.
func NewStreamHandler(
	tracks catalog.TrackCatalog,
	companies catalog.CompanyDirectory,
	source media.Source,
	tracker *session.Tracker,
	writer *service.LedgerWriter,
	metrics *telemetry.Provider,
	log logger.Logger,
) *StreamHandler {
	return &StreamHandler{
		tracks:    tracks,
		companies: companies,
		source:    source,
		tracker:   tracker,
		writer:    writer,
		metrics:   metrics,
		log:       log,
	}
}

// Register mounts the streaming routes.
func (h *StreamHandler) Register(r gin.IRouter) {
	r.GET("/music/:id/play", h.Play)
	r.DELETE("/music/:id/play", h.Stop)
}

// Play serves a track, in whole or by range.
//
// GET /api/v1/music/:id/play
//
// A Range header yields a 206 with exactly the requested slice; its absence
// yields a 200 with the whole file. Either way the response carries a
// rotated X-Play-Token, and delivered bytes accrue toward the session's
// validity verdict.
func (h *StreamHandler) Play(c *gin.Context) {
	ctx := c.Request.Context()
	trackID := c.Param("id")
	companyID := httputil.GetCompanyID(c)

	track, err := h.tracks.Track(ctx, trackID)
	if errors.Is(err, domain.ErrTrackNotFound) {
		httputil.ErrorResponse(c, apperrors.ErrTrackNotFound)
		return
	}
	if err != nil {
		h.fail(c, "track lookup failed", err)
		return
	}

	if !h.authorize(c, track, companyID) {
		return
	}

	// Parse the range before any session work: a malformed or unsatisfiable
	// request must not create or advance a session.
	rng, hasRange, err := parseRange(c.GetHeader("Range"), track.SizeBytes)
	if err != nil {
		if errors.Is(err, domain.ErrRangeNotSatisfiable) {
			c.Header("Content-Range", fmt.Sprintf("bytes */%d", track.SizeBytes))
			httputil.ErrorResponse(c, apperrors.ErrRangeNotSatisfiable)
			return
		}
		httputil.ErrorResponse(c, apperrors.ErrMalformedRange)
		return
	}

	sess, err := h.tracker.Resolve(ctx, c.GetHeader(PlayTokenHeader), track, companyID, rng.start)
	if err != nil {
		h.sessionError(c, err)
		return
	}

	useCase := domain.UseCaseMusicPlay
	if !hasRange {
		useCase = domain.UseCaseMusicFull
	}

	obj, err := h.source.Open(ctx, track.ID)
	if err != nil {
		h.fail(c, "audio object open failed", err)
		return
	}
	defer obj.Close()

	if _, err := obj.Seek(rng.start, io.SeekStart); err != nil {
		h.fail(c, "audio object seek failed", err)
		return
	}

	// Rotate before the status line goes out; the new token rides the
	// response headers. Accrual waits for the byte count actually written.
	sess, err = h.tracker.Rotate(ctx, sess)
	if err != nil {
		h.fail(c, "session rotate failed", err)
		return
	}

	delivered := rng.end - rng.start + 1
	c.Header("Accept-Ranges", "bytes")
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", "audio/mpeg")
	c.Header("Content-Length", strconv.FormatInt(delivered, 10))
	c.Header(PlayTokenHeader, sess.Token)

	status := http.StatusOK
	if hasRange {
		status = http.StatusPartialContent
		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, track.SizeBytes))
	}
	c.Status(status)

	n, copyErr := io.CopyN(c.Writer, obj, delivered)
	h.metrics.BytesDelivered.Add(ctx, n)
	if copyErr != nil {
		// Mid-body failures cannot change the status line; the client sees a
		// short read and retries from its next offset.
		h.log.WithContext(ctx).Warn("stream interrupted",
			logger.String("track_id", track.ID),
			logger.Int64("sent", n),
			logger.Int64("expected", delivered),
			logger.Error(copyErr))
	}

	// Only bytes the client actually received count toward the verdict.
	sess, verdict, err := h.tracker.Advance(ctx, sess, track, rng.start, n)
	if err != nil {
		h.log.WithContext(ctx).Error("session advance failed",
			logger.String("track_id", track.ID),
			logger.Error(err))
		return
	}

	h.settle(ctx, sess, track, verdict, useCase)
}

// Stop terminates a play session explicitly.
//
// DELETE /api/v1/music/:id/play
//
// An under-threshold session settles as an invalid play (when any bytes were
// delivered); a session that already earned its valid verdict just goes away.
// A missing or unknown token is a no-op so client retries stay idempotent.
func (h *StreamHandler) Stop(c *gin.Context) {
	ctx := c.Request.Context()
	trackID := c.Param("id")
	companyID := httputil.GetCompanyID(c)

	token := c.GetHeader(PlayTokenHeader)
	if token == "" {
		c.Status(http.StatusNoContent)
		return
	}

	sess, verdict, err := h.tracker.Close(ctx, token, trackID, companyID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		c.Status(http.StatusNoContent)
		return
	}
	if errors.Is(err, domain.ErrTokenMismatch) {
		httputil.ErrorResponse(c, apperrors.ErrPlayTokenMismatch)
		return
	}
	if err != nil {
		h.fail(c, "session close failed", err)
		return
	}

	if verdict != domain.VerdictNone && sess.BytesDelivered > 0 {
		track, err := h.tracks.Track(ctx, sess.TrackID)
		if err != nil {
			h.fail(c, "track lookup failed", err)
			return
		}
		h.settle(ctx, sess, track, verdict, domain.UseCaseMusicPlay)
	}

	c.Status(http.StatusNoContent)
}

// settle hands a terminal verdict to the ledger writer. Failures are logged
// only: the writer already retried, and the response cannot change.
func (h *StreamHandler) settle(ctx context.Context, sess *domain.PlaySession, track *domain.Track, verdict domain.Verdict, useCase domain.UseCase) {
	if verdict == domain.VerdictNone {
		return
	}
	if _, err := h.writer.CompletePlay(ctx, sess, track, verdict, useCase); err != nil {
		h.log.WithContext(ctx).Error("settle play verdict",
			logger.String("track_id", track.ID),
			logger.String("verdict", string(verdict)),
			logger.Error(err))
	}
}

// authorize applies the access policy. It writes the error response itself
// and reports whether the request may proceed.
func (h *StreamHandler) authorize(c *gin.Context, track *domain.Track, companyID string) bool {
	ctx := c.Request.Context()

	authenticated := companyID != ""
	grade := domain.GradeFree
	if authenticated {
		company, err := h.companies.Company(ctx, companyID)
		if errors.Is(err, domain.ErrCompanyNotFound) {
			httputil.ErrorResponse(c, apperrors.ErrUnauthorized)
			return false
		}
		if err != nil {
			h.fail(c, "company lookup failed", err)
			return false
		}
		grade = company.EffectiveGrade()
	}

	switch policy.Evaluate(authenticated, grade, track.Access) {
	case policy.Allowed:
		return true
	case policy.LoginRequired:
		httputil.ErrorResponse(c, apperrors.ErrLoginRequired)
	case policy.SubscriptionRequired:
		httputil.ErrorResponse(c, apperrors.ErrSubscriptionRequired)
	}
	return false
}

func (h *StreamHandler) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrTokenMismatch):
		httputil.ErrorResponse(c, apperrors.ErrPlayTokenMismatch)
	case errors.Is(err, domain.ErrNonSequentialRange):
		httputil.ErrorResponse(c, apperrors.ErrNonSequentialRange)
	default:
		h.fail(c, "session resolve failed", err)
	}
}

func (h *StreamHandler) fail(c *gin.Context, msg string, err error) {
	h.log.WithContext(c.Request.Context()).Error(msg,
		logger.String("request_id", httputil.GetRequestID(c)),
		logger.Error(err))
	httputil.ErrorResponse(c, apperrors.ErrInternal.WithError(err))
}

// byteRange is a closed interval of file offsets.
type byteRange struct {
	start, end int64
}

// parseRange interprets a Range header against a file of the given size.
// An absent header means the whole file. Only a single "bytes=start-[end]"
// range is accepted: suffix ranges and multipart ranges have no place in the
// sequential-play protocol.
func parseRange(header string, size int64) (byteRange, bool, error) {
	if header == "" {
		if size <= 0 {
			return byteRange{}, false, domain.ErrRangeNotSatisfiable
		}
		return byteRange{start: 0, end: size - 1}, false, nil
	}

	rangeSpec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(rangeSpec, ",") {
		return byteRange{}, true, domain.ErrMalformedRange
	}

	startStr, endStr, ok := strings.Cut(rangeSpec, "-")
	if !ok || startStr == "" {
		return byteRange{}, true, domain.ErrMalformedRange
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return byteRange{}, true, domain.ErrMalformedRange
	}
	if start >= size {
		return byteRange{}, true, domain.ErrRangeNotSatisfiable
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return byteRange{}, true, domain.ErrMalformedRange
		}
		if end > size-1 {
			end = size - 1
		}
	}
	return byteRange{start: start, end: end}, true, nil
}
