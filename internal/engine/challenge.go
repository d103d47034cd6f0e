package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/raysh454/courtfetch/internal/browsing"
	"github.com/raysh454/courtfetch/internal/captcha"
	"github.com/raysh454/courtfetch/internal/logging"
	"github.com/raysh454/courtfetch/internal/session"
)

// NewChallenge opens a page on the portal, captures its challenge image and
// parks the page under a new session id. On any failure the page is closed
// before returning.
func (e *Engine) NewChallenge(ctx context.Context) (*Challenge, error) {
	if !e.isRunning() {
		return nil, ErrEngineStopped
	}

	h, err := e.backend.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", asUnavailable(err))
	}

	ch, err := e.issue(ctx, h)
	if err != nil {
		if cerr := h.Close(); cerr != nil {
			e.logger.Warn("failed to close handle after challenge error", logging.Field{Key: "error", Value: cerr})
		}
		e.logger.Warn("challenge failed", logging.Field{Key: "error", Value: err})
		return nil, err
	}
	e.logger.Info("issued challenge", logging.Field{Key: "session_id", Value: ch.SessionID})
	return ch, nil
}

func (e *Engine) issue(ctx context.Context, h browsing.Handle) (*Challenge, error) {
	if err := h.Navigate(ctx, e.court.PortalURL); err != nil {
		return nil, fmt.Errorf("load portal: %w", asUnavailable(err))
	}

	img, err := h.CaptureChallenge(ctx, e.court.Selectors.CaptchaImage)
	if err != nil {
		if !errors.Is(err, browsing.ErrChallengeNotFound) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", browsing.ErrChallengeNotFound, err)
		}
		return nil, fmt.Errorf("capture challenge: %w", err)
	}

	sess := &session.Session{ID: uuid.NewString(), Handle: h}
	sess.ExpectedAnswer, sess.HasExpected = h.ExpectedAnswer()
	if err := e.store.Put(sess); err != nil {
		if errors.Is(err, session.ErrStoreClosed) {
			return nil, ErrEngineStopped
		}
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &Challenge{
		SessionID:    sess.ID,
		ImageDataURL: captcha.DataURL(img),
		ExpiresAt:    sess.CreatedAt.Add(e.cfg.SessionTTL),
	}, nil
}

// asUnavailable folds driver failures into ErrBackendUnavailable while keeping
// the caller's own cancellation visible.
func asUnavailable(err error) error {
	if errors.Is(err, browsing.ErrBackendUnavailable) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", browsing.ErrBackendUnavailable, err)
}
