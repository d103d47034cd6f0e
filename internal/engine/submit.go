package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/raysh454/courtfetch/internal/browsing"
	"github.com/raysh454/courtfetch/internal/logging"
	"github.com/raysh454/courtfetch/internal/session"
)

// Submit answers the challenge of req.SessionID and runs the search on the
// parked page. The session is consumed whatever the outcome: its page is
// closed and the id cannot be used again.
func (e *Engine) Submit(ctx context.Context, req SearchRequest) (*Page, error) {
	if !e.isRunning() {
		return nil, ErrEngineStopped
	}
	req = req.trimmed()

	sess, ok := e.store.Take(req.SessionID)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", req.SessionID, ErrSessionNotFound)
	}
	defer e.closeHandle(sess)

	log := e.logger.With(logging.Field{Key: "session_id", Value: sess.ID})

	if e.store.Expired(sess, e.cfg.SessionTTL) {
		log.Info("rejected expired session")
		return nil, fmt.Errorf("session %q expired: %w", sess.ID, ErrSessionNotFound)
	}
	if missing := req.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), ErrInvalidSearch)
	}
	if sess.HasExpected && req.Solution != sess.ExpectedAnswer {
		log.Info("challenge answer mismatch")
		return nil, fmt.Errorf("session %q: %w", sess.ID, ErrChallengeMismatch)
	}

	page, err := e.search(ctx, sess, req)
	if err != nil {
		log.Warn("search failed", logging.Field{Key: "error", Value: err})
		return nil, err
	}
	log.Info("search completed",
		logging.Field{Key: "case_type", Value: req.CaseType},
		logging.Field{Key: "case_number", Value: req.CaseNumber},
		logging.Field{Key: "filing_year", Value: req.FilingYear},
		logging.Field{Key: "final_url", Value: page.FinalURL})
	return page, nil
}

// SubmitSearch is Submit followed by extraction of the case record.
func (e *Engine) SubmitSearch(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	page, err := e.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Record:   e.extractor.Extract([]byte(page.HTML)),
		FinalURL: page.FinalURL,
		HTML:     page.HTML,
	}, nil
}

func (e *Engine) search(ctx context.Context, sess *session.Session, req SearchRequest) (*Page, error) {
	sel := e.court.Selectors
	h := sess.Handle

	if err := e.setCaseType(ctx, h, req.CaseType); err != nil {
		return nil, err
	}
	if err := h.Fill(ctx, sel.CaseNumberInput, req.CaseNumber); err != nil {
		return nil, fmt.Errorf("fill case number: %w", err)
	}
	if err := h.Fill(ctx, sel.CaseYearInput, req.FilingYear); err != nil {
		return nil, fmt.Errorf("fill filing year: %w", err)
	}
	if sel.CaptchaInput != "" {
		if err := h.Fill(ctx, sel.CaptchaInput, req.Solution); err != nil {
			return nil, fmt.Errorf("fill challenge answer: %w", err)
		}
	}
	if err := h.Click(ctx, sel.SubmitButton); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	if sel.ResultMarker != "" {
		if err := h.WaitFor(ctx, sel.ResultMarker, e.cfg.ResultTimeout); err != nil {
			return nil, fmt.Errorf("wait for result: %w", err)
		}
	}

	finalURL, html, err := h.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	return &Page{FinalURL: finalURL, HTML: html}, nil
}

// setCaseType prefers the select control, matching the visible label first and
// the raw option value second.
func (e *Engine) setCaseType(ctx context.Context, h browsing.Handle, caseType string) error {
	sel := e.court.Selectors
	if sel.CaseTypeSelect == "" {
		if err := h.Fill(ctx, sel.CaseTypeInput, caseType); err != nil {
			return fmt.Errorf("fill case type: %w", err)
		}
		return nil
	}

	err := h.Select(ctx, sel.CaseTypeSelect, caseType, browsing.MatchLabel)
	if err == nil {
		return nil
	}
	if !errors.Is(err, browsing.ErrElementNotFound) {
		return fmt.Errorf("select case type: %w", err)
	}
	if err := h.Select(ctx, sel.CaseTypeSelect, caseType, browsing.MatchValue); err != nil {
		return fmt.Errorf("select case type: %w", err)
	}
	return nil
}
