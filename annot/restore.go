package annot

import (
	"context"
	"strings"

	"github.com/hazyhaar/dommark/anchor"
	"github.com/hazyhaar/dommark/annot/internal/restore"
	"github.com/hazyhaar/dommark/dom"
	"github.com/hazyhaar/dommark/highlight"
)

// Restore re-applies every stored annotation to the session document,
// polling until each one resolves or its attempt budget runs out.
// Annotations whose markers are already present count as done.
func (s *Service) Restore(ctx context.Context, sess *Session) (*RestoreReport, error) {
	anns, err := s.loadAnnotations(ctx, sess.Key)
	if err != nil {
		return nil, err
	}

	group := restore.NewGroup(restore.Options{
		Interval: s.cfg.Restore.Interval,
		Attempts: s.cfg.Restore.Attempts,
		Logger:   s.logger,
	})
	for _, ann := range anns {
		group.Go(sess.ctx, ann.ID, s.restoreAttempt(sess, ann))
	}
	group.Wait()

	stats := group.Stats()
	s.restored.Add(stats.Restored)
	results := group.Results()
	for _, res := range results {
		if res.Status == restore.StatusTimedOut {
			s.event(ctx, "warn", "restore", "restore timed out", sess.Key, res.ID)
		}
	}
	s.logger.Info("annot: restore finished",
		"key", sess.Key, "scheduled", stats.Scheduled, "restored", stats.Restored,
		"already", stats.AlreadyDone, "timed_out", stats.TimedOut)

	return &RestoreReport{Results: results, Stats: stats}, nil
}

// restoreAttempt builds one poll step for an annotation. Each tick
// takes the session lock, checks for an existing marker, verifies the
// quote is present in the body text, then resolves and re-marks.
func (s *Service) restoreAttempt(sess *Session, ann Annotation) restore.Attempt {
	return func(ctx context.Context) restore.Verdict {
		sess.mu.Lock()
		defer sess.mu.Unlock()

		if len(highlight.Markers(sess.doc, ann.ID)) > 0 {
			return restore.AlreadyDone
		}
		body := dom.Body(sess.doc)
		if body == nil || !strings.Contains(dom.TextContent(body), ann.Quote) {
			return restore.Retry
		}

		d := anchor.Descriptor{Path: ann.Path, Context: ann.Context}
		r, stage, err := s.resolver.Resolve(sess.doc, ann.ID, d)
		if err != nil {
			return restore.Retry
		}
		if stage == anchor.StageSatisfied {
			return restore.AlreadyDone
		}
		if _, err := s.engine.Apply(sess.doc, r, ann.Kind, ann.ID); err != nil {
			s.logger.Debug("annot: restore apply failed", "id", ann.ID, "error", err)
			return restore.Retry
		}
		s.logger.Debug("annot: restored", "id", ann.ID, "stage", stage)
		return restore.Restored
	}
}
