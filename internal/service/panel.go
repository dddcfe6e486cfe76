package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/rahulnsecc/AI-4-all/internal/adapter/otel"
	"github.com/rahulnsecc/AI-4-all/internal/domain/agent"
	"github.com/rahulnsecc/AI-4-all/internal/domain/review"
	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/port/inference"
	"github.com/rahulnsecc/AI-4-all/internal/service/prompts"
)

// PanelService fans reviewers out concurrently over a single artifact
// snapshot. A reviewer that errors yields a failing verdict with the failure
// as its finding; the panel never silently drops a reviewer.
type PanelService struct {
	generator inference.Generator
	sessions  *SessionService
	metrics   *otel.Metrics
}

// NewPanelService creates a PanelService.
func NewPanelService(generator inference.Generator, sessions *SessionService) *PanelService {
	return &PanelService{generator: generator, sessions: sessions}
}

// SetMetrics attaches metric instruments. A nil receiver field disables them.
func (s *PanelService) SetMetrics(m *otel.Metrics) {
	s.metrics = m
}

// Review runs every reviewer against the same artifact snapshot and appends
// the complete verdict set to the session as one turn. Output order is by
// reviewer name regardless of completion order.
func (s *PanelService) Review(ctx context.Context, sessionID, taskID string, reviewers []agent.Definition, artifact, extra string) ([]review.Verdict, error) {
	ref := artifactRef(artifact)
	verdicts := make([]review.Verdict, len(reviewers))

	g, gctx := errgroup.WithContext(ctx)
	for i, def := range reviewers {
		g.Go(func() error {
			verdicts[i] = s.runReviewer(gctx, def, artifact, extra, ref)
			return nil
		})
	}
	// Reviewer failures are folded into verdicts; the group never errors.
	_ = g.Wait()

	sort.Slice(verdicts, func(i, j int) bool {
		return verdicts[i].Reviewer < verdicts[j].Reviewer
	})

	if s.metrics != nil {
		for _, v := range verdicts {
			s.metrics.Verdicts.Add(ctx, 1, metric.WithAttributes(
				attribute.String("reviewer", v.Reviewer),
				attribute.Bool("pass", v.Pass),
			))
		}
	}

	if s.sessions != nil && sessionID != "" {
		if _, err := s.sessions.Append(ctx, sessionID, taskID, session.TurnVerdictSet, "panel", verdicts); err != nil {
			return nil, err
		}
	}
	return verdicts, nil
}

func (s *PanelService) runReviewer(ctx context.Context, def agent.Definition, artifact, extra, ref string) review.Verdict {
	v := review.Verdict{
		Reviewer:    def.Name,
		Role:        def.Role,
		ArtifactRef: ref,
		CreatedAt:   time.Now().UTC(),
	}

	prompt, err := prompts.Render("reviewer", map[string]any{
		"Role":     def.Role,
		"Artifact": artifact,
		"Extra":    extra,
	})
	if err != nil {
		v.Findings = []review.Finding{{Reviewer: def.Name, Severity: "error", Text: "reviewer failed: " + err.Error()}}
		return v
	}

	out, err := s.generator.Generate(ctx, inference.Request{
		System: "You are " + def.Name + ". Follow the response format exactly.",
		Prompt: prompt,
	})
	if err != nil {
		v.Findings = []review.Finding{{Reviewer: def.Name, Severity: "error", Text: "reviewer failed: " + err.Error()}}
		return v
	}

	v.Pass, v.Findings = parseVerdict(def.Name, out)
	return v
}

// parseVerdict extracts the pass/fail line and findings from a reviewer
// response. An unparseable response fails closed.
func parseVerdict(reviewer, out string) (bool, []review.Finding) {
	pass := false
	sawVerdict := false
	var findings []review.Finding

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToLower(line), "verdict:"):
			sawVerdict = true
			pass = strings.Contains(strings.ToLower(line), "pass")
		case strings.HasPrefix(line, "- "):
			findings = append(findings, review.Finding{
				Reviewer: reviewer,
				Text:     strings.TrimPrefix(line, "- "),
			})
		}
	}

	if !sawVerdict {
		return false, append(findings, review.Finding{
			Reviewer: reviewer,
			Severity: "error",
			Text:     "unparseable reviewer response",
		})
	}
	return pass, findings
}

// artifactRef is a stable identifier for the reviewed snapshot.
func artifactRef(artifact string) string {
	sum := sha256.Sum256([]byte(artifact))
	return hex.EncodeToString(sum[:8])
}
