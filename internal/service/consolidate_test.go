package service

import (
	"testing"

	"github.com/rahulnsecc/AI-4-all/internal/domain/review"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
)

func contentVerdict(reviewer, role string, pass bool, findings ...string) review.Verdict {
	v := review.Verdict{Reviewer: reviewer, Role: role, Pass: pass}
	for _, f := range findings {
		v.Findings = append(v.Findings, review.Finding{Reviewer: reviewer, Text: f})
	}
	return v
}

func TestConsolidateAllPass(t *testing.T) {
	rep := Consolidate("t1", task.KindContent, 1, []review.Verdict{
		contentVerdict("SEO Reviewer", "seo", true),
		contentVerdict("Legal Reviewer", "legal", true),
		contentVerdict("Ethics Reviewer", "ethics", true),
	})

	if !rep.Accepted {
		t.Fatalf("expected accepted, got rationale %q", rep.Rationale)
	}
	if len(rep.Missing) != 0 {
		t.Fatalf("unexpected missing roles: %v", rep.Missing)
	}
}

func TestConsolidateOneFailRejects(t *testing.T) {
	rep := Consolidate("t1", task.KindContent, 1, []review.Verdict{
		contentVerdict("SEO Reviewer", "seo", true),
		contentVerdict("Legal Reviewer", "legal", false, "unsubstantiated claim in paragraph 2"),
		contentVerdict("Ethics Reviewer", "ethics", true),
	})

	if rep.Accepted {
		t.Fatal("one failing verdict must reject")
	}
	if len(rep.Findings) != 1 || rep.Findings[0].Reviewer != "Legal Reviewer" {
		t.Fatalf("expected attributed legal finding, got %+v", rep.Findings)
	}
}

func TestConsolidateMissingMandatoryRejects(t *testing.T) {
	// Legal and ethics both pass, but no SEO verdict exists. Fail closed.
	rep := Consolidate("t1", task.KindContent, 1, []review.Verdict{
		contentVerdict("Legal Reviewer", "legal", true),
		contentVerdict("Ethics Reviewer", "ethics", true),
	})

	if rep.Accepted {
		t.Fatal("missing mandatory reviewer must reject")
	}
	if len(rep.Missing) != 1 || rep.Missing[0] != "seo" {
		t.Fatalf("expected missing [seo], got %v", rep.Missing)
	}
}

func TestConsolidateKeepsDuplicateFindings(t *testing.T) {
	rep := Consolidate("t1", task.KindContent, 1, []review.Verdict{
		contentVerdict("SEO Reviewer", "seo", false, "title too long"),
		contentVerdict("Legal Reviewer", "legal", false, "title too long"),
		contentVerdict("Ethics Reviewer", "ethics", true),
	})

	// The same observation from two reviewers is independent confirmation.
	if len(rep.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(rep.Findings))
	}
	if rep.Findings[0].Reviewer == rep.Findings[1].Reviewer {
		t.Fatal("findings lost reviewer attribution")
	}
}

func TestConsolidateNoMandatoryForFinance(t *testing.T) {
	rep := Consolidate("t1", task.KindFinance, 1, []review.Verdict{
		contentVerdict("Error Analyzer", "error-analyzer", true),
	})
	if !rep.Accepted {
		t.Fatalf("kinds without mandatory roles accept passing verdicts, got %q", rep.Rationale)
	}
}

func TestConsolidateEmptyVerdictSetForContent(t *testing.T) {
	rep := Consolidate("t1", task.KindContent, 1, nil)
	if rep.Accepted {
		t.Fatal("empty verdict set must reject for kinds with mandatory roles")
	}
	if len(rep.Missing) != 3 {
		t.Fatalf("expected all 3 mandatory roles missing, got %v", rep.Missing)
	}
}
