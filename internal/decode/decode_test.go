package decode

import (
	"errors"
	"testing"
)

const wellFormed = `{
	"score": 82,
	"whyFit": "Author is asking for exactly this kind of tool.",
	"rulesSummary": ["no spam", "disclose affiliation"],
	"risks": ["thread is three days old"],
	"variantA": {"text": "Have you tried tuning the retention window?"},
	"variantB": {"text": "Check https://example.com/docs.", "disclosure": "Disclosure: I work on example.com."}
}`

func TestAnalysisDirectParse(t *testing.T) {
	analysis, err := Analysis(wellFormed)
	if err != nil {
		t.Fatalf("Analysis failed: %v", err)
	}

	if analysis.Score != 82 {
		t.Errorf("Score = %v, want 82", analysis.Score)
	}
	if analysis.WhyFit == "" {
		t.Error("WhyFit is empty")
	}
	if len(analysis.RulesSummary) != 2 {
		t.Errorf("RulesSummary has %d entries, want 2", len(analysis.RulesSummary))
	}
	if analysis.VariantA.Text == "" || analysis.VariantB.Text == "" {
		t.Error("variant texts must be non-empty strings")
	}
	if analysis.VariantB.Disclosure == "" {
		t.Error("variantB disclosure lost in decode")
	}
}

func TestAnalysisFencedResponse(t *testing.T) {
	if _, err := Analysis("```json\n" + wellFormed + "\n```"); err != nil {
		t.Fatalf("fenced response failed to decode: %v", err)
	}
}

func TestAnalysisRepairedParse(t *testing.T) {
	// Missing comma between two array elements, otherwise well-formed.
	raw := `{
	"score": 60,
	"whyFit": "ok",
	"rulesSummary": ["no spam"
	"disclose affiliation"],
	"risks": [],
	"variantA": {"text": "a"},
	"variantB": {"text": "b"}
}`

	analysis, err := Analysis(raw)
	if err != nil {
		t.Fatalf("stage-2 repair did not recover: %v", err)
	}
	if len(analysis.RulesSummary) != 2 {
		t.Errorf("RulesSummary has %d entries, want 2", len(analysis.RulesSummary))
	}
}

func TestAnalysisExtractionFallback(t *testing.T) {
	raw := "Sure! Here's my assessment of the thread:\n\n" + wellFormed + "\n\nLet me know if you need anything else."

	analysis, err := Analysis(raw)
	if err != nil {
		t.Fatalf("stage-3 extraction did not recover: %v", err)
	}
	if analysis.Score != 82 {
		t.Errorf("Score = %v, want 82", analysis.Score)
	}
}

func TestAnalysisFailures(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{
			name:    "no recognizable object",
			raw:     "I could not produce a structured answer, sorry.",
			wantErr: ErrUndecodable,
		},
		{
			name:    "missing variantB",
			raw:     `{"score": 10, "whyFit": "x", "rulesSummary": [], "risks": [], "variantA": {"text": "a"}}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "variant text null",
			raw:     `{"score": 10, "whyFit": "x", "rulesSummary": [], "risks": [], "variantA": {"text": null}, "variantB": {"text": "b"}}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "score not numeric",
			raw:     `{"score": "high", "whyFit": "x", "rulesSummary": [], "risks": [], "variantA": {"text": "a"}, "variantB": {"text": "b"}}`,
			wantErr: ErrWrongType,
		},
		{
			name:    "risks not an array",
			raw:     `{"score": 10, "whyFit": "x", "rulesSummary": [], "risks": "none", "variantA": {"text": "a"}, "variantB": {"text": "b"}}`,
			wantErr: ErrWrongType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analysis(tt.raw)
			if err == nil {
				t.Fatal("expected decode failure, got success")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
