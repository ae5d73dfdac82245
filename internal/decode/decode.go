// Package decode turns raw text from the scoring service into a validated
// AgentAnalysis. The upstream output is untrusted: decoding runs staged
// repairs on malformed JSON and fails loudly rather than fabricating a
// result.
package decode

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mplacona/ThreadScout/internal/model"
)

var (
	ErrUndecodable  = errors.New("response is not decodable as a JSON object")
	ErrMissingField = errors.New("response is missing a required field")
	ErrWrongType    = errors.New("response field has the wrong type")
)

// Analysis decodes raw scoring-service output. Stages, stopping at the first
// success:
//
//  1. direct parse
//  2. syntactic repair, then re-parse
//  3. brace-matched extraction of the first object, repaired, then re-parse
//
// A stage only succeeds if every required field is present with the right
// type. When all stages fail the last validation error is returned wrapped
// in ErrUndecodable context; the caller must treat the candidate as failed.
func Analysis(raw string) (*model.AgentAnalysis, error) {
	text := stripFences(raw)

	analysis, directErr := parse(text)
	if directErr == nil {
		return analysis, nil
	}

	analysis, repairErr := parse(Repair(text))
	if repairErr == nil {
		return analysis, nil
	}

	if extracted, ok := ExtractObject(text); ok {
		analysis, extractErr := parse(Repair(extracted))
		if extractErr == nil {
			return analysis, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, extractErr)
	}

	return nil, fmt.Errorf("%w: %w", ErrUndecodable, repairErr)
}

// envelope mirrors the upstream field names. Raw messages let each field be
// validated individually instead of failing on the first loose type.
type envelope struct {
	Score        json.RawMessage `json:"score"`
	WhyFit       json.RawMessage `json:"whyFit"`
	RulesSummary json.RawMessage `json:"rulesSummary"`
	Risks        json.RawMessage `json:"risks"`
	VariantA     json.RawMessage `json:"variantA"`
	VariantB     json.RawMessage `json:"variantB"`
}

type rawVariant struct {
	Text       *string `json:"text"`
	Disclosure string  `json:"disclosure"`
}

func parse(text string) (*model.AgentAnalysis, error) {
	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	out := &model.AgentAnalysis{}

	if err := requireField(env.Score, "score", &out.Score); err != nil {
		return nil, err
	}
	if err := requireField(env.WhyFit, "whyFit", &out.WhyFit); err != nil {
		return nil, err
	}
	if err := requireField(env.RulesSummary, "rulesSummary", &out.RulesSummary); err != nil {
		return nil, err
	}
	if err := requireField(env.Risks, "risks", &out.Risks); err != nil {
		return nil, err
	}

	variantA, err := parseVariant(env.VariantA, "variantA")
	if err != nil {
		return nil, err
	}
	variantB, err := parseVariant(env.VariantB, "variantB")
	if err != nil {
		return nil, err
	}
	out.VariantA = variantA
	out.VariantB = variantB

	return out, nil
}

func requireField[T any](raw json.RawMessage, name string, dst *T) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrongType, name, err)
	}
	return nil
}

func parseVariant(raw json.RawMessage, name string) (model.DraftVariant, error) {
	var v rawVariant
	if err := requireField(raw, name, &v); err != nil {
		return model.DraftVariant{}, err
	}
	if v.Text == nil {
		return model.DraftVariant{}, fmt.Errorf("%w: %s.text", ErrMissingField, name)
	}
	return model.DraftVariant{Text: *v.Text, Disclosure: v.Disclosure}, nil
}
