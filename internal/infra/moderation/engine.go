package moderation

import (
	"context"
	"encoding/json"
	"errors"

	"echodeed/internal/domain"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.echodeed.moderation.result"

// defaultModule is the built-in keyword policy. Deployments can swap in a
// district-specific bundle without a rebuild; the evaluation contract is
// the same `result` document either way.
const defaultModule = `package echodeed.moderation

import rego.v1

text := lower(input.text)

crisis_terms := [
	"want to die",
	"kill myself",
	"hurt myself",
	"suicide",
	"self harm",
	"end it all",
]

bullying_terms := [
	"nobody likes you",
	"everyone hates you",
	"worthless",
	"loser",
	"kill yourself",
]

crisis_matches := [term | some term in crisis_terms; contains(text, term)]

bullying_matches := [term | some term in bullying_terms; contains(text, term)]

severity := "crisis" if {
	count(crisis_matches) > 0
} else := "warn" if {
	count(bullying_matches) > 0
} else := "none"

result := {
	"flagged": count(crisis_matches) + count(bullying_matches) > 0,
	"crisis": count(crisis_matches) > 0,
	"matches": array.concat(crisis_matches, bullying_matches),
	"severity": severity,
}
`

// Engine evaluates submitted text against the moderation policy using a
// prepared rego query.
type Engine struct {
	query rego.PreparedEvalQuery
}

func NewEngine(ctx context.Context) (*Engine, error) {
	return newEngine(ctx, rego.Module("moderation.rego", defaultModule))
}

func NewEngineFromBundlePath(ctx context.Context, bundlePath string) (*Engine, error) {
	return newEngine(ctx, rego.Load([]string{bundlePath}, nil))
}

func newEngine(ctx context.Context, source func(*rego.Rego)) (*Engine, error) {
	r := rego.New(
		rego.Query(defaultQuery),
		rego.StrictBuiltinErrors(true),
		source,
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &Engine{query: prepared}, nil
}

type policyInput struct {
	Text string `json:"text"`
}

func (e *Engine) Evaluate(ctx context.Context, text string) (domain.ModerationResult, error) {
	if e == nil {
		return domain.ModerationResult{}, errors.New("moderation engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(policyInput{Text: text}))
	if err != nil {
		return domain.ModerationResult{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.ModerationResult{}, errors.New("empty policy result")
	}
	return decodeResult(results[0].Expressions[0].Value)
}

func decodeResult(value any) (domain.ModerationResult, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return domain.ModerationResult{}, err
	}
	var result domain.ModerationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.ModerationResult{}, err
	}
	return result, nil
}
