package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/sirupsen/logrus"
)

const policyQuery = "data.captcha.risk.score"

// OPAScorer evaluates a Rego policy to score completion attempts. The policy
// must define `score` (number 0-100) under package captcha.risk, e.g.:
//
//	package captcha.risk
//	default score = 0
//	score = 80 if { contains(lower(input.user_agent), "headless") }
//
// Evaluation failures fall back to the heuristic scorer so a broken policy
// degrades service quality, not availability.
type OPAScorer struct {
	query    rego.PreparedEvalQuery
	fallback Heuristic
	log      *logrus.Logger
}

// NewOPAScorer compiles the policy source (inline Rego or a file path) and
// prepares the score query. Returns an error if the policy does not compile.
func NewOPAScorer(ctx context.Context, policy string, log *logrus.Logger) (*OPAScorer, error) {
	source := strings.TrimSpace(policy)
	if source == "" {
		return nil, fmt.Errorf("risk: empty policy source")
	}
	if !strings.Contains(source, "package") {
		b, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("risk: read policy file: %w", err)
		}
		source = string(b)
	}
	compiler, err := ast.CompileModules(map[string]string{"risk_policy.rego": source})
	if err != nil {
		return nil, fmt.Errorf("risk: compile policy: %w", err)
	}
	prepared, err := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("risk: prepare query: %w", err)
	}
	return &OPAScorer{query: prepared, log: log}, nil
}

// Score implements Scorer. Policy input mirrors Signals with snake_case keys.
func (s *OPAScorer) Score(ctx context.Context, sig Signals) (int, error) {
	input := map[string]interface{}{
		"client_id":      sig.ClientID,
		"ip":             sig.IP,
		"user_agent":     sig.UserAgent,
		"solve_time_ms":  sig.SolveTimeMs,
		"answer_present": sig.AnswerPresent,
	}
	rs, err := s.query.Eval(ctx, rego.EvalInput(input))
	if err != nil || len(rs) == 0 || len(rs[0].Expressions) == 0 {
		if s.log != nil {
			s.log.WithError(err).Warn("risk policy evaluation failed, using heuristic")
		}
		return s.fallback.Score(ctx, sig)
	}
	value, ok := toInt(rs[0].Expressions[0].Value)
	if !ok {
		if s.log != nil {
			s.log.Warnf("risk policy returned non-numeric score %v, using heuristic", rs[0].Expressions[0].Value)
		}
		return s.fallback.Score(ctx, sig)
	}
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return value, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}
