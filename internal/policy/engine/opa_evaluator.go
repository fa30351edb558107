// Package engine evaluates the dial policy with OPA Rego.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/sirupsen/logrus"

	"github.com/rustpranker/callapp/internal/policy"
)

const dialQuery = "data.callapp.dial.allow"

// DefaultDialPolicy allows any non-empty target that does not start with a denied prefix.
const DefaultDialPolicy = `package callapp.dial

default allow := false

allow if {
	input.target != ""
	not denied
}

denied if {
	some prefix in input.deny_prefixes
	startswith(input.target, prefix)
}
`

var errUndefined = errors.New("policy: allow is undefined")

// OPAEvaluator evaluates the dial policy. The compiled query can be swapped at runtime.
type OPAEvaluator struct {
	mu           sync.RWMutex
	query        rego.PreparedEvalQuery
	source       string
	denyPrefixes []string
	log          *logrus.Entry
}

// NewOPAEvaluator compiles the default policy.
func NewOPAEvaluator(ctx context.Context, denyPrefixes []string, log *logrus.Entry) (*OPAEvaluator, error) {
	e := &OPAEvaluator{denyPrefixes: denyPrefixes, log: log}
	if err := e.Load(ctx, "default.rego", DefaultDialPolicy); err != nil {
		return nil, err
	}
	return e, nil
}

// Load compiles module and, on success, replaces the active policy. On failure the previous
// policy stays active.
func (e *OPAEvaluator) Load(ctx context.Context, name, module string) error {
	q, err := prepare(ctx, name, module)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.query = q
	e.source = name
	e.mu.Unlock()
	return nil
}

// LoadFile reads and loads a Rego file.
func (e *OPAEvaluator) LoadFile(ctx context.Context, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy: %w", err)
	}
	return e.Load(ctx, path, string(b))
}

// Source names the active policy module.
func (e *OPAEvaluator) Source() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.source
}

// Allow evaluates the active policy for req.
func (e *OPAEvaluator) Allow(ctx context.Context, req policy.DialRequest) (bool, error) {
	e.mu.RLock()
	q := e.query
	e.mu.RUnlock()
	return eval(ctx, q, e.input(req))
}

// CheckDial returns policy.ErrDenied when the policy refuses req. Evaluation errors are logged
// and the call is allowed.
func (e *OPAEvaluator) CheckDial(ctx context.Context, req policy.DialRequest) error {
	ok, err := e.Allow(ctx, req)
	if err != nil {
		e.log.WithError(err).WithField("policy", e.Source()).Warn("dial policy evaluation failed, allowing")
		return nil
	}
	if !ok {
		return policy.ErrDenied
	}
	return nil
}

// HealthCheck verifies the active policy evaluates to a decision.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.Allow(ctx, policy.DialRequest{Target: "+10000000000"})
	return err
}

func (e *OPAEvaluator) input(req policy.DialRequest) map[string]interface{} {
	prefixes := make([]interface{}, 0, len(e.denyPrefixes))
	for _, p := range e.denyPrefixes {
		prefixes = append(prefixes, p)
	}
	return map[string]interface{}{
		"target":        req.Target,
		"caller":        req.Caller,
		"deny_prefixes": prefixes,
	}
}

func prepare(ctx context.Context, name, module string) (rego.PreparedEvalQuery, error) {
	compiler, err := ast.CompileModules(map[string]string{name: module})
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("compile policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(dialQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("prepare policy: %w", err)
	}
	return q, nil
}

func eval(ctx context.Context, q rego.PreparedEvalQuery, input map[string]interface{}) (bool, error) {
	rs, err := q.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, errUndefined
	}
	v, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("policy: allow is %T, want bool", rs[0].Expressions[0].Value)
	}
	return v, nil
}
