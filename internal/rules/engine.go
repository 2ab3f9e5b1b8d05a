// Package rules embeds a small JavaScript predicate evaluator (goja) for
// operator-configurable boolean rules. Its one user is the persuasion
// engine's active-strategy filter; objection routing and the failover
// geographic-coverage check are plain Go and do not use it. Ungrounded in the teacher directly; adopted
// from the pack's scripting usage since no example repo's teacher module
// embeds a rule language and operators need one they can edit without a
// redeploy.
package rules

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"
)

// Predicate is a compiled boolean JS expression, e.g. "facts.success_rate >
// 0.5 && facts.active".
type Predicate struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	source  string
	program *goja.Program
}

// Compile parses expr once; Eval is cheap to call repeatedly afterward.
func Compile(expr string) (*Predicate, error) {
	program, err := goja.Compile("predicate", "("+expr+")", false)
	if err != nil {
		return nil, fmt.Errorf("rules: invalid predicate %q: %w", expr, err)
	}
	return &Predicate{vm: goja.New(), source: expr, program: program}, nil
}

// Eval runs the predicate with facts bound as the global "facts" object,
// returning its boolean result. Non-boolean results are coerced by goja's
// ToBoolean semantics (0/""/null/undefined are falsy).
func (p *Predicate) Eval(facts map[string]any) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.vm.Set("facts", facts); err != nil {
		return false, fmt.Errorf("rules: binding facts: %w", err)
	}
	value, err := p.vm.RunProgram(p.program)
	if err != nil {
		return false, fmt.Errorf("rules: evaluating %q: %w", p.source, err)
	}
	return value.ToBoolean(), nil
}
