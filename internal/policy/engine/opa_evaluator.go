package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	recorddomain "factory-data-platform/backend/internal/record/domain"
)

// Default Rego policy for the delete exception: hard delete is denied unless
// the record class is reversible and the record was never finalized.
const defaultRegoPolicy = `package fdp.delete_exception

default allowed = false

reversible_types := {"work_order_draft", "dispatch_note_draft", "price_quote"}

allowed if {
	reversible_types[input.record.type]
	not input.record.finalized
}
`

// OPAEvaluator evaluates the delete-exception policy using OPA Rego.
type OPAEvaluator struct {
	compiler *ast.Compiler
}

// NewOPAEvaluator compiles the built-in delete-exception policy and returns
// an evaluator. Compilation happens once; evaluation is per call.
func NewOPAEvaluator() (*OPAEvaluator, error) {
	compiler, err := ast.CompileModules(map[string]string{"delete_exception.rego": defaultRegoPolicy})
	if err != nil {
		return nil, fmt.Errorf("compile delete policy: %w", err)
	}
	return &OPAEvaluator{compiler: compiler}, nil
}

// HealthCheck verifies that the in-process OPA Rego engine can evaluate the policy.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.eval(ctx, map[string]interface{}{
		"record": map[string]interface{}{"type": "", "finalized": false, "active": true},
	})
	return err
}

// EvaluateDelete evaluates the delete-exception policy for the record.
func (e *OPAEvaluator) EvaluateDelete(ctx context.Context, rec *recorddomain.Record) (DeleteResult, error) {
	input := map[string]interface{}{
		"record": map[string]interface{}{
			"type":      rec.RecordType,
			"finalized": rec.Finalized,
			"active":    rec.Active,
		},
	}
	allowed, err := e.eval(ctx, input)
	if err != nil {
		return DeleteResult{}, err
	}
	res := DeleteResult{Allowed: allowed}
	if !allowed {
		res.Reason = "record class is not reversible or record was finalized"
	}
	return res, nil
}

func (e *OPAEvaluator) eval(ctx context.Context, input map[string]interface{}) (bool, error) {
	q := rego.New(
		rego.Query("data.fdp.delete_exception.allowed"),
		rego.Compiler(e.compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("eval delete policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("delete policy query returned no result")
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("delete policy returned non-boolean result")
	}
	return allowed, nil
}
