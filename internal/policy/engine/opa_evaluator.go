package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"markers-api/internal/platform/ownership"
)

const defaultPolicyQuery = "data.markers.authz.allow"

// DefaultRegoPolicy grants reads to anyone and mutations only to the resource owner.
const DefaultRegoPolicy = `package markers.authz

default allow := false

allow if {
	input.action == "read"
}

allow if {
	input.action in {"update", "delete"}
	input.subject.id != ""
	input.subject.id == input.resource.owner_id
}
`

// OPAEvaluator answers ownership requests with a prepared OPA Rego query. Safe for concurrent use.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles modules (DefaultRegoPolicy when none are given) and prepares the allow query.
func NewOPAEvaluator(ctx context.Context, modules ...string) (*OPAEvaluator, error) {
	if len(modules) == 0 {
		modules = []string{DefaultRegoPolicy}
	}
	files := make(map[string]string, len(modules))
	for i, m := range modules {
		files[fmt.Sprintf("policy_%d.rego", i)] = m
	}
	compiler, err := ast.CompileModules(files)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	pq, err := rego.New(
		rego.Query(defaultPolicyQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy query: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// Allow implements ownership.Authorizer. An undefined result denies.
func (e *OPAEvaluator) Allow(ctx context.Context, req ownership.Request) (bool, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(req)))
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	return rs.Allowed(), nil
}

// HealthCheck evaluates a known owner request and a known stranger request and verifies the answers.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	probe := ownership.Request{ActorID: "health", Action: ownership.ActionUpdate, ResourceType: "probe", OwnerID: "health"}
	ok, err := e.Allow(ctx, probe)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("policy denied owner probe")
	}
	probe.ActorID = "stranger"
	ok, err = e.Allow(ctx, probe)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("policy allowed stranger probe")
	}
	return nil
}

func buildInput(req ownership.Request) map[string]interface{} {
	return map[string]interface{}{
		"action": req.Action,
		"subject": map[string]interface{}{
			"id": req.ActorID,
		},
		"resource": map[string]interface{}{
			"type":     req.ResourceType,
			"id":       req.ResourceID,
			"owner_id": req.OwnerID,
		},
	}
}
