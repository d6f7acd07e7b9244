package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/aquasecurity/cloudaudit/pkg/apis/aquasecurity/v1alpha1"
	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const (
	ruleMetadata = "__rego_metadata__"
	ruleDeny     = "deny"
	ruleWarn     = "warn"
)

// Metadata describes policy metadata.
type Metadata struct {
	ID          string
	Title       string
	Severity    v1alpha1.Severity
	Description string
}

// NewMetadata constructs new Metadata based on raw values.
func NewMetadata(values map[string]interface{}) (Metadata, error) {
	if values == nil {
		return Metadata{}, errors.New("values must not be nil")
	}
	severityString, err := requiredStringValue(values, "severity")
	if err != nil {
		return Metadata{}, err
	}
	severity, err := v1alpha1.StringToSeverity(severityString)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed parsing severity: %w", err)
	}
	if severity == v1alpha1.SeverityOK {
		return Metadata{}, fmt.Errorf("severity of a violation must not be %s", severity)
	}
	id, err := requiredStringValue(values, "id")
	if err != nil {
		return Metadata{}, err
	}
	title, err := requiredStringValue(values, "title")
	if err != nil {
		return Metadata{}, err
	}
	description, _ := values["description"].(string)

	return Metadata{
		ID:          id,
		Title:       title,
		Severity:    severity,
		Description: description,
	}, nil
}

// Result describes result of evaluating a policy against one input.
type Result struct {
	// Severity is OK when neither deny nor warn matched, the metadata
	// severity for deny matches, and WARN for warn matches.
	Severity v1alpha1.Severity
	Messages []string
}

// Passed returns true if no rule matched.
func (r Result) Passed() bool {
	return r.Severity == v1alpha1.SeverityOK
}

// Policy is a compiled Rego module with prepared deny and warn queries.
// It is safe for concurrent use.
type Policy struct {
	name     string
	metadata Metadata
	deny     *rego.PreparedEvalQuery
	warn     *rego.PreparedEvalQuery
}

// Compile parses and compiles the policy module together with optional
// libraries. Modules are written in Rego v1, e.g. `deny contains msg if`.
func Compile(ctx context.Context, name, module string, libraries map[string]string) (*Policy, error) {
	parsedModules := make(map[string]*ast.Module, len(libraries)+1)
	for libraryName, libraryCode := range libraries {
		parsedLibrary, err := ast.ParseModule(libraryName, libraryCode)
		if err != nil {
			return nil, fmt.Errorf("failed parsing Rego library: %s: %w", libraryName, err)
		}
		parsedModules[libraryName] = parsedLibrary
	}
	parsedPolicy, err := ast.ParseModule(name, module)
	if err != nil {
		return nil, fmt.Errorf("failed parsing Rego policy: %s: %w", name, err)
	}
	parsedModules[name] = parsedPolicy

	compiler := ast.NewCompiler()
	compiler.Compile(parsedModules)
	if compiler.Failed() {
		return nil, fmt.Errorf("failed compiling Rego policy: %s: %w", name, compiler.Errors)
	}

	pkg := parsedPolicy.Package.Path.String()
	metadataQuery := fmt.Sprintf("md = %s.%s", pkg, ruleMetadata)
	rs, err := rego.New(
		rego.Compiler(compiler),
		rego.Query(metadataQuery),
	).Eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed evaluating Rego metadata rule: %s: %w", metadataQuery, err)
	}
	metadataResult, ok := hasBinding(rs, "md")
	if !ok {
		return nil, fmt.Errorf("failed parsing policy metadata: %s", name)
	}
	md, err := NewMetadata(metadataResult)
	if err != nil {
		return nil, fmt.Errorf("failed parsing policy metadata: %s: %w", name, err)
	}

	p := &Policy{name: name, metadata: md}
	if p.deny, err = prepare(ctx, compiler, parsedPolicy, ruleDeny); err != nil {
		return nil, err
	}
	if p.warn, err = prepare(ctx, compiler, parsedPolicy, ruleWarn); err != nil {
		return nil, err
	}
	if p.deny == nil && p.warn == nil {
		return nil, fmt.Errorf("policy defines neither deny nor warn rules: %s", name)
	}
	return p, nil
}

// prepare returns nil if the module does not define the rule.
func prepare(ctx context.Context, compiler *ast.Compiler, module *ast.Module, rule string) (*rego.PreparedEvalQuery, error) {
	defined := false
	for _, r := range module.Rules {
		if r.Head.Name.String() == rule || r.Head.Ref().String() == rule {
			defined = true
			break
		}
	}
	if !defined {
		return nil, nil
	}
	query := fmt.Sprintf("%s.%s[res]", module.Package.Path.String(), rule)
	prepared, err := rego.New(
		rego.Compiler(compiler),
		rego.Query(query),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed preparing Rego %s rule: %s: %w", rule, query, err)
	}
	return &prepared, nil
}

func (p *Policy) Name() string {
	return p.name
}

func (p *Policy) Metadata() Metadata {
	return p.metadata
}

// Eval evaluates the policy with input. Deny matches take precedence over
// warn matches.
func (p *Policy) Eval(ctx context.Context, input interface{}) (Result, error) {
	if input == nil {
		return Result{}, errors.New("input must not be nil")
	}
	messages, err := p.eval(ctx, p.deny, input)
	if err != nil {
		return Result{}, fmt.Errorf("failed evaluating Rego deny rule: %s: %w", p.name, err)
	}
	if len(messages) > 0 {
		return Result{Severity: p.metadata.Severity, Messages: messages}, nil
	}
	messages, err = p.eval(ctx, p.warn, input)
	if err != nil {
		return Result{}, fmt.Errorf("failed evaluating Rego warn rule: %s: %w", p.name, err)
	}
	if len(messages) > 0 {
		return Result{Severity: v1alpha1.SeverityWarn, Messages: messages}, nil
	}
	return Result{Severity: v1alpha1.SeverityOK}, nil
}

func (p *Policy) eval(ctx context.Context, query *rego.PreparedEvalQuery, input interface{}) ([]string, error) {
	if query == nil {
		return nil, nil
	}
	rs, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, err
	}
	var messages []string
	for _, r := range rs {
		value, ok := r.Bindings["res"]
		if !ok {
			continue
		}
		message, err := resultMessage(value)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// resultMessage accepts both plain string results and {"msg": ...} objects.
func resultMessage(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return "", errors.New("rule result must not be blank")
		}
		return v, nil
	case map[string]interface{}:
		return requiredStringValue(v, "msg")
	}
	return "", fmt.Errorf("expected string or object rule result got %T", value)
}

func hasBinding(rs rego.ResultSet, key string) (map[string]interface{}, bool) {
	if len(rs) == 0 {
		return nil, false
	}
	binding, ok := rs[0].Bindings[key].(map[string]interface{})
	return binding, ok
}

func requiredStringValue(values map[string]interface{}, key string) (string, error) {
	value, ok := values[key]
	if !ok {
		return "", fmt.Errorf("required key not found: %s", key)
	}
	if value == nil {
		return "", fmt.Errorf("required value is nil for key: %s", key)
	}
	valueString, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected string got %T for key: %s", value, key)
	}
	if valueString == "" {
		return "", fmt.Errorf("required value is blank for key: %s", key)
	}
	return valueString, nil
}
