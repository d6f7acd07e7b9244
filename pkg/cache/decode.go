package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

// Decode reads a snapshot document, either JSON or YAML. The document is a
// nested mapping of service, operation and scope. A scope value is either an
// outcome ({"err": ..., "data": ...}) or a mapping of resource keys to
// outcomes.
func Decode(r io.Reader) (*Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	data, err := yaml.YAMLToJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("converting snapshot to JSON: %w", err)
	}
	var services map[string]map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	b := NewBuilder()
	for service, operations := range services {
		for operation, scopes := range operations {
			for scope, value := range scopes {
				key := NewKey(service, operation, scope)
				if err := decodeScope(b, key, value); err != nil {
					return nil, err
				}
			}
		}
	}
	return b.Build()
}

func decodeScope(b *Builder, key Key, value json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(value, &fields); err != nil {
		return fmt.Errorf("%s: expected an outcome or a resource mapping: %w", key, err)
	}
	if isOutcome(fields) {
		b.Set(key, outcomeFromFields(fields))
		return nil
	}
	for resource, resourceValue := range fields {
		rk := key.WithResource(resource)
		var resourceFields map[string]json.RawMessage
		if err := json.Unmarshal(resourceValue, &resourceFields); err != nil {
			return fmt.Errorf("%s: expected an outcome: %w", rk, err)
		}
		if !isOutcome(resourceFields) {
			return fmt.Errorf("%s: expected an outcome with err or data", rk)
		}
		b.Set(rk, outcomeFromFields(resourceFields))
	}
	return nil
}

func isOutcome(fields map[string]json.RawMessage) bool {
	_, hasErr := fields["err"]
	_, hasData := fields["data"]
	return hasErr || hasData
}

func outcomeFromFields(fields map[string]json.RawMessage) Outcome {
	return fromDocument(document{Err: fields["err"], Data: fields["data"]})
}

// Load reads a snapshot from path. Files with a .db or .bolt extension are
// opened as bbolt stores, anything else is decoded as a JSON or YAML
// document.
func Load(path string) (*Snapshot, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".bolt":
		return OpenBolt(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	s, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ErrNotEncodable is returned by Encode for snapshots the nested document
// form cannot represent.
var ErrNotEncodable = errors.New("snapshot cannot be encoded as a document")

// Encode writes s as a JSON document that Decode accepts. A scope holding
// both a scope-level outcome and resource entries, or resources named like
// outcome fields, cannot be represented and is an error.
func Encode(w io.Writer, s *Snapshot) error {
	doc := make(map[string]map[string]map[string]interface{})
	for _, k := range s.Keys() {
		operations, ok := doc[k.Service]
		if !ok {
			operations = make(map[string]map[string]interface{})
			doc[k.Service] = operations
		}
		scopes, ok := operations[k.Operation]
		if !ok {
			scopes = make(map[string]interface{})
			operations[k.Operation] = scopes
		}
		o := s.Get(k)
		existing, exists := scopes[k.Scope]
		if k.Resource == "" {
			if exists {
				return fmt.Errorf("%w: %s has both an outcome and resource entries", ErrNotEncodable, k)
			}
			scopes[k.Scope] = o
			continue
		}
		if k.Resource == "err" || k.Resource == "data" {
			return fmt.Errorf("%w: resource name of %s is reserved", ErrNotEncodable, k)
		}
		resources, isResources := existing.(map[string]Outcome)
		if exists && !isResources {
			return fmt.Errorf("%w: %s has both an outcome and resource entries", ErrNotEncodable, k)
		}
		if !exists {
			resources = make(map[string]Outcome)
			scopes[k.Scope] = resources
		}
		resources[k.Resource] = o
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
