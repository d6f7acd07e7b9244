package plugin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aquasecurity/cloudaudit/pkg/cache"
)

// API identifies one upstream call recorded in the snapshot. Service is the
// snapshot service key, e.g. "cloudtrail" or "networkSecurityGroups".
type API struct {
	Service   string
	Operation string
}

func (a API) String() string {
	return a.Service + ":" + a.Operation
}

// Key returns the scope-level snapshot key of the call.
func (a API) Key(scope string) cache.Key {
	return cache.NewKey(a.Service, a.Operation, scope)
}

// ResourceKey returns the snapshot key of the call made for one resource.
func (a API) ResourceKey(scope, resource string) cache.Key {
	return a.Key(scope).WithResource(resource)
}

// ParseAPI splits a "Service:operation" reference. It does not check the
// reference is known; use Registry.Resolve for that.
func ParseAPI(s string) (API, error) {
	service, operation, ok := strings.Cut(s, ":")
	if !ok || service == "" || operation == "" || strings.Contains(operation, ":") {
		return API{}, fmt.Errorf("%w: malformed API reference %q", ErrInvalidMetadata, s)
	}
	return API{Service: service, Operation: operation}, nil
}

// Registry is the fixed set of APIs checks may depend on.
type Registry struct {
	apis map[string]API
}

func registryKey(api API) string {
	return strings.ToLower(api.Service) + ":" + api.Operation
}

func NewRegistry(apis ...API) Registry {
	r := Registry{apis: make(map[string]API, len(apis))}
	for _, api := range apis {
		r.apis[registryKey(api)] = api
	}
	return r
}

// Merge returns a registry holding the APIs of r and all others.
func (r Registry) Merge(others ...Registry) Registry {
	merged := NewRegistry(r.APIs()...)
	for _, other := range others {
		for k, api := range other.apis {
			merged.apis[k] = api
		}
	}
	return merged
}

// Has returns true if api is registered with exactly this spelling.
func (r Registry) Has(api API) bool {
	known, ok := r.apis[registryKey(api)]
	return ok && known == api
}

// Resolve returns the registered API for a "Service:operation" reference.
// Service names match case-insensitively so that "CloudTrail:describeTrails"
// resolves to the "cloudtrail" snapshot service.
func (r Registry) Resolve(s string) (API, error) {
	api, err := ParseAPI(s)
	if err != nil {
		return API{}, err
	}
	known, ok := r.apis[registryKey(api)]
	if !ok {
		return API{}, fmt.Errorf("%w: unknown API %s", ErrInvalidMetadata, s)
	}
	return known, nil
}

// APIs returns the registered APIs ordered by service and operation.
func (r Registry) APIs() []API {
	apis := make([]API, 0, len(r.apis))
	for _, api := range r.apis {
		apis = append(apis, api)
	}
	sort.Slice(apis, func(i, j int) bool {
		return apis[i].String() < apis[j].String()
	})
	return apis
}

func (r Registry) Len() int {
	return len(r.apis)
}
