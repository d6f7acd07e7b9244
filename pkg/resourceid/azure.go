package resourceid

import (
	"fmt"
	"strings"
)

// AzureID is a parsed Azure Resource Manager identifier of the form
// /subscriptions/{id}/resourceGroups/{group}/providers/{namespace}/{type}/{name}.
type AzureID struct {
	subscription  string
	resourceGroup string
	namespace     string
	types         []string
	names         []string
}

// ParseAzureID validates and parses an ARM resource identifier. Nested
// resource types (type/name pairs after the first) are accepted.
func ParseAzureID(id string) (AzureID, error) {
	if !strings.HasPrefix(id, "/") {
		return AzureID{}, fmt.Errorf("%w: %q must start with /", ErrMalformed, id)
	}
	segments := strings.Split(strings.TrimPrefix(id, "/"), "/")
	for _, s := range segments {
		if s == "" {
			return AzureID{}, fmt.Errorf("%w: %q has an empty segment", ErrMalformed, id)
		}
	}
	if len(segments) < 4 ||
		!strings.EqualFold(segments[0], "subscriptions") ||
		!strings.EqualFold(segments[2], "resourceGroups") {
		return AzureID{}, fmt.Errorf("%w: %q is not scoped to a resource group", ErrMalformed, id)
	}
	parsed := AzureID{
		subscription:  segments[1],
		resourceGroup: segments[3],
	}
	rest := segments[4:]
	if len(rest) == 0 {
		return parsed, nil
	}
	if !strings.EqualFold(rest[0], "providers") || len(rest) < 4 || (len(rest)-2)%2 != 0 {
		return AzureID{}, fmt.Errorf("%w: %q has an incomplete provider path", ErrMalformed, id)
	}
	parsed.namespace = rest[1]
	for i := 2; i < len(rest); i += 2 {
		parsed.types = append(parsed.types, rest[i])
		parsed.names = append(parsed.names, rest[i+1])
	}
	return parsed, nil
}

func (a AzureID) Subscription() string {
	return a.subscription
}

func (a AzureID) ResourceGroup() string {
	return a.resourceGroup
}

// Type returns the full resource type, e.g. Microsoft.KeyVault/vaults.
func (a AzureID) Type() string {
	if a.namespace == "" {
		return ""
	}
	return a.namespace + "/" + strings.Join(a.types, "/")
}

// Name returns the name of the innermost resource.
func (a AzureID) Name() string {
	if len(a.names) == 0 {
		return a.resourceGroup
	}
	return a.names[len(a.names)-1]
}

func (a AzureID) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "/subscriptions/%s/resourceGroups/%s", a.subscription, a.resourceGroup)
	if a.namespace != "" {
		fmt.Fprintf(&b, "/providers/%s", a.namespace)
		for i := range a.types {
			fmt.Fprintf(&b, "/%s/%s", a.types[i], a.names[i])
		}
	}
	return b.String()
}
