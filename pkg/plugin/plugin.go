package plugin

import (
	"context"
	"fmt"

	"github.com/aquasecurity/cloudaudit/pkg/cache"
	"github.com/aquasecurity/cloudaudit/pkg/config"
	"github.com/aquasecurity/cloudaudit/pkg/fanout"
	"github.com/aquasecurity/cloudaudit/pkg/result"
)

// Env is everything a check sees while it runs. Checks read the snapshot
// only through Cache and report only through Results.
type Env struct {
	Cache    *cache.Accessor
	Settings config.Settings
	Results  *result.Sink
	Fanout   *fanout.Coordinator
}

// Plugin is a single compliance check.
type Plugin interface {
	Metadata() Metadata

	// Run evaluates the check and appends its findings to env.Results. Data
	// problems are reported as findings; the returned error is reserved for
	// failures of the check itself.
	Run(ctx context.Context, env Env) error
}

// RunFunc is the evaluation function of a check.
type RunFunc func(ctx context.Context, env Env) error

type funcPlugin struct {
	metadata Metadata
	run      RunFunc
}

// New returns a Plugin that evaluates with run.
func New(metadata Metadata, run RunFunc) Plugin {
	return &funcPlugin{metadata: metadata, run: run}
}

func (p *funcPlugin) Metadata() Metadata {
	return p.metadata
}

func (p *funcPlugin) Run(ctx context.Context, env Env) error {
	return p.run(ctx, env)
}

// Dependency is a scope-level listing a check iterates over.
type Dependency struct {
	API API
	// Description names the listed data in messages, e.g. "Key Vaults".
	Description string
	// EmptyMessage is reported when the listing has no items. Defaults to
	// "No <Description> found".
	EmptyMessage string
}

// NoDataMessage is reported for scopes in which the listing was never
// collected. It is distinct from EmptyMessage so that a scope without data
// is never mistaken for a scope that was evaluated and passed.
func (d Dependency) NoDataMessage() string {
	return fmt.Sprintf("No data to check for %s", d.Description)
}

func (d Dependency) emptyMessage() string {
	if d.EmptyMessage != "" {
		return d.EmptyMessage
	}
	return fmt.Sprintf("No %s found", d.Description)
}

// Resolve looks up the listing in scope. It reports the scope-level finding
// and returns false when there is nothing to iterate: OK if the listing was
// not collected or is empty, UNKNOWN if it failed.
func (d Dependency) Resolve(env Env, scope string) (cache.Outcome, bool) {
	o := env.Cache.Get(d.API.Key(scope))
	switch {
	case o.IsAbsent():
		env.Results.OK(d.NoDataMessage(), scope, "")
		return o, false
	case o.IsErrored():
		env.Results.Unknown(fmt.Sprintf("Unable to query for %s: %s", d.Description, cache.ErrorText(o)), scope, "")
		return o, false
	}
	if n, ok := o.Len(); ok && n == 0 {
		env.Results.OK(d.emptyMessage(), scope, "")
		return o, false
	}
	return o, true
}

// Required looks up data a check cannot evaluate without. If the outcome is
// Absent or Errored an UNKNOWN finding naming the dependency is reported for
// region and resource, and false is returned.
func Required(env Env, key cache.Key, description, region, resource string) (cache.Outcome, bool) {
	o := env.Cache.Get(key)
	if o.IsSucceeded() {
		return o, true
	}
	env.Results.Unknown(fmt.Sprintf("Unable to query for %s: %s", description, cache.ErrorText(o)), region, resource)
	return o, false
}
