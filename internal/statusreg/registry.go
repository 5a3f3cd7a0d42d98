// Package statusreg is the single registry translating backend status values
// into display configuration. Every page resolves badges and enabled actions
// through it instead of keeping its own status table.
package statusreg

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

type snapshot struct {
	domains  map[string]model.StatusDomainDefinition
	checksum string
}

// Registry is a read-optimized, thread-safe store of status domains. It uses
// atomic pointer swap for lock-free concurrent reads.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates a Registry from the built-in domains with overrides
// merged on top.
func NewRegistry(overrides []model.StatusDomainDefinition) *Registry {
	r := &Registry{}
	r.Replace(overrides)
	return r
}

// Replace atomically swaps the registry contents. Overrides replace single
// status entries of a built-in domain, or add whole new domains.
func (r *Registry) Replace(overrides []model.StatusDomainDefinition) {
	s := &snapshot{domains: make(map[string]model.StatusDomainDefinition)}

	for _, def := range Builtin() {
		s.domains[def.Domain] = def
	}

	var checksumParts []string
	for _, def := range overrides {
		checksumParts = append(checksumParts, def.Checksum)
		s.domains[def.Domain] = merge(s.domains[def.Domain], def)
	}

	sort.Strings(checksumParts)
	combined := strings.Join(checksumParts, ":")
	s.checksum = fmt.Sprintf("%x", sha256.Sum256([]byte(combined)))

	r.snap.Store(s)
}

func merge(base, over model.StatusDomainDefinition) model.StatusDomainDefinition {
	out := model.StatusDomainDefinition{
		Domain:     over.Domain,
		Default:    base.Default,
		Statuses:   make(map[string]model.StatusConfig, len(base.Statuses)+len(over.Statuses)),
		Checksum:   over.Checksum,
		SourceFile: over.SourceFile,
	}
	if over.Default.Label != "" || over.Default.Color != "" {
		out.Default = over.Default
	}
	for k, v := range base.Statuses {
		out.Statuses[k] = v
	}
	for k, v := range over.Statuses {
		out.Statuses[k] = v
	}
	return out
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// Domain returns the definition of the given domain.
func (r *Registry) Domain(name string) (model.StatusDomainDefinition, bool) {
	d, ok := r.current().domains[name]
	return d, ok
}

// Domains returns all domain names, sorted.
func (r *Registry) Domains() []string {
	s := r.current()
	names := make([]string, 0, len(s.domains))
	for name := range s.domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of domains.
func (r *Registry) Len() int {
	return len(r.current().domains)
}

// Checksum returns the combined checksum of the loaded override files.
func (r *Registry) Checksum() string {
	return r.current().checksum
}

// Lookup returns the display configuration of status in domain. It never
// fails: an unknown status yields the domain's default entry and an unknown
// domain yields GlobalDefault.
func (r *Registry) Lookup(domain, status string) model.StatusConfig {
	d, ok := r.current().domains[domain]
	if !ok {
		return GlobalDefault
	}
	if cfg, ok := d.Statuses[status]; ok {
		return cfg
	}
	return d.Default
}

// Allows reports whether action is enabled for records in status.
func (r *Registry) Allows(domain, status, action string) bool {
	for _, a := range r.Lookup(domain, status).Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Badge resolves the badge shown for status. A default entry without a
// label shows the raw value.
func (r *Registry) Badge(domain, status string) model.Badge {
	cfg := r.Lookup(domain, status)
	label := cfg.Label
	if label == "" {
		label = status
	}
	return model.Badge{Value: status, Label: label, Color: cfg.Color, Icon: cfg.Icon}
}

// Actions returns the enabled state of each candidate action for status.
func (r *Registry) Actions(domain, status string, candidates ...string) []model.ActionState {
	out := make([]model.ActionState, 0, len(candidates))
	for _, a := range candidates {
		out = append(out, model.ActionState{ID: a, Enabled: r.Allows(domain, status, a)})
	}
	return out
}
