package docker

import (
	"sort"
	"strings"

	// filters package provides Args type for building Docker API query filters.
	"github.com/docker/docker/api/types/filters"

	"github.com/shinji-kodama/tcscope/internal/model"
)

// Label key suffixes for the scope label triple. Every key is prefixed with
// the scope itself, so the full keys for scope "proj-A" are:
//
//	proj-A.testcontainers.scope     = proj-A
//	proj-A.testcontainers.container = <role>
//	proj-A.testcontainers.prune     = true
//
// These exact strings are a contract with every other process that labels or
// reaps containers for the same scope, including tools that did not create
// the containers. They must never change.
const (
	// labelNamespace sits between the scope prefix and the key name.
	labelNamespace = ".testcontainers."

	// ScopeLabelSuffix is appended to the scope to form the scope key.
	ScopeLabelSuffix = labelNamespace + "scope"

	// ContainerLabelSuffix is appended to the scope to form the role key.
	ContainerLabelSuffix = labelNamespace + "container"

	// PruneLabelSuffix is appended to the scope to form the prune sentinel key.
	PruneLabelSuffix = labelNamespace + "prune"
)

// PruneLabelValue is the only value of the prune sentinel label that marks a
// container as eligible for reaping.
const PruneLabelValue = "true"

// ScopeLabelKey returns "{scope}.testcontainers.scope".
func ScopeLabelKey(scope string) string {
	return scope + ScopeLabelSuffix
}

// ContainerLabelKey returns "{scope}.testcontainers.container".
func ContainerLabelKey(scope string) string {
	return scope + ContainerLabelSuffix
}

// PruneLabelKey returns "{scope}.testcontainers.prune".
func PruneLabelKey(scope string) string {
	return scope + PruneLabelSuffix
}

// ScopeLabels builds the label triple for a scope and role. The returned map
// is freshly allocated on every call, so callers may modify it.
func ScopeLabels(scope, role string) map[string]string {
	return map[string]string{
		PruneLabelKey(scope):     PruneLabelValue,
		ScopeLabelKey(scope):     scope,
		ContainerLabelKey(scope): role,
	}
}

// PruneFilter builds the Docker API filter that matches containers carrying
// the complete label triple for scope and role. The engine ANDs label
// filters, so a container missing any of the three labels, or carrying a
// different value for one of them, does not match.
//
// The same filter is used for both listing and pruning. It is rebuilt on
// every call and never cached.
func PruneFilter(scope, role string) filters.Args {
	args := filters.NewArgs()
	for _, kv := range labelPairs(ScopeLabels(scope, role)) {
		args.Add("label", kv)
	}
	return args
}

// ScopeFilter matches every container of scope regardless of role: the
// scope key with the scope as value, plus the prune sentinel.
func ScopeFilter(scope string) filters.Args {
	args := filters.NewArgs()
	args.Add("label", ScopeLabelKey(scope)+"="+scope)
	args.Add("label", PruneLabelKey(scope)+"="+PruneLabelValue)
	return args
}

// labelPairs renders a label map as sorted "key=value" strings. Sorting keeps
// the filter deterministic, which makes it comparable in tests and logs.
func labelPairs(labels map[string]string) []string {
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return pairs
}

// ScopeMembership is the scope and role recovered from a container's labels.
type ScopeMembership struct {
	Scope string `json:"scope"`
	Role  string `json:"role"`
}

// ParseScopeLabels finds complete label triples among a container's labels.
// A container may belong to several scopes at once (each scope namespaces its
// own keys), so every complete triple is returned, sorted by scope.
//
// A triple is complete only when all three keys exist for the same scope, the
// scope key's value equals that scope, and the prune sentinel is exactly
// "true". Partial or inconsistent triples are ignored.
func ParseScopeLabels(labels map[string]string) []ScopeMembership {
	var found []ScopeMembership
	for key, value := range labels {
		if value != PruneLabelValue || !strings.HasSuffix(key, PruneLabelSuffix) {
			continue
		}
		scope := strings.TrimSuffix(key, PruneLabelSuffix)
		if scope == "" {
			continue
		}
		if labels[ScopeLabelKey(scope)] != scope {
			continue
		}
		role, ok := labels[ContainerLabelKey(scope)]
		if !ok || role == "" {
			continue
		}
		found = append(found, ScopeMembership{Scope: scope, Role: role})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Scope < found[j].Scope })
	return found
}

// HasScopeLabels reports whether labels carry the complete triple for exactly
// this scope and role.
func HasScopeLabels(labels map[string]string, scope, role string) bool {
	for k, v := range ScopeLabels(scope, role) {
		if labels[k] != v {
			return false
		}
	}
	return true
}

// GroupByScope groups containers by every scope they belong to. Containers
// without a complete triple are skipped. Within a scope, containers keep the
// order they were given in.
func GroupByScope(containers []model.ContainerInfo) map[string][]model.ContainerInfo {
	groups := make(map[string][]model.ContainerInfo)
	for _, c := range containers {
		for _, m := range ParseScopeLabels(c.Labels) {
			groups[m.Scope] = append(groups[m.Scope], c)
		}
	}
	return groups
}
