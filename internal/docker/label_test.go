package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/tcscope/internal/model"
)

// TestScopeLabelKeys pins the exact label key format. Other processes rely
// on these strings to rediscover containers, so any change here is a
// breaking change.
func TestScopeLabelKeys(t *testing.T) {
	assert.Equal(t, "proj-A.testcontainers.scope", ScopeLabelKey("proj-A"))
	assert.Equal(t, "proj-A.testcontainers.container", ContainerLabelKey("proj-A"))
	assert.Equal(t, "proj-A.testcontainers.prune", PruneLabelKey("proj-A"))
}

// TestScopeLabels verifies the label triple for the scenario scope/role.
func TestScopeLabels(t *testing.T) {
	labels := ScopeLabels("proj-A", "redis")

	assert.Equal(t, map[string]string{
		"proj-A.testcontainers.scope":     "proj-A",
		"proj-A.testcontainers.container": "redis",
		"proj-A.testcontainers.prune":     "true",
	}, labels)
}

// TestScopeLabels_FreshMap verifies that each call returns an independent
// map, so a caller mutating one result cannot affect another.
func TestScopeLabels_FreshMap(t *testing.T) {
	first := ScopeLabels("s", "r")
	first["s.testcontainers.prune"] = "false"

	second := ScopeLabels("s", "r")
	assert.Equal(t, "true", second["s.testcontainers.prune"])
}

// TestPruneFilter verifies that the filter carries exactly the three
// "key=value" label conditions and nothing else.
func TestPruneFilter(t *testing.T) {
	f := PruneFilter("proj-A", "redis")

	assert.Equal(t, 1, f.Len(), "only the label filter key should be present")
	assert.ElementsMatch(t, []string{
		"proj-A.testcontainers.prune=true",
		"proj-A.testcontainers.scope=proj-A",
		"proj-A.testcontainers.container=redis",
	}, f.Get("label"))
}

func TestScopeFilter(t *testing.T) {
	f := ScopeFilter("proj-A")

	assert.ElementsMatch(t, []string{
		"proj-A.testcontainers.scope=proj-A",
		"proj-A.testcontainers.prune=true",
	}, f.Get("label"))
}

func TestLabelPairs_Sorted(t *testing.T) {
	pairs := labelPairs(map[string]string{"b": "2", "a": "1", "c": "3"})
	assert.Equal(t, []string{"a=1", "b=2", "c=3"}, pairs)
}

// TestParseScopeLabels covers complete, partial and inconsistent triples.
func TestParseScopeLabels(t *testing.T) {
	tests := []struct {
		name     string
		labels   map[string]string
		expected []ScopeMembership
	}{
		{
			name:     "complete triple",
			labels:   ScopeLabels("proj-A", "redis"),
			expected: []ScopeMembership{{Scope: "proj-A", Role: "redis"}},
		},
		{
			name: "two scopes on one container",
			labels: mergeLabels(
				ScopeLabels("zeta", "db"),
				ScopeLabels("alpha", "cache"),
			),
			expected: []ScopeMembership{
				{Scope: "alpha", Role: "cache"},
				{Scope: "zeta", Role: "db"},
			},
		},
		{
			name: "missing prune sentinel",
			labels: map[string]string{
				"proj-A.testcontainers.scope":     "proj-A",
				"proj-A.testcontainers.container": "redis",
			},
		},
		{
			name: "prune sentinel not true",
			labels: map[string]string{
				"proj-A.testcontainers.scope":     "proj-A",
				"proj-A.testcontainers.container": "redis",
				"proj-A.testcontainers.prune":     "false",
			},
		},
		{
			name: "scope value does not match key prefix",
			labels: map[string]string{
				"proj-A.testcontainers.scope":     "proj-B",
				"proj-A.testcontainers.container": "redis",
				"proj-A.testcontainers.prune":     "true",
			},
		},
		{
			name: "missing role",
			labels: map[string]string{
				"proj-A.testcontainers.scope": "proj-A",
				"proj-A.testcontainers.prune": "true",
			},
		},
		{
			name:   "unrelated labels",
			labels: map[string]string{"com.docker.compose.service": "app"},
		},
		{
			name:   "nil labels",
			labels: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseScopeLabels(tt.labels))
		})
	}
}

func TestHasScopeLabels(t *testing.T) {
	labels := mergeLabels(ScopeLabels("proj-A", "redis"), map[string]string{"other": "x"})

	assert.True(t, HasScopeLabels(labels, "proj-A", "redis"))
	assert.False(t, HasScopeLabels(labels, "proj-A", "postgres"), "different role")
	assert.False(t, HasScopeLabels(labels, "proj-B", "redis"), "different scope")

	delete(labels, PruneLabelKey("proj-A"))
	assert.False(t, HasScopeLabels(labels, "proj-A", "redis"), "partial triple")
}

// TestGroupByScope verifies that containers are grouped under every scope
// they carry a complete triple for, and unlabeled containers are dropped.
func TestGroupByScope(t *testing.T) {
	containers := []model.ContainerInfo{
		{ContainerID: "aaa111", State: model.StateRunning, Labels: ScopeLabels("alpha", "redis")},
		{ContainerID: "bbb222", State: model.StateExited, Labels: ScopeLabels("alpha", "postgres")},
		{ContainerID: "ccc333", State: model.StateRunning, Labels: ScopeLabels("beta", "redis")},
		{ContainerID: "ddd444", State: model.StateRunning, Labels: map[string]string{"unrelated": "true"}},
	}

	groups := GroupByScope(containers)

	require.Len(t, groups, 2)
	require.Len(t, groups["alpha"], 2)
	assert.Equal(t, "aaa111", groups["alpha"][0].ContainerID)
	assert.Equal(t, "bbb222", groups["alpha"][1].ContainerID)
	require.Len(t, groups["beta"], 1)
	assert.Equal(t, "ccc333", groups["beta"][0].ContainerID)
}

func mergeLabels(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
