package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The snapshot read path must never hand a deactivated rule to the
// pricing engine, while the admin listing shows the full set including
// inactive rules.
func TestSnapshotQueries_ExcludeInactiveRules(t *testing.T) {
	assert.Contains(t, listSpotRules, "AND is_active")
	assert.Contains(t, listZoneRules, "AND is_active")

	// The admin listing shows everything, including deactivated rules.
	assert.NotContains(t, listRules, "AND is_active")
}

func TestSnapshotQueries_ResolutionOrder(t *testing.T) {
	for _, query := range []string{listSpotRules, listZoneRules, listRules} {
		assert.Contains(t, query, "ORDER BY priority DESC, created_at")
	}
}

// Zone-tier loading must not pick up spot-scoped rules; those are served
// by the spot tier and outrank the zone tier unconditionally.
func TestZoneRuleQuery_ExcludesSpotScopedRules(t *testing.T) {
	assert.Contains(t, listZoneRules, "spot_id IS NULL")
}
