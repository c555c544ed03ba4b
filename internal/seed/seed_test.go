package seed

import (
	"testing"

	organizationdomain "github.com/smallbiznis/donora/internal/organization/domain"
	"github.com/smallbiznis/donora/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureMainOrgIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t, &organizationdomain.Organization{})

	require.NoError(t, EnsureMainOrg(conn, "Asia/Jakarta"))
	require.NoError(t, EnsureMainOrg(conn, "UTC"))

	var orgs []organizationdomain.Organization
	require.NoError(t, conn.Find(&orgs).Error)
	require.Len(t, orgs, 1)
	assert.Equal(t, "main", orgs[0].Slug)
	assert.Equal(t, "Asia/Jakarta", orgs[0].Timezone)
}

func TestEnsureMainOrgRejectsUnknownTimezone(t *testing.T) {
	conn := dbtest.Open(t, &organizationdomain.Organization{})
	assert.Error(t, EnsureMainOrg(conn, "Mars/Olympus"))
}
