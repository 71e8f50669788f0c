package officers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/groupmapper/internal/models"
)

func TestRolePolicy_Drives(t *testing.T) {
	director := models.Officer{Name: "A", Role: models.RoleDirector}
	secretary := models.Officer{Name: "B", Role: models.RoleSecretary}
	unknown := models.Officer{Name: "C", Role: models.NormalizeRole("judicial factor")}
	blank := models.Officer{Name: "D"}
	resigned := models.Officer{Name: "E", Role: models.RoleDirector, ResignedOn: "2019-01-01"}

	tests := []struct {
		name   string
		policy RolePolicy
		want   map[string]bool
	}{
		{
			name:   "default",
			policy: DefaultRolePolicy(),
			want:   map[string]bool{"A": true, "B": false, "C": true, "D": true, "E": true},
		},
		{
			name:   "unknown roles are not control",
			policy: RolePolicy{ControlOnly: true, IncludeResigned: true},
			want:   map[string]bool{"A": true, "B": false, "C": false, "D": false, "E": true},
		},
		{
			name:   "all roles, current only",
			policy: RolePolicy{},
			want:   map[string]bool{"A": true, "B": true, "C": true, "D": true, "E": false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, o := range []models.Officer{director, secretary, unknown, blank, resigned} {
				assert.Equal(t, tt.want[o.Name], tt.policy.Drives(o), o.Name)
			}
		})
	}
}
