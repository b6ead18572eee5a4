package access

import (
	"fmt"
	"strings"
)

// User is an admin-service identity. CredentialHash is bcrypt output and
// never leaves the process boundary.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	Email          string `json:"email"`
	CredentialHash string `json:"-"`
}

// Grant is the four-boolean capability tuple for one (user, resource) pair.
// A missing grant means all capabilities are false.
type Grant struct {
	CanSelect bool `json:"can_select"`
	CanInsert bool `json:"can_insert"`
	CanUpdate bool `json:"can_update"`
	CanDelete bool `json:"can_delete"`
}

// GrantSet maps a managed resource name to its grant.
type GrantSet map[string]Grant

// ManagedResources is the catalog of tables the admin surface governs.
// Grants referencing anything else are rejected before touching storage.
var ManagedResources = []string{
	"crew_vitals_log",
	"pod_bay_doors_status",
	"discovery_one_systems",
	"monolith_observations_secure",
	"mission_critical_data",
}

var managedResourceSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(ManagedResources))
	for _, name := range ManagedResources {
		set[name] = struct{}{}
	}
	return set
}()

// ValidateGrantSet rejects grants for resources outside the managed catalog.
func ValidateGrantSet(grants GrantSet) error {
	for resource := range grants {
		if strings.TrimSpace(resource) == "" {
			return fmt.Errorf("%w: empty resource name", ErrInvalidInput)
		}
		if _, ok := managedResourceSet[resource]; !ok {
			return fmt.Errorf("%w: unknown resource %q", ErrInvalidInput, resource)
		}
	}
	return nil
}
