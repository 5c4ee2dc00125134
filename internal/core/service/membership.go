package service

import (
	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
)

// EffectiveRole computes the authority an identity holds within a
// store. Precedence is owner > family > staff, checked in that order,
// so an email erroneously present in several lists still resolves to
// the strongest role. Identities with no membership at all keep their
// signup-time fallback role.
//
// This is the single source of truth for per-store permissions; it is
// invoked at every binding transition, never cached.
func EffectiveRole(email string, cfg domain.StoreConfig, fallback domain.Role) domain.Role {
	email = domain.NormalizeEmail(email)
	switch {
	case cfg.OwnerEmail == email:
		return domain.RoleOwner
	case memberOf(cfg.FamilyEmails, email):
		return domain.RoleFamily
	case memberOf(cfg.StaffEmails, email):
		return domain.RoleStaff
	}
	return fallback
}

func memberOf(list []string, email string) bool {
	for _, e := range list {
		if e == email {
			return true
		}
	}
	return false
}

// AccessibleStores filters the registry down to the stores the identity
// may access, each labeled with its computed role.
func AccessibleStores(email string, stores []domain.Store, fallback domain.Role) []ports.StoreAccess {
	email = domain.NormalizeEmail(email)
	var out []ports.StoreAccess
	for _, store := range stores {
		if store.Config.HasMember(email) {
			out = append(out, ports.StoreAccess{
				Store: store,
				Role:  EffectiveRole(email, store.Config, fallback),
			})
		}
	}
	return out
}

// RouteFor implements the selection policy applied right after
// authentication:
//
//	0 accessible stores, owner signup role → provisioning
//	0 accessible stores, otherwise        → waiting for access
//	1 accessible store                    → auto-bind (Active)
//	more than one                         → explicit selection
func RouteFor(identity domain.Identity, accessible int) domain.SessionState {
	switch {
	case accessible == 1:
		return domain.StateActive
	case accessible > 1:
		return domain.StateSelectingStore
	case identity.Role == domain.RoleOwner:
		return domain.StateProvisioning
	}
	return domain.StateAwaitingAccess
}
