package domain

import "time"

// StorePatch is a partial update against a single store. Nil fields are
// left untouched, so two independent writers that touch different
// fields never clobber each other when both are flushed.
type StorePatch struct {
	Config         *ConfigPatch
	Catalog        *[]CatalogItem
	TransactionLog *[]Sale
	Archive        *[]DaySummary
	LastDayEndAt   *time.Time
}

// ConfigPatch merges at the config-field level. Editing StaffEmails
// must not drop Presence, and vice versa. Presence entries merge per
// email key: a heartbeat only ever names its own key, so interleaved
// merges from independent sessions commute.
type ConfigPatch struct {
	DisplayName  *string
	StaffEmails  *[]string
	FamilyEmails *[]string
	Presence     map[string]PresenceRecord
}

// Apply merges p into s. Repositories funnel every mutation through
// this single merge so file- and Mongo-backed stores agree on patch
// semantics.
func (s *Store) Apply(p StorePatch) {
	if p.Catalog != nil {
		s.Catalog = *p.Catalog
	}
	if p.TransactionLog != nil {
		s.TransactionLog = *p.TransactionLog
	}
	if p.Archive != nil {
		s.Archive = *p.Archive
	}
	if p.LastDayEndAt != nil {
		s.LastDayEndAt = *p.LastDayEndAt
	}
	if p.Config == nil {
		return
	}
	if p.Config.DisplayName != nil {
		s.Config.DisplayName = *p.Config.DisplayName
	}
	if p.Config.StaffEmails != nil {
		s.Config.StaffEmails = *p.Config.StaffEmails
	}
	if p.Config.FamilyEmails != nil {
		s.Config.FamilyEmails = *p.Config.FamilyEmails
	}
	if len(p.Config.Presence) > 0 {
		if s.Config.Presence == nil {
			s.Config.Presence = make(map[string]PresenceRecord, len(p.Config.Presence))
		}
		for email, rec := range p.Config.Presence {
			s.Config.Presence[email] = rec
		}
	}
}

// Clone returns a deep copy of s. Repositories hand out clones so
// callers can never mutate shared registry state in place.
func (s Store) Clone() Store {
	out := s
	out.Catalog = append([]CatalogItem(nil), s.Catalog...)
	out.TransactionLog = append([]Sale(nil), s.TransactionLog...)
	out.Archive = append([]DaySummary(nil), s.Archive...)
	out.Config.StaffEmails = append([]string(nil), s.Config.StaffEmails...)
	out.Config.FamilyEmails = append([]string(nil), s.Config.FamilyEmails...)
	if s.Config.Presence != nil {
		out.Config.Presence = make(map[string]PresenceRecord, len(s.Config.Presence))
		for k, v := range s.Config.Presence {
			out.Config.Presence[k] = v
		}
	}
	for i := range out.Catalog {
		if p := out.Catalog[i].Price; p != nil {
			v := *p
			out.Catalog[i].Price = &v
		}
	}
	return out
}
