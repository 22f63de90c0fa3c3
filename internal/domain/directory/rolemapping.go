package directory

import "strings"

// RoleMapping associates one directory identity with the security groups it
// belongs to and the local roles computed from them. Both sets are always
// non-nil. A mapping is created fresh per synchronization run and discarded
// after the role store has been updated.
type RoleMapping struct {
	// Key identifies the subject, typically the directory object GUID or DN.
	Key string

	securityGroups []string
	roles          []string
}

// NewRoleMapping creates an empty mapping for the given identity key.
func NewRoleMapping(key string) *RoleMapping {
	return &RoleMapping{
		Key:            key,
		securityGroups: []string{},
		roles:          []string{},
	}
}

// SecurityGroups returns the directory security groups. Never nil.
func (m *RoleMapping) SecurityGroups() []string { return m.securityGroups }

// Roles returns the computed local roles. Never nil.
func (m *RoleMapping) Roles() []string { return m.roles }

// SetSecurityGroups replaces the security-group set, dropping duplicates
// while preserving first-seen order.
func (m *RoleMapping) SetSecurityGroups(groups []string) {
	m.securityGroups = dedupe(groups)
}

// SetRoles replaces the role set, dropping duplicates while preserving
// first-seen order.
func (m *RoleMapping) SetRoles(roles []string) {
	m.roles = dedupe(roles)
}

// HasSecurityGroup reports exact (case-sensitive) membership.
func (m *RoleMapping) HasSecurityGroup(group string) bool {
	for _, g := range m.securityGroups {
		if g == group {
			return true
		}
	}
	return false
}

// Merge unions the other mapping's security groups and roles into this one.
// True set semantics: each element appears once, left operand order first.
func (m *RoleMapping) Merge(other *RoleMapping) {
	if other == nil {
		return
	}
	m.securityGroups = dedupe(append(m.securityGroups, other.securityGroups...))
	m.roles = dedupe(append(m.roles, other.roles...))
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Equivalence is one configured "security group maps to role" pair.
type Equivalence struct {
	Group string
	Role  string
}

// EquivalenceMap is an ordered set of security-group-to-role equivalences
// parsed from a "group=role;group2=role2" configuration string.
type EquivalenceMap struct {
	entries []Equivalence
}

// ParseEquivalences parses the configured equivalence string. Entries that do
// not contain exactly one "=" are skipped; both sides are trimmed. The names
// of skipped entries are returned so callers can log them.
func ParseEquivalences(raw string) (*EquivalenceMap, []string) {
	m := &EquivalenceMap{}
	var skipped []string
	for _, entry := range SplitList(raw) {
		parts := strings.Split(entry, "=")
		if len(parts) != 2 {
			skipped = append(skipped, entry)
			continue
		}
		group := strings.TrimSpace(parts[0])
		role := strings.TrimSpace(parts[1])
		if group == "" || role == "" {
			skipped = append(skipped, entry)
			continue
		}
		m.entries = append(m.entries, Equivalence{Group: group, Role: role})
	}
	return m, skipped
}

// Len returns the number of configured equivalences.
func (m *EquivalenceMap) Len() int { return len(m.entries) }

// Entries returns the equivalences in configuration order.
func (m *EquivalenceMap) Entries() []Equivalence { return m.entries }

// MappedRoles returns, in configuration order, the roles whose security group
// is contained in the mapping's group set. Matching is exact.
func (m *EquivalenceMap) MappedRoles(mapping *RoleMapping) []string {
	roles := []string{}
	for _, e := range m.entries {
		if mapping.HasSecurityGroup(e.Group) {
			roles = append(roles, e.Role)
		}
	}
	return dedupe(roles)
}

// ContainsAnyGroup reports whether the mapping belongs to at least one group
// that appears as a key in this equivalence map. This is broader than "has at
// least one mapped role": it is membership in any configured group.
func (m *EquivalenceMap) ContainsAnyGroup(mapping *RoleMapping) bool {
	for _, e := range m.entries {
		if mapping.HasSecurityGroup(e.Group) {
			return true
		}
	}
	return false
}
