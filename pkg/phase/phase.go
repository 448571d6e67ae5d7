// Package phase declares the fixed shape of the four pipeline phases:
// their names, agent rosters, canonical leads, and round budgets
// (spec.md §4.4). Nothing here runs a phase — pkg/runner does that — this
// package is the static roster registry the Phase Runner and Group Chat
// Manager are constructed from.
package phase

// Name identifies one of the four ordered phases.
type Name string

const (
	Analysis      Name = "analysis"
	Design        Name = "design"
	YAML          Name = "yaml"
	Documentation Name = "documentation"
)

// Ordered is the fixed, non-branching phase sequence the Pipeline Driver
// runs exactly once per request.
var Ordered = []Name{Analysis, Design, YAML, Documentation}

// Role is one agent role name within a phase's roster. Role identity is a
// plain string rather than an interface hierarchy — per the "dynamic
// dispatch over agents -> tagged variants + role registry" design note,
// there is no inheritance; each role maps to a prompt template and a
// permitted tool set looked up by name.
type Role string

const (
	RoleChiefArchitect  Role = "Chief Architect"
	RoleEKSSpecialist   Role = "EKS Specialist"
	RoleGKESpecialist   Role = "GKE Specialist"
	RoleAzureSpecialist Role = "Azure Specialist"
	RoleYAMLSpecialist  Role = "YAML Specialist"
	RoleQAEngineer      Role = "QA Engineer"
	RoleTechnicalWriter Role = "Technical Writer"
)

// Descriptor is the fixed, enumerated description of one phase: its
// roster, canonical lead, and round budget. Rosters are fixed at
// construction; the Group Chat Manager selects from the roster each round
// but never adds to it.
type Descriptor struct {
	Name          Name
	Roster        []Role
	CanonicalLead Role
	MaxRounds     int
}

// Descriptors is the static registry of all four phases, in pipeline order.
var Descriptors = map[Name]Descriptor{
	Analysis: {
		Name:          Analysis,
		Roster:        []Role{RoleChiefArchitect, RoleEKSSpecialist, RoleGKESpecialist},
		CanonicalLead: RoleChiefArchitect,
		MaxRounds:     50,
	},
	Design: {
		Name:          Design,
		Roster:        []Role{RoleChiefArchitect, RoleAzureSpecialist, RoleEKSSpecialist, RoleGKESpecialist},
		CanonicalLead: RoleAzureSpecialist,
		MaxRounds:     100,
	},
	YAML: {
		Name:          YAML,
		Roster:        []Role{RoleYAMLSpecialist, RoleAzureSpecialist, RoleQAEngineer, RoleTechnicalWriter},
		CanonicalLead: RoleYAMLSpecialist,
		MaxRounds:     100,
	},
	Documentation: {
		Name: Documentation,
		Roster: []Role{
			RoleTechnicalWriter, RoleChiefArchitect, RoleAzureSpecialist,
			RoleEKSSpecialist, RoleGKESpecialist, RoleQAEngineer,
		},
		CanonicalLead: RoleTechnicalWriter,
		MaxRounds:     100,
	},
}

// InRoster reports whether role is a declared participant of the phase.
func (d Descriptor) InRoster(role Role) bool {
	for _, r := range d.Roster {
		if r == role {
			return true
		}
	}
	return false
}

// PlatformSpecialist reports whether role is one of the two
// platform-specific specialists (EKS/GKE) that the selection policy's
// platform-exclusivity rule applies to.
func PlatformSpecialist(role Role) bool {
	return role == RoleEKSSpecialist || role == RoleGKESpecialist
}
