package enums

// Capability is the access level an action demands. Authorization is decided
// once, in the controller, before dispatch.
type Capability string

const (
	CapabilityPublic    Capability = "public"
	CapabilityOwnerOnly Capability = "owner_only"
	CapabilityAdminOnly Capability = "admin_only"
)

// IsValid reports whether the value matches the canonical capability enum.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityPublic, CapabilityOwnerOnly, CapabilityAdminOnly:
		return true
	}
	return false
}
