// File: chat/edition.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Edition selection, grounded on original_source's -e flag and
// stu_utils_get_edition: a build/runtime-time variant gating which chat
// features a deployment enables. The core dispatch table this server
// implements does not itself branch on edition (full command routing is
// out of scope), but supervisor.Config carries it through so a caller
// extending chat dispatch has somewhere to read it from.

package chat

// Edition names a deployment variant.
type Edition string

const (
	EditionStandard Edition = "standard"
	EditionLite     Edition = "lite"
	EditionEnterprise Edition = "enterprise"
)

// ParseEdition maps a CLI -e argument to an Edition, defaulting to
// EditionStandard for an empty or unrecognized value rather than
// rejecting startup over it (spec §6: unknown options are logged and
// ignored, not fatal).
func ParseEdition(s string) Edition {
	switch Edition(s) {
	case EditionLite, EditionEnterprise:
		return Edition(s)
	default:
		return EditionStandard
	}
}
