package constants

// Machine-readable codes returned in the "code" field of API envelopes.
const (
	CodeIdentityFound = "IDENTITY_FOUND"
	CodeLinksFound    = "LINKS_FOUND"
	CodeLinkFound     = "LINK_FOUND"
)
