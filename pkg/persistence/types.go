package persistence

// AllowlistSnapshot captures a committed allowlist: the ordered address set
// and the merkle root derived from it. Snapshots are keyed by root, so the
// same address set committed twice stores once.
//
// The root alone is what lives on-chain; the snapshot keeps the ordered
// address list around so proofs can be regenerated after a restart.
type AllowlistSnapshot struct {
	// RootHex is the 0x-prefixed merkle root, the primary key
	RootHex string `json:"rootHex"`

	// Addresses is the committed address list in canonical lower-case hex,
	// in leaf order. Order is part of the commitment.
	Addresses []string `json:"addresses"`

	// CreatedAt is the Unix timestamp when the snapshot was stored
	CreatedAt int64 `json:"createdAt"`

	// Label is an optional operator-supplied description
	Label string `json:"label,omitempty"`
}
