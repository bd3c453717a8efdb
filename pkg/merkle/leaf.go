package merkle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidAddress is returned when an address cannot be normalized to a
// 20-byte value.
var ErrInvalidAddress = errors.New("invalid address")

// LeafEncoding identifies the canonical byte serialization used to derive a
// leaf digest. The set is closed: every supported domain value gets its own
// case with a fixed-width serialization, and there is no generic fallback.
// Ambiguous serialization would silently break root compatibility with the
// on-chain verifier.
type LeafEncoding string

func (e LeafEncoding) String() string {
	return string(e)
}

const (
	LeafEncodingUnknown LeafEncoding = "unknown"

	// LeafEncodingAddress hashes a 20-byte Ethereum address, packed exactly
	// as Solidity's abi.encodePacked(address)
	LeafEncodingAddress LeafEncoding = "address"
)

// EncodeLeaf derives a leaf digest from a canonical byte serialization.
// The digest is keccak256 applied twice: once over the encoded value and once
// over the resulting digest. The double hash matches the external verifier and
// keeps leaf digests from colliding with internal-node digests, which are a
// single keccak256 over 64 bytes.
func EncodeLeaf(encoding LeafEncoding, data []byte) ([32]byte, error) {
	switch encoding {
	case LeafEncodingAddress:
		if len(data) != common.AddressLength {
			return [32]byte{}, fmt.Errorf("%w: address encoding requires %d bytes, got %d",
				ErrInvalidAddress, common.AddressLength, len(data))
		}
		inner := crypto.Keccak256Hash(data)
		outer := crypto.Keccak256Hash(inner[:])
		return [32]byte(outer), nil
	default:
		return [32]byte{}, fmt.Errorf("unsupported leaf encoding: %s", encoding)
	}
}

// AddressLeaf derives the leaf digest for an Ethereum address.
func AddressLeaf(addr common.Address) [32]byte {
	leaf, _ := EncodeLeaf(LeafEncodingAddress, addr.Bytes())
	return leaf
}

// NormalizeAddress parses a textual address into its 20-byte form.
// Input case is irrelevant: checksummed, lower-case, and upper-case hex all
// normalize to the same address, with or without the 0x prefix. Tools
// producing and consuming proofs must agree on this normalization or leaves
// will not match.
func NormalizeAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q is not a 20-byte hex address", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// CanonicalAddressHex renders an address in the canonical textual form used
// throughout this repo: 0x-prefixed lower-case hex, no checksum casing.
func CanonicalAddressHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
