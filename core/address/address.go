// Package address implements the opaque, prefix-structured identifiers used
// throughout the contribution graph. An address is an ordered sequence of
// string parts; addresses form a prefix tree that the weighting and
// declaration layers use for type dispatch.
//
// Node and edge addresses live in disjoint spaces and are not comparable to
// each other. Internally each part is terminated by a NUL byte, which makes
// the encoding injective and turns part-wise prefix testing into a plain
// string prefix check. Parts therefore must not contain NUL.
package address

import (
	"errors"
	"fmt"
	"strings"
)

// separator terminates every part in the packed representation.
const separator = "\x00"

// Space tags used by the serialized (snapshot) form of an address.
const (
	nodeTag = "\x01"
	edgeTag = "\x02"
)

// Sentinel errors for address construction and parsing. Use errors.Is() to
// check error types.
var (
	// ErrInvalidPart indicates a part contains the NUL separator byte.
	ErrInvalidPart = errors.New("address: part contains NUL byte")

	// ErrMalformed indicates a serialized address string is not a valid
	// tagged NUL-terminated part sequence.
	ErrMalformed = errors.New("address: malformed serialized address")
)

// NodeAddress identifies a node in the contribution graph.
type NodeAddress string

// EdgeAddress identifies an edge in the contribution graph.
type EdgeAddress string

// =============================================================================
// Construction
// =============================================================================

func pack(parts []string) (string, error) {
	var sb strings.Builder
	for _, p := range parts {
		if strings.Contains(p, separator) {
			return "", fmt.Errorf("%w: %q", ErrInvalidPart, p)
		}
		sb.WriteString(p)
		sb.WriteString(separator)
	}
	return sb.String(), nil
}

// NodeAddressFromParts builds a node address from its parts.
func NodeAddressFromParts(parts ...string) (NodeAddress, error) {
	s, err := pack(parts)
	return NodeAddress(s), err
}

// EdgeAddressFromParts builds an edge address from its parts.
func EdgeAddressFromParts(parts ...string) (EdgeAddress, error) {
	s, err := pack(parts)
	return EdgeAddress(s), err
}

// MustNodeAddress is NodeAddressFromParts that panics on invalid parts.
// Intended for statically known addresses (declaration prefixes, tests).
func MustNodeAddress(parts ...string) NodeAddress {
	a, err := NodeAddressFromParts(parts...)
	if err != nil {
		panic(err)
	}
	return a
}

// MustEdgeAddress is EdgeAddressFromParts that panics on invalid parts.
func MustEdgeAddress(parts ...string) EdgeAddress {
	a, err := EdgeAddressFromParts(parts...)
	if err != nil {
		panic(err)
	}
	return a
}

// =============================================================================
// Operations
// =============================================================================

func unpack(s string) []string {
	if s == "" {
		return nil
	}
	// Every part is NUL-terminated, so drop the trailing empty split.
	split := strings.Split(s, separator)
	return split[:len(split)-1]
}

// Append returns a new address extending a with the given parts.
func (a NodeAddress) Append(parts ...string) (NodeAddress, error) {
	s, err := pack(parts)
	return a + NodeAddress(s), err
}

// Append returns a new address extending a with the given parts.
func (a EdgeAddress) Append(parts ...string) (EdgeAddress, error) {
	s, err := pack(parts)
	return a + EdgeAddress(s), err
}

// Parts returns the part sequence of a.
func (a NodeAddress) Parts() []string { return unpack(string(a)) }

// Parts returns the part sequence of a.
func (a EdgeAddress) Parts() []string { return unpack(string(a)) }

// HasPrefix reports whether prefix is a part-wise prefix of a. Every address
// is a prefix of itself; the empty address is a prefix of every address.
func (a NodeAddress) HasPrefix(prefix NodeAddress) bool {
	return strings.HasPrefix(string(a), string(prefix))
}

// HasPrefix reports whether prefix is a part-wise prefix of a.
func (a EdgeAddress) HasPrefix(prefix EdgeAddress) bool {
	return strings.HasPrefix(string(a), string(prefix))
}

// Compare totally orders node addresses. The order is the lexicographic
// order of part sequences and is the iteration order used by snapshots.
func (a NodeAddress) Compare(b NodeAddress) int {
	return strings.Compare(string(a), string(b))
}

// Compare totally orders edge addresses.
func (a EdgeAddress) Compare(b EdgeAddress) int {
	return strings.Compare(string(a), string(b))
}

// Less reports whether a orders before b.
func (a NodeAddress) Less(b NodeAddress) bool { return a.Compare(b) < 0 }

// Less reports whether a orders before b.
func (a EdgeAddress) Less(b EdgeAddress) bool { return a.Compare(b) < 0 }

// String renders the address for diagnostics, joining parts with "/".
// The result is not injective; use Encode for serialization.
func (a NodeAddress) String() string { return strings.Join(a.Parts(), "/") }

// String renders the address for diagnostics, joining parts with "/".
func (a EdgeAddress) String() string { return strings.Join(a.Parts(), "/") }

// =============================================================================
// Serialized form
// =============================================================================

// Encode returns the injective serialized form of a: a one-byte node tag
// followed by the NUL-terminated parts.
func (a NodeAddress) Encode() string { return nodeTag + string(a) }

// Encode returns the injective serialized form of a: a one-byte edge tag
// followed by the NUL-terminated parts.
func (a EdgeAddress) Encode() string { return edgeTag + string(a) }

func parseTagged(s, tag string) (string, error) {
	if !strings.HasPrefix(s, tag) {
		return "", fmt.Errorf("%w: bad or missing space tag", ErrMalformed)
	}
	body := s[len(tag):]
	if body != "" && !strings.HasSuffix(body, separator) {
		return "", fmt.Errorf("%w: unterminated final part", ErrMalformed)
	}
	return body, nil
}

// ParseNodeAddress inverts NodeAddress.Encode.
func ParseNodeAddress(s string) (NodeAddress, error) {
	body, err := parseTagged(s, nodeTag)
	return NodeAddress(body), err
}

// ParseEdgeAddress inverts EdgeAddress.Encode.
func ParseEdgeAddress(s string) (EdgeAddress, error) {
	body, err := parseTagged(s, edgeTag)
	return EdgeAddress(body), err
}
