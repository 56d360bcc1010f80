package instrument

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLen is the size of an EVM contract address.
const AddressLen = 20

// Address is a raw 20-byte EVM address (token contract or pool).
type Address [AddressLen]byte

// ParseAddress accepts 40 hex chars with an optional 0x prefix. Case is not checked.
func ParseAddress(s string) (Address, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(clean) != 2*AddressLen {
		return Address{}, &InvalidInstrumentError{Input: s, Reason: "address must be 40 hex characters"}
	}
	var out Address
	if _, err := hex.Decode(out[:], []byte(clean)); err != nil {
		return Address{}, &InvalidInstrumentError{Input: s, Reason: "invalid hex encoding: " + err.Error()}
	}
	return out, nil
}

// String renders the EIP-55 mixed-case checksum form.
func (a Address) String() string {
	return FormatAddress(a)
}

// FormatAddress renders addr in EIP-55 checksum form.
func FormatAddress(addr Address) string {
	lower := hex.EncodeToString(addr[:])
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := make([]byte, 2+len(lower))
	out[0], out[1] = '0', 'x'
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && c <= 'f' && nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		out[2+i] = c
	}
	return string(out)
}
