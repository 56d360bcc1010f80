package protocol

// CheckHeader applies the structural header checks in wire order: magic,
// relay domain, source.
func CheckHeader(h Header) error {
	if h.Magic != Magic {
		return &InvalidMagicError{Expected: Magic, Actual: h.Magic}
	}
	if !h.RelayDomain.Valid() {
		return &InvalidDomainError{Domain: uint8(h.RelayDomain)}
	}
	if !h.Source.Valid() {
		return &InvalidSourceError{Source: uint8(h.Source)}
	}
	return nil
}
