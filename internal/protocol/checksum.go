package protocol

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// ChecksumError reports a stored checksum that does not match the message.
type ChecksumError struct {
	Expected   uint32
	Calculated uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("protocol: checksum mismatch: stored 0x%08x, calculated 0x%08x", e.Expected, e.Calculated)
}

func (e *ChecksumError) Is(target error) bool { return target == ErrChecksumMismatch }

// Checksum is CRC-32 (IEEE) over the whole message with the four checksum
// bytes at ChecksumOffset skipped. msg must hold at least HeaderSize bytes.
func Checksum(msg []byte) uint32 {
	return crc32Update(crc32Header(msg), msg[HeaderSize:])
}

func crc32Header(header []byte) uint32 {
	return crc32.ChecksumIEEE(header[:ChecksumOffset])
}

func crc32Update(sum uint32, b []byte) uint32 {
	return crc32.Update(sum, crc32.IEEETable, b)
}

// EmbedChecksum computes the checksum of msg and stores it in the header.
func EmbedChecksum(msg []byte) error {
	if len(msg) < HeaderSize {
		return &MessageTooSmallError{Size: len(msg)}
	}
	binary.LittleEndian.PutUint32(msg[ChecksumOffset:HeaderSize], Checksum(msg))
	return nil
}

// StoredChecksum reads the checksum field without decoding the rest of the header.
func StoredChecksum(msg []byte) uint32 {
	return binary.LittleEndian.Uint32(msg[ChecksumOffset:HeaderSize])
}

// VerifyChecksum compares the stored checksum with a fresh computation.
func VerifyChecksum(msg []byte) error {
	if len(msg) < HeaderSize {
		return &MessageTooSmallError{Size: len(msg)}
	}
	stored, calc := StoredChecksum(msg), Checksum(msg)
	if stored != calc {
		return &ChecksumError{Expected: stored, Calculated: calc}
	}
	return nil
}
