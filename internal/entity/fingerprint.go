package entity

// Wildcard is the fingerprint token that matches any byte.
const Wildcard uint16 = 0xFFFF

// Fingerprint is the expected-response pattern for one entity.
type Fingerprint [CommandLength]uint16

// FingerprintFunc derives the expected response from a request command.
type FingerprintFunc func(Command) Fingerprint

// DefaultFingerprint derives the response pattern used by HPSU controllers.
//
// The controller answers a read request (upper nibble of byte 0, low nibble 1)
// with the same upper nibble and low nibble 2, sets byte 1 to 0x10 and echoes
// the register address: bytes 2..4 for extended (0xFA) registers, byte 2
// otherwise. Everything after the address carries data.
func DefaultFingerprint(cmd Command) Fingerprint {
	fp := Fingerprint{Wildcard, Wildcard, Wildcard, Wildcard, Wildcard, Wildcard, Wildcard}
	if cmd.IsZero() {
		return fp
	}
	fp[0] = uint16(cmd[0]&0xF0) | 0x02
	fp[1] = 0x10
	fp[2] = uint16(cmd[2])
	if cmd[2] == 0xFA {
		fp[3] = uint16(cmd[3])
		fp[4] = uint16(cmd[4])
	}
	return fp
}

// Match reports whether payload satisfies every concrete token.
func (fp Fingerprint) Match(payload []byte) bool {
	for i, tok := range fp {
		if tok == Wildcard {
			continue
		}
		if i >= len(payload) || uint16(payload[i]) != tok {
			return false
		}
	}
	return true
}

// IsWildcard reports whether every token is a wildcard.
func (fp Fingerprint) IsWildcard() bool {
	for _, tok := range fp {
		if tok != Wildcard {
			return false
		}
	}
	return true
}
