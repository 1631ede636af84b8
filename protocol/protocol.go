package protocol

import "fmt"

// Protocol is an immutable protocol definition. FullPreamble is
// the concatenation sync||discriminator used by the time-domain detector;
// Discriminators is the per-protocol suffix set used by the FFT detector
// after sync localization. A given detector instance requires all of its
// protocols to agree on sync length and discriminator length; that
// cross-protocol invariant is checked by ValidateProtocolFamily, not here.
type Protocol struct {
	Name           string
	FullPreamble   Sequence
	Discriminators []Sequence
}

// NewProtocol validates the per-protocol shape: a non-empty name and at
// least one discriminator sequence.
func NewProtocol(name string, fullPreamble Sequence, discriminators []Sequence) (Protocol, error) {
	if name == "" {
		return Protocol{}, fmt.Errorf("protocol: name must not be empty")
	}
	if len(discriminators) == 0 {
		return Protocol{}, fmt.Errorf("protocol %q: at least one discriminator sequence is required", name)
	}
	return Protocol{
		Name:           name,
		FullPreamble:   fullPreamble,
		Discriminators: discriminators,
	}, nil
}

// ValidateProtocolFamily checks the cross-protocol invariants required by
// the time-domain detector: every protocol must carry the same
// number of discriminator sequences, and sequences at the same position
// must have matching lengths across protocols, so that L_sync and L_disc
// (and therefore L_preamble) are well defined for the whole family.
func ValidateProtocolFamily(protocols []Protocol) error {
	if len(protocols) == 0 {
		return fmt.Errorf("protocol: at least one protocol is required")
	}
	ref := protocols[0]
	for _, p := range protocols[1:] {
		if len(p.Discriminators) != len(ref.Discriminators) {
			return fmt.Errorf("protocol %q: has %d discriminator sequences, protocol %q has %d",
				p.Name, len(p.Discriminators), ref.Name, len(ref.Discriminators))
		}
		for i, seq := range p.Discriminators {
			if seq.Len() != ref.Discriminators[i].Len() {
				return fmt.Errorf("protocol %q: discriminator %d has length %d, protocol %q has length %d",
					p.Name, i, seq.Len(), ref.Name, ref.Discriminators[i].Len())
			}
		}
		if p.FullPreamble.Len() != ref.FullPreamble.Len() {
			return fmt.Errorf("protocol %q: full preamble length %d does not match protocol %q length %d",
				p.Name, p.FullPreamble.Len(), ref.Name, ref.FullPreamble.Len())
		}
	}
	return nil
}

// PreambleLen returns the shared L_preamble (= L_sync + L_disc) for a
// validated protocol family. Callers must run ValidateProtocolFamily first.
func PreambleLen(protocols []Protocol) int {
	if len(protocols) == 0 {
		return 0
	}
	return protocols[0].FullPreamble.Len()
}
