package missing

import (
	"fmt"
	"strings"
)

// Format is how a sequence encodes missingness.
type Format uint8

const (
	// FormatAuto asks DetectFormat to inspect the data. It is a hint only and
	// is never returned by detection.
	FormatAuto Format = iota
	FormatRaw
	FormatTagged
	FormatMixed
)

func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatTagged:
		return "tagged"
	case FormatMixed:
		return "mixed"
	default:
		return "auto"
	}
}

// ParseFormat accepts "auto", "raw"/"original" and "tagged"/"tagged_na",
// plus "mixed".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "raw", "original":
		return FormatRaw, nil
	case "tagged", "tagged_na", "tagged-na":
		return FormatTagged, nil
	case "mixed":
		return FormatMixed, nil
	}
	return FormatAuto, fmt.Errorf("unknown format %q (want auto, raw, tagged or mixed)", s)
}

// DetectFormat determines how the given sequences encode missingness under
// pattern p. An explicit hint other than FormatAuto is returned unchanged.
// Otherwise: tagged nulls together with sentinel codes give FormatMixed,
// tagged nulls alone FormatTagged, and anything else FormatRaw.
func DetectFormat(p *Pattern, hint Format, seqs ...[]Value) Format {
	if hint != FormatAuto {
		return hint
	}

	var sawTagged, sawSentinel bool
	for _, seq := range seqs {
		for _, v := range seq {
			switch v.kind {
			case KindTagged:
				sawTagged = true
			case KindPresent:
				if p != nil && p.IsSentinel(v.num) {
					sawSentinel = true
				}
			}
			if sawTagged && sawSentinel {
				return FormatMixed
			}
		}
	}

	if sawTagged {
		return FormatTagged
	}
	return FormatRaw
}
