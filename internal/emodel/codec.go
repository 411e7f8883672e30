// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

// Package emodel implements the ITU-T G.107 E-Model: a closed-form perceptual
// model that converts raw network telemetry (jitter, packet loss, latency,
// codec) into an R-factor and a Mean Opinion Score. Scoring is a pure
// function with no I/O and no failure mode; unknown codecs fall back to the
// G.711 baseline profile.
package emodel

import "strings"

// Codec is a closed enumeration of the codecs SipLens knows how to score.
// Representing codecs as an enum (rather than a string-keyed map lookup)
// keeps typos from silently producing the wrong impairment floor.
type Codec int

const (
	// CodecUnknown maps to the G.711 baseline profile.
	CodecUnknown Codec = iota
	CodecPCMU
	CodecPCMA
	CodecG722
	CodecOpus
	CodecG726
	CodecG729
	CodecG723
	CodecILBC
	CodecGSM
	CodecAMR
)

// Profile carries the per-codec E-Model parameters: the baseline
// signal-to-noise rating R0 and the codec impairment floor Ie.
type Profile struct {
	// R0 is the basic signal-to-noise ratio: ~93.2 for narrowband codecs,
	// ~94.0 for wideband.
	R0 float64

	// IeBase is the equipment impairment at zero packet loss: 0 for
	// uncompressed codecs, up to ~20 for heavily compressed mobile codecs.
	IeBase float64
}

var profiles = map[Codec]Profile{
	CodecUnknown: {R0: 93.2, IeBase: 0},  // G.711 baseline
	CodecPCMU:    {R0: 93.2, IeBase: 0},  // G.711 mu-law, uncompressed
	CodecPCMA:    {R0: 93.2, IeBase: 0},  // G.711 A-law, uncompressed
	CodecG722:    {R0: 94.0, IeBase: 0},  // wideband
	CodecOpus:    {R0: 94.0, IeBase: 5},  // wideband, light compression
	CodecG726:    {R0: 93.2, IeBase: 7},  // ADPCM 32 kbit/s
	CodecG729:    {R0: 93.2, IeBase: 10}, // CS-ACELP 8 kbit/s
	CodecG723:    {R0: 93.2, IeBase: 15}, // 5.3/6.3 kbit/s
	CodecILBC:    {R0: 93.2, IeBase: 11},
	CodecGSM:     {R0: 93.2, IeBase: 20}, // GSM-FR, mobile
	CodecAMR:     {R0: 93.2, IeBase: 10},
}

var codecNames = map[string]Codec{
	"PCMU":  CodecPCMU,
	"G711U": CodecPCMU,
	"G711":  CodecPCMU,
	"PCMA":  CodecPCMA,
	"G711A": CodecPCMA,
	"G722":  CodecG722,
	"OPUS":  CodecOpus,
	"G726":  CodecG726,
	"G729":  CodecG729,
	"G729A": CodecG729,
	"G723":  CodecG723,
	"ILBC":  CodecILBC,
	"GSM":   CodecGSM,
	"AMR":   CodecAMR,
}

// ParseCodec maps a wire codec name (case-insensitive, with or without
// dots, e.g. "PCMU", "opus", "G.729") to its Codec. Names that are not
// recognized return CodecUnknown, which scores with the G.711 baseline.
func ParseCodec(name string) Codec {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), ".", ""))
	if c, ok := codecNames[normalized]; ok {
		return c
	}
	return CodecUnknown
}

// Profile returns the E-Model parameters for the codec.
func (c Codec) Profile() Profile {
	if p, ok := profiles[c]; ok {
		return p
	}
	return profiles[CodecUnknown]
}

// String returns the canonical codec name.
func (c Codec) String() string {
	switch c {
	case CodecPCMU:
		return "PCMU"
	case CodecPCMA:
		return "PCMA"
	case CodecG722:
		return "G722"
	case CodecOpus:
		return "Opus"
	case CodecG726:
		return "G726"
	case CodecG729:
		return "G729"
	case CodecG723:
		return "G723"
	case CodecILBC:
		return "iLBC"
	case CodecGSM:
		return "GSM"
	case CodecAMR:
		return "AMR"
	default:
		return "unknown"
	}
}
