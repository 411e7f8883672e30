// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package emodel

import (
	"math"

	"github.com/siplens/siplens/internal/models"
)

// Quality labels for MOS bands.
const (
	LabelExcellent    = "Excellent"
	LabelGood         = "Good"
	LabelFair         = "Fair"
	LabelPoor         = "Poor"
	LabelBad          = "Bad"
	LabelUnacceptable = "Unacceptable"
)

// lossRobustness is the E-Model packet-loss robustness factor (Bpl),
// fixed at 25 for the codecs SipLens scores.
const lossRobustness = 25.0

// Score is the derived perceptual quality for one telemetry snapshot.
type Score struct {
	// MOS is the Mean Opinion Score in [1.0, 5.0], rounded to one decimal.
	MOS float64
	// RFactor is the E-Model transmission rating in [0, 100].
	RFactor float64
	// Label is the quality label for the MOS band.
	Label string
}

// FromTelemetry scores a raw telemetry snapshot. The calculation is
// deterministic and side-effect free: directional metrics are averaged to
// one-way values, the codec profile supplies R0 and the impairment floor,
// and the resulting R-factor is mapped to MOS per G.107 Annex B.
func FromTelemetry(t models.TelemetrySnapshot) Score {
	jitter := (t.JitterIn + t.JitterOut) / 2
	packetLoss := (t.PacketLossIn + t.PacketLossOut) / 2
	latency := t.RTT / 2

	return Compute(ParseCodec(t.Codec), jitter, packetLoss, latency)
}

// Compute runs the E-Model for averaged one-way values.
//
// R = R0 - Id - Ie, with the simultaneous-impairment term Is and advantage
// factor A fixed at 0 for wired VoIP, plus an empirical jitter penalty above
// 30 ms.
func Compute(codec Codec, jitter, packetLoss, latency float64) Score {
	profile := codec.Profile()

	// Delay impairment (Id): linear up to the 177.3 ms knee, steeper beyond.
	id := 0.024 * latency
	if latency >= 177.3 {
		id += 0.11 * (latency - 177.3)
	}

	// Equipment impairment (Ie): codec floor plus packet-loss contribution.
	ie := profile.IeBase + (95-profile.IeBase)*packetLoss/(packetLoss+lossRobustness)

	r := profile.R0 - id - ie

	// Empirical jitter penalty above 30 ms.
	if jitter > 30 {
		r -= (jitter - 30) * 0.1
	}

	r = clamp(r, 0, 100)

	// Label the rounded MOS so the reported value and its label always agree.
	mos := round1(mosFromR(r))

	return Score{
		MOS:     mos,
		RFactor: r,
		Label:   LabelForMOS(mos),
	}
}

// mosFromR converts an R-factor to MOS using the G.107 mapping, clamped to
// the narrowband [1.0, 4.5] range before the overall [1.0, 5.0] clamp.
func mosFromR(r float64) float64 {
	mos := 1 + 0.035*r + 7e-6*r*(r-60)*(100-r)
	mos = clamp(mos, 1.0, 4.5)
	return clamp(mos, 1.0, 5.0)
}

// LabelForMOS maps a MOS value to its quality label.
func LabelForMOS(mos float64) string {
	switch {
	case mos >= 4.3:
		return LabelExcellent
	case mos >= 4.0:
		return LabelGood
	case mos >= 3.6:
		return LabelFair
	case mos >= 3.1:
		return LabelPoor
	case mos >= 2.6:
		return LabelBad
	default:
		return LabelUnacceptable
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
