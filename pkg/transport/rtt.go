package transport

import "math/rand"

// Initial RTT estimator parameters, in microseconds, matching the source's
// constants verbatim (calculate_rtt_and_time in udp_server.cpp).
const (
	initialSRTTUs   = 20_000
	initialRTOUs    = 30_000
	rtoClampUs      = 1_000_000
	rtoFallbackBaseUs = 30_000
)

// RTTEstimator is the exponentially-weighted RTT/RTO tracker of spec.md
// §4.5, packaged as its own small value type the way the teacher keeps
// crc.CRC16 as a standalone type next to the SDO state machine that uses it.
type RTTEstimator struct {
	SRTT   float64 // smoothed RTT, microseconds
	RTTVar float64 // smoothed RTT deviation, microseconds
	RTO    float64 // current retransmission timeout, microseconds
}

// NewRTTEstimator returns an estimator seeded at the source's initial
// values.
func NewRTTEstimator() RTTEstimator {
	return RTTEstimator{
		SRTT:   initialSRTTUs,
		RTTVar: 0,
		RTO:    initialRTOUs,
	}
}

// Sample feeds one RTT measurement (microseconds) into the estimator and
// updates SRTT, RTTVar and RTO. A sample of zero is skipped: it means the
// slot's time_sent was never set (sentTime.IsZero() upstream), matching
// spec.md §4.5 ("a sample with time_sent == 0 is skipped").
func (e *RTTEstimator) Sample(sampleUs float64) {
	if sampleUs == 0 {
		return
	}
	e.SRTT = e.SRTT + 0.125*(sampleUs-e.SRTT)
	e.RTTVar = 0.75*e.RTTVar + 0.25*absFloat(e.SRTT-sampleUs)
	e.RTO = e.SRTT + 4*e.RTTVar
	if e.RTO > rtoClampUs {
		// Preserved from the source: a pseudorandom fallback rather than a
		// fixed ceiling. See SPEC_FULL.md §9 / DESIGN.md open question #2.
		e.RTO = float64(rand.Intn(rtoFallbackBaseUs))
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
