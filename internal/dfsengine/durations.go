package dfsengine

import "time"

// §4.8's timer duration constants. WeatherMin/Max coincide with the
// regulatory maximum (10x the regular minimum) by design — the source
// keeps a single MAX_PRECAC_DURATION regardless of which regime set the
// minimum.
const (
	MinPrecacDuration        = 60 * time.Second
	MaxPrecacDuration        = 10 * MinPrecacDuration
	MinWeatherPrecacDuration = 600 * time.Second
	hostSlack                = 2 * time.Second
	primaryRaceSlack         = 5 * time.Second

	// WeatherBandStart and WeatherBandEnd bound the weather radar range
	// (§4.8, GLOSSARY): a candidate whose subchannel span overlaps this
	// range requires the longer weather CAC minimum.
	WeatherBandStart uint16 = 5600
	WeatherBandEnd    uint16 = 5650
)

// overlapsWeatherBand reports whether the subchannel span of an aggregate
// centered at freq with the given bandwidth overlaps [5600, 5650] MHz.
func overlapsWeatherBand(freq uint16, bw Bandwidth) bool {
	half := uint16(bw) / 2
	lo := freq - half
	hi := freq + half

	return lo <= WeatherBandEnd && hi >= WeatherBandStart
}

// cacDuration computes the minimum CAC time for a candidate per §4.8:
// operator override wins outright; otherwise the weather-band minimum
// applies if the candidate overlaps [5600,5650] MHz, else the regular
// minimum. Returns (min, max) before host slack is added.
func cacDuration(freq uint16, bw Bandwidth, overrideSeconds int32) (time.Duration, time.Duration) {
	if overrideSeconds >= 0 {
		d := time.Duration(overrideSeconds) * time.Second

		return d, MaxPrecacDuration
	}

	if overlapsWeatherBand(freq, bw) {
		return MinWeatherPrecacDuration, MaxPrecacDuration
	}

	return MinPrecacDuration, MaxPrecacDuration
}

// armDuration is the duration actually passed to the host timer: the
// computed minimum plus 2000 ms of slack so the firmware event arrives
// before the host fires (§4.8).
func armDuration(freq uint16, bw Bandwidth, overrideSeconds int32) time.Duration {
	minD, _ := cacDuration(freq, bw, overrideSeconds)

	return minD + hostSlack
}

// racingPrimaryArmDuration implements §4.8's exception: when the primary
// segment is itself undergoing its own primary CAC, arm to
// max(primary, secondary) + 5s instead of the usual slack.
func racingPrimaryArmDuration(primaryTimeout, secondaryTimeout time.Duration) time.Duration {
	if primaryTimeout > secondaryTimeout {
		return primaryTimeout + primaryRaceSlack
	}

	return secondaryTimeout + primaryRaceSlack
}
