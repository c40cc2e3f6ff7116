package bitrate

// Clamp returns v constrained to [min, max].
func Clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// SafeAudioKbps keeps an AAC/MP3 target bitrate within 64..320 kbps.
// Zero or negative selects 128.
func SafeAudioKbps(v int) int {
	if v <= 0 {
		return 128
	}
	return Clamp(v, 64, 320)
}
