package speech

// Request describes one playback request. It is constructed per call, with
// settings copied in at construction time rather than read live from
// shared state, and is never persisted.
type Request struct {
	Text      string
	Language  string  // explicit language code; empty means detect
	VoiceName string  // explicit voice name; empty means resolve by language
	Rate      float64 // speaking rate multiplier, clamped to [0.5, 2.0]
	Pitch     float64 // pitch adjustment, clamped to [0.0, 2.0]
	Volume    float64 // volume level, clamped to [0.0, 1.0]
}

// Rate, pitch and volume bounds accepted by the backends.
const (
	MinRate   = 0.5
	MaxRate   = 2.0
	MinPitch  = 0.0
	MaxPitch  = 2.0
	MinVolume = 0.0
	MaxVolume = 1.0
)

// Normalized returns a copy with rate, pitch and volume clamped to their
// valid ranges. Zero values are treated as "unset" and replaced with the
// neutral defaults.
func (r Request) Normalized() Request {
	if r.Rate == 0 {
		r.Rate = 1.0
	}
	if r.Pitch == 0 {
		r.Pitch = 1.0
	}
	if r.Volume == 0 {
		r.Volume = 1.0
	}
	r.Rate = clamp(r.Rate, MinRate, MaxRate)
	r.Pitch = clamp(r.Pitch, MinPitch, MaxPitch)
	r.Volume = clamp(r.Volume, MinVolume, MaxVolume)
	return r
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
