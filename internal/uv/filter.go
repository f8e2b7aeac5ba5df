package uv

// SafeTimes returns the samples with an index strictly below threshold, in their original order.
func SafeTimes(samples []Sample, threshold float64) []Sample {
	return filter(samples, func(s Sample) bool { return s.Index < threshold })
}

// CutoffAbove returns the samples with an index strictly above threshold, in their original order.
func CutoffAbove(samples []Sample, threshold float64) []Sample {
	return filter(samples, func(s Sample) bool { return s.Index > threshold })
}

func filter(samples []Sample, keep func(Sample) bool) []Sample {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// SafetyWindows splits samples into maximal contiguous runs below threshold.
func SafetyWindows(samples []Sample, threshold float64) []Window {
	var windows []Window
	var current []Sample
	for _, s := range samples {
		if s.Index < threshold {
			current = append(current, s)
			continue
		}
		if len(current) > 0 {
			windows = append(windows, Window{Samples: current})
			current = nil
		}
	}
	if len(current) > 0 {
		windows = append(windows, Window{Samples: current})
	}
	return windows
}

// Classify rates a sample: danger above strict, safe below safeMax, caution otherwise.
func Classify(s Sample, safeMax, strict float64) Exposure {
	switch {
	case s.Index > strict:
		return ExposureDanger
	case s.Index < safeMax:
		return ExposureSafe
	default:
		return ExposureCaution
	}
}

// Exposures rates every sample, index-aligned with samples.
func Exposures(samples []Sample, safeMax, strict float64) []Exposure {
	out := make([]Exposure, len(samples))
	for i, s := range samples {
		out[i] = Classify(s, safeMax, strict)
	}
	return out
}
