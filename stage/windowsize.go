package stage

import "math"

// resolveWindowSize extracts windowSize from params, or, if absent,
// derives it from windowDuration (seconds) and sampleRate, an optional
// synonym: windowSize = round(windowDuration * sampleRate). sampleRate
// must be supplied alongside windowDuration in the same params map,
// following the same builder-time-params convention the filter stage
// uses for its own sampleRate parameter.
func resolveWindowSize(params map[string]any) (int, error) {
	if _, present := params["windowSize"]; present {
		ws, ok := getInt(params, "windowSize", 0)
		if !ok || ws <= 0 {
			return 0, invalidParam("windowSize must be a positive integer")
		}

		return ws, nil
	}

	if wd, ok := getFloat(params, "windowDuration", 0); ok && wd > 0 {
		sr, ok := getFloat(params, "sampleRate", 0)
		if !ok || sr <= 0 {
			return 0, invalidParam("windowDuration requires a positive sampleRate")
		}

		ws := int(math.Round(wd * sr))
		if ws < 1 {
			ws = 1
		}

		return ws, nil
	}

	return 0, invalidParam("either windowSize or windowDuration must be specified")
}
