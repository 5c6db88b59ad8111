package batching

import "strconv"

// ExtensionBufferSeconds is added to every run's longest extension time.
const ExtensionBufferSeconds = 60

// CycleTime computes the shared extension duration for a run whose longest
// request needs maxExtension seconds, split into minutes and seconds.
// Components from 0 through 9 are zero-padded; larger values are not, so
// 61 minutes renders as "61".
func CycleTime(maxExtension float64) (mm, ss string) {
	total := int(maxExtension + ExtensionBufferSeconds)
	return padClock(total / 60), padClock(total % 60)
}

func padClock(v int) string {
	if v >= 0 && v <= 9 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}
