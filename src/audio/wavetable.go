package audio

import "math"

// ----- Sine Table ----- //

const sineTableSize = 1024

// sineTable holds one period of a full scale sine, truncated to int16 like
// the hardware DAC expects.
var sineTable = makeSineTable(sineTableSize)

func makeSineTable(n int) []int16 {
	table := make([]int16, n)
	for i := 0; i < n; i++ {
		table[i] = int16(fullScale * math.Sin(2.0*math.Pi*float64(i)/float64(n)))
	}
	return table
}

// index of the table entry covering phase, phase in [0, 2π)
func sineTableIndex(phase float64) int {
	return int(phase*sineTableSize/(2.0*math.Pi)) % sineTableSize
}

func sineAtPhase(phase float64) float64 {
	return float64(sineTable[sineTableIndex(phase)])
}
