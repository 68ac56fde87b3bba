// Package rans implements a range Asymmetric Numeral Systems entropy
// coder over the 16-symbol nibble alphabet used by the operation-code
// stream, at 14-bit cumulative-frequency precision.
package rans

const (
	// ProbBits is the precision of the cumulative frequency table.
	ProbBits = 14
	// ProbScale is 1<<ProbBits, the total frequency mass every
	// normalized table must sum to.
	ProbScale = 1 << ProbBits
	// NumSymbols is the size of the nibble alphabet.
	NumSymbols = 16

	ransByteL = uint32(1) << 23
)

// SymbolStats is a normalized frequency table over the 16-symbol
// alphabet, ready to drive encoding and decoding.
type SymbolStats struct {
	Freqs    [NumSymbols]uint32
	CumFreqs [NumSymbols + 1]uint32
}

// CountFreqs tabulates raw occurrence counts of each nibble in symbols.
func CountFreqs(symbols []uint8) [NumSymbols]uint32 {
	var raw [NumSymbols]uint32
	for _, s := range symbols {
		raw[s&0xF]++
	}
	return raw
}

// NormalizeFreqs rescales raw counts so they sum to ProbScale, guarantees
// every symbol that occurred at least once keeps a frequency of at least
// one (so it remains decodable), and resolves the resulting surplus or
// deficit by repeatedly stealing or granting a single unit of frequency
// mass to and from the smallest donor/largest bucket until the total
// matches exactly.
func NormalizeFreqs(raw [NumSymbols]uint32) SymbolStats {
	var total uint64
	for _, f := range raw {
		total += uint64(f)
	}
	var scaled [NumSymbols]uint32
	if total == 0 {
		// degenerate: give everything to symbol 0 so the table is usable.
		scaled[0] = ProbScale
	} else {
		var sum uint32
		for i, f := range raw {
			if f == 0 {
				continue
			}
			s := uint32(uint64(f) * ProbScale / total)
			if s == 0 {
				s = 1
			}
			scaled[i] = s
			sum += s
		}
		for sum > ProbScale {
			donor := -1
			for i, s := range scaled {
				if s > 1 && (donor == -1 || s < scaled[donor]) {
					donor = i
				}
			}
			scaled[donor]--
			sum--
		}
		for sum < ProbScale {
			big := -1
			for i, s := range scaled {
				if donorEligible(raw, i) && (big == -1 || s > scaled[big]) {
					big = i
				}
			}
			scaled[big]++
			sum++
		}
	}

	var st SymbolStats
	st.Freqs = scaled
	var cum uint32
	for i := 0; i < NumSymbols; i++ {
		st.CumFreqs[i] = cum
		cum += scaled[i]
	}
	st.CumFreqs[NumSymbols] = cum
	return st
}

// StatsFromFreqs rebuilds a SymbolStats' CumFreqs table from an already
// normalized Freqs array, for a caller reloading a table that was
// serialized as Freqs alone.
func StatsFromFreqs(freqs [NumSymbols]uint32) SymbolStats {
	var st SymbolStats
	st.Freqs = freqs
	var cum uint32
	for i := 0; i < NumSymbols; i++ {
		st.CumFreqs[i] = cum
		cum += freqs[i]
	}
	st.CumFreqs[NumSymbols] = cum
	return st
}

func donorEligible(raw [NumSymbols]uint32, i int) bool {
	return raw[i] > 0
}

// Cum2Sym returns, for a cumulative frequency value in [0, ProbScale), the
// symbol whose [CumFreqs[s], CumFreqs[s+1]) range contains it.
func (s *SymbolStats) Cum2Sym(cumFreq uint32) uint8 {
	lo, hi := 0, NumSymbols
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if s.CumFreqs[mid] <= cumFreq {
			lo = mid
		} else {
			hi = mid
		}
	}
	return uint8(lo)
}
