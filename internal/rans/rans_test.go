package rans

import (
	"math/rand"
	"testing"
)

func TestNormalizeFreqs_SumsToScale(t *testing.T) {
	raw := [NumSymbols]uint32{5, 0, 3, 1, 0, 0, 2, 9, 0, 0, 0, 0, 1, 0, 0, 0}
	st := NormalizeFreqs(raw)
	var sum uint32
	for _, f := range st.Freqs {
		sum += f
	}
	if sum != ProbScale {
		t.Fatalf("normalized frequencies sum to %d, want %d", sum, ProbScale)
	}
	for i, f := range raw {
		if f > 0 && st.Freqs[i] == 0 {
			t.Fatalf("symbol %d occurred but was normalized to zero frequency", i)
		}
	}
}

func TestNormalizeFreqs_Cum2SymConsistent(t *testing.T) {
	raw := [NumSymbols]uint32{1, 2, 3, 4, 5, 6, 7, 8, 1, 1, 1, 1, 1, 1, 1, 1}
	st := NormalizeFreqs(raw)
	for s := 0; s < NumSymbols; s++ {
		if st.Freqs[s] == 0 {
			continue
		}
		for c := st.CumFreqs[s]; c < st.CumFreqs[s+1]; c++ {
			if got := st.Cum2Sym(c); int(got) != s {
				t.Fatalf("Cum2Sym(%d) = %d, want %d", c, got, s)
			}
		}
	}
}

func TestEncodeDecodeSymbols_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	symbols := make([]uint8, 5000)
	for i := range symbols {
		// skewed distribution so normalization actually has work to do.
		switch {
		case rng.Intn(100) < 60:
			symbols[i] = 0
		case rng.Intn(100) < 30:
			symbols[i] = uint8(1 + rng.Intn(2))
		default:
			symbols[i] = uint8(rng.Intn(NumSymbols))
		}
	}
	raw := CountFreqs(symbols)
	st := NormalizeFreqs(raw)

	encoded := EncodeSymbols(symbols, &st)
	decoded := DecodeSymbols(encoded, &st, len(symbols))

	if len(decoded) != len(symbols) {
		t.Fatalf("decoded %d symbols, want %d", len(decoded), len(symbols))
	}
	for i := range symbols {
		if decoded[i] != symbols[i] {
			t.Fatalf("symbol %d: got %d want %d", i, decoded[i], symbols[i])
		}
	}
}

func TestEncodeDecodeSymbols_SingleSymbolAlphabet(t *testing.T) {
	symbols := make([]uint8, 100)
	for i := range symbols {
		symbols[i] = 3
	}
	st := NormalizeFreqs(CountFreqs(symbols))
	encoded := EncodeSymbols(symbols, &st)
	decoded := DecodeSymbols(encoded, &st, len(symbols))
	for i := range symbols {
		if decoded[i] != 3 {
			t.Fatalf("symbol %d: got %d want 3", i, decoded[i])
		}
	}
}
