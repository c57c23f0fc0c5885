package align

// lookaheadWindow bounds how far the greedy walk scans past a mismatch
// before treating it as a substitution. Small values keep noisy ASR runs
// from dragging distant coincidental matches together.
const lookaheadWindow = 6

type asrToken struct {
	clean string
	start float64
	end   float64
}

// Words reconciles an ordered ASR token stream against the chapter source
// text and produces one timed Word per source token, in source order.
//
// Matched tokens inherit the ASR timestamps. Source tokens the ASR missed are
// interpolated linearly between the nearest matched neighbors; leading and
// trailing unmatched runs are clamped to the nearest available timestamp.
// The result always has exactly one entry per source token and non-decreasing
// start times.
func Words(source string, tokens []Token) []Word {
	src := splitSource(source)
	if len(src) == 0 {
		return nil
	}

	asr := make([]asrToken, 0, len(tokens))
	for _, tok := range tokens {
		clean := Normalize(tok.Text)
		if clean == "" {
			continue
		}
		asr = append(asr, asrToken{clean: clean, start: tok.Start, end: tok.End})
	}

	matched := matchTokens(src, asr)

	words := make([]Word, len(src))
	for idx, tok := range src {
		words[idx].Text = tok.text
		if m := matched[idx]; m >= 0 {
			words[idx].Start = asr[m].start
			words[idx].End = asr[m].end
		}
	}
	fillGaps(words, matched, asr)
	enforceMonotonic(words)
	return words
}

// enforceMonotonic clamps start times so they never decrease, even when the
// ASR engine emits out-of-order stamps.
func enforceMonotonic(words []Word) {
	for i := 1; i < len(words); i++ {
		if words[i].Start < words[i-1].Start {
			words[i].Start = words[i-1].Start
		}
		if words[i].End < words[i].Start {
			words[i].End = words[i].Start
		}
	}
}

// matchTokens walks both streams greedily. On a mismatch it scans a bounded
// window ahead in each stream and takes the cheaper resynchronization: skip
// ASR noise, leave source tokens unmatched, or consume both as a
// substitution when neither side recovers.
func matchTokens(src []sourceToken, asr []asrToken) []int {
	matched := make([]int, len(src))
	for i := range matched {
		matched[i] = -1
	}

	i, j := 0, 0
	for i < len(src) && j < len(asr) {
		if src[i].clean == "" {
			// Pure punctuation spans never match ASR output.
			i++
			continue
		}
		if src[i].clean == asr[j].clean {
			matched[i] = j
			i++
			j++
			continue
		}

		asrSkip := scanASR(asr, j+1, src[i].clean)
		srcSkip := scanSource(src, i+1, asr[j].clean)
		switch {
		case asrSkip < 0 && srcSkip < 0:
			// Substitution: the ASR heard something else here.
			i++
			j++
		case srcSkip < 0 || (asrSkip >= 0 && asrSkip-j <= srcSkip-i):
			// ASR insertion run; drop the noise tokens.
			j = asrSkip
		default:
			// ASR deletion run; the skipped source tokens stay unmatched.
			i = srcSkip
		}
	}
	return matched
}

// scanASR looks ahead in the ASR stream for a token equal to want.
func scanASR(asr []asrToken, from int, want string) int {
	limit := from + lookaheadWindow
	for k := from; k < len(asr) && k < limit; k++ {
		if asr[k].clean == want {
			return k
		}
	}
	return -1
}

// scanSource looks ahead in the source stream for a token equal to want.
// Punctuation-only spans do not consume lookahead budget.
func scanSource(src []sourceToken, from int, want string) int {
	budget := lookaheadWindow
	for k := from; k < len(src) && budget > 0; k++ {
		if src[k].clean == "" {
			continue
		}
		if src[k].clean == want {
			return k
		}
		budget--
	}
	return -1
}

// fillGaps assigns timestamps to unmatched words. Interior runs are spread
// linearly across the bracketing matched interval; leading and trailing runs
// snap to the nearest matched timestamp.
func fillGaps(words []Word, matched []int, asr []asrToken) {
	first, last := -1, -1
	for idx, m := range matched {
		if m >= 0 {
			if first < 0 {
				first = idx
			}
			last = idx
		}
	}
	if first < 0 {
		// Nothing matched at all; every word stays at zero.
		return
	}

	firstStart := asr[matched[first]].start
	for idx := 0; idx < first; idx++ {
		words[idx].Start = firstStart
		words[idx].End = firstStart
	}
	lastEnd := asr[matched[last]].end
	for idx := last + 1; idx < len(words); idx++ {
		words[idx].Start = lastEnd
		words[idx].End = lastEnd
	}

	prev := first
	for idx := first + 1; idx <= last; idx++ {
		if matched[idx] < 0 {
			continue
		}
		if gap := idx - prev - 1; gap > 0 {
			lo := asr[matched[prev]].end
			hi := asr[matched[idx]].start
			if hi < lo {
				hi = lo
			}
			step := (hi - lo) / float64(gap)
			for k := 0; k < gap; k++ {
				w := &words[prev+1+k]
				w.Start = lo + float64(k)*step
				w.End = lo + float64(k+1)*step
			}
		}
		prev = idx
	}
}
