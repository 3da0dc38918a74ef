// Copyright Caddis Lab, 2026. All rights reserved.

package dedup

// Similarity returns a character-sequence ratio in [0, 1] where 1.0 means
// identical strings. It is the classic 2*M/T measure: M is the total length
// of the matching blocks found by recursively taking the longest common
// substring, T is the combined length of both inputs. Two empty strings
// score 0 so that missing titles can never match.
func Similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	m := matchingRunes(ra, rb)
	return 2 * float64(m) / float64(len(ra)+len(rb))
}

// matchingRunes counts matched runes by finding the longest common substring
// and recursing into the unmatched regions on either side.
func matchingRunes(a, b []rune) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingRunes(a[:ai], b[:bi])
	total += matchingRunes(a[ai+size:], b[bi+size:])
	return total
}

// longestCommonSubstring returns the start offsets and length of the longest
// run of runes common to a and b. Ties resolve to the earliest occurrence in
// a, then in b, keeping results deterministic.
func longestCommonSubstring(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	// lengths[j] is the length of the common suffix ending at a[i], b[j]
	// for the current row i.
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for i := range a {
		for j := range b {
			if a[i] != b[j] {
				cur[j+1] = 0
				continue
			}
			cur[j+1] = prev[j] + 1
			if cur[j+1] > size {
				size = cur[j+1]
				ai = i - size + 1
				bi = j - size + 1
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}
