package tune

// Expand grows a candidate set for the aggressive search. Each candidate is
// one trial value per blocking parameter, parameters in a fixed order.
//
// Two families of extra candidates are generated:
//   - tail swaps: for each of the first three candidates, its prefix with
//     the last component replaced by every other candidate's last component;
//   - subset doubling: for every candidate and every non-empty subset of
//     its parameters, the candidate with just that subset's values doubled.
//
// The result keeps the original candidates first, preserves discovery
// order, and drops exact duplicates.
func Expand(base [][]int) [][]int {
	if len(base) == 0 {
		return nil
	}
	width := len(base[0])

	out := make([][]int, 0, len(base))
	seen := make(map[string]bool)
	add := func(c []int) {
		key := fingerprint(c)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, c)
	}
	for _, c := range base {
		add(c)
	}

	head := 3
	if head > len(base) {
		head = len(base)
	}
	for _, c := range base[:head] {
		for _, other := range base {
			swapped := append(append([]int(nil), c[:width-1]...), other[width-1])
			add(swapped)
		}
	}

	for _, c := range base {
		for mask := 1; mask < (1 << width); mask++ {
			doubled := make([]int, width)
			for i, v := range c {
				if mask&(1<<i) != 0 {
					doubled[i] = v * 2
				} else {
					doubled[i] = v
				}
			}
			add(doubled)
		}
	}
	return out
}

func fingerprint(c []int) string {
	b := make([]byte, 0, len(c)*4)
	for _, v := range c {
		if v == 0 {
			b = append(b, '0')
		}
		for v > 0 {
			b = append(b, byte('0'+v%10))
			v /= 10
		}
		b = append(b, ',')
	}
	return string(b)
}
