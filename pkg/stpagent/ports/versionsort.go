package ports

import "sort"

// strverscmp states and results, after the GNU C library.
const (
	sN = 0 // normal
	sI = 3 // comparing integral part
	sF = 6 // comparing fractional part (leading zeros)
	sZ = 9 // idem, zeros only so far

	resCmp = 2
	resLen = 3
)

var nextState = [...]int{
	/*         x   d   0 */
	/* sN */ sN, sI, sZ,
	/* sI */ sN, sI, sI,
	/* sF */ sN, sF, sF,
	/* sZ */ sN, sF, sZ,
}

var resultType = [...]int{
	/*         x/x     x/d     x/0     d/x     d/d     d/0     0/x     0/d     0/0 */
	/* sN */ resCmp, resCmp, resCmp, resCmp, resLen, resCmp, resCmp, resCmp, resCmp,
	/* sI */ resCmp, -1, -1, +1, resLen, resLen, +1, resLen, resLen,
	/* sF */ resCmp, resCmp, resCmp, resCmp, resCmp, resCmp, resCmp, resCmp, resCmp,
	/* sZ */ resCmp, +1, +1, -1, resCmp, resCmp, -1, resCmp, resCmp,
}

// VersionCompare orders a and b the way strverscmp(3) does: digit runs are
// compared numerically, and a run with more leading zeros sorts first. The
// result is negative, zero or positive.
func VersionCompare(a, b string) int {
	if a == b {
		return 0
	}

	at := func(s string, i int) byte {
		if i < len(s) {
			return s[i]
		}
		return 0
	}

	i, j := 0, 0
	c1, c2 := at(a, i), at(b, j)
	i, j = i+1, j+1
	state := sN + class(c1)

	diff := int(c1) - int(c2)
	for diff == 0 {
		if c1 == 0 {
			return 0
		}
		state = nextState[state]
		c1, c2 = at(a, i), at(b, j)
		i, j = i+1, j+1
		state += class(c1)
		diff = int(c1) - int(c2)
	}

	switch res := resultType[state*3+class(c2)]; res {
	case resCmp:
		return diff
	case resLen:
		for {
			d1 := isDigit(at(a, i))
			i++
			if !d1 {
				break
			}
			d2 := isDigit(at(b, j))
			j++
			if !d2 {
				return 1
			}
		}
		if isDigit(at(b, j)) {
			return -1
		}
		return diff
	default:
		return res
	}
}

// SortVersion sorts names in place by VersionCompare.
func SortVersion(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return VersionCompare(names[i], names[j]) < 0
	})
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// class is 0 for a non-digit, 1 for 1-9 and 2 for '0'.
func class(c byte) int {
	switch {
	case c == '0':
		return 2
	case isDigit(c):
		return 1
	default:
		return 0
	}
}
