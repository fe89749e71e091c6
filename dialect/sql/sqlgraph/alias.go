package sqlgraph

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// suffixLen is the length of the token appended to shortened aliases.
const suffixLen = 6

// Aliases maps the long aliases of a statement to the identifiers used in
// its SQL text. Aliases longer than the identifier limit are replaced by
// their final segment, truncated, plus a token derived from the long alias.
// Reverse lookups ignore case, since some databases report upper-cased
// column labels.
type Aliases struct {
	max   int
	seps  string
	short map[string]string
	long  map[string]string
	fold  cases.Caser
}

// NewAliases returns an empty alias table for identifiers of at most max
// bytes. Zero means unlimited. sep is the path separator.
func NewAliases(max int, sep string) *Aliases {
	return &Aliases{
		max:   max,
		seps:  sep + ".#",
		short: make(map[string]string),
		long:  make(map[string]string),
		fold:  cases.Fold(),
	}
}

// Alias returns the identifier for a long alias, assigning one on first use.
func (a *Aliases) Alias(long string) string {
	if s, ok := a.short[long]; ok {
		return s
	}
	s := long
	if a.max > 0 && len(long) > a.max || a.taken(long) {
		s = a.shorten(long)
	}
	a.short[long] = s
	a.long[a.key(s)] = long
	return s
}

// Long returns the long alias of an identifier produced by Alias.
func (a *Aliases) Long(short string) (string, bool) {
	long, ok := a.long[a.key(short)]
	return long, ok
}

// Shortened returns the long aliases that were replaced, mapped to their
// identifiers.
func (a *Aliases) Shortened() map[string]string {
	m := make(map[string]string)
	for long, s := range a.short {
		if long != s {
			m[long] = s
		}
	}
	return m
}

// Len returns the number of aliases assigned.
func (a *Aliases) Len() int { return len(a.short) }

func (a *Aliases) key(s string) string { return a.fold.String(s) }

func (a *Aliases) taken(s string) bool {
	_, ok := a.long[a.key(s)]
	return ok
}

func (a *Aliases) shorten(long string) string {
	segment := long
	if i := strings.LastIndexAny(long, a.seps); i >= 0 && i < len(long)-1 {
		segment = long[i+1:]
	}
	if n := a.max - suffixLen - 1; a.max > 0 && len(segment) > n {
		segment = segment[:n]
	}
	for attempt := 0; ; attempt++ {
		s := segment + "_" + suffix(long, attempt)
		if !a.taken(s) {
			return s
		}
	}
}

// suffix derives a name-based token from the long alias and the attempt.
func suffix(long string, attempt int) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(long+"#"+strconv.Itoa(attempt)))
	return strings.ReplaceAll(id.String(), "-", "")[:suffixLen]
}
