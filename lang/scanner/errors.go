package scanner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mna/nenuphar/lang/token"
)

// Error is a single lexical error, attributed to a position in the source
// that produced it.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e *Error) Error() string {
	l, c := e.Pos.LineCol()
	return fmt.Sprintf("%d:%d: %s", l, c, e.Msg)
}

// ErrorList collects every Error raised while scanning a single file.
type ErrorList []*Error

// Add appends an Error built from pos and msg.
func (p *ErrorList) Add(pos token.Pos, msg string) {
	*p = append(*p, &Error{Pos: pos, Msg: msg})
}

// Sort orders the list by position, stabilizing the order in which errors
// are reported regardless of the order the scanner happened to raise them.
func (p ErrorList) Sort() {
	sort.Stable(p)
}

func (p ErrorList) Len() int      { return len(p) }
func (p ErrorList) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p ErrorList) Less(i, j int) bool {
	li, ci := p[i].Pos.LineCol()
	lj, cj := p[j].Pos.LineCol()
	if li != lj {
		return li < lj
	}
	return ci < cj
}

// Err returns p as an error if it holds at least one Error, nil otherwise.
func (p ErrorList) Err() error {
	if len(p) == 0 {
		return nil
	}
	return p
}

func (p ErrorList) Error() string {
	switch len(p) {
	case 0:
		return "no errors"
	case 1:
		return p[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (and %d more errors)", p[0], len(p)-1)
	return sb.String()
}

// PrintError prints err to w. If err is an ErrorList, each entry is printed
// on its own line; otherwise err is printed as-is.
func PrintError(w interface{ Write([]byte) (int, error) }, err error) {
	if list, ok := err.(ErrorList); ok {
		for _, e := range list {
			fmt.Fprintf(w, "%s\n", e)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(w, "%s\n", err)
	}
}
