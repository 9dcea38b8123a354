package betting

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Side distinguishes the two complementary wincases of a market
type Side uint8

const (
	SideYes Side = iota
	SideNo
)

// Over/under markets name their sides differently
const (
	SideOver  = SideYes
	SideUnder = SideNo
)

func (s Side) opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Wincase is one bettable outcome: a market plus the side taken on it.
// Wincases are comparable and usable as map keys.
type Wincase struct {
	market Market
	side   Side
}

// NewWincase validates the market and builds the wincase on the given side
func NewWincase(m Market, side Side) (Wincase, error) {
	if err := m.Validate(); err != nil {
		return Wincase{}, fmt.Errorf("%w: %v", ErrInvalidWincase, err)
	}
	if side != SideYes && side != SideNo {
		return Wincase{}, fmt.Errorf("%w: unknown side %d", ErrInvalidWincase, side)
	}
	return Wincase{market: m, side: side}, nil
}

func (w Wincase) Market() Market { return w.market }
func (w Wincase) Side() Side     { return w.side }

// Yes and No pick a side of a yes/no or score market
func (m Market) Yes() Wincase { return Wincase{market: m, side: SideYes} }
func (m Market) No() Wincase  { return Wincase{market: m, side: SideNo} }

// Over and Under pick a side of a threshold market
func (m Market) Over() Wincase  { return Wincase{market: m, side: SideOver} }
func (m Market) Under() Wincase { return Wincase{market: m, side: SideUnder} }

// Opposite flips the side and keeps the parameters
func (w Wincase) Opposite() Wincase {
	return Wincase{market: w.market, side: w.side.opposite()}
}

// MatchWincases reports whether a and b are the two sides of one market
func MatchWincases(a, b Wincase) bool {
	return a.Opposite() == b
}

// Validate checks the market and the side
func (w Wincase) Validate() error {
	_, err := NewWincase(w.market, w.side)
	return err
}

// Compare is the consensus order of wincases: kind, side, then parameters
func (w Wincase) Compare(other Wincase) int {
	return cmp.Or(
		cmp.Compare(w.market.Kind, other.market.Kind),
		cmp.Compare(w.side, other.side),
		cmp.Compare(w.market.Threshold, other.market.Threshold),
		cmp.Compare(w.market.Home, other.market.Home),
		cmp.Compare(w.market.Away, other.market.Away),
	)
}

// SortWincases sorts in place and drops duplicates
func SortWincases(wincases []Wincase) []Wincase {
	slices.SortFunc(wincases, Wincase.Compare)
	return slices.Compact(wincases)
}

func (w Wincase) sideName() string {
	if w.market.Kind.Valid() && kinds[w.market.Kind].shape == shapeOverUnder {
		if w.side == SideOver {
			return "over"
		}
		return "under"
	}
	if w.side == SideYes {
		return "yes"
	}
	return "no"
}

func (w Wincase) String() string {
	name := w.market.Kind.String() + "::" + w.sideName()
	if !w.market.Kind.Valid() {
		return name
	}
	switch kinds[w.market.Kind].shape {
	case shapeOverUnder:
		return fmt.Sprintf("%s(%d)", name, w.market.Threshold)
	case shapeScore:
		return fmt.Sprintf("%s(%d:%d)", name, w.market.Home, w.market.Away)
	default:
		return name
	}
}

func (w Wincase) MarshalText() ([]byte, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return []byte(w.String()), nil
}

func (w *Wincase) UnmarshalText(text []byte) error {
	parsed, err := ParseWincase(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ParseWincase reads wincases written as "total::over(1500)",
// "result_home::yes" or "correct_score::no(1:0)".
func ParseWincase(s string) (Wincase, error) {
	name, rest, ok := strings.Cut(strings.TrimSpace(s), "::")
	if !ok {
		return Wincase{}, fmt.Errorf("%w: %q has no side", ErrInvalidWincase, s)
	}
	sideText, args, err := splitCall(rest)
	if err != nil {
		return Wincase{}, fmt.Errorf("%w: %v", ErrInvalidWincase, err)
	}
	if args != "" {
		name += "(" + args + ")"
	}

	m, err := ParseMarket(name)
	if err != nil {
		return Wincase{}, fmt.Errorf("%w: %v", ErrInvalidWincase, err)
	}

	overUnder := kinds[m.Kind].shape == shapeOverUnder
	switch {
	case sideText == "yes" && !overUnder, sideText == "over" && overUnder:
		return m.Yes(), nil
	case sideText == "no" && !overUnder, sideText == "under" && overUnder:
		return m.No(), nil
	}
	return Wincase{}, fmt.Errorf("%w: side %q does not fit %s", ErrInvalidWincase, sideText, m.Kind)
}
