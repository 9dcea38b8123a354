package betting

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MarketKind enumerates every outcome family a game can be wagered on.
// The declaration order is part of the consensus ordering of markets and
// wincases and must not change.
type MarketKind uint8

const (
	MarketResultHome MarketKind = iota
	MarketResultDraw
	MarketResultAway
	MarketRoundHome
	MarketHandicap
	MarketCorrectScoreHome
	MarketCorrectScoreDraw
	MarketCorrectScoreAway
	MarketCorrectScore
	MarketGoalHome
	MarketGoalBoth
	MarketGoalAway
	MarketTotal
	MarketTotalGoalsHome
	MarketTotalGoalsAway

	marketKindCount
)

// MarketFamily groups kinds that describe the same aspect of a game
type MarketFamily uint8

const (
	FamilyResult MarketFamily = iota
	FamilyRound
	FamilyHandicap
	FamilyCorrectScore
	FamilyGoal
	FamilyTotal
	FamilyTotalGoals
)

// paramShape says which parameters a kind carries and how its sides are named
type paramShape uint8

const (
	shapeYesNo paramShape = iota
	shapeOverUnder
	shapeScore
)

type kindInfo struct {
	name   string
	family MarketFamily
	shape  paramShape
}

var kinds = [marketKindCount]kindInfo{
	MarketResultHome:       {"result_home", FamilyResult, shapeYesNo},
	MarketResultDraw:       {"result_draw", FamilyResult, shapeYesNo},
	MarketResultAway:       {"result_away", FamilyResult, shapeYesNo},
	MarketRoundHome:        {"round_home", FamilyRound, shapeYesNo},
	MarketHandicap:         {"handicap", FamilyHandicap, shapeOverUnder},
	MarketCorrectScoreHome: {"correct_score_home", FamilyCorrectScore, shapeYesNo},
	MarketCorrectScoreDraw: {"correct_score_draw", FamilyCorrectScore, shapeYesNo},
	MarketCorrectScoreAway: {"correct_score_away", FamilyCorrectScore, shapeYesNo},
	MarketCorrectScore:     {"correct_score", FamilyCorrectScore, shapeScore},
	MarketGoalHome:         {"goal_home", FamilyGoal, shapeYesNo},
	MarketGoalBoth:         {"goal_both", FamilyGoal, shapeYesNo},
	MarketGoalAway:         {"goal_away", FamilyGoal, shapeYesNo},
	MarketTotal:            {"total", FamilyTotal, shapeOverUnder},
	MarketTotalGoalsHome:   {"total_goals_home", FamilyTotalGoals, shapeOverUnder},
	MarketTotalGoalsAway:   {"total_goals_away", FamilyTotalGoals, shapeOverUnder},
}

var familyNames = map[MarketFamily]string{
	FamilyResult:       "result",
	FamilyRound:        "round",
	FamilyHandicap:     "handicap",
	FamilyCorrectScore: "correct_score",
	FamilyGoal:         "goal",
	FamilyTotal:        "total",
	FamilyTotalGoals:   "total_goals",
}

// ThresholdFactor scales over/under thresholds: 1500 means 1.5 goals.
// A threshold that is a whole multiple of the factor can end exactly on
// the line.
const ThresholdFactor = 1000

func (k MarketKind) Valid() bool { return k < marketKindCount }

func (k MarketKind) Family() MarketFamily {
	if !k.Valid() {
		return MarketFamily(255)
	}
	return kinds[k].family
}

func (k MarketKind) String() string {
	if !k.Valid() {
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
	return kinds[k].name
}

func (f MarketFamily) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

func kindByName(name string) (MarketKind, bool) {
	for k := MarketKind(0); k < marketKindCount; k++ {
		if kinds[k].name == name {
			return k, true
		}
	}
	return 0, false
}

// Market identifies one outcome family of a game. Only the parameters
// of its kind may be set, which keeps Market comparable and usable as a
// map key.
type Market struct {
	Kind      MarketKind
	Threshold int16
	Home      uint16
	Away      uint16
}

func ResultHome() Market       { return Market{Kind: MarketResultHome} }
func ResultDraw() Market       { return Market{Kind: MarketResultDraw} }
func ResultAway() Market       { return Market{Kind: MarketResultAway} }
func RoundHome() Market        { return Market{Kind: MarketRoundHome} }
func Handicap(t int16) Market  { return Market{Kind: MarketHandicap, Threshold: t} }
func CorrectScoreHome() Market { return Market{Kind: MarketCorrectScoreHome} }
func CorrectScoreDraw() Market { return Market{Kind: MarketCorrectScoreDraw} }
func CorrectScoreAway() Market { return Market{Kind: MarketCorrectScoreAway} }
func GoalHome() Market         { return Market{Kind: MarketGoalHome} }
func GoalBoth() Market         { return Market{Kind: MarketGoalBoth} }
func GoalAway() Market         { return Market{Kind: MarketGoalAway} }
func Total(t int16) Market     { return Market{Kind: MarketTotal, Threshold: t} }

func CorrectScore(home, away uint16) Market {
	return Market{Kind: MarketCorrectScore, Home: home, Away: away}
}

func TotalGoalsHome(t int16) Market { return Market{Kind: MarketTotalGoalsHome, Threshold: t} }
func TotalGoalsAway(t int16) Market { return Market{Kind: MarketTotalGoalsAway, Threshold: t} }

// Validate rejects unknown kinds and parameters the kind does not carry
func (m Market) Validate() error {
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidMarket, m.Kind)
	}
	switch kinds[m.Kind].shape {
	case shapeYesNo:
		if m.Threshold != 0 || m.Home != 0 || m.Away != 0 {
			return fmt.Errorf("%w: %s takes no parameters", ErrInvalidMarket, m.Kind)
		}
	case shapeOverUnder:
		if m.Home != 0 || m.Away != 0 {
			return fmt.Errorf("%w: %s takes only a threshold", ErrInvalidMarket, m.Kind)
		}
	case shapeScore:
		if m.Threshold != 0 {
			return fmt.Errorf("%w: %s takes only a score", ErrInvalidMarket, m.Kind)
		}
	}
	return nil
}

// HasThirdState reports whether the market can settle on the line, in
// which case neither of its wincases wins.
func (m Market) HasThirdState() bool {
	return m.Kind.Valid() && kinds[m.Kind].shape == shapeOverUnder && m.Threshold%ThresholdFactor == 0
}

// Wincases returns the two complementary outcomes of the market,
// the yes/over side first.
func (m Market) Wincases() (Wincase, Wincase) {
	return Wincase{market: m, side: SideYes}, Wincase{market: m, side: SideNo}
}

// Compare orders markets by kind, then by their parameters
func (m Market) Compare(other Market) int {
	return cmp.Or(
		cmp.Compare(m.Kind, other.Kind),
		cmp.Compare(m.Threshold, other.Threshold),
		cmp.Compare(m.Home, other.Home),
		cmp.Compare(m.Away, other.Away),
	)
}

func (m Market) String() string {
	if !m.Kind.Valid() {
		return m.Kind.String()
	}
	switch kinds[m.Kind].shape {
	case shapeOverUnder:
		return fmt.Sprintf("%s(%d)", m.Kind, m.Threshold)
	case shapeScore:
		return fmt.Sprintf("%s(%d:%d)", m.Kind, m.Home, m.Away)
	default:
		return m.Kind.String()
	}
}

func (m Market) MarshalText() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

func (m *Market) UnmarshalText(text []byte) error {
	parsed, err := ParseMarket(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMarket reads markets written as "total(1500)", "result_home"
// or "correct_score(1:0)".
func ParseMarket(s string) (Market, error) {
	name, args, err := splitCall(strings.TrimSpace(s))
	if err != nil {
		return Market{}, fmt.Errorf("%w: %v", ErrInvalidMarket, err)
	}
	kind, ok := kindByName(name)
	if !ok {
		return Market{}, fmt.Errorf("%w: unknown market %q", ErrInvalidMarket, name)
	}
	m := Market{Kind: kind}
	if err := m.parseArgs(args); err != nil {
		return Market{}, err
	}
	return m, nil
}

func (m *Market) parseArgs(args string) error {
	switch kinds[m.Kind].shape {
	case shapeYesNo:
		if args != "" {
			return fmt.Errorf("%w: %s takes no parameters", ErrInvalidMarket, m.Kind)
		}
	case shapeOverUnder:
		t, err := strconv.ParseInt(args, 10, 16)
		if err != nil {
			return fmt.Errorf("%w: %s threshold %q: %v", ErrInvalidMarket, m.Kind, args, err)
		}
		m.Threshold = int16(t)
	case shapeScore:
		hs, as, ok := strings.Cut(args, ":")
		if !ok {
			return fmt.Errorf("%w: %s score %q", ErrInvalidMarket, m.Kind, args)
		}
		h, err := strconv.ParseUint(hs, 10, 16)
		if err != nil {
			return fmt.Errorf("%w: %s home score %q: %v", ErrInvalidMarket, m.Kind, hs, err)
		}
		a, err := strconv.ParseUint(as, 10, 16)
		if err != nil {
			return fmt.Errorf("%w: %s away score %q: %v", ErrInvalidMarket, m.Kind, as, err)
		}
		m.Home, m.Away = uint16(h), uint16(a)
	}
	return nil
}

// splitCall splits "name(args)" into its parts; args may be absent
func splitCall(s string) (string, string, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, "", nil
	}
	if !strings.HasSuffix(s, ")") {
		return "", "", fmt.Errorf("unbalanced parentheses in %q", s)
	}
	return s[:open], strings.TrimSpace(s[open+1 : len(s)-1]), nil
}

// CreateMarket strips the side of a wincase
func CreateMarket(w Wincase) Market {
	return w.market
}

// CreateWincases expands a market into its two complementary wincases
func CreateWincases(m Market) (Wincase, Wincase) {
	return m.Wincases()
}

// SortMarkets sorts in place and drops duplicates
func SortMarkets(markets []Market) []Market {
	slices.SortFunc(markets, Market.Compare)
	return slices.Compact(markets)
}

// ExpandWincases returns every wincase of the given markets, sorted
func ExpandWincases(markets []Market) []Wincase {
	out := make([]Wincase, 0, len(markets)*2)
	for _, m := range markets {
		yes, no := m.Wincases()
		out = append(out, yes, no)
	}
	return SortWincases(out)
}
