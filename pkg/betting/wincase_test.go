package betting

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allTestMarkets() []Market {
	return []Market{
		ResultHome(), ResultDraw(), ResultAway(), RoundHome(),
		Handicap(-500), Handicap(0), Handicap(1000),
		CorrectScoreHome(), CorrectScoreDraw(), CorrectScoreAway(),
		CorrectScore(0, 0), CorrectScore(1, 0), CorrectScore(2, 3),
		GoalHome(), GoalBoth(), GoalAway(),
		Total(1000), Total(1500), Total(2500),
		TotalGoalsHome(500), TotalGoalsAway(1500),
	}
}

func TestWincase_OppositeIsInvolution(t *testing.T) {
	for _, m := range allTestMarkets() {
		yes, no := m.Wincases()
		assert.Equal(t, yes, yes.Opposite().Opposite())
		assert.Equal(t, no, no.Opposite().Opposite())
		assert.Equal(t, no, yes.Opposite())
		assert.NotEqual(t, yes, yes.Opposite())
	}
}

func TestWincase_MarketRoundTrip(t *testing.T) {
	for _, w := range ExpandWincases(allTestMarkets()) {
		a, b := CreateWincases(CreateMarket(w))
		assert.True(t, w == a || w == b, "wincase %s", w)
		assert.True(t, MatchWincases(a, b))
		assert.True(t, MatchWincases(b, a))
	}
}

func TestMatchWincases(t *testing.T) {
	assert.True(t, MatchWincases(Total(1500).Over(), Total(1500).Under()))
	assert.False(t, MatchWincases(Total(1500).Over(), Total(2500).Under()))
	assert.False(t, MatchWincases(Total(1500).Over(), Total(1500).Over()))
	assert.False(t, MatchWincases(ResultHome().Yes(), ResultAway().No()))
	assert.False(t, MatchWincases(CorrectScore(1, 0).Yes(), CorrectScore(0, 1).No()))
}

func TestWincase_OrderIsStrictAndTotal(t *testing.T) {
	all := ExpandWincases(allTestMarkets())
	require.Len(t, all, 2*len(allTestMarkets()))

	for i, a := range all {
		for j, b := range all {
			c := a.Compare(b)
			switch {
			case i == j:
				assert.Zero(t, c)
			case i < j:
				assert.Negative(t, c, "%s vs %s", a, b)
				assert.Positive(t, b.Compare(a))
			}
		}
	}
}

func TestWincase_OrderPutsSideBeforeParameters(t *testing.T) {
	got := SortWincases([]Wincase{
		Total(2500).Under(),
		Total(1500).Under(),
		Total(2500).Over(),
		Total(1500).Over(),
		ResultHome().No(),
		ResultHome().Yes(),
	})
	want := []Wincase{
		ResultHome().Yes(),
		ResultHome().No(),
		Total(1500).Over(),
		Total(2500).Over(),
		Total(1500).Under(),
		Total(2500).Under(),
	}
	assert.Equal(t, want, got)
}

func TestSortWincases_DropsDuplicates(t *testing.T) {
	got := SortWincases([]Wincase{GoalBoth().Yes(), GoalBoth().Yes(), GoalHome().No()})
	assert.Equal(t, []Wincase{GoalHome().No(), GoalBoth().Yes()}, got)
}

func TestWincase_TextRoundTrip(t *testing.T) {
	for _, w := range ExpandWincases(allTestMarkets()) {
		parsed, err := ParseWincase(w.String())
		require.NoError(t, err, w.String())
		assert.Equal(t, w, parsed)
	}
}

func TestWincase_String(t *testing.T) {
	assert.Equal(t, "total::over(1500)", Total(1500).Over().String())
	assert.Equal(t, "result_home::yes", ResultHome().Yes().String())
	assert.Equal(t, "correct_score::no(1:0)", CorrectScore(1, 0).No().String())
	assert.Equal(t, "handicap::under(-500)", Handicap(-500).Under().String())
}

func TestParseWincase_Rejects(t *testing.T) {
	for _, s := range []string{
		"total",
		"total::yes(1500)",
		"result_home::over",
		"result_home::yes(1)",
		"unknown::yes",
		"correct_score::yes(1-0)",
		"total::over(1500",
	} {
		_, err := ParseWincase(s)
		assert.ErrorIs(t, err, ErrInvalidWincase, s)
	}
}

func TestWincase_JSON(t *testing.T) {
	raw, err := json.Marshal([]Wincase{Total(1500).Over(), ResultDraw().No()})
	require.NoError(t, err)
	assert.JSONEq(t, `["total::over(1500)","result_draw::no"]`, string(raw))

	var decoded []Wincase
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []Wincase{Total(1500).Over(), ResultDraw().No()}, decoded)
}

func TestNewWincase_ValidatesMarket(t *testing.T) {
	_, err := NewWincase(Market{Kind: MarketResultHome, Threshold: 10}, SideYes)
	assert.ErrorIs(t, err, ErrInvalidWincase)

	_, err = NewWincase(Market{Kind: marketKindCount}, SideYes)
	assert.ErrorIs(t, err, ErrInvalidWincase)

	_, err = NewWincase(Total(1500), Side(7))
	assert.ErrorIs(t, err, ErrInvalidWincase)

	w, err := NewWincase(Total(1500), SideUnder)
	require.NoError(t, err)
	assert.Equal(t, Total(1500).Under(), w)
}

func TestMarket_HasThirdState(t *testing.T) {
	assert.True(t, Total(1000).HasThirdState())
	assert.True(t, Handicap(0).HasThirdState())
	assert.True(t, Handicap(-2000).HasThirdState())
	assert.False(t, Total(1500).HasThirdState())
	assert.False(t, ResultHome().HasThirdState())
	assert.False(t, CorrectScore(0, 0).HasThirdState())
}

func TestParseMarket(t *testing.T) {
	for _, m := range allTestMarkets() {
		parsed, err := ParseMarket(m.String())
		require.NoError(t, err, m.String())
		assert.Equal(t, m, parsed)
	}

	_, err := ParseMarket("total(abc)")
	assert.ErrorIs(t, err, ErrInvalidMarket)
	_, err = ParseMarket("goal_both(1)")
	assert.ErrorIs(t, err, ErrInvalidMarket)
}

func TestSortMarkets(t *testing.T) {
	got := SortMarkets([]Market{Total(2500), ResultAway(), Total(1500), ResultAway(), CorrectScore(1, 0)})
	assert.Equal(t, []Market{ResultAway(), CorrectScore(1, 0), Total(1500), Total(2500)}, got)
	assert.True(t, slices.IsSortedFunc(got, Market.Compare))
}

func TestValidateGameMarkets(t *testing.T) {
	require.NoError(t, ValidateGameMarkets(GameTypeSoccer, []Market{ResultHome(), Total(1500), CorrectScore(1, 1)}))

	err := ValidateGameMarkets(GameTypeHockey, []Market{TotalGoalsHome(1500)})
	assert.ErrorIs(t, err, ErrInvalidMarket)

	err = ValidateGameMarkets(GameType("chess"), []Market{ResultHome()})
	assert.ErrorIs(t, err, ErrInvalidGameType)

	err = ValidateGameMarkets(GameTypeSoccer, []Market{{Kind: MarketGoalBoth, Home: 1}})
	assert.ErrorIs(t, err, ErrInvalidMarket)
}
