package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankFor_Boundaries(t *testing.T) {
	cases := map[int]string{
		0:    RankGreenBeginner,
		49:   RankGreenBeginner,
		50:   RankEcoExplorer,
		199:  RankEcoExplorer,
		200:  RankEarthFriend,
		499:  RankEarthFriend,
		500:  RankGreenGuardian,
		999:  RankGreenGuardian,
		1000: RankEcoChampion,
		5000: RankEcoChampion,
	}
	for points, want := range cases {
		assert.Equal(t, want, RankFor(points), "points=%d", points)
	}
}

func TestRankFor_Monotonic(t *testing.T) {
	order := map[string]int{
		RankGreenBeginner: 0,
		RankEcoExplorer:   1,
		RankEarthFriend:   2,
		RankGreenGuardian: 3,
		RankEcoChampion:   4,
	}
	prev := order[RankFor(0)]
	for p := 1; p <= 1500; p++ {
		cur := order[RankFor(p)]
		assert.GreaterOrEqual(t, cur, prev, "rank dropped at %d", p)
		prev = cur
	}
}

func TestNextRank(t *testing.T) {
	label, need := NextRank(0)
	assert.Equal(t, RankEcoExplorer, label)
	assert.Equal(t, 50, need)

	label, need = NextRank(450)
	assert.Equal(t, RankGreenGuardian, label)
	assert.Equal(t, 50, need)

	label, need = NextRank(1000)
	assert.Equal(t, "", label)
	assert.Equal(t, 0, need)
}

func TestPending_CrossesSeveralThresholds(t *testing.T) {
	got := Pending(600, map[string]bool{})
	names := make([]string, 0, len(got))
	for _, m := range got {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"First Steps", "Eco Explorer", "Green Guardian"}, names)
}

func TestPending_SkipsOwned(t *testing.T) {
	got := Pending(250, map[string]bool{"First Steps": true})
	assert.Len(t, got, 1)
	assert.Equal(t, "Eco Explorer", got[0].Name)

	assert.Empty(t, Pending(49, nil))
}
