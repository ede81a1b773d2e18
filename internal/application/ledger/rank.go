package ledger

// Rank labels, ascending.
const (
	RankGreenBeginner = "Green Beginner"
	RankEcoExplorer   = "Eco Explorer"
	RankEarthFriend   = "Earth Friend"
	RankGreenGuardian = "Green Guardian"
	RankEcoChampion   = "Eco Champion"
)

type rankThreshold struct {
	min   int
	label string
}

// ranks is ordered highest threshold first; the first match wins.
var ranks = []rankThreshold{
	{1000, RankEcoChampion},
	{500, RankGreenGuardian},
	{200, RankEarthFriend},
	{50, RankEcoExplorer},
	{0, RankGreenBeginner},
}

// RankFor derives the rank label for a point total.
func RankFor(points int) string {
	for _, r := range ranks {
		if points >= r.min {
			return r.label
		}
	}
	return RankGreenBeginner
}

// NextRank returns the next label and the points still needed to reach it.
// At the top rank it returns an empty label and zero.
func NextRank(points int) (string, int) {
	for i := len(ranks) - 1; i >= 0; i-- {
		if ranks[i].min > points {
			return ranks[i].label, ranks[i].min - points
		}
	}
	return "", 0
}

// Milestone is a one-time achievement unlocked at a point threshold.
type Milestone struct {
	Points      int
	Name        string
	Description string
	Icon        string
}

// Milestones in ascending order.
var Milestones = []Milestone{
	{Points: 50, Name: "First Steps", Description: "Earned your first 50 eco points!", Icon: "🌱"},
	{Points: 200, Name: "Eco Explorer", Description: "Reached 200 eco points!", Icon: "🌿"},
	{Points: 500, Name: "Green Guardian", Description: "Achieved 500 eco points!", Icon: "🌳"},
	{Points: 1000, Name: "Eco Champion", Description: "Incredible! 1000 eco points!", Icon: "🏆"},
}

// Pending returns every milestone reached by total that is not yet owned.
// All milestones are checked so a large jump unlocks several at once.
func Pending(total int, owned map[string]bool) []Milestone {
	var out []Milestone
	for _, m := range Milestones {
		if total >= m.Points && !owned[m.Name] {
			out = append(out, m)
		}
	}
	return out
}
