package floor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tbourn/hoststand/internal/domain"
)

// Quality labels how well an assignment fits a party.
type Quality string

const (
	QualityPerfect    Quality = "perfect"
	QualityGood       Quality = "good"
	QualityAcceptable Quality = "acceptable"
	QualityWaste      Quality = "waste"
)

// Scores before the waste penalty. Pairs start lower than singles because a
// split party costs the floor a second table.
const (
	singleBaseScore = 100
	pairBaseScore   = 95
	wastePenalty    = 10
)

// Combination is one candidate assignment: a single table or a pair.
type Combination struct {
	TableNumbers  []int    `json:"table_numbers"`
	TableIDs      []string `json:"-"`
	Locations     []string `json:"locations"`
	TotalCapacity int      `json:"total_capacity"`
	Waste         int      `json:"waste"`
	Score         int      `json:"score"`
	Quality       Quality  `json:"match_quality"`
	Reason        string   `json:"reason"`
}

// IsPair reports whether the combination splits the party over two tables.
func (c Combination) IsPair() bool { return len(c.TableNumbers) == 2 }

func score(base, waste int) int {
	if waste == 0 {
		return base
	}
	if s := base - wastePenalty*waste; s > 0 {
		return s
	}
	return 0
}

func singleQuality(waste int) Quality {
	switch {
	case waste == 0:
		return QualityPerfect
	case waste <= 1:
		return QualityGood
	case waste <= 2:
		return QualityAcceptable
	default:
		return QualityWaste
	}
}

// Pairs never drop below acceptable; they only move up on low waste.
func pairQuality(waste int) Quality {
	switch {
	case waste == 0:
		return QualityPerfect
	case waste <= 1:
		return QualityGood
	default:
		return QualityAcceptable
	}
}

// Recommend searches the free tables for every single table and every
// unordered pair that seats partySize, and returns them best first.
//
// Ordering is by descending score. Ties keep generation order (singles in
// input order, then pairs (i, j) with i < j), so identical input always
// yields identical output. An empty result means no table or pair fits.
func Recommend(free []domain.Table, partySize int) []Combination {
	if partySize <= 0 {
		return nil
	}
	var out []Combination

	for _, t := range free {
		if t.Capacity < partySize {
			continue
		}
		waste := t.Capacity - partySize
		reason := fmt.Sprintf("Table seats %d, wastes %d seat(s)", t.Capacity, waste)
		if waste == 0 {
			reason = fmt.Sprintf("Perfect fit for %d", partySize)
		}
		out = append(out, Combination{
			TableNumbers:  []int{t.Number},
			TableIDs:      []string{t.ID},
			Locations:     []string{t.Location},
			TotalCapacity: t.Capacity,
			Waste:         waste,
			Score:         score(singleBaseScore, waste),
			Quality:       singleQuality(waste),
			Reason:        reason,
		})
	}

	for i := 0; i < len(free); i++ {
		for j := i + 1; j < len(free); j++ {
			a, b := free[i], free[j]
			total := a.Capacity + b.Capacity
			if total < partySize {
				continue
			}
			waste := total - partySize
			out = append(out, Combination{
				TableNumbers:  []int{a.Number, b.Number},
				TableIDs:      []string{a.ID, b.ID},
				Locations:     []string{a.Location, b.Location},
				TotalCapacity: total,
				Waste:         waste,
				Score:         score(pairBaseScore, waste),
				Quality:       pairQuality(waste),
				Reason:        fmt.Sprintf("Combination seats %d, wastes %d seat(s)", total, waste),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// FilterByLocation keeps tables whose location contains pref, compared with
// case folding. When pref is blank or nothing matches, all tables are kept.
func FilterByLocation(tables []domain.Table, pref string) []domain.Table {
	pref = strings.TrimSpace(pref)
	if pref == "" {
		return tables
	}
	var out []domain.Table
	for _, t := range tables {
		if ContainsFold(t.Location, pref) {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return tables
	}
	return out
}
