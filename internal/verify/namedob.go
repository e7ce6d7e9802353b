package verify

import (
	"time"

	"gorm.io/gorm"

	"github.com/example/covera/internal/models"
	"github.com/example/covera/internal/utils"
)

// NameThreshold is the minimum averaged first/last name similarity a
// candidate must reach. The fuzzy path only tolerates minor transcription
// slips ("Jon" for "John"); anything looser would turn edit distance into an
// account-access hole.
const NameThreshold = 0.90

// NameDOBResolver matches a caller by date of birth plus fuzzy name. The DOB
// is a hard equality filter on the date component; names are then scored and
// thresholded. This path is weaker trust by construction and its matches
// must clear a code challenge before identity confirmation.
type NameDOBResolver struct {
	db     *gorm.DB
	scorer Scorer
}

// NewNameDOBResolver returns a resolver using scorer for name comparison.
func NewNameDOBResolver(db *gorm.DB, scorer Scorer) *NameDOBResolver {
	return &NameDOBResolver{db: db, scorer: scorer}
}

// Resolve filters customers by exact DOB, then picks the highest-scoring
// name match at or above NameThreshold. Misses are DOB_NOT_FOUND or
// NAME_NOT_FOUND depending on which stage came up empty.
func (r *NameDOBResolver) Resolve(firstName, lastName string, dob time.Time) (Result, error) {
	var candidates []models.Customer
	if err := r.db.Where("date_of_birth IS NOT NULL").Find(&candidates).Error; err != nil {
		return Result{}, err
	}

	// Stored DOBs may carry a time-of-day component; compare dates only.
	wantY, wantM, wantD := dob.Date()
	dobMatches := candidates[:0]
	for _, c := range candidates {
		if c.DateOfBirth == nil {
			continue
		}
		y, m, d := c.DateOfBirth.Date()
		if y == wantY && m == wantM && d == wantD {
			dobMatches = append(dobMatches, c)
		}
	}

	if len(dobMatches) == 0 {
		return Result{Code: CodeDOBNotFound}, nil
	}

	best, confidence := bestNameMatch(dobMatches, firstName, lastName, r.scorer, NameThreshold)
	if best == nil {
		return Result{Code: CodeNameNotFound}, nil
	}

	return Result{Customer: best, Confidence: confidence}, nil
}

// bestNameMatch scores every candidate's first/last name against the
// supplied pair and returns the highest scorer at or above threshold, or nil
// when none clears it.
func bestNameMatch(candidates []models.Customer, firstName, lastName string, scorer Scorer, threshold float64) (*models.Customer, float64) {
	wantFirst := utils.NormalizeName(firstName)
	wantLast := utils.NormalizeName(lastName)

	var best *models.Customer
	bestScore := 0.0

	for i := range candidates {
		c := &candidates[i]
		firstScore := scorer.Score(utils.NormalizeName(c.FirstName), wantFirst)
		lastScore := scorer.Score(utils.NormalizeName(c.LastName), wantLast)
		avg := (firstScore + lastScore) / 2

		if avg >= threshold && avg > bestScore {
			best = c
			bestScore = avg
		}
	}

	return best, bestScore
}
