package dispatch

import (
	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/google/uuid"
)

// RecomputePriority derives the ranking score from severity and the vote tally.
func RecomputePriority(r model.Report) int {
	return r.Severity*2 + r.VoteCount
}

// ApplyVote records voterID's vote, replacing any earlier one, and refreshes
// the vote count and priority. The report is left untouched on error.
func ApplyVote(r *model.Report, voterID uuid.UUID, value int) error {
	if !model.ValidVoteValue(value) {
		return invalid("value", "vote must be +1 or -1")
	}
	if r.Votes == nil {
		r.Votes = make(map[uuid.UUID]int)
	}
	r.Votes[voterID] = value
	r.VoteCount = sum(r.Votes)
	r.PriorityScore = RecomputePriority(*r)
	return nil
}

// ApplyVerification works like ApplyVote on the separate verification tally.
// Priority is not affected.
func ApplyVerification(r *model.Report, verifierID uuid.UUID, value int) error {
	if !model.ValidVoteValue(value) {
		return invalid("value", "verification must be +1 or -1")
	}
	if r.Verifications == nil {
		r.Verifications = make(map[uuid.UUID]int)
	}
	r.Verifications[verifierID] = value
	r.VerificationScore = sum(r.Verifications)
	return nil
}

func sum(votes map[uuid.UUID]int) int {
	total := 0
	for _, v := range votes {
		total += v
	}
	return total
}
