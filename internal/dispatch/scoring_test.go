package dispatch

import (
	"errors"
	"testing"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/google/uuid"
)

func TestRecomputePriority(t *testing.T) {
	testCases := []struct {
		severity, votes, want int
	}{
		{1, 0, 2},
		{3, 0, 6},
		{5, 4, 14},
		{2, -5, -1},
	}
	for _, tc := range testCases {
		r := model.Report{Severity: tc.severity, VoteCount: tc.votes}
		if got := RecomputePriority(r); got != tc.want {
			t.Errorf("RecomputePriority(severity=%d, votes=%d) = %d; want %d", tc.severity, tc.votes, got, tc.want)
		}
	}
}

func TestApplyVoteOverwritesByVoter(t *testing.T) {
	r := model.Report{Severity: 3}
	r.PriorityScore = RecomputePriority(r)
	a, b := uuid.New(), uuid.New()

	if err := ApplyVote(&r, a, model.Upvote); err != nil {
		t.Fatal(err)
	}
	if err := ApplyVote(&r, b, model.Downvote); err != nil {
		t.Fatal(err)
	}
	if r.PriorityScore != 6 || r.VoteCount != 0 {
		t.Fatalf("after +1/-1: priority=%d votes=%d; want 6 and 0", r.PriorityScore, r.VoteCount)
	}

	if err := ApplyVote(&r, b, model.Upvote); err != nil {
		t.Fatal(err)
	}
	if r.PriorityScore != 8 || r.VoteCount != 2 {
		t.Errorf("after re-vote: priority=%d votes=%d; want 8 and 2", r.PriorityScore, r.VoteCount)
	}
	if len(r.Votes) != 2 {
		t.Errorf("recorded voters = %d; want 2", len(r.Votes))
	}
}

func TestApplyVoteRejectsInvalidValue(t *testing.T) {
	r := model.Report{Severity: 2, PriorityScore: 4}
	for _, v := range []int{0, 2, -2} {
		err := ApplyVote(&r, uuid.New(), v)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("ApplyVote(%d) error = %v; want ValidationError", v, err)
		}
	}
	if len(r.Votes) != 0 || r.PriorityScore != 4 {
		t.Error("invalid votes must leave the report untouched")
	}
}

func TestApplyVerificationIsIndependent(t *testing.T) {
	r := model.Report{Severity: 4}
	r.PriorityScore = RecomputePriority(r)
	v := uuid.New()

	if err := ApplyVerification(&r, v, model.Upvote); err != nil {
		t.Fatal(err)
	}
	if err := ApplyVerification(&r, uuid.New(), model.Upvote); err != nil {
		t.Fatal(err)
	}
	if err := ApplyVerification(&r, v, model.Downvote); err != nil {
		t.Fatal(err)
	}

	if r.VerificationScore != 0 {
		t.Errorf("VerificationScore = %d; want 0", r.VerificationScore)
	}
	if r.VoteCount != 0 || r.PriorityScore != 8 || len(r.Votes) != 0 {
		t.Error("verification must not touch votes or priority")
	}
	if err := ApplyVerification(&r, v, 3); err == nil {
		t.Error("expected an error for verification value 3")
	}
}
