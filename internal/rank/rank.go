// Package rank plans the rank mutations needed to place a record inside a
// lane. It holds no state: callers read the current lane occupants, ask Plan
// for the mutation set, and apply it atomically.
package rank

import "sort"

// Lane is the closed set of stages a record can occupy.
type Lane string

const (
	LaneBacklog    Lane = "backlog"
	LaneInProgress Lane = "inProgress"
	LaneComplete   Lane = "complete"
)

// Lanes lists the valid lanes in display order.
var Lanes = []Lane{LaneBacklog, LaneInProgress, LaneComplete}

// ParseLane validates a wire-level lane token.
func ParseLane(raw string) (Lane, bool) {
	switch Lane(raw) {
	case LaneBacklog, LaneInProgress, LaneComplete:
		return Lane(raw), true
	}
	return "", false
}

// Move is a validated rank-change request. Exactly one concrete variant is
// built per request, so each case's behavior is explicit in the type.
type Move interface {
	isMove()
}

// ChangeLane moves the record to another lane and keeps its current rank.
// The rank is deliberately left untouched even though it can collide with an
// existing rank in the destination lane; see Plan.
type ChangeLane struct {
	Lane Lane
}

// ChangeRank re-ranks the record inside its current lane.
type ChangeRank struct {
	Rank int
}

// ChangeBoth moves the record to another lane at an explicit rank.
type ChangeBoth struct {
	Lane Lane
	Rank int
}

func (ChangeLane) isMove() {}
func (ChangeRank) isMove() {}
func (ChangeBoth) isMove() {}

// Slot is a lane occupant as the planner sees it.
type Slot struct {
	ID   int64
	Rank int
}

// Mutation is one field update the coordinator must apply. Displaced
// lane-mates come first in descending rank order, the target record last.
type Mutation struct {
	ID   int64
	Lane Lane
	Rank int
}

// Policy tunes planning behavior.
type Policy struct {
	// ClampRank caps a requested rank at len(lane)+1 instead of allowing a
	// sparse sequence with a gap below the inserted record.
	ClampRank bool
}

// Plan computes the mutation set for moving the record identified by targetID
// (currently in currentLane at currentRank) according to move. mates must be
// every record currently in the destination lane except the target itself.
//
// When a rank is requested, every mate with rank >= the requested rank is
// shifted up by one and the target takes the requested slot. A lane-only move
// keeps the record's old rank, which can duplicate a rank in the destination
// lane; and a cross-lane move never compacts the gap left in the old lane.
func Plan(targetID int64, currentLane Lane, currentRank int, mates []Slot, move Move, policy Policy) []Mutation {
	switch m := move.(type) {
	case ChangeLane:
		return []Mutation{{ID: targetID, Lane: m.Lane, Rank: currentRank}}
	case ChangeRank:
		return planShift(targetID, currentLane, m.Rank, mates, policy)
	case ChangeBoth:
		return planShift(targetID, m.Lane, m.Rank, mates, policy)
	}
	return nil
}

func planShift(targetID int64, lane Lane, targetRank int, mates []Slot, policy Policy) []Mutation {
	if policy.ClampRank && targetRank > len(mates)+1 {
		targetRank = len(mates) + 1
	}

	displaced := make([]Slot, 0, len(mates))
	for _, mate := range mates {
		if mate.ID == targetID {
			continue
		}
		if mate.Rank >= targetRank {
			displaced = append(displaced, mate)
		}
	}
	sort.Slice(displaced, func(i, j int) bool {
		return displaced[i].Rank > displaced[j].Rank
	})

	mutations := make([]Mutation, 0, len(displaced)+1)
	for _, mate := range displaced {
		mutations = append(mutations, Mutation{ID: mate.ID, Lane: lane, Rank: mate.Rank + 1})
	}
	mutations = append(mutations, Mutation{ID: targetID, Lane: lane, Rank: targetRank})
	return mutations
}
