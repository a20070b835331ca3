package fulfillment

import "errors"

var ErrInvalidStageTransition = errors.New("fulfillment: invalid stage transition")

// Stage is the position of a single attempt in the workflow.
type Stage string

const (
	StageStart              Stage = "START"
	StageCheckingInventory  Stage = "CHECKING_INVENTORY"
	StageCheckingPayment    Stage = "CHECKING_PAYMENT"
	StageCreatingOrder      Stage = "CREATING_ORDER"
	StageDeductingInventory Stage = "DEDUCTING_INVENTORY"
	StageDone               Stage = "DONE"
	StageRejectedInventory  Stage = "REJECTED_INVENTORY"
	StageRejectedPayment    Stage = "REJECTED_PAYMENT"
	StageFailed             Stage = "FAILED"
)

// transitions lists every legal move. The graph is acyclic, so no stage is revisited.
var transitions = map[Stage][]Stage{
	StageStart:              {StageCheckingInventory, StageFailed},
	StageCheckingInventory:  {StageCheckingPayment, StageRejectedInventory, StageFailed},
	StageCheckingPayment:    {StageCreatingOrder, StageRejectedPayment, StageFailed},
	StageCreatingOrder:      {StageDeductingInventory, StageFailed},
	StageDeductingInventory: {StageDone, StageFailed},
}

func (s Stage) CanTransitionTo(next Stage) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return len(transitions[s]) == 0
}
