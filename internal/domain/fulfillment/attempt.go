package fulfillment

import (
	"fmt"
	"time"
)

type StepName string

const (
	StepCheckInventory  StepName = "check_inventory"
	StepCapturePayment  StepName = "capture_payment"
	StepCreateOrder     StepName = "create_order"
	StepDeductInventory StepName = "deduct_inventory"
)

type StepStatus string

const (
	StepPassed   StepStatus = "passed"
	StepRejected StepStatus = "rejected"
	StepErrored  StepStatus = "errored"
)

// Step records one collaborator call that actually ran.
type Step struct {
	Name       StepName
	Status     StepStatus
	Error      string
	FinishedAt time.Time
}

// Attempt is the audit record of one fulfillment attempt.
type Attempt struct {
	ID         string
	Request    Request
	Stage      Stage
	Outcome    Outcome
	OrderID    string
	PaymentID  string
	Steps      []Step
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

func NewAttempt(id string, req Request) *Attempt {
	return &Attempt{
		ID:        id,
		Request:   req,
		Stage:     StageStart,
		StartedAt: time.Now().UTC(),
	}
}

// Advance moves the attempt to next, rejecting moves the workflow does not allow.
func (a *Attempt) Advance(next Stage) error {
	if !a.Stage.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStageTransition, a.Stage, next)
	}
	a.Stage = next
	if next.Terminal() {
		a.FinishedAt = time.Now().UTC()
	}
	return nil
}

func (a *Attempt) Record(name StepName, status StepStatus, err error) {
	step := Step{Name: name, Status: status, FinishedAt: time.Now().UTC()}
	if err != nil {
		step.Error = err.Error()
	}
	a.Steps = append(a.Steps, step)
}

// Ran reports whether the named step was invoked during this attempt.
func (a *Attempt) Ran(name StepName) bool {
	for _, s := range a.Steps {
		if s.Name == name {
			return true
		}
	}
	return false
}

func (a *Attempt) Clone() *Attempt {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Steps = append([]Step(nil), a.Steps...)
	return &clone
}
