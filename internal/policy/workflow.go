// Package policy contains the pure decision rules of the document lifecycle:
// the transition matrix, role permissions, and signature requirements. No
// package here touches persistence.
package policy

import (
	"fmt"

	"docflow/internal/model"
	"docflow/internal/typespec"
)

// Transition is one fixed (from, action, to) entry of the lifecycle matrix.
type Transition struct {
	From   model.DocumentStatus
	Action model.DocumentAction
	To     model.DocumentStatus
}

// DefaultTransitions returns the canonical lifecycle matrix. Order matters:
// when several actions are possible from one status, the workflow service
// tries them in this declared order (so DRAFT prefers submit_review over a
// direct approve).
func DefaultTransitions() []Transition {
	return []Transition{
		{model.StatusDraft, model.ActionSubmitReview, model.StatusReview},
		{model.StatusDraft, model.ActionApprove, model.StatusApproved},
		{model.StatusReview, model.ActionApprove, model.StatusApproved},
		{model.StatusApproved, model.ActionPublish, model.StatusEffective},
		{model.StatusEffective, model.ActionCreateRevision, model.StatusRevision},
		{model.StatusRevision, model.ActionSubmitReview, model.StatusReview},
		{model.StatusEffective, model.ActionObsolete, model.StatusObsolete},
		{model.StatusObsolete, model.ActionArchive, model.StatusArchived},
	}
}

// TransitionNotAllowedError reports a rejected (status, action) pair.
type TransitionNotAllowedError struct {
	From   model.DocumentStatus
	Action model.DocumentAction
	Detail string
}

func (e *TransitionNotAllowedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("transition %s from %s not allowed: %s", e.Action, e.From, e.Detail)
	}
	return fmt.Sprintf("transition %s from %s not allowed", e.Action, e.From)
}

// WorkflowPolicy evaluates the transition matrix against a document type
// spec. The matrix is injected at construction and never mutated.
type WorkflowPolicy struct {
	transitions []Transition
}

// NewWorkflowPolicy builds a policy over the given matrix. Each
// (from, action) pair must resolve to at most one target status.
func NewWorkflowPolicy(transitions []Transition) (*WorkflowPolicy, error) {
	seen := make(map[string]bool, len(transitions))
	for _, t := range transitions {
		key := string(t.From) + "|" + string(t.Action)
		if seen[key] {
			return nil, fmt.Errorf("duplicate transition for (%s, %s)", t.From, t.Action)
		}
		seen[key] = true
	}
	owned := make([]Transition, len(transitions))
	copy(owned, transitions)
	return &WorkflowPolicy{transitions: owned}, nil
}

// NextStatus resolves the target status for an action from the current
// status. It fails with a TransitionNotAllowedError when the matrix has no
// matching entry, or when the document type spec disables the action's gate.
func (p *WorkflowPolicy) NextStatus(status model.DocumentStatus, action model.DocumentAction, spec typespec.DocumentTypeSpec) (model.DocumentStatus, error) {
	if err := p.checkGates(action, spec); err != nil {
		return "", err
	}
	for _, t := range p.transitions {
		if t.From == status && t.Action == action {
			return t.To, nil
		}
	}
	return "", &TransitionNotAllowedError{From: status, Action: action}
}

// CanTransition is the boolean form of NextStatus.
func (p *WorkflowPolicy) CanTransition(status model.DocumentStatus, action model.DocumentAction, spec typespec.DocumentTypeSpec) bool {
	_, err := p.NextStatus(status, action, spec)
	return err == nil
}

// AllowedActions returns the actions with a matrix entry from the given
// status, in declared matrix order. Type spec gates are not applied here;
// callers resolve them per action via NextStatus.
func (p *WorkflowPolicy) AllowedActions(status model.DocumentStatus) []model.DocumentAction {
	var actions []model.DocumentAction
	for _, t := range p.transitions {
		if t.From == status {
			actions = append(actions, t.Action)
		}
	}
	return actions
}

// IsEditable reports whether document content may change in the status.
func (p *WorkflowPolicy) IsEditable(status model.DocumentStatus) bool {
	return status == model.StatusDraft || status == model.StatusRevision
}

// RequiresReason reports whether the action demands a stated reason at the
// policy level. The workflow service enforces additional reason rules for
// abort, revert and archive on top of this.
func (p *WorkflowPolicy) RequiresReason(action model.DocumentAction) bool {
	return action == model.ActionObsolete
}

// checkGates applies the document type gates: review and approval steps can
// be switched off per type.
func (p *WorkflowPolicy) checkGates(action model.DocumentAction, spec typespec.DocumentTypeSpec) error {
	switch action {
	case model.ActionSubmitReview:
		if !spec.RequiresReview {
			return &TransitionNotAllowedError{Action: action, Detail: fmt.Sprintf("type %s does not use a review step", spec.Code)}
		}
	case model.ActionApprove, model.ActionPublish:
		if !spec.RequiresApproval {
			return &TransitionNotAllowedError{Action: action, Detail: fmt.Sprintf("type %s does not use an approval step", spec.Code)}
		}
	}
	return nil
}
