package model

import (
	"fmt"
	"strings"
)

// DocumentAction is a lifecycle action identifier. Action ids are lowercase
// snake_case tokens as persisted in policy configuration and audit rows.
type DocumentAction string

const (
	ActionEditMetadata   DocumentAction = "edit_metadata"
	ActionEditContent    DocumentAction = "edit_content"
	ActionSubmitReview   DocumentAction = "submit_review"
	ActionApprove        DocumentAction = "approve"
	ActionPublish        DocumentAction = "publish"
	ActionCreateRevision DocumentAction = "create_revision"
	ActionObsolete       DocumentAction = "obsolete"
	ActionArchive        DocumentAction = "archive"
	ActionSign           DocumentAction = "sign"
)

// Controller-local pseudo actions. These are permission-checkable ids but are
// not part of the DocumentAction lifecycle vocabulary: they never appear in
// the transition table.
const (
	PseudoActionStartWorkflow = "start_workflow"
	PseudoActionBackToDraft   = "back_to_draft"
)

var validActions = map[DocumentAction]bool{
	ActionEditMetadata:   true,
	ActionEditContent:    true,
	ActionSubmitReview:   true,
	ActionApprove:        true,
	ActionPublish:        true,
	ActionCreateRevision: true,
	ActionObsolete:       true,
	ActionArchive:        true,
	ActionSign:           true,
}

// String returns the action id.
func (a DocumentAction) String() string {
	return string(a)
}

// IsValid reports whether the action is part of the closed action set.
func (a DocumentAction) IsValid() bool {
	return validActions[a]
}

// ParseAction converts a raw action id into a DocumentAction. Action ids are
// a closed, validated set; unknown ids are an error, never ignored.
func ParseAction(raw string) (DocumentAction, error) {
	a := DocumentAction(strings.ToLower(strings.TrimSpace(raw)))
	if !a.IsValid() {
		return "", fmt.Errorf("unknown document action %q", raw)
	}
	return a, nil
}
