package policy

import (
	"fmt"
	"strings"

	"docflow/internal/model"
)

// RoleSet is a normalized set of role tokens (module and system roles).
type RoleSet map[string]struct{}

// Has reports whether the set contains the token.
func (s RoleSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// HasModuleRole reports whether the set contains the module role.
func (s RoleSet) HasModuleRole(role model.ModuleRole) bool {
	return s.Has(string(role))
}

// RoleGrants maps a role token to the set of action ids it may perform.
// Grants cover the lifecycle actions plus the controller-local pseudo
// actions (start_workflow, back_to_draft).
type RoleGrants map[string][]string

// DefaultRoleGrants returns the canonical role to action mapping.
// REVIEWER intentionally carries no state-changing action: reviewers comment
// and sign, they do not advance the lifecycle.
func DefaultRoleGrants() RoleGrants {
	return RoleGrants{
		string(model.RoleAuthor): {
			string(model.ActionEditMetadata),
			string(model.ActionEditContent),
			string(model.ActionSubmitReview),
			model.PseudoActionStartWorkflow,
			model.PseudoActionBackToDraft,
		},
		string(model.RoleEditor): {
			string(model.ActionEditMetadata),
			string(model.ActionEditContent),
			string(model.ActionCreateRevision),
		},
		string(model.RoleReviewer): {},
		string(model.RoleApprover): {
			string(model.ActionApprove),
			string(model.ActionPublish),
			string(model.ActionObsolete),
			string(model.ActionArchive),
		},
		string(model.SystemAdmin): {
			model.PseudoActionStartWorkflow,
			model.PseudoActionBackToDraft,
			string(model.ActionObsolete),
			string(model.ActionArchive),
		},
		string(model.SystemQMB): {
			model.PseudoActionStartWorkflow,
			model.PseudoActionBackToDraft,
			string(model.ActionObsolete),
			string(model.ActionArchive),
		},
	}
}

// PermissionPolicy evaluates role-based permissions and the separation of
// duties rule. Pure computation over an immutable grants table.
type PermissionPolicy struct {
	grants map[string]map[string]struct{}
	known  map[string]struct{}
}

// NewPermissionPolicy builds a policy over the given grants table.
func NewPermissionPolicy(grants RoleGrants) *PermissionPolicy {
	p := &PermissionPolicy{
		grants: make(map[string]map[string]struct{}, len(grants)),
		known:  make(map[string]struct{}),
	}
	for _, a := range []model.DocumentAction{
		model.ActionEditMetadata, model.ActionEditContent, model.ActionSubmitReview,
		model.ActionApprove, model.ActionPublish, model.ActionCreateRevision,
		model.ActionObsolete, model.ActionArchive, model.ActionSign,
	} {
		p.known[string(a)] = struct{}{}
	}
	p.known[model.PseudoActionStartWorkflow] = struct{}{}
	p.known[model.PseudoActionBackToDraft] = struct{}{}

	for role, actions := range grants {
		set := make(map[string]struct{}, len(actions))
		for _, a := range actions {
			set[a] = struct{}{}
		}
		p.grants[role] = set
	}
	return p
}

// ExpandRoles normalizes raw role tokens into a RoleSet. Tokens that name
// neither a module role nor a system role are silently dropped; role sources
// are lenient, action ids are not.
func (p *PermissionPolicy) ExpandRoles(tokens ...[]string) RoleSet {
	set := make(RoleSet)
	for _, group := range tokens {
		for _, raw := range group {
			if role, ok := model.ParseModuleRole(raw); ok {
				set[string(role)] = struct{}{}
				continue
			}
			if model.IsSystemRole(raw) {
				set[strings.ToUpper(strings.TrimSpace(raw))] = struct{}{}
			}
		}
	}
	return set
}

// CanPerform reports whether any role in the set is granted the action id.
// Unknown action ids are a hard error: the action vocabulary is closed.
func (p *PermissionPolicy) CanPerform(actionID string, roles RoleSet) (bool, error) {
	if _, ok := p.known[actionID]; !ok {
		return false, fmt.Errorf("unknown action id %q", actionID)
	}
	for role := range roles {
		if _, ok := p.grants[role][actionID]; ok {
			return true, nil
		}
	}
	return false, nil
}

// CanEditInStatus reports whether the role set may edit a document in the
// given status. Only DRAFT and REVISION are editable, and only by authors or
// editors.
func (p *PermissionPolicy) CanEditInStatus(status model.DocumentStatus, roles RoleSet) bool {
	if status != model.StatusDraft && status != model.StatusRevision {
		return false
	}
	return roles.HasModuleRole(model.RoleAuthor) || roles.HasModuleRole(model.RoleEditor)
}

// ViolatesSeparationOfDuties reports whether the actor approving or
// publishing their own document would break the separation of duties rule.
// The block applies even to holders of the APPROVER role unless the document
// type explicitly allows self-approval.
func (p *PermissionPolicy) ViolatesSeparationOfDuties(actionID string, actorID, ownerID string, allowSelfApproval bool) bool {
	if actionID != string(model.ActionApprove) && actionID != string(model.ActionPublish) {
		return false
	}
	if allowSelfApproval {
		return false
	}
	if actorID == "" || ownerID == "" {
		return false
	}
	return actorID == ownerID
}
