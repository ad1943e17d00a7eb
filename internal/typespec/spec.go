// Package typespec holds per-document-type workflow configuration. Document
// types are data loaded from settings, not code.
package typespec

import (
	"fmt"

	"docflow/internal/model"
)

// DocumentTypeSpec is the immutable workflow configuration of one document
// type.
type DocumentTypeSpec struct {
	Code              string   `json:"code"`
	Label             string   `json:"label"`
	RequiresReview    bool     `json:"requires_review"`
	RequiresApproval  bool     `json:"requires_approval"`
	AllowSelfApproval bool     `json:"allow_self_approval"`
	// RequiredSignatures lists role tokens whose sign-off is mandatory before
	// the document can be published. Kept as raw tokens so settings files may
	// carry legacy spellings; SignatureRoles normalizes them.
	RequiredSignatures []string `json:"required_signatures"`
}

// Validate checks the structural invariants of a spec.
func (s DocumentTypeSpec) Validate() error {
	if s.Code == "" {
		return fmt.Errorf("document type spec requires a non-empty code")
	}
	return nil
}

// SignatureRoles returns the normalized module roles required to sign before
// publish. Legacy tokens are rewritten to their canonical module role; tokens
// that do not name a module role are dropped.
func (s DocumentTypeSpec) SignatureRoles() []model.ModuleRole {
	roles := make([]model.ModuleRole, 0, len(s.RequiredSignatures))
	seen := make(map[model.ModuleRole]bool, len(s.RequiredSignatures))
	for _, raw := range s.RequiredSignatures {
		role, ok := model.ParseModuleRole(signatureAliases(raw))
		if !ok || seen[role] {
			continue
		}
		seen[role] = true
		roles = append(roles, role)
	}
	return roles
}

// signatureAliases maps legacy signature tokens from older settings files to
// the canonical role token.
func signatureAliases(raw string) string {
	switch raw {
	case "FREIGEBER", "freigeber":
		return string(model.RoleApprover)
	default:
		return raw
	}
}
