package policy

import (
	"docflow/internal/model"
	"docflow/internal/typespec"
)

// SignaturePolicy resolves which roles must have signed before an action may
// complete. Signature recording itself is a collaborator of the workflow
// service; this policy only states the requirement.
type SignaturePolicy struct{}

// NewSignaturePolicy returns the signature requirement policy.
func NewSignaturePolicy() *SignaturePolicy {
	return &SignaturePolicy{}
}

// RequiredRoles returns the ordered roles whose recorded signature is
// mandatory before the action commits. Only publish carries a requirement,
// taken directly from the document type spec; every other action needs none.
func (p *SignaturePolicy) RequiredRoles(spec typespec.DocumentTypeSpec, action model.DocumentAction) []model.ModuleRole {
	if action != model.ActionPublish {
		return nil
	}
	return spec.SignatureRoles()
}

// RequiresSignature is the boolean form of RequiredRoles.
func (p *SignaturePolicy) RequiresSignature(spec typespec.DocumentTypeSpec, action model.DocumentAction) bool {
	return len(p.RequiredRoles(spec, action)) > 0
}
