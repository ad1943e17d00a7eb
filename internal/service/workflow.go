package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"docflow/internal/audit"
	"docflow/internal/model"
	"docflow/internal/policy"
	"docflow/internal/repository"
	"docflow/internal/storage"
	"docflow/internal/typespec"
)

// CurrentUserProvider resolves the authenticated caller from the request
// context. A nil return means nobody is logged in.
type CurrentUserProvider func(ctx context.Context) *model.UserIdentity

// EnsureAssignmentsFunc lets the caller fix missing role assignments
// interactively during start. It returns true when assignments were
// (re)made and the check should be re-evaluated once.
type EnsureAssignmentsFunc func(ctx context.Context) (bool, error)

// WorkflowService orchestrates lifecycle transitions of controlled
// documents: it is the only code path allowed to mutate document status.
// Each operation either passes every check and performs exactly one logical
// mutation, or performs none and returns a WorkflowError with a specific
// reason.
type WorkflowService interface {
	// StartWorkflow activates the workflow of a DRAFT document. At least one
	// approver must be assigned; a missing assignment may be corrected once
	// through the ensure callback.
	StartWorkflow(ctx context.Context, docID string, userRoles, assignedRoles []string, ensure EnsureAssignmentsFunc) error

	// AbortWorkflow deactivates an active workflow and force-resets the
	// document to DRAFT. Only ADMIN/QMB or the recorded starter may abort,
	// and a reason is mandatory.
	AbortWorkflow(ctx context.Context, docID, reason string, userRoles, assignedRoles []string) error

	// ForwardTransition advances the document along the transition matrix:
	// it picks the first matrix action (declared order) the caller is
	// permitted to perform without violating separation of duties. Reaching
	// EFFECTIVE also bumps the minor version.
	ForwardTransition(ctx context.Context, docID, reason string, userRoles, assignedRoles []string) error

	// BackwardToDraft force-resets a pre-release document to DRAFT. A reason
	// is mandatory; EFFECTIVE, OBSOLETE and ARCHIVED documents cannot be
	// reverted, and reverting a DRAFT is an explicit error.
	BackwardToDraft(ctx context.Context, docID, reason string, userRoles, assignedRoles []string) error

	// Archive retires a document: EFFECTIVE becomes OBSOLETE, OBSOLETE
	// becomes ARCHIVED. A reason is mandatory.
	Archive(ctx context.Context, docID, reason string, userRoles, assignedRoles []string) error

	// Sign records a role sign-off for a lifecycle action, optionally
	// storing the signed artifact in the vault.
	Sign(ctx context.Context, docID string, action model.DocumentAction, role model.ModuleRole, userRoles []string, artifact io.Reader, size int64) (*model.SignatureRecord, error)
}

// WorkflowDeps are the collaborators of the workflow service.
type WorkflowDeps struct {
	Repo        repository.DocumentRepository
	Signatures  repository.SignatureRepository
	Registry    *typespec.Registry
	Workflow    *policy.WorkflowPolicy
	Permissions *policy.PermissionPolicy
	SignPolicy  *policy.SignaturePolicy
	Vault       storage.Vault
	Auditor     audit.Recorder
	CurrentUser CurrentUserProvider
	// Transitions counts committed transitions by action. Optional.
	Transitions *prometheus.CounterVec
}

type workflowService struct {
	deps WorkflowDeps
}

// NewWorkflowService constructs the workflow service.
func NewWorkflowService(deps WorkflowDeps) WorkflowService {
	return &workflowService{deps: deps}
}

func (s *workflowService) StartWorkflow(ctx context.Context, docID string, userRoles, assignedRoles []string, ensure EnsureAssignmentsFunc) error {
	const op = model.PseudoActionStartWorkflow

	user, err := s.requireUser(ctx)
	if err != nil {
		return s.fail(ctx, docID, op, "", err)
	}

	record, err := s.loadRecord(ctx, docID)
	if err != nil {
		return s.fail(ctx, docID, op, user.ID, err)
	}

	if record.Status != model.StatusDraft {
		return s.fail(ctx, docID, op, user.ID,
			Fail(KindPrecondition, "a workflow can only be started for drafts (current status: %s)", record.Status))
	}

	roles := s.deps.Permissions.ExpandRoles(userRoles, assignedRoles)
	allowed, err := s.deps.Permissions.CanPerform(op, roles)
	if err != nil {
		return s.fail(ctx, docID, op, user.ID, FailWrap(KindPolicy, err, "invalid action"))
	}
	if !allowed {
		return s.fail(ctx, docID, op, user.ID, Fail(KindPermission, "no permission to start the workflow"))
	}

	hasApprover, err := s.hasApprover(ctx, docID)
	if err != nil {
		return s.fail(ctx, docID, op, user.ID, err)
	}
	if !hasApprover {
		if ensure == nil {
			return s.fail(ctx, docID, op, user.ID,
				Fail(KindAssignment, "at least one approver must be assigned"))
		}
		fixed, err := ensure(ctx)
		if err != nil || !fixed {
			return s.fail(ctx, docID, op, user.ID, Fail(KindAssignment, "role assignment cancelled"))
		}
		// Re-evaluate once after the corrective callback.
		hasApprover, err = s.hasApprover(ctx, docID)
		if err != nil {
			return s.fail(ctx, docID, op, user.ID, err)
		}
		if !hasApprover {
			return s.fail(ctx, docID, op, user.ID,
				Fail(KindAssignment, "at least one approver must be assigned"))
		}
	}

	if err := s.deps.Repo.SetWorkflowActive(ctx, docID, true, user.ID); err != nil {
		return s.fail(ctx, docID, op, user.ID,
			FailWrap(KindPersistence, err, "workflow start failed"))
	}

	s.succeed(ctx, docID, op, user.ID)
	logEvent("workflow_started", docID, user.ID, "")
	return nil
}

func (s *workflowService) AbortWorkflow(ctx context.Context, docID, reason string, userRoles, assignedRoles []string) error {
	const op = "abort_workflow"

	user, err := s.requireUser(ctx)
	if err != nil {
		return s.fail(ctx, docID, op, "", err)
	}
	if strings.TrimSpace(reason) == "" {
		return s.fail(ctx, docID, op, user.ID, Fail(KindPolicy, "a reason is required to abort a workflow"))
	}

	if _, err := s.loadRecord(ctx, docID); err != nil {
		return s.fail(ctx, docID, op, user.ID, err)
	}

	active, err := s.deps.Repo.WorkflowActive(ctx, docID)
	if err != nil {
		return s.fail(ctx, docID, op, user.ID, FailWrap(KindPersistence, err, "workflow state unavailable"))
	}
	if !active {
		return s.fail(ctx, docID, op, user.ID, Fail(KindPrecondition, "no active workflow to abort"))
	}

	roles := s.deps.Permissions.ExpandRoles(userRoles, assignedRoles)
	isOverride := roles.Has(string(model.SystemAdmin)) || roles.Has(string(model.SystemQMB))

	starter, err := s.deps.Repo.WorkflowStarter(ctx, docID)
	if err != nil {
		return s.fail(ctx, docID, op, user.ID, FailWrap(KindPersistence, err, "workflow state unavailable"))
	}
	isStarter := starter != "" && strings.EqualFold(starter, user.ID)

	if !isOverride && !isStarter {
		return s.fail(ctx, docID, op, user.ID,
			Fail(KindPermission, "only ADMIN/QMB or the workflow starter may abort"))
	}

	if err := s.deps.Repo.SetWorkflowActive(ctx, docID, false, ""); err != nil {
		return s.fail(ctx, docID, op, user.ID, FailWrap(KindPersistence, err, "workflow abort failed"))
	}
	if err := s.forceStatus(ctx, docID, user.ID, reason); err != nil {
		return s.fail(ctx, docID, op, user.ID, err)
	}

	// Aborting voids recorded sign-offs and their artifacts. Best effort:
	// the abort itself already succeeded.
	if err := s.deps.Signatures.DeleteForDocument(ctx, docID); err != nil {
		logEvent("signature_cleanup_failed", docID, user.ID, err.Error())
	}
	if s.deps.Vault != nil {
		if err := s.deps.Vault.DeletePrefix(ctx, signedArtifactPrefix(docID)); err != nil {
			logEvent("artifact_cleanup_failed", docID, user.ID, err.Error())
		}
	}

	s.succeed(ctx, docID, op, user.ID)
	logEvent("workflow_aborted", docID, user.ID, reason)
	return nil
}

func (s *workflowService) ForwardTransition(ctx context.Context, docID, reason string, userRoles, assignedRoles []string) error {
	const op = "forward_transition"

	user, err := s.requireUser(ctx)
	if err != nil {
		return s.fail(ctx, docID, op, "", err)
	}

	record, err := s.loadRecord(ctx, docID)
	if err != nil {
		return s.fail(ctx, docID, op, user.ID, err)
	}

	spec, err := s.deps.Registry.Get(record.TypeCode)
	if err != nil {
		return s.fail(ctx, docID, op, user.ID,
			FailWrap(KindPolicy, err, "document type %q is not configured", record.TypeCode))
	}

	allowedActions := s.deps.Workflow.AllowedActions(record.Status)
	if len(allowedActions) == 0 {
		return s.fail(ctx, docID, op, user.ID,
			Fail(KindPrecondition, "no action possible for status %s", record.Status))
	}

	roles := s.deps.Permissions.ExpandRoles(userRoles, assignedRoles)

	ownerID, err := s.deps.Repo.Owner(ctx, docID)
	if err != nil {
		return s.fail(ctx, docID, op, user.ID, FailWrap(KindPersistence, err, "owner lookup failed"))
	}

	// Deterministic tie-break: matrix declaration order decides when several
	// actions are open from one status.
	var action model.DocumentAction
	found := false
	for _, candidate := range allowedActions {
		permitted, err := s.deps.Permissions.CanPerform(string(candidate), roles)
		if err != nil {
			return s.fail(ctx, docID, op, user.ID, FailWrap(KindPolicy, err, "invalid action"))
		}
		if !permitted {
			continue
		}
		if s.deps.Permissions.ViolatesSeparationOfDuties(string(candidate), user.ID, ownerID, spec.AllowSelfApproval) {
			continue
		}
		action = candidate
		found = true
		break
	}
	if !found {
		if s.ownerBlockedBySeparation(roles, user.ID, ownerID, spec, allowedActions) {
			return s.fail(ctx, docID, op, user.ID,
				Fail(KindPermission, "separation of duties: the document owner may not approve or publish it"))
		}
		return s.fail(ctx, docID, op, user.ID,
			Fail(KindPermission, "no permission for any available action"))
	}

	if s.deps.Workflow.RequiresReason(action) && strings.TrimSpace(reason) == "" {
		return s.fail(ctx, docID, string(action), user.ID,
			Fail(KindPolicy, "a reason is required for action %s", action))
	}

	nextStatus, err := s.deps.Workflow.NextStatus(record.Status, action, spec)
	if err != nil {
		return s.fail(ctx, docID, string(action), user.ID, FailWrap(KindPolicy, err, "%v", err))
	}

	// The publish step commits only once every required role has signed.
	if missing := s.missingSignatures(ctx, docID, spec, action); len(missing) > 0 {
		return s.fail(ctx, docID, string(action), user.ID,
			Fail(KindPolicy, "signature of role %s required before %s", missing[0], action))
	}

	if err := s.deps.Repo.SetStatus(ctx, docID, nextStatus, user.ID, reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.fail(ctx, docID, string(action), user.ID, Fail(KindNotFound, "document not found"))
		}
		return s.fail(ctx, docID, string(action), user.ID, FailWrap(KindPersistence, err, "status update failed"))
	}

	if nextStatus == model.StatusEffective {
		if err := s.deps.Repo.BumpMinorVersion(ctx, docID, user.ID, reason); err != nil {
			return s.fail(ctx, docID, string(action), user.ID, FailWrap(KindPersistence, err, "version bump failed"))
		}
	}

	if s.deps.Transitions != nil {
		s.deps.Transitions.WithLabelValues(string(action), string(nextStatus)).Inc()
	}
	s.succeed(ctx, docID, string(action), user.ID)
	logEvent("transition", docID, user.ID, fmt.Sprintf("%s -> %s", action, nextStatus))
	return nil
}

func (s *workflowService) BackwardToDraft(ctx context.Context, docID, reason string, userRoles, assignedRoles []string) error {
	const op = model.PseudoActionBackToDraft

	user, err := s.requireUser(ctx)
	if err != nil {
		return s.fail(ctx, docID, op, "", err)
	}
	if strings.TrimSpace(reason) == "" {
		return s.fail(ctx, docID, op, user.ID, Fail(KindPolicy, "a reason is required to revert to draft"))
	}

	record, err := s.loadRecord(ctx, docID)
	if err != nil {
		return s.fail(ctx, docID, op, user.ID, err)
	}

	switch record.Status {
	case model.StatusEffective, model.StatusObsolete, model.StatusArchived:
		return s.fail(ctx, docID, op, user.ID,
			Fail(KindPrecondition, "cannot revert a document in status %s", record.Status))
	case model.StatusDraft:
		return s.fail(ctx, docID, op, user.ID, Fail(KindPrecondition, "document is already a draft"))
	}

	roles := s.deps.Permissions.ExpandRoles(userRoles, assignedRoles)
	allowed, err := s.deps.Permissions.CanPerform(op, roles)
	if err != nil {
		return s.fail(ctx, docID, op, user.ID, FailWrap(KindPolicy, err, "invalid action"))
	}
	if !allowed {
		return s.fail(ctx, docID, op, user.ID, Fail(KindPermission, "no permission to revert to draft"))
	}

	if err := s.forceStatus(ctx, docID, user.ID, reason); err != nil {
		return s.fail(ctx, docID, op, user.ID, err)
	}

	s.succeed(ctx, docID, op, user.ID)
	logEvent("reverted_to_draft", docID, user.ID, reason)
	return nil
}

func (s *workflowService) Archive(ctx context.Context, docID, reason string, userRoles, assignedRoles []string) error {
	user, err := s.requireUser(ctx)
	if err != nil {
		return s.fail(ctx, docID, string(model.ActionArchive), "", err)
	}
	if strings.TrimSpace(reason) == "" {
		return s.fail(ctx, docID, string(model.ActionArchive), user.ID,
			Fail(KindPolicy, "a reason is required to archive"))
	}

	record, err := s.loadRecord(ctx, docID)
	if err != nil {
		return s.fail(ctx, docID, string(model.ActionArchive), user.ID, err)
	}

	// Fixed two-step retirement: EFFECTIVE documents become OBSOLETE first,
	// OBSOLETE documents are archived.
	var action model.DocumentAction
	var target model.DocumentStatus
	switch record.Status {
	case model.StatusEffective:
		action, target = model.ActionObsolete, model.StatusObsolete
	case model.StatusObsolete:
		action, target = model.ActionArchive, model.StatusArchived
	default:
		return s.fail(ctx, docID, string(model.ActionArchive), user.ID,
			Fail(KindPrecondition, "only effective or obsolete documents can be archived"))
	}

	roles := s.deps.Permissions.ExpandRoles(userRoles, assignedRoles)
	allowed, err := s.deps.Permissions.CanPerform(string(action), roles)
	if err != nil {
		return s.fail(ctx, docID, string(action), user.ID, FailWrap(KindPolicy, err, "invalid action"))
	}
	if !allowed {
		return s.fail(ctx, docID, string(action), user.ID,
			Fail(KindPermission, "no permission to %s this document", action))
	}

	if err := s.deps.Repo.SetStatus(ctx, docID, target, user.ID, reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.fail(ctx, docID, string(action), user.ID, Fail(KindNotFound, "document not found"))
		}
		return s.fail(ctx, docID, string(action), user.ID, FailWrap(KindPersistence, err, "archive failed"))
	}

	if s.deps.Transitions != nil {
		s.deps.Transitions.WithLabelValues(string(action), string(target)).Inc()
	}
	s.succeed(ctx, docID, string(action), user.ID)
	logEvent("archived", docID, user.ID, fmt.Sprintf("%s -> %s", action, target))
	return nil
}

func (s *workflowService) Sign(ctx context.Context, docID string, action model.DocumentAction, role model.ModuleRole, userRoles []string, artifact io.Reader, size int64) (*model.SignatureRecord, error) {
	const op = string(model.ActionSign)

	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, s.fail(ctx, docID, op, "", err)
	}
	if !action.IsValid() {
		return nil, s.fail(ctx, docID, op, user.ID, Fail(KindPolicy, "unknown action %q", string(action)))
	}
	if !role.IsValid() {
		return nil, s.fail(ctx, docID, op, user.ID, Fail(KindPolicy, "unknown role %q", string(role)))
	}

	if _, err := s.loadRecord(ctx, docID); err != nil {
		return nil, s.fail(ctx, docID, op, user.ID, err)
	}

	// The signer must actually hold the role they sign for, either via RBAC
	// or a per-document assignment.
	assignees, err := s.deps.Repo.Assignees(ctx, docID)
	if err != nil {
		return nil, s.fail(ctx, docID, op, user.ID, FailWrap(KindPersistence, err, "assignment lookup failed"))
	}
	roles := s.deps.Permissions.ExpandRoles(userRoles, roleTokens(assignees.RolesOf(user.ID)))
	if !roles.HasModuleRole(role) {
		return nil, s.fail(ctx, docID, op, user.ID,
			Fail(KindPermission, "signing as %s requires holding that role", role))
	}

	sig := &model.SignatureRecord{
		ID:       uuid.NewString(),
		DocID:    docID,
		Action:   action,
		Role:     role,
		SignerID: user.ID,
		SignedAt: time.Now().UTC(),
	}

	if artifact != nil && s.deps.Vault != nil {
		key := fmt.Sprintf("%s%s-%s.pdf", signedArtifactPrefix(docID), action, sig.ID)
		info, err := s.deps.Vault.Put(ctx, key, artifact, storage.PutOptions{
			Size:        size,
			ContentType: "application/pdf",
			Metadata:    map[string]string{"signer-id": user.ID, "role": string(role)},
		})
		if err != nil {
			return nil, s.fail(ctx, docID, op, user.ID, FailWrap(KindPersistence, err, "storing signed artifact failed"))
		}
		sig.ArtifactKey = info.Key
	}

	if err := s.deps.Signatures.Record(ctx, sig); err != nil {
		// Roll back the stored artifact so a failed record does not leave an
		// orphan in the vault.
		if sig.ArtifactKey != "" && s.deps.Vault != nil {
			if delErr := s.deps.Vault.Delete(ctx, sig.ArtifactKey); delErr != nil {
				logEvent("artifact_rollback_failed", docID, user.ID, delErr.Error())
			}
		}
		return nil, s.fail(ctx, docID, op, user.ID, FailWrap(KindPersistence, err, "recording signature failed"))
	}

	s.succeed(ctx, docID, op, user.ID)
	return sig, nil
}

// ---- helpers ----

func (s *workflowService) requireUser(ctx context.Context) (*model.UserIdentity, error) {
	user := s.deps.CurrentUser(ctx)
	if user == nil || user.ID == "" {
		return nil, Fail(KindAuthMissing, "no authenticated user")
	}
	return user, nil
}

func (s *workflowService) loadRecord(ctx context.Context, docID string) (*model.DocumentRecord, error) {
	record, err := s.deps.Repo.Get(ctx, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Fail(KindNotFound, "document not found")
		}
		return nil, FailWrap(KindPersistence, err, "document lookup failed")
	}
	return record, nil
}

func (s *workflowService) hasApprover(ctx context.Context, docID string) (bool, error) {
	assignees, err := s.deps.Repo.Assignees(ctx, docID)
	if err != nil {
		return false, FailWrap(KindPersistence, err, "assignment lookup failed")
	}
	return assignees.HasAny(model.RoleApprover), nil
}

// forceStatus is the single escape hatch that bypasses the transition
// matrix. Its only legal target is DRAFT (abort and revert).
func (s *workflowService) forceStatus(ctx context.Context, docID, actorID, reason string) error {
	if err := s.deps.Repo.SetStatus(ctx, docID, model.StatusDraft, actorID, reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Fail(KindNotFound, "document not found")
		}
		return FailWrap(KindPersistence, err, "status reset failed")
	}
	return nil
}

func (s *workflowService) missingSignatures(ctx context.Context, docID string, spec typespec.DocumentTypeSpec, action model.DocumentAction) []model.ModuleRole {
	required := s.deps.SignPolicy.RequiredRoles(spec, action)
	if len(required) == 0 {
		return nil
	}
	signed, err := s.deps.Signatures.SignedRoles(ctx, docID, action)
	if err != nil {
		logEvent("signature_lookup_failed", docID, "", err.Error())
		// Treat unreadable signature state as all-missing: never publish on
		// unverified sign-offs.
		return required
	}
	have := make(map[model.ModuleRole]bool, len(signed))
	for _, r := range signed {
		have[r] = true
	}
	var missing []model.ModuleRole
	for _, r := range required {
		if !have[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

// ownerBlockedBySeparation distinguishes "no permission at all" from "only
// blocked because you own the document", so the failure reason points at the
// actual remediation.
func (s *workflowService) ownerBlockedBySeparation(roles policy.RoleSet, actorID, ownerID string, spec typespec.DocumentTypeSpec, actions []model.DocumentAction) bool {
	for _, a := range actions {
		permitted, err := s.deps.Permissions.CanPerform(string(a), roles)
		if err != nil || !permitted {
			continue
		}
		if s.deps.Permissions.ViolatesSeparationOfDuties(string(a), actorID, ownerID, spec.AllowSelfApproval) {
			return true
		}
	}
	return false
}

func (s *workflowService) fail(ctx context.Context, docID, action, actorID string, err error) *WorkflowError {
	var we *WorkflowError
	if !errors.As(err, &we) {
		we = FailWrap(KindPersistence, err, "operation failed")
	}
	if s.deps.Auditor != nil {
		s.deps.Auditor.Record(ctx, audit.NewEvent(docID, action, actorID, audit.OutcomeFailure, we.Reason))
	}
	return we
}

func (s *workflowService) succeed(ctx context.Context, docID, action, actorID string) {
	if s.deps.Auditor != nil {
		s.deps.Auditor.Record(ctx, audit.NewEvent(docID, action, actorID, audit.OutcomeSuccess, ""))
	}
}

func signedArtifactPrefix(docID string) string {
	return fmt.Sprintf("signed/%s/", docID)
}

func roleTokens(roles []model.ModuleRole) []string {
	tokens := make([]string, len(roles))
	for i, r := range roles {
		tokens[i] = string(r)
	}
	return tokens
}

func logEvent(event, docID, actorID, detail string) {
	level := "info"
	if strings.HasSuffix(event, "_failed") {
		level = "error"
	}
	entry := map[string]any{
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		"level":  level,
		"msg":    event,
		"doc_id": docID,
	}
	if actorID != "" {
		entry["actor_id"] = actorID
	}
	if detail != "" {
		entry["detail"] = detail
	}
	if b, err := json.Marshal(entry); err == nil {
		log.SetFlags(0)
		log.Println(string(b))
	}
}
