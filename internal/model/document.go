package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Version is a major.minor document version.
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

// String renders the version in the "major.minor" display form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// BumpMinor returns the version with the minor component incremented.
func (v Version) BumpMinor() Version {
	return Version{Major: v.Major, Minor: v.Minor + 1}
}

// ParseVersion parses a "major.minor" string.
func ParseVersion(raw string) (Version, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ".", 2)
	if len(parts) != 2 {
		return Version{}, fmt.Errorf("invalid version %q", raw)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q", raw)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q", raw)
	}
	return Version{Major: major, Minor: minor}, nil
}

// DocumentRecord is the persisted state of a controlled document. Status is
// only ever mutated through the workflow service; no other code path may
// write it.
type DocumentRecord struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	TypeCode  string         `json:"type_code"`
	Status    DocumentStatus `json:"status"`
	OwnerID   string         `json:"owner_id"`
	Version   Version        `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
}

// Assignments maps a module role to the user ids assigned to it for one
// document. Consumed read-only by the workflow service.
type Assignments map[ModuleRole][]string

// UserIDs returns the ids assigned to the given role.
func (a Assignments) UserIDs(role ModuleRole) []string {
	return a[role]
}

// HasAny reports whether at least one user is assigned to the role.
func (a Assignments) HasAny(role ModuleRole) bool {
	return len(a[role]) > 0
}

// RolesOf returns the module roles the given user id is assigned to.
func (a Assignments) RolesOf(userID string) []ModuleRole {
	var roles []ModuleRole
	for role, ids := range a {
		for _, id := range ids {
			if id == userID {
				roles = append(roles, role)
				break
			}
		}
	}
	return roles
}

// UserIdentity is the authenticated caller. An explicit identity replaces any
// duck-typed probing of user objects: ID is required and always compared as a
// string.
type UserIdentity struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// SignatureRecord is a recorded sign-off of a role for a lifecycle action.
type SignatureRecord struct {
	ID          string         `json:"id"`
	DocID       string         `json:"doc_id"`
	Action      DocumentAction `json:"action"`
	Role        ModuleRole     `json:"role"`
	SignerID    string         `json:"signer_id"`
	ArtifactKey string         `json:"artifact_key,omitempty"`
	SignedAt    time.Time      `json:"signed_at"`
}
