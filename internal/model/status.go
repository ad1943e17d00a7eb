package model

import "fmt"

// DocumentStatus is a lifecycle status of a controlled document.
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "DRAFT"
	StatusReview    DocumentStatus = "REVIEW"
	StatusApproved  DocumentStatus = "APPROVED"
	StatusEffective DocumentStatus = "EFFECTIVE"
	StatusRevision  DocumentStatus = "REVISION"
	StatusObsolete  DocumentStatus = "OBSOLETE"
	StatusArchived  DocumentStatus = "ARCHIVED"
)

var validStatuses = map[DocumentStatus]bool{
	StatusDraft:     true,
	StatusReview:    true,
	StatusApproved:  true,
	StatusEffective: true,
	StatusRevision:  true,
	StatusObsolete:  true,
	StatusArchived:  true,
}

// String returns the canonical status token.
func (s DocumentStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is part of the closed lifecycle set.
func (s DocumentStatus) IsValid() bool {
	return validStatuses[s]
}

// ParseStatus converts a stored status token into a DocumentStatus.
// Unknown tokens are rejected at the boundary instead of being defaulted.
func ParseStatus(raw string) (DocumentStatus, error) {
	s := DocumentStatus(normalizeToken(raw))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown document status %q", raw)
	}
	return s, nil
}
