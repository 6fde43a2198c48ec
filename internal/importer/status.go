package importer

import (
	"strings"
	"time"
)

// statusCategory is the closed set of legacy application statuses the
// pipeline understands. Anything outside it is excluded from import.
type statusCategory int

const (
	categoryUnknown statusCategory = iota
	categoryPending
	categoryAccepted
	categoryAttended
	categoryDeclined
	categoryCancelled
	categoryNoShow
	categoryWaitlisted
)

// Numeric status ids as assigned by the legacy panel.
var statusIDCategories = map[int64]statusCategory{
	1: categoryPending,
	2: categoryAccepted,
	3: categoryDeclined,
	4: categoryCancelled,
	5: categoryAttended,
	6: categoryNoShow,
	7: categoryWaitlisted,
}

var statusNameCategories = map[string]statusCategory{
	"pending":    categoryPending,
	"applied":    categoryPending,
	"accepted":   categoryAccepted,
	"approved":   categoryAccepted,
	"confirmed":  categoryAccepted,
	"attended":   categoryAttended,
	"completed":  categoryAttended,
	"declined":   categoryDeclined,
	"rejected":   categoryDeclined,
	"cancelled":  categoryCancelled,
	"canceled":   categoryCancelled,
	"withdrawn":  categoryCancelled,
	"no_show":    categoryNoShow,
	"waitlisted": categoryWaitlisted,
	"waitlist":   categoryWaitlisted,
}

// categorize resolves a legacy status by id first, then by normalized
// display name. Unresolvable statuses map to categoryUnknown.
func categorize(statusID *int64, statusName string) statusCategory {
	if statusID != nil {
		if category, ok := statusIDCategories[*statusID]; ok {
			return category
		}
	}
	if category, ok := statusNameCategories[normalizeStatusName(statusName)]; ok {
		return category
	}
	return categoryUnknown
}

func normalizeStatusName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

// ShouldImportSignup decides whether a legacy signup belongs in the local
// store. The rules fail closed: an unresolvable status or a missing event
// date excludes the signup rather than importing garbage.
//
// Declines, cancellations, no-shows and waitlist entries never import.
// Accepted and attended signups always import. A pending signup imports
// only when the event is still in the future; a past "pending" is noise,
// a future one may still be a live commitment.
func ShouldImportSignup(eventDate time.Time, statusID *int64, statusName string) bool {
	if eventDate.IsZero() {
		return false
	}

	switch categorize(statusID, statusName) {
	case categoryAccepted, categoryAttended:
		return true
	case categoryPending:
		return eventDate.After(time.Now())
	default:
		return false
	}
}

// Local signup statuses.
const (
	signupStatusPending   = "pending"
	signupStatusConfirmed = "confirmed"
	signupStatusAttended  = "attended"
)

// localSignupStatus maps a legacy status onto the local enumeration using
// the same categorization as ShouldImportSignup, so filtering and mapping
// never disagree. By the time this runs the filter has already gated
// inclusion, so unmapped statuses degrade to confirmed instead of failing.
func localSignupStatus(statusID *int64, statusName string) string {
	switch categorize(statusID, statusName) {
	case categoryPending:
		return signupStatusPending
	case categoryAttended:
		return signupStatusAttended
	default:
		return signupStatusConfirmed
	}
}
