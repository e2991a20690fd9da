package stripe

import "strings"

// NormalizeStatus folds provider subscription statuses into the set the
// site reports: active, trialing, past_due, canceled, incomplete, none.
func NormalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "none"
	case "active":
		return "active"
	case "trialing":
		return "trialing"
	case "past_due", "unpaid":
		return "past_due"
	case "canceled", "incomplete_expired":
		return "canceled"
	case "incomplete", "paused":
		return "incomplete"
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}
