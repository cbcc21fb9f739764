package controllers

import "strconv"

// formatID renders a numeric primary key the way it appears in email
// subjects and API payloads
func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
