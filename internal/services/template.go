package services

import "strings"

const firstNamePlaceholder = "{{firstName}}"

// Personalize substitutes every {{firstName}} in template. An empty name becomes "Friend".
func Personalize(template, firstName string) string {
	if firstName == "" {
		firstName = "Friend"
	}
	return strings.ReplaceAll(template, firstNamePlaceholder, firstName)
}
