package lake

import "regexp"

// messageIDChars strips everything but alphanumerics from a message id so
// the id segment cannot collide with the key namespace separators.
var messageIDChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// filenameChars keeps alphanumerics plus . _ - in filenames.
var filenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeMessageID reduces a message id to alphanumerics.
func SanitizeMessageID(id string) string {
	return messageIDChars.ReplaceAllString(id, "")
}

// SanitizeFilename reduces a filename to alphanumerics and . _ -.
func SanitizeFilename(name string) string {
	return filenameChars.ReplaceAllString(name, "")
}
