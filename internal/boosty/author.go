package boosty

import (
	"fmt"
	"regexp"
)

var authorRe = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9_.-]{0,63}$`)

// ValidateAuthor checks that author looks like a Boosty blog handle.
func ValidateAuthor(author string) error {
	if !authorRe.MatchString(author) {
		return fmt.Errorf("invalid author handle %q", author)
	}
	return nil
}
