/* models.go
 * This file contain the errors and helper functions that are used by api consumers
 * Authors: Zachary Bower
 */

package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is returned when a command argument is empty or malformed before the ladder is consulted
var ErrInvalidInput = errors.New("invalid input")

// Mention formats a Discord user id so it renders as a ping
func Mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// mentionAll formats a list of user ids as a comma separated list of mentions
func mentionAll(userIDs []string) string {
	mentions := make([]string, len(userIDs))
	for i, id := range userIDs {
		mentions[i] = Mention(id)
	}
	return strings.Join(mentions, ", ")
}

// cleanName strips the quote characters Discord clients like to insert and surrounding whitespace
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "“", "")
	name = strings.ReplaceAll(name, "”", "")
	return strings.TrimSpace(name)
}
