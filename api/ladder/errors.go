/* errors.go
 * Contains the error taxonomy returned by ladder operations. Every error returned from this package wraps exactly one
 * of these sentinels so callers can branch on them with errors.Is
 * Authors: Zachary Bower
 */

package ladder

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidState  = errors.New("invalid state")
	ErrOutOfRange    = errors.New("out of range")
	ErrUnderflow     = errors.New("underflow")
	ErrConflict      = errors.New("conflict")
	ErrIO            = errors.New("io error")
)
