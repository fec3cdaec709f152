package domain

import "errors"

var (
	// ErrInvalidAlias means the requested alias is empty, contains a
	// character outside [A-Za-z0-9_-], or is a reserved word.
	ErrInvalidAlias = errors.New("alias may only contain letters, digits, '_' or '-', and must not be reserved")

	// ErrAliasTaken means the requested alias is already in use.
	ErrAliasTaken = errors.New("alias already in use")

	// ErrCodeTaken is returned by repositories when an insert loses a
	// race on the short_code unique index.
	ErrCodeTaken = errors.New("short code already exists")

	// ErrAllocationExhausted means the random-code retry budget ran out.
	ErrAllocationExhausted = errors.New("could not allocate a unique short code")

	// ErrNotFound means no link exists for the given short code.
	ErrNotFound = errors.New("link not found")

	// ErrForbidden means the link exists but the caller may not access
	// it, including owner-gated operations on anonymous links.
	ErrForbidden = errors.New("not allowed")

	// ErrGone means the link exists but has expired.
	ErrGone = errors.New("link has expired")

	// ErrInvalidURL means the original URL is missing, relative,
	// non-http(s), or too long.
	ErrInvalidURL = errors.New("original URL must be an absolute http(s) URL of at most 2048 characters")
)
