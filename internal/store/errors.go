package store

import "errors"

// Sentinels matched with errors.Is at the API boundary. ErrAlreadyExists is
// wrapped with the conflicting natural key.
var (
	ErrBookNotFound  = errors.New("book not found")
	ErrCopyNotFound  = errors.New("copy not found")
	ErrAlreadyExists = errors.New("already exists")
)
