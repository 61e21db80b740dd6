package repositories

import "errors"

// errDB is a generic database failure shared by the repository tests.
var errDB = errors.New("database unavailable")
