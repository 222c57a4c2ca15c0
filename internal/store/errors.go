package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrLoginAlreadyExists is returned when an attempt to register a new user
	// fails because a user with the same login already exists in the database.
	ErrLoginAlreadyExists = errors.New("login already exists")

	// ErrNoUserWasFound is returned when a query expected to match at least one
	// user record produces an empty result set.
	ErrNoUserWasFound = errors.New("no user was found")

	// ErrMutationNotSaved is returned when an INSERT of a queued mutation
	// completes without error but the number of affected rows is zero,
	// indicating that nothing was actually persisted. The caller must treat
	// the enqueue as failed so the user can be warned before data is lost.
	ErrMutationNotSaved = errors.New("mutation was not saved")

	// ErrMutationNotFound is returned when a query or status update targets a
	// queued mutation id that does not exist in the local database.
	ErrMutationNotFound = errors.New("mutation was not found")

	// ErrRecordNotFound is returned when a query targets an entity record
	// (identified by user, entity type and entity id) that does not exist.
	ErrRecordNotFound = errors.New("record was not found")

	// ErrVersionConflict is returned when an optimistic-locking check fails:
	// the base version supplied by the client does not match the current
	// version stored in the database, meaning another device has modified the
	// record since the client last synchronized.
	ErrVersionConflict = errors.New("record version conflict occurred")

	// ErrRecordAlreadyExists is returned when a create targets an entity id
	// that already has a live record. Treated as a version conflict by the
	// sync flow: some other device created the record first.
	ErrRecordAlreadyExists = errors.New("record already exists")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row into a destination struct fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan rows")
)
