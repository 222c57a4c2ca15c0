package store

// Queries against the server record database (PostgreSQL).
const (
	createUser = `
INSERT INTO users (login, name, password_hash)
VALUES ($1, $2, $3)
RETURNING user_id, login, name, password_hash, created_at;`

	findUserByLogin = `
SELECT user_id, login, name, password_hash, created_at
FROM users
WHERE login = $1;`

	selectRecordForUpdate = `
SELECT user_id, entity_type, entity_id, fields, version, deleted, created_at, updated_at, updated_by
FROM records
WHERE user_id = $1 AND entity_type = $2 AND entity_id = $3
FOR UPDATE;`

	insertRecord = `
INSERT INTO records (user_id, entity_type, entity_id, fields, version, deleted, created_at, updated_at, updated_by)
VALUES ($1, $2, $3, $4, 1, FALSE, $5, $5, $6)
RETURNING user_id, entity_type, entity_id, fields, version, deleted, created_at, updated_at, updated_by;`

	updateRecord = `
UPDATE records
SET fields = $4, version = version + 1, deleted = $5, updated_at = $6, updated_by = $7
WHERE user_id = $1 AND entity_type = $2 AND entity_id = $3
RETURNING user_id, entity_type, entity_id, fields, version, deleted, created_at, updated_at, updated_by;`
)
