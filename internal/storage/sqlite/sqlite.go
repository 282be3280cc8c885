package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// expandedKey is the app_state key holding the expanded contacts
const expandedKey = "buddylist.expanded"

type DB struct {
	db *sql.DB
}

// Message is one logged conversation line
type Message struct {
	ID        string
	Account   string
	Name      string
	Body      string
	Timestamp time.Time
	Outgoing  bool
}

// LogKey identifies a conversation: an account ID and a buddy or chat name
type LogKey struct {
	Account string
	Name    string
}

func New(dataDir string) (*DB, error) {
	return Open(filepath.Join(dataDir, "buddylist.db"))
}

// Open opens the database at path; ":memory:" gives a private in-memory one
func Open(path string) (*DB, error) {
	dsn := path + "?_journal_mode=WAL&_foreign_keys=on"
	if path == ":memory:" {
		dsn = "file::memory:?cache=private"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &DB{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			account TEXT NOT NULL,
			name TEXT NOT NULL,
			body TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			outgoing INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_name ON messages(account, name)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp)`,

		`CREATE TABLE IF NOT EXISTS app_state (
			key TEXT PRIMARY KEY,
			value TEXT
		)`,
	}

	for _, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (d *DB) SaveMessage(msg Message) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO messages (id, account, name, body, timestamp, outgoing)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.Account, msg.Name, msg.Body, msg.Timestamp.Unix(), msg.Outgoing)
	return err
}

// GetMessages returns up to limit messages of a conversation, oldest first
func (d *DB) GetMessages(account, name string, limit, offset int) ([]Message, error) {
	rows, err := d.db.Query(`
		SELECT id, body, timestamp, outgoing
		FROM messages
		WHERE account = ? AND name = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`, account, name, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg := Message{Account: account, Name: name}
		var ts int64
		if err := rows.Scan(&msg.ID, &msg.Body, &ts, &msg.Outgoing); err != nil {
			return nil, err
		}
		msg.Timestamp = time.Unix(ts, 0)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (d *DB) DeleteMessages(account, name string) error {
	_, err := d.db.Exec("DELETE FROM messages WHERE account = ? AND name = ?", account, name)
	return err
}

// LogSize returns the total number of bytes logged for a conversation
func (d *DB) LogSize(account, name string) (int64, error) {
	var size int64
	err := d.db.QueryRow(`
		SELECT COALESCE(SUM(LENGTH(CAST(body AS BLOB))), 0)
		FROM messages
		WHERE account = ? AND name = ?
	`, account, name).Scan(&size)
	return size, err
}

// LogSizes returns the logged bytes of every conversation
func (d *DB) LogSizes() (map[LogKey]int64, error) {
	rows, err := d.db.Query(`
		SELECT account, name, SUM(LENGTH(CAST(body AS BLOB)))
		FROM messages
		GROUP BY account, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sizes := make(map[LogKey]int64)
	for rows.Next() {
		var key LogKey
		var size int64
		if err := rows.Scan(&key.Account, &key.Name, &size); err != nil {
			return nil, err
		}
		sizes[key] = size
	}
	return sizes, rows.Err()
}

func (d *DB) SetAppState(key, value string) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO app_state (key, value)
		VALUES (?, ?)
	`, key, value)
	return err
}

func (d *DB) GetAppState(key string) (string, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM app_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (d *DB) DeleteAppState(key string) error {
	_, err := d.db.Exec("DELETE FROM app_state WHERE key = ?", key)
	return err
}

// SaveExpanded stores the keys of the expanded contacts
func (d *DB) SaveExpanded(keys []string) error {
	if len(keys) == 0 {
		return d.DeleteAppState(expandedKey)
	}
	encoded, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	return d.SetAppState(expandedKey, string(encoded))
}

// LoadExpanded returns the keys stored by SaveExpanded
func (d *DB) LoadExpanded() ([]string, error) {
	value, err := d.GetAppState(expandedKey)
	if err != nil || value == "" {
		return nil, err
	}
	var keys []string
	if err := json.Unmarshal([]byte(value), &keys); err != nil {
		return nil, fmt.Errorf("failed to decode expanded contacts: %w", err)
	}
	return keys, nil
}

func (d *DB) DeleteOldMessages(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	result, err := d.db.Exec("DELETE FROM messages WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d *DB) GetMessageCount() (int64, error) {
	var count int64
	err := d.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count)
	return count, err
}

func (d *DB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}
