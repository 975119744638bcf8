package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"teamchat/pkg/database"
	"teamchat/pkg/interfaces"
	"teamchat/pkg/types"
)

// Manager implements the interfaces.Store boundary over SQLite. Reads run
// concurrently against the pool; writes funnel through a single goroutine
// because SQLite allows one writer at a time.
type Manager struct {
	db           *sql.DB
	config       *database.Config
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

// writeOperation is one queued database write.
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewManager opens the database, applies migrations, validates the schema
// and starts the write loop.
func NewManager(config *database.Config) (*Manager, error) {
	if config == nil {
		config = database.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store configuration: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DatabasePath+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := database.ApplyPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite pragmas: %w", err)
	}

	if err := database.NewMigrationManager(db).ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	if err := database.NewSchemaValidator(db).ValidateTablesExist(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	manager := &Manager{
		db:           db,
		config:       config,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	manager.wg.Add(1)
	go manager.writeLoop()

	return manager, nil
}

// writeLoop processes all write operations in a single goroutine, retrying
// each failed write once after a delay.
func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			err := op.operation(m.db)
			if err != nil {
				log.Printf("store: write failed, retrying in 5 seconds: %v", err)
				time.Sleep(5 * time.Second)
				err = op.operation(m.db)
				if err != nil {
					log.Printf("store: write failed after retry: %v", err)
				}
			}
			op.result <- err

		case <-m.shutdown:
			return
		}
	}
}

// executeWrite queues a write operation and waits for completion.
func (m *Manager) executeWrite(operation func(*sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return interfaces.ErrStoreClosed
	}
	m.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case m.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(30 * time.Second):
		return fmt.Errorf("write operation timeout")
	case <-m.shutdown:
		return interfaces.ErrStoreClosed
	}
}

// GetChannelMembers returns the current member user IDs of a channel.
func (m *Manager) GetChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	exists, err := m.channelExists(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, interfaces.ErrChannelNotFound
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT user_id FROM channel_members WHERE channel_id = ? ORDER BY user_id`, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		members = append(members, userID)
	}
	return members, rows.Err()
}

// GetUserChannels returns the channel IDs a user belongs to.
func (m *Manager) GetUserChannels(ctx context.Context, userID string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT channel_id FROM channel_members WHERE user_id = ? ORDER BY channel_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []string
	for rows.Next() {
		var channelID string
		if err := rows.Scan(&channelID); err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		channels = append(channels, channelID)
	}
	return channels, rows.Err()
}

// SetUserStatus persists a presence transition.
func (m *Manager) SetUserStatus(ctx context.Context, userID, status string) error {
	if !types.IsValidStatus(status) {
		return types.ErrInvalidStatus
	}
	return m.executeWrite(func(db *sql.DB) error {
		result, err := db.ExecContext(ctx,
			`UPDATE users SET status = ? WHERE id = ?`, status, userID)
		if err != nil {
			return fmt.Errorf("failed to update user status: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return interfaces.ErrUserNotFound
		}
		return nil
	})
}

// InsertMessage persists a message. The caller assigns ID and CreatedAt;
// replies carry the parent message ID in the nullable parent_id column.
func (m *Manager) InsertMessage(ctx context.Context, message *types.Message) error {
	return m.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO messages (id, channel_id, author_id, parent_id, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			message.ID,
			message.ChannelID,
			message.AuthorID,
			message.ParentID,
			message.Content,
			message.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		return nil
	})
}

// GetChannelMessages returns top-level messages of a channel in
// chronological order, up to limit (0 means no limit).
func (m *Manager) GetChannelMessages(ctx context.Context, channelID string, limit int) ([]*types.Message, error) {
	query := `
		SELECT id, channel_id, author_id, parent_id, content, created_at
		FROM messages
		WHERE channel_id = ? AND parent_id IS NULL
		ORDER BY created_at ASC
	`
	args := []interface{}{channelID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// GetThreadReplies returns the replies under a parent message in
// chronological order.
func (m *Manager) GetThreadReplies(ctx context.Context, parentID string) ([]*types.Message, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, channel_id, author_id, parent_id, content, created_at
		FROM messages
		WHERE parent_id = ?
		ORDER BY created_at ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query thread replies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// CreateUser inserts a user. Provisioning/test helper, not part of the
// transport boundary.
func (m *Manager) CreateUser(ctx context.Context, userID, displayName string) error {
	if !types.IsValidUserID(userID) {
		return types.ErrInvalidUserID
	}
	return m.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO users (id, display_name, status) VALUES (?, ?, 'offline')`,
			userID, displayName)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	})
}

// CreateChannel inserts a channel. Provisioning/test helper.
func (m *Manager) CreateChannel(ctx context.Context, channelID, name string) error {
	if !types.IsValidChannelID(channelID) {
		return types.ErrInvalidChannelID
	}
	return m.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO channels (id, name) VALUES (?, ?)`, channelID, name)
		if err != nil {
			return fmt.Errorf("failed to insert channel: %w", err)
		}
		return nil
	})
}

// AddChannelMember adds a user to a channel. Provisioning/test helper.
func (m *Manager) AddChannelMember(ctx context.Context, channelID, userID string) error {
	return m.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO channel_members (channel_id, user_id) VALUES (?, ?)`,
			channelID, userID)
		if err != nil {
			return fmt.Errorf("failed to insert channel member: %w", err)
		}
		return nil
	})
}

// GetUserStatus returns the persisted presence of a user.
func (m *Manager) GetUserStatus(ctx context.Context, userID string) (string, error) {
	var status string
	err := m.db.QueryRowContext(ctx,
		`SELECT status FROM users WHERE id = ?`, userID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", interfaces.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query user status: %w", err)
	}
	return status, nil
}

// HealthCheck validates database connectivity and read access.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	var count int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM channels").Scan(&count); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}
	return nil
}

// Close shuts down the write loop and closes the database.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (m *Manager) channelExists(ctx context.Context, channelID string) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM channels WHERE id = ?`, channelID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check channel: %w", err)
	}
	return count > 0, nil
}

func scanMessages(rows *sql.Rows) ([]*types.Message, error) {
	var messages []*types.Message
	for rows.Next() {
		var message types.Message
		var parentID sql.NullString
		err := rows.Scan(
			&message.ID,
			&message.ChannelID,
			&message.AuthorID,
			&parentID,
			&message.Content,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if parentID.Valid {
			message.ParentID = &parentID.String
		}
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}
