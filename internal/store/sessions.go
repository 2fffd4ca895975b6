package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"renamedesk/internal/model"
)

// SaveSession 保存会话记录（存在则覆盖）
func (s *Store) SaveSession(userID string, record *model.SessionRecord) error {
	record.LastUpdated = time.Now().Format(time.RFC3339)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (user_id, state_data, last_updated) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET state_data = ?, last_updated = ?
	`, userID, string(data), record.LastUpdated, string(data), record.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession 加载会话记录
// 记录不存在时返回 (nil, nil)
func (s *Store) LoadSession(userID string) (*model.SessionRecord, error) {
	var data string
	err := s.db.QueryRow("SELECT state_data FROM sessions WHERE user_id = ?", userID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var record model.SessionRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	if record.PendingChanges == nil {
		record.PendingChanges = make(map[string]string)
	}
	return &record, nil
}

// DeleteSession 删除会话记录
func (s *Store) DeleteSession(userID string) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE user_id = ?", userID)
	return err
}
