package model

// SessionRecord 会话的持久化记录
// 序列化为 JSON 存入 sessions 表的 state_data 字段
type SessionRecord struct {
	PendingChanges map[string]string `json:"pending_changes"`
	Index          int               `json:"index"`
	ExcelFilename  string            `json:"excel_filename,omitempty"`
	LastFlushed    string            `json:"last_flushed,omitempty"`
	LastUpdated    string            `json:"last_updated"`
}
