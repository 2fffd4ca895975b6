package session

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"sync"
	"time"

	"renamedesk/internal/model"
	"renamedesk/internal/service/sheet"
)

var (
	// ErrNoSheet 尚未上传表格
	ErrNoSheet = errors.New("no sheet loaded")
	// ErrNoFlagged 没有被标记的行
	ErrNoFlagged = errors.New("no flagged rows")
	// ErrNothingFlushed 尚未落盘导出过
	ErrNothingFlushed = errors.New("no flushed export yet")
	// ErrNothingPending 没有待定变更
	ErrNothingPending = errors.New("no pending changes")
)

// Persister 会话记录的外部持久化
type Persister interface {
	SaveSession(userID string, record *model.SessionRecord) error
	LoadSession(userID string) (*model.SessionRecord, error)
}

// ResolveFunc 行对应远端文件的解析函数
type ResolveFunc func(ctx context.Context, row *model.Row) *model.Resolution

// Manager 按会话ID管理各操作者会话
type Manager struct {
	persister Persister
	resolve   ResolveFunc
	autosave  time.Duration
	idle      time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// Session 单操作者会话的内存态
type Session struct {
	ID string

	mu       sync.Mutex
	table    *sheet.Table
	flagged  []*model.Row
	pending  map[string]string
	index    int
	rowCache map[string]*model.Resolution

	excelFilename string
	lastFlushed   string
	lastSave      time.Time
	lastActivity  time.Time
	restored      bool
}

// NewManager 创建会话管理器
func NewManager(persister Persister, resolve ResolveFunc, autosave, idle time.Duration) *Manager {
	return &Manager{
		persister: persister,
		resolve:   resolve,
		autosave:  autosave,
		idle:      idle,
		sessions:  make(map[string]*Session),
	}
}

// Get 获取或创建会话
// 空闲超过阈值的会话作废，重建并从持久化记录恢复
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if s, ok := m.sessions[id]; ok {
		s.mu.Lock()
		expired := m.idle > 0 && now.Sub(s.lastActivity) > m.idle
		s.mu.Unlock()
		if !expired {
			return s
		}
		delete(m.sessions, id)
	}

	s := &Session{
		ID:           id,
		pending:      make(map[string]string),
		rowCache:     make(map[string]*model.Resolution),
		lastSave:     now,
		lastActivity: now,
	}
	m.restoreLocked(s)
	m.sessions[id] = s
	return s
}

// restoreLocked 从持久化记录恢复会话（首次访问或空闲作废后）
func (m *Manager) restoreLocked(s *Session) {
	if m.persister == nil {
		return
	}
	record, err := m.persister.LoadSession(s.ID)
	if err != nil {
		log.Printf("could not load previous state for %s: %v", s.ID, err)
		return
	}
	if record == nil {
		return
	}
	if record.PendingChanges != nil {
		s.pending = record.PendingChanges
	}
	s.index = record.Index
	s.excelFilename = record.ExcelFilename
	s.lastFlushed = record.LastFlushed
	s.restored = len(s.pending) > 0
}

// touch 更新活跃时间并按间隔做机会性持久化
// 仅在操作到来时触发，没有后台定时器
func (m *Manager) touch(s *Session) {
	now := time.Now()
	s.lastActivity = now
	if m.autosave > 0 && now.Sub(s.lastSave) > m.autosave && len(s.pending) > 0 {
		m.persistLocked(s)
	}
}

// persistLocked 持久化会话记录
// 失败仅记录日志，不打断操作者（会话继续以内存态运行）
func (m *Manager) persistLocked(s *Session) {
	s.lastSave = time.Now()
	if m.persister == nil {
		return
	}
	record := &model.SessionRecord{
		PendingChanges: s.pending,
		Index:          s.index,
		ExcelFilename:  s.excelFilename,
		LastFlushed:    s.lastFlushed,
	}
	if err := m.persister.SaveSession(s.ID, record); err != nil {
		log.Printf("failed to save state for %s: %v", s.ID, err)
	}
}

// AttachTable 绑定上传的表格并计算被标记行子集
// 恢复的索引超出新子集范围时收敛到边界
func (m *Manager) AttachTable(id string, table *sheet.Table) (total, flagged int) {
	s := m.Get(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table = table
	s.flagged = table.Flagged()
	if s.excelFilename == "" {
		s.excelFilename = table.FileName()
	}
	s.index = clamp(s.index, len(s.flagged))
	m.touch(s)
	m.persistLocked(s)
	return table.Len(), len(s.flagged)
}

// Status 会话概览
type Status struct {
	SheetLoaded   bool   `json:"sheetLoaded"`
	ExcelFilename string `json:"excelFilename,omitempty"`
	TotalRows     int    `json:"totalRows"`
	FlaggedRows   int    `json:"flaggedRows"`
	PendingCount  int    `json:"pendingCount"`
	Index         int    `json:"index"`
	Restored      bool   `json:"restored"`
	LastFlushed   string `json:"lastFlushed,omitempty"`
}

// GetStatus 获取会话概览
func (m *Manager) GetStatus(id string) Status {
	s := m.Get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	m.touch(s)

	st := Status{
		ExcelFilename: s.excelFilename,
		PendingCount:  len(s.pending),
		Index:         s.index,
		Restored:      s.restored,
	}
	if s.lastFlushed != "" {
		st.LastFlushed = filepath.Base(s.lastFlushed)
	}
	if s.table != nil {
		st.SheetLoaded = true
		st.TotalRows = s.table.Len()
		st.FlaggedRows = len(s.flagged)
	}
	return st
}

// RowView 当前被标记行的完整视图
type RowView struct {
	Index      int                `json:"index"`
	Total      int                `json:"total"`
	Row        *model.Row         `json:"row"`
	Fields     []model.FieldState `json:"fields"`
	Candidate  string             `json:"candidate"`
	Pending    string             `json:"pending,omitempty"`
	Resolution *model.Resolution  `json:"resolution"`
}

// Current 获取当前被标记行及其预览解析结果
// 解析结果按 (FullPath, OriginalName) 做会话级缓存，负结果同样缓存、不重试
func (m *Manager) Current(ctx context.Context, id string) (*RowView, error) {
	s := m.Get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	m.touch(s)

	if s.table == nil {
		return nil, ErrNoSheet
	}
	if len(s.flagged) == 0 {
		return nil, ErrNoFlagged
	}

	s.index = clamp(s.index, len(s.flagged))
	row := s.flagged[s.index]

	current := row.ProposedNewName
	pendingName := s.pending[row.Key()]
	if pendingName != "" {
		current = pendingName
	}

	view := &RowView{
		Index:      s.index,
		Total:      len(s.flagged),
		Row:        row,
		Fields:     model.FieldStates(current),
		Candidate:  current,
		Pending:    pendingName,
		Resolution: m.resolveCached(ctx, s, row),
	}
	return view, nil
}

// resolveCached 行解析缓存：命中直接返回（含负结果），未命中才调用解析器
func (m *Manager) resolveCached(ctx context.Context, s *Session, row *model.Row) *model.Resolution {
	cacheKey := row.FullPath + "_" + row.OriginalName
	if cached, ok := s.rowCache[cacheKey]; ok {
		return cached
	}

	var res *model.Resolution
	if m.resolve != nil {
		res = m.resolve(ctx, row)
	} else {
		// 未配置远端文件库时不做网络调用
		res = &model.Resolution{Status: model.ResolutionFailed}
	}
	s.rowCache[cacheKey] = res
	return res
}

// Navigate 移动当前索引（delta 为 ±1），夹取在边界内并持久化
func (m *Manager) Navigate(id string, delta int) (int, error) {
	s := m.Get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	m.touch(s)

	if s.table == nil {
		return 0, ErrNoSheet
	}
	s.index = clamp(s.index+delta, len(s.flagged))
	m.persistLocked(s)
	return s.index, nil
}

// SaveEdit 以提交的 7 个字段值生成候选名并写入待定变更
// 不可编辑位置忽略提交值；随后持久化
func (m *Manager) SaveEdit(ctx context.Context, id string, edits []string) (string, error) {
	s := m.Get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	m.touch(s)

	if s.table == nil {
		return "", ErrNoSheet
	}
	if len(s.flagged) == 0 {
		return "", ErrNoFlagged
	}

	s.index = clamp(s.index, len(s.flagged))
	row := s.flagged[s.index]

	current := row.ProposedNewName
	if pendingName := s.pending[row.Key()]; pendingName != "" {
		current = pendingName
	}

	candidate := model.ComposeName(current, edits)
	s.pending[row.Key()] = candidate
	m.persistLocked(s)
	return candidate, nil
}

// Reset 撤掉当前行的待定变更（表中存量名称不受影响，直到落盘）
func (m *Manager) Reset(id string) error {
	s := m.Get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	m.touch(s)

	if s.table == nil {
		return ErrNoSheet
	}
	if len(s.flagged) == 0 {
		return ErrNoFlagged
	}

	s.index = clamp(s.index, len(s.flagged))
	row := s.flagged[s.index]
	delete(s.pending, row.Key())
	m.persistLocked(s)
	return nil
}

// ClearPending 清空全部待定变更
func (m *Manager) ClearPending(id string) int {
	s := m.Get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	m.touch(s)

	n := len(s.pending)
	s.pending = make(map[string]string)
	m.persistLocked(s)
	return n
}

// PendingEntry 待定变更汇总条目
type PendingEntry struct {
	Key     string `json:"key"`
	NewName string `json:"newName"`
}

// Pending 列出全部待定变更
func (m *Manager) Pending(id string) []PendingEntry {
	s := m.Get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	m.touch(s)

	entries := make([]PendingEntry, 0, len(s.pending))
	for k, v := range s.pending {
		entries = append(entries, PendingEntry{Key: k, NewName: v})
	}
	return entries
}

// Flush 将全部待定变更写入表格并导出新的 xlsx
// 应用后清空缓冲，记录导出文件路径并持久化；返回 (导出路径, 更新行数)
func (m *Manager) Flush(id, exportDir string) (string, int, error) {
	s := m.Get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	m.touch(s)

	if s.table == nil {
		return "", 0, ErrNoSheet
	}
	if len(s.pending) == 0 {
		return "", 0, ErrNothingPending
	}

	updated := s.table.Apply(s.pending)

	outPath := filepath.Join(exportDir, sheet.DefaultExportName)
	if err := s.table.Export(outPath); err != nil {
		return "", 0, err
	}

	s.lastFlushed = outPath
	s.pending = make(map[string]string)
	m.persistLocked(s)
	return outPath, updated, nil
}

// LastFlushed 最近一次落盘导出的文件路径
func (m *Manager) LastFlushed(id string) (string, error) {
	s := m.Get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	m.touch(s)

	if s.lastFlushed == "" {
		return "", ErrNothingFlushed
	}
	return s.lastFlushed, nil
}

// clamp 将索引夹取到 [0, count-1]（count 为 0 时归零）
func clamp(index, count int) int {
	if count <= 0 {
		return 0
	}
	if index < 0 {
		return 0
	}
	if index >= count {
		return count - 1
	}
	return index
}
