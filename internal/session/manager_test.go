package session_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"renamedesk/internal/model"
	"renamedesk/internal/service/sheet"
	"renamedesk/internal/session"
)

// fakePersister 内存版会话持久化
type fakePersister struct {
	records map[string]*model.SessionRecord
	saves   int
	failing bool
}

func newFakePersister() *fakePersister {
	return &fakePersister{records: make(map[string]*model.SessionRecord)}
}

func (p *fakePersister) SaveSession(userID string, record *model.SessionRecord) error {
	p.saves++
	if p.failing {
		return context.DeadlineExceeded
	}
	// 持久化层存 JSON 副本，这里做浅拷贝隔离
	cp := *record
	cp.PendingChanges = make(map[string]string, len(record.PendingChanges))
	for k, v := range record.PendingChanges {
		cp.PendingChanges[k] = v
	}
	p.records[userID] = &cp
	return nil
}

func (p *fakePersister) LoadSession(userID string) (*model.SessionRecord, error) {
	r, ok := p.records[userID]
	if !ok {
		return nil, nil
	}
	return r, nil
}

func loadTestTable(t *testing.T, proposed ...string) *sheet.Table {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{
		"Type", "Original Name", "Proposed New Name", "Full Path",
		"Created Date", "Timestamp", "Action",
	}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		t.Fatalf("SetSheetRow failed: %v", err)
	}
	for i, name := range proposed {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			"File", "orig" + name[:1] + ".png", name, "/repo/file" + name[:1] + ".png",
			"2025-01-01", "2025-01-02", "rename",
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow failed: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	table, err := sheet.Load(bytes.NewReader(buf.Bytes()), "log.xlsx")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return table
}

const allPlaceholders = "Brand_Campaign_Channel_Asset_Format_Version_Date"

func TestResolverCalledOncePerRow(t *testing.T) {
	t.Parallel()

	calls := 0
	resolve := func(_ context.Context, _ *model.Row) *model.Resolution {
		calls++
		return &model.Resolution{Status: model.ResolutionNotFound}
	}

	m := session.NewManager(newFakePersister(), resolve, time.Minute, time.Hour)
	m.AttachTable("op", loadTestTable(t, "A"+allPlaceholders[1:]))

	first, err := m.Current(context.Background(), "op")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	second, err := m.Current(context.Background(), "op")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}

	if calls != 1 {
		t.Fatalf("resolver calls=%d, want 1 (negative result must be cached)", calls)
	}
	if first.Resolution != second.Resolution {
		t.Fatalf("cached resolution should be returned verbatim")
	}
}

func TestSaveThenResetLeavesTableUnchanged(t *testing.T) {
	t.Parallel()

	m := session.NewManager(newFakePersister(), nil, time.Minute, time.Hour)
	table := loadTestTable(t, allPlaceholders)
	m.AttachTable("op", table)

	edits := []string{"Acme", "Campaign", "Channel", "Asset", "Format", "Version", "Date"}
	candidate, err := m.SaveEdit(context.Background(), "op", edits)
	if err != nil {
		t.Fatalf("SaveEdit failed: %v", err)
	}
	if candidate != "Acme_Campaign_Channel_Asset_Format_Version_Date" {
		t.Fatalf("candidate=%q", candidate)
	}
	if len(m.Pending("op")) != 1 {
		t.Fatalf("pending=%d, want 1", len(m.Pending("op")))
	}

	if err := m.Reset("op"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if len(m.Pending("op")) != 0 {
		t.Fatalf("pending should be empty after reset")
	}

	// 表中存量名称在落盘前保持不变
	if table.Rows()[0].ProposedNewName != allPlaceholders {
		t.Fatalf("table mutated before flush: %q", table.Rows()[0].ProposedNewName)
	}
}

func TestNavigateClampsAtBounds(t *testing.T) {
	t.Parallel()

	m := session.NewManager(newFakePersister(), nil, time.Minute, time.Hour)
	m.AttachTable("op", loadTestTable(t, "A"+allPlaceholders[1:], "B"+allPlaceholders[1:]))

	if idx, _ := m.Navigate("op", -1); idx != 0 {
		t.Fatalf("prev at first index should clamp to 0, got %d", idx)
	}
	if idx, _ := m.Navigate("op", 1); idx != 1 {
		t.Fatalf("next should advance to 1, got %d", idx)
	}
	// 末行 Next 为空操作
	if idx, _ := m.Navigate("op", 1); idx != 1 {
		t.Fatalf("next at last index should clamp to 1, got %d", idx)
	}
}

func TestFlushAppliesAndClears(t *testing.T) {
	t.Parallel()

	m := session.NewManager(newFakePersister(), nil, time.Minute, time.Hour)
	table := loadTestTable(t, "A"+allPlaceholders[1:], "B"+allPlaceholders[1:])
	m.AttachTable("op", table)

	if _, err := m.SaveEdit(context.Background(), "op", []string{"", "Acme1", "", "", "", "", ""}); err != nil {
		t.Fatalf("SaveEdit failed: %v", err)
	}
	if _, err := m.Navigate("op", 1); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if _, err := m.SaveEdit(context.Background(), "op", []string{"", "Acme2", "", "", "", "", ""}); err != nil {
		t.Fatalf("SaveEdit failed: %v", err)
	}

	outPath, updated, err := m.Flush("op", t.TempDir())
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if updated != 2 {
		t.Fatalf("updated=%d, want 2", updated)
	}
	if filepath.Base(outPath) != sheet.DefaultExportName {
		t.Fatalf("outPath=%q", outPath)
	}
	if len(m.Pending("op")) != 0 {
		t.Fatalf("pending buffer should be cleared after flush")
	}

	if got, err := m.LastFlushed("op"); err != nil || got != outPath {
		t.Fatalf("LastFlushed=%q, %v", got, err)
	}
}

func TestFlushWithoutPending(t *testing.T) {
	t.Parallel()

	m := session.NewManager(newFakePersister(), nil, time.Minute, time.Hour)
	m.AttachTable("op", loadTestTable(t, allPlaceholders))

	if _, _, err := m.Flush("op", t.TempDir()); err != session.ErrNothingPending {
		t.Fatalf("err=%v, want ErrNothingPending", err)
	}
}

func TestRestoreFromPersistedRecord(t *testing.T) {
	t.Parallel()

	p := newFakePersister()
	p.records["op"] = &model.SessionRecord{
		PendingChanges: map[string]string{"/repo/fileA.png": "Acme_C_C_A_F_V_D"},
		Index:          1,
		ExcelFilename:  "log.xlsx",
	}

	m := session.NewManager(p, nil, time.Minute, time.Hour)
	st := m.GetStatus("op")
	if !st.Restored {
		t.Fatalf("session should report restored pending changes")
	}
	if st.PendingCount != 1 {
		t.Fatalf("PendingCount=%d, want 1", st.PendingCount)
	}
	if st.Index != 1 {
		t.Fatalf("Index=%d, want 1", st.Index)
	}
	if st.ExcelFilename != "log.xlsx" {
		t.Fatalf("ExcelFilename=%q", st.ExcelFilename)
	}
}

func TestPersistFailureDoesNotSurface(t *testing.T) {
	t.Parallel()

	p := newFakePersister()
	p.failing = true

	m := session.NewManager(p, nil, time.Minute, time.Hour)
	m.AttachTable("op", loadTestTable(t, allPlaceholders))

	// 持久化失败只记录日志，操作继续以内存态进行
	if _, err := m.SaveEdit(context.Background(), "op", []string{"Acme", "", "", "", "", "", ""}); err != nil {
		t.Fatalf("SaveEdit should not surface persist failure: %v", err)
	}
	if len(m.Pending("op")) != 1 {
		t.Fatalf("pending should be staged in memory")
	}
}

func TestIdleSessionRebuiltFromRecord(t *testing.T) {
	t.Parallel()

	p := newFakePersister()
	idle := 200 * time.Millisecond
	m := session.NewManager(p, nil, time.Minute, idle)

	m.AttachTable("op", loadTestTable(t, allPlaceholders))
	if _, err := m.SaveEdit(context.Background(), "op", []string{"Acme", "", "", "", "", "", ""}); err != nil {
		t.Fatalf("SaveEdit failed: %v", err)
	}

	time.Sleep(idle + 100*time.Millisecond)

	// 内存态作废：表格需重新上传，但待定变更从持久化记录恢复
	st := m.GetStatus("op")
	if st.SheetLoaded {
		t.Fatalf("idle session should drop the in-memory table")
	}
	if st.PendingCount != 1 {
		t.Fatalf("PendingCount=%d, want 1 restored", st.PendingCount)
	}
}
