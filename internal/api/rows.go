package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"renamedesk/internal/session"
)

// GetStatus 获取会话状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	id := sessionID(c)
	success(c, h.sessions.GetStatus(id))
}

// GetCurrentRow 获取当前被标记行（含字段编辑状态与文件预览解析结果）
// GET /api/rows/current
func (h *Handler) GetCurrentRow(c *gin.Context) {
	id := sessionID(c)

	view, err := h.sessions.Current(c.Request.Context(), id)
	if err != nil {
		rowError(c, err)
		return
	}
	success(c, view)
}

// NextRow 下一行（末行时为空操作）
// POST /api/rows/next
func (h *Handler) NextRow(c *gin.Context) {
	h.navigate(c, 1)
}

// PrevRow 上一行（首行时为空操作）
// POST /api/rows/prev
func (h *Handler) PrevRow(c *gin.Context) {
	h.navigate(c, -1)
}

func (h *Handler) navigate(c *gin.Context, delta int) {
	id := sessionID(c)

	index, err := h.sessions.Navigate(id, delta)
	if err != nil {
		rowError(c, err)
		return
	}
	success(c, gin.H{"index": index})
}

// SaveEdit 保存当前行的字段编辑，候选名进入待定变更
// POST /api/rows/save
func (h *Handler) SaveEdit(c *gin.Context) {
	id := sessionID(c)

	var req struct {
		Fields []string `json:"fields"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, 1001, "参数错误")
		return
	}

	candidate, err := h.sessions.SaveEdit(c.Request.Context(), id, req.Fields)
	if err != nil {
		rowError(c, err)
		return
	}
	success(c, gin.H{"candidate": candidate})
}

// ResetRow 撤掉当前行的待定变更
// POST /api/rows/reset
func (h *Handler) ResetRow(c *gin.Context) {
	id := sessionID(c)

	if err := h.sessions.Reset(id); err != nil {
		rowError(c, err)
		return
	}
	success(c, gin.H{"reset": true})
}

// ListPending 待定变更汇总
// GET /api/pending
func (h *Handler) ListPending(c *gin.Context) {
	id := sessionID(c)
	success(c, h.sessions.Pending(id))
}

// ClearPending 清空全部待定变更
// POST /api/pending/clear
func (h *Handler) ClearPending(c *gin.Context) {
	id := sessionID(c)
	success(c, gin.H{"cleared": h.sessions.ClearPending(id)})
}

func rowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNoSheet):
		errorResponse(c, 2001, "请先上传表格")
	case errors.Is(err, session.ErrNoFlagged):
		errorResponse(c, 2002, "所有提议名均已合规")
	default:
		errorResponse(c, 2000, err.Error())
	}
}
