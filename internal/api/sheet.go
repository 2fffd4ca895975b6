package api

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"renamedesk/internal/service/sheet"
)

// UploadSheet 上传改名记录表格
// POST /api/sheet
func (h *Handler) UploadSheet(c *gin.Context) {
	id := sessionID(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		errorResponse(c, 1001, "请上传文件")
		return
	}
	defer file.Close()

	// 检查文件大小 (10MB)
	if header.Size > 10*1024*1024 {
		errorResponse(c, 1003, "文件过大，最大支持10MB")
		return
	}

	// 检查文件格式
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		errorResponse(c, 1002, "仅支持 .xlsx 和 .xls 格式")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		errorResponse(c, 1002, "读取文件失败")
		return
	}

	table, err := sheet.Load(bytes.NewReader(content), header.Filename)
	if err != nil {
		// 缺列属致命错误，消息中列出缺失列名，操作者需修正后重新上传
		errorResponse(c, 1002, "文件解析失败: "+err.Error())
		return
	}

	total, flagged := h.sessions.AttachTable(id, table)

	success(c, gin.H{
		"fileName":    header.Filename,
		"totalRows":   total,
		"flaggedRows": flagged,
		// flaggedRows 为 0 表示所有提议名均已合规
		"allValid": flagged == 0,
	})
}
