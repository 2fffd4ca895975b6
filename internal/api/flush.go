package api

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"renamedesk/internal/session"
)

const downloadTTL = 10 * time.Minute

// Flush 应用全部待定变更并导出新的 xlsx
// POST /api/flush
func (h *Handler) Flush(c *gin.Context) {
	id := sessionID(c)

	outPath, updated, err := h.sessions.Flush(id, h.exportDir)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoSheet):
			errorResponse(c, 2001, "请先上传表格")
		case errors.Is(err, session.ErrNothingPending):
			errorResponse(c, 3002, "没有待定变更")
		default:
			// 导出失败对操作者可见，附带错误类别
			errorResponse(c, 3001, fmt.Sprintf("导出失败 (%s): %v", errCategory(err), err))
		}
		return
	}

	token := h.downloads.put(outPath, downloadTTL)

	success(c, gin.H{
		"fileName": filepath.Base(outPath),
		"updated":  updated,
		"token":    token,
	})
}

// DownloadFlush 按令牌下载落盘导出文件
// GET /api/flush/download/:token
func (h *Handler) DownloadFlush(c *gin.Context) {
	token := c.Param("token")

	item, ok := h.downloads.get(token)
	if !ok {
		errorResponse(c, 3003, "下载链接已失效")
		return
	}

	if _, err := os.Stat(item.filePath); err != nil {
		errorResponse(c, 3003, "导出文件不存在")
		return
	}

	fileName := filepath.Base(item.filePath)
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s",
			fileName, url.PathEscape(fileName)))
	c.File(item.filePath)
}

// Publish 将最近一次落盘导出上传到对象存储桶（覆盖同名对象）
// POST /api/publish
func (h *Handler) Publish(c *gin.Context) {
	id := sessionID(c)

	// 尚未落盘：可见警告，不发起网络调用
	lastFlushed, err := h.sessions.LastFlushed(id)
	if err != nil {
		errorResponse(c, 4001, "请先落盘导出，再上传到存储桶")
		return
	}
	if _, err := os.Stat(lastFlushed); err != nil {
		errorResponse(c, 4001, "请先落盘导出，再上传到存储桶")
		return
	}

	if h.publisher == nil {
		errorResponse(c, 4002, "未配置对象存储桶")
		return
	}

	if err := h.publisher.Publish(lastFlushed); err != nil {
		// 上传失败对操作者可见，附带错误类别
		errorResponse(c, 4003, fmt.Sprintf("上传失败 (%s): %v", errCategory(err), err))
		return
	}

	success(c, gin.H{"fileName": filepath.Base(lastFlushed)})
}

// errCategory 取最内层错误的类型名，用于向操作者展示失败类别
func errCategory(err error) string {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return fmt.Sprintf("%T", err)
		}
		err = inner
	}
}
