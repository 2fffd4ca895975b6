package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"renamedesk/internal/service/bucket"
	"renamedesk/internal/session"
)

// Handler API 处理器
type Handler struct {
	sessions  *session.Manager
	publisher *bucket.Publisher // 未配置存储桶时为 nil
	exportDir string
	downloads *flushDownloadStore
}

// NewHandler 创建 API 处理器
func NewHandler(sessions *session.Manager, publisher *bucket.Publisher, exportDir string) *Handler {
	return &Handler{
		sessions:  sessions,
		publisher: publisher,
		exportDir: exportDir,
		downloads: newFlushDownloadStore(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 会话状态
	router.GET("/status", h.GetStatus)

	// 表格上传
	router.POST("/sheet", h.UploadSheet)

	// 逐行审核
	router.GET("/rows/current", h.GetCurrentRow)
	router.POST("/rows/next", h.NextRow)
	router.POST("/rows/prev", h.PrevRow)
	router.POST("/rows/save", h.SaveEdit)
	router.POST("/rows/reset", h.ResetRow)

	// 待定变更
	router.GET("/pending", h.ListPending)
	router.POST("/pending/clear", h.ClearPending)

	// 落盘导出与发布
	router.POST("/flush", h.Flush)
	router.GET("/flush/download/:token", h.DownloadFlush)
	router.POST("/publish", h.Publish)
}

// Response 通用响应
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func errorResponse(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// sessionID 取请求的会话标识
// 客户端未携带时生成新ID，并通过响应头回传由前端固定下来
func sessionID(c *gin.Context) string {
	id := c.GetHeader("X-Session-ID")
	if id == "" {
		id = uuid.New().String()
	}
	c.Header("X-Session-ID", id)
	return id
}
