package server

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"renamedesk/internal/api"
	"renamedesk/internal/config"
	"renamedesk/internal/service/bucket"
	"renamedesk/internal/service/drive"
	"renamedesk/internal/session"
	"renamedesk/internal/store"
)

// Server HTTP服务器
type Server struct {
	router   *gin.Engine
	store    *store.Store
	sessions *session.Manager
	api      *api.Handler
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) *Server {
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store（会话持久化）
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		dataDir = cfg.Data.DataDir
	}
	dbPath := filepath.Join(dataDir, "renamedesk.db")

	sqliteStore, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 远端文件库客户端；凭证缺失时预览降级为未找到，其余功能可用
	var resolve session.ResolveFunc
	driveClient, err := drive.NewClient(context.Background(),
		cfg.Drive.CredentialsFile, filepath.Join(dataDir, "scratch"))
	if err != nil {
		log.Printf("drive client unavailable, previews disabled: %v", err)
	} else {
		resolver := drive.NewResolver(driveClient, cfg.Drive.BaseFolders,
			time.Duration(cfg.Drive.LookupCacheTTL)*time.Second)
		resolve = resolver.Resolve
	}

	// 对象存储桶发布器；未配置时 publish 返回可见错误
	var publisher *bucket.Publisher
	if p, err := bucket.NewPublisher(cfg.Bucket.URL, cfg.Bucket.Key, cfg.Bucket.Name); err != nil {
		log.Printf("bucket publisher unavailable: %v", err)
	} else {
		publisher = p
	}

	sessions := session.NewManager(sqliteStore, resolve,
		time.Duration(cfg.Session.AutosaveInterval)*time.Second,
		time.Duration(cfg.Session.IdleTimeout)*time.Second)

	apiHandler := api.NewHandler(sessions, publisher, filepath.Join(dataDir, "exports"))

	s := &Server{
		router:   gin.Default(),
		store:    sqliteStore,
		sessions: sessions,
		api:      apiHandler,
	}

	s.setupRoutes(devMode)

	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(devMode bool) {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Session-ID")
		c.Header("Access-Control-Expose-Headers", "X-Session-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// API 路由
	apiGroup := s.router.Group("/api")
	{
		s.api.RegisterRoutes(apiGroup)
	}

	// 界面由外部前端承载；开发模式下代理到前端开发服务器
	if devMode {
		s.router.NoRoute(func(c *gin.Context) {
			c.Redirect(http.StatusTemporaryRedirect, "http://localhost:5173"+c.Request.URL.Path)
		})
	}
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 关闭底层资源
func (s *Server) Close() error {
	return s.store.Close()
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
