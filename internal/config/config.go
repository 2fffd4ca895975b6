package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server  ServerConfig  `toml:"server"`
	Data    DataConfig    `toml:"data"`
	Drive   DriveConfig   `toml:"drive"`
	Bucket  BucketConfig  `toml:"bucket"`
	Session SessionConfig `toml:"session"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// DriveConfig 远端文件库（Google Drive）配置
type DriveConfig struct {
	CredentialsFile string   `toml:"credentials_file"`
	BaseFolders     []string `toml:"base_folders"`
	// 文件夹查询缓存有效期（秒）
	LookupCacheTTL int `toml:"lookup_cache_ttl"`
}

// BucketConfig 对象存储桶（Supabase Storage）配置
type BucketConfig struct {
	URL  string `toml:"url"`
	Key  string `toml:"key"`
	Name string `toml:"name"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	// 自动持久化间隔（秒）
	AutosaveInterval int `toml:"autosave_interval"`
	// 空闲超时（秒），超时后内存态作废、下次操作时从持久化记录恢复
	IdleTimeout int `toml:"idle_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20371,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Drive: DriveConfig{
			CredentialsFile: "service_account.json",
			BaseFolders:     []string{"Cog Culture Repository", "Clients", "Aarize Group"},
			LookupCacheTTL:  3600,
		},
		Bucket: BucketConfig{
			Name: "renamed_excel",
		},
		Session: SessionConfig{
			AutosaveInterval: 30,
			IdleTimeout:      300,
		},
	}
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 配置文件不存在，使用默认配置
			return config, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	// 环境变量覆盖（凭证与存储桶密钥不建议写进 config.toml）
	if v := os.Getenv("RENAMEDESK_DRIVE_CREDENTIALS"); v != "" {
		config.Drive.CredentialsFile = v
	}
	if v := os.Getenv("RENAMEDESK_BUCKET_URL"); v != "" {
		config.Bucket.URL = v
	}
	if v := os.Getenv("RENAMEDESK_BUCKET_KEY"); v != "" {
		config.Bucket.Key = v
	}

	return config, nil
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(config *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// EnsureDataDir 确保数据目录存在
// 数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	dataDir := filepath.Join(exeDir, config.Data.DataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"uploads", "exports", "scratch"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	exeDir, _ := GetExeDir()
	if exeDir == "" {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir, subdir, filename)
}
