package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080},
		Auth:      AuthConfig{JWTSecret: "0123456789abcdef"},
		Storage:   StorageConfig{RootDir: "./data"},
		Lifecycle: LifecycleConfig{DefaultGraceHours: 72},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"合法配置", func(*Config) {}, false},
		{"缺少 jwt_secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"jwt_secret 过短", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }, true},
		{"存储目录为空", func(c *Config) { c.Storage.RootDir = "  " }, true},
		{"宽限期非正", func(c *Config) { c.Lifecycle.DefaultGraceHours = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() err=%v，期望出错=%v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
auth:
  jwt_secret: "file-secret-0123456789"
storage:
  root_dir: /var/lib/period
lifecycle:
  default_grace_hours: 48
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PERIOD_LIFECYCLE_LEGACY_KEY_PROBE", "false")
	t.Setenv("PERIOD_SERVER_PORT", "9191")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("环境变量应覆盖配置文件，port=%d", cfg.Server.Port)
	}
	if cfg.Lifecycle.DefaultGraceHours != 48 {
		t.Errorf("default_grace_hours=%d", cfg.Lifecycle.DefaultGraceHours)
	}
	if cfg.Lifecycle.LegacyKeyProbe {
		t.Error("legacy_key_probe 应被环境变量关闭")
	}
	if cfg.Storage.RootDir != "/var/lib/period" {
		t.Errorf("root_dir=%s", cfg.Storage.RootDir)
	}
	if cfg.RateLimit.Limit != 60 {
		t.Errorf("rate_limit.limit 默认值应为 60，实际 %d", cfg.RateLimit.Limit)
	}
}

func TestLoad_MissingSecretFails(t *testing.T) {
	t.Setenv("PERIOD_AUTH_JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("缺少 jwt_secret 时应返回错误")
	}
}
