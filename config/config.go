package config

import (
	"os"
	"strconv"
)

// Config 进程级配置，启动时从环境变量读取一次，之后只读。
type Config struct {
	Port       string
	AppEnv     string
	AdminToken string

	MySQLDSN  string
	RedisAddr string

	Comfly ComflyConfig
	Toapis ToapisConfig
	ArkKey string

	OSS OSSConfig
}

// ComflyConfig comfly 各档位密钥分开配置，缺哪个档位哪个档位不可用。
type ComflyConfig struct {
	BaseURL     string
	Key         string // default 档（逆向）
	PremiumKey  string
	OriginalKey string
}

type ToapisConfig struct {
	BaseURL string
	Key     string
}

// OSSConfig 对象存储配置（S3 协议，endpoint + AK/SK + bucket）。
type OSSConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	UseSSL          bool
	CustomDomain    string // 可选，设置后对外 URL 用自定义域名拼接
}

// Configured 四项（endpoint、AK、SK、bucket）都配了才算配置完成。
func (o OSSConfig) Configured() bool {
	return o.Endpoint != "" && o.AccessKeyID != "" && o.AccessKeySecret != "" && o.Bucket != ""
}

// Load 从环境变量装配配置。调用方负责先 godotenv.Load()。
func Load() *Config {
	return &Config{
		Port:       getenv("PORT", "3000"),
		AppEnv:     getenv("APP_ENV", "development"),
		AdminToken: os.Getenv("ADMIN_TOKEN"),
		MySQLDSN:   getenv("MYSQL_DSN", "root:123456@tcp(127.0.0.1:3306)/dramagic?parseTime=true&loc=Local"),
		RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),
		Comfly: ComflyConfig{
			BaseURL:     getenv("COMFLY_BASE_URL", "https://ai.comfly.chat"),
			Key:         os.Getenv("COMFLY_API_KEY"),
			PremiumKey:  os.Getenv("COMFLY_API_KEY_PREMIUM"),
			OriginalKey: os.Getenv("COMFLY_API_KEY_ORIGINAL"),
		},
		Toapis: ToapisConfig{
			BaseURL: getenv("TOAPIS_BASE_URL", "https://api.toapis.com"),
			Key:     os.Getenv("TOAPIS_API_KEY"),
		},
		ArkKey: os.Getenv("ARK_API_KEY"),
		OSS: OSSConfig{
			Endpoint:        os.Getenv("OSS_ENDPOINT"),
			Region:          os.Getenv("OSS_REGION"),
			AccessKeyID:     os.Getenv("OSS_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("OSS_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("OSS_BUCKET"),
			UseSSL:          getenvBool("OSS_USE_SSL", true),
			CustomDomain:    os.Getenv("OSS_CUSTOM_DOMAIN"),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
