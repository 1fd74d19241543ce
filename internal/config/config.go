// Package config 從 .env 檔、設定檔與環境變數載入憑證與參數。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// 設定路徑與環境變數名。憑證一律由外部注入，程式內不保留任何預設密鑰。
const (
	defaultConfigPath = "config.json"
	envConfigPath     = "CONFIG_PATH"

	envLineUserID      = "LINE_USER_ID"
	envLineSecret      = "LINE_CHANNEL_SECRET"
	envLineAccessToken = "LINE_CHANNEL_ACCESS_TOKEN"
	envOpenAIAPIKey    = "OPENAI_API_KEY"
	envOpenAIBaseURL   = "OPENAI_BASE_URL"
	envOpenAIModel     = "OPENAI_MODEL"
	envGoodinfoCookie  = "GOODINFO_COOKIE"
)

// 非憑證項目的預設值。
const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

type Config struct {
	LineUserID      string `json:"line_user_id"`
	LineSecret      string `json:"line_channel_secret"`
	LineAccessToken string `json:"line_channel_access_token"`

	OpenAIAPIKey  string `json:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url"`
	OpenAIModel   string `json:"openai_model"`

	GoodinfoCookie string `json:"goodinfo_cookie"`

	// RevenueColumns 非空時取代日曆推導的營收欄名。
	RevenueColumns []string `json:"revenue_columns"`
}

// Load 先讀 .env（存在才讀），再讀設定檔，最後由環境變數覆蓋；
// 未填的非憑證項目補預設值。設定檔路徑依序取 path 參數、envConfigPath、預設 config.json。
func Load(path string) *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	configPath := path
	if configPath == "" {
		configPath = os.Getenv(envConfigPath)
	}
	if configPath == "" {
		configPath = defaultConfigPath
	}
	if b, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(b, cfg); err != nil {
			log.Warn().Err(err).Str("path", configPath).Msg("設定檔格式有誤，內容未生效")
		}
	}

	overrides := map[string]*string{
		envLineUserID:      &cfg.LineUserID,
		envLineSecret:      &cfg.LineSecret,
		envLineAccessToken: &cfg.LineAccessToken,
		envOpenAIAPIKey:    &cfg.OpenAIAPIKey,
		envOpenAIBaseURL:   &cfg.OpenAIBaseURL,
		envOpenAIModel:     &cfg.OpenAIModel,
		envGoodinfoCookie:  &cfg.GoodinfoCookie,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}

	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = defaultOpenAIModel
	}
	return cfg
}

// Validate 啟動時檢查必要憑證，缺漏即回錯誤，不以任何內建值代打。
// notify 為 false（--no-notification）時不要求 LINE 憑證。
func (c *Config) Validate(notify bool) error {
	var missing []string
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		missing = append(missing, envOpenAIAPIKey)
	}
	if notify {
		if strings.TrimSpace(c.LineUserID) == "" {
			missing = append(missing, envLineUserID)
		}
		if strings.TrimSpace(c.LineAccessToken) == "" {
			missing = append(missing, envLineAccessToken)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("缺少必要設定: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ExpectedRevenueColumns 設定檔有指定時用指定值，否則依日曆推導。
func (c *Config) ExpectedRevenueColumns(now time.Time) []string {
	if len(c.RevenueColumns) > 0 {
		return c.RevenueColumns
	}
	return RevenueColumns(now)
}

// RevenueColumns 以當下時間回推，產生近 12 個月的營收欄名
//（上月起往前 12 個月，格式如「2024年6月營收 (億)」）。
func RevenueColumns(now time.Time) []string {
	cols := make([]string, 0, 12)
	m := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := 12; i >= 1; i-- {
		t := m.AddDate(0, -i, 0)
		cols = append(cols, fmt.Sprintf("%d年%d月營收 (億)", t.Year(), int(t.Month())))
	}
	return cols
}
