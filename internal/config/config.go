// Package config は、アプリケーションの設定ファイル(config.json)の構造定義と、
// その読み込み、解決（テンプレートのマージなど）に関する機能を提供します。
package config

import "time"

// 既定値
const (
	DefaultStorePath           = "gibc.db"
	DefaultLogLevel            = "info"
	DefaultLogFilePath         = "gibc.log"
	DefaultSimilarityThreshold = 0.5
	DefaultPendingTimeoutMs    = 10 * 60 * 1000
	DefaultWatchIntervalMs     = 30 * 1000
	DefaultRetryWaitMs         = 2000
)

// Config は config.json ファイル全体を表すルート構造体です。
type Config struct {
	ConfigVersion        string           `json:"config_version"`
	Network              NetworkSettings  `json:"network"`
	StorePath            string           `json:"store_path,omitempty"`
	LogLevel             string           `json:"log_level,omitempty"`
	EnableLogFile        bool             `json:"enable_log_file"`
	LogFilePath          string           `json:"log_file_path,omitempty"`
	SimilarityThreshold  float64          `json:"similarity_threshold,omitempty"`
	PendingTimeoutMillis int              `json:"pending_timeout_ms,omitempty"`
	MaxConcurrentBoards  int              `json:"max_concurrent_boards,omitempty"`
	Embeds               []string         `json:"embeds,omitempty"`
	BoardTemplates       map[string]Board `json:"board_templates"`
	Boards               []Board          `json:"boards"`
}

// PendingTimeout は、投稿の推定を諦めるまでの時間を返します。
func (c *Config) PendingTimeout() time.Duration {
	return time.Duration(c.PendingTimeoutMillis) * time.Millisecond
}

// FindBoard は board_name が name の板設定を返します。
func (c *Config) FindBoard(name string) (Board, bool) {
	for _, b := range c.Boards {
		if b.BoardName == name {
			return b, true
		}
	}
	return Board{}, false
}

// NetworkSettings は、HTTPリクエストに関するグローバルな設定を保持します。
type NetworkSettings struct {
	UserAgent               string            `json:"user_agent"`
	DefaultHeaders          map[string]string `json:"default_headers"`
	PerDomainIntervalMillis map[string]int    `json:"per_domain_interval_ms"`
	RequestTimeoutMillis    int               `json:"request_timeout_ms"`
}

// Board は監視対象の1つの板を定義します。
type Board struct {
	Enabled               *bool                  `json:"enabled,omitempty"`
	BoardName             string                 `json:"board_name,omitempty"`
	UseTemplate           string                 `json:"use_template,omitempty"`
	SiteAdapter           string                 `json:"site_adapter,omitempty"`
	BoardURL              string                 `json:"board_url,omitempty"`
	MediaURL              string                 `json:"media_url,omitempty"`
	Threads               []string               `json:"threads,omitempty"`
	WatchIntervalMillis   int                    `json:"watch_interval_ms,omitempty"`
	RetryCount            int                    `json:"retry_count,omitempty"`
	RetryWaitMillis       int                    `json:"retry_wait_ms,omitempty"`
	KeepDeleted           bool                   `json:"keep_deleted,omitempty"`
	FutabaCatalogSettings *FutabaCatalogSettings `json:"futaba_catalog_settings,omitempty"`
}

// IsEnabled は enabled が未指定の場合に true を返します。
func (b Board) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

// WatchInterval は監視間隔を返します。
func (b Board) WatchInterval() time.Duration {
	return time.Duration(b.WatchIntervalMillis) * time.Millisecond
}

// RetryWait はリトライ間の待機時間を返します。
func (b Board) RetryWait() time.Duration {
	return time.Duration(b.RetryWaitMillis) * time.Millisecond
}

// FutabaCatalogSettings は、ふたばちゃんねるの 'cxyl' Cookieの各値を定義します。
// 例: 9x100x20x0x0
type FutabaCatalogSettings struct {
	// Cols はカタログの横のカラム数です (cx)。
	Cols int `json:"cols"`
	// Rows はカタログの縦の行数です (cy)。
	Rows int `json:"rows"`
	// TitleLength はスレッドタイトルの最大表示文字数です (cl)。
	TitleLength int `json:"title_length"`
}
