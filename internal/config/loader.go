package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// boardPatch は、板設定をデコードするための中間ヘルパー構造体です。
// nil でないフィールドだけがテンプレートの値を上書きします。
type boardPatch struct {
	Enabled               *bool                  `json:"enabled,omitempty"`
	BoardName             *string                `json:"board_name,omitempty"`
	UseTemplate           string                 `json:"use_template,omitempty"`
	SiteAdapter           *string                `json:"site_adapter,omitempty"`
	BoardURL              *string                `json:"board_url,omitempty"`
	MediaURL              *string                `json:"media_url,omitempty"`
	Threads               *[]string              `json:"threads,omitempty"`
	WatchIntervalMillis   *int                   `json:"watch_interval_ms,omitempty"`
	RetryCount            *int                   `json:"retry_count,omitempty"`
	RetryWaitMillis       *int                   `json:"retry_wait_ms,omitempty"`
	KeepDeleted           *bool                  `json:"keep_deleted,omitempty"`
	FutabaCatalogSettings *FutabaCatalogSettings `json:"futaba_catalog_settings,omitempty"`
}

// rawConfig は、設定ファイルをデコードするための中間構造体です。
type rawConfig struct {
	ConfigVersion        string           `json:"config_version"`
	Network              NetworkSettings  `json:"network"`
	StorePath            string           `json:"store_path"`
	LogLevel             string           `json:"log_level"`
	EnableLogFile        bool             `json:"enable_log_file"`
	LogFilePath          string           `json:"log_file_path"`
	SimilarityThreshold  float64          `json:"similarity_threshold"`
	PendingTimeoutMillis int              `json:"pending_timeout_ms"`
	MaxConcurrentBoards  int              `json:"max_concurrent_boards"`
	Embeds               []string         `json:"embeds"`
	BoardTemplates       map[string]Board `json:"board_templates"`
	Boards               []boardPatch     `json:"boards"`
}

// LoadAndResolve は、指定されたパスから設定ファイルを読み込み、解析と解決を行います。
func LoadAndResolve(path string) (*Config, error) {
	absPath, _ := filepath.Abs(path)
	cwd, _ := os.Getwd()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイル '%s' の読み込みに失敗しました (Abs: '%s', Cwd: '%s'): %w", path, absPath, cwd, err)
	}
	return ParseAndResolve(data)
}

// ParseAndResolve は、設定データのバイトスライスを解析し、テンプレートを解決して最終的な設定を返します。
// コメントと末尾のカンマを許容します。
func ParseAndResolve(data []byte) (*Config, error) {
	// jsonc.ToJSON はコメントを空白に置き換えるため、オフセットは元データと一致します。
	plain := jsonc.ToJSON(data)

	var rawCfg rawConfig
	if err := json.Unmarshal(plain, &rawCfg); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError

		if errors.As(err, &syntaxErr) {
			line, col := computeLineAndColumn(data, syntaxErr.Offset)
			return nil, fmt.Errorf("設定ファイルのJSON構文エラー (行 %d, 列 %d): %w", line, col, err)
		}
		if errors.As(err, &typeErr) {
			line, col := computeLineAndColumn(data, typeErr.Offset)
			return nil, fmt.Errorf("設定ファイルの型エラー (行 %d, 列 %d, フィールド '%s'): 期待値 %v, 実際 %v - %w",
				line, col, typeErr.Field, typeErr.Type, typeErr.Value, err)
		}
		return nil, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
	}

	const compatibleVersion = "1.0"
	if rawCfg.ConfigVersion != compatibleVersion {
		return nil, fmt.Errorf("サポートされていない設定バージョン '%s' です。'%s' が必要です。", rawCfg.ConfigVersion, compatibleVersion)
	}

	resolvedConfig := &Config{
		ConfigVersion:        rawCfg.ConfigVersion,
		Network:              rawCfg.Network,
		StorePath:            rawCfg.StorePath,
		LogLevel:             strings.ToLower(rawCfg.LogLevel),
		EnableLogFile:        rawCfg.EnableLogFile,
		LogFilePath:          rawCfg.LogFilePath,
		SimilarityThreshold:  rawCfg.SimilarityThreshold,
		PendingTimeoutMillis: rawCfg.PendingTimeoutMillis,
		MaxConcurrentBoards:  rawCfg.MaxConcurrentBoards,
		Embeds:               rawCfg.Embeds,
		BoardTemplates:       rawCfg.BoardTemplates,
		Boards:               make([]Board, 0, len(rawCfg.Boards)),
	}
	applyDefaults(resolvedConfig)

	if err := validateLogLevel(resolvedConfig.LogLevel); err != nil {
		return nil, err
	}
	if resolvedConfig.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("similarity_threshold は 0 から 1 の範囲で指定してください (value=%v)", resolvedConfig.SimilarityThreshold)
	}

	seen := make(map[string]bool, len(rawCfg.Boards))
	for i, patch := range rawCfg.Boards {
		var resolvedBoard Board
		if patch.UseTemplate != "" {
			template, ok := rawCfg.BoardTemplates[patch.UseTemplate]
			if !ok {
				boardName := "unknown"
				if patch.BoardName != nil {
					boardName = *patch.BoardName
				}
				return nil, fmt.Errorf("板 '%s' が未定義のテンプレート '%s' を使用しています", boardName, patch.UseTemplate)
			}
			resolvedBoard = template
		}
		applyPatch(&resolvedBoard, &patch)
		applyBoardDefaults(&resolvedBoard)

		if resolvedBoard.BoardName == "" {
			return nil, fmt.Errorf("%d 番目の板に board_name が設定されていません", i+1)
		}
		if seen[resolvedBoard.BoardName] {
			return nil, fmt.Errorf("板名 '%s' が重複しています", resolvedBoard.BoardName)
		}
		seen[resolvedBoard.BoardName] = true
		if resolvedBoard.SiteAdapter == "" || resolvedBoard.BoardURL == "" {
			return nil, fmt.Errorf("板 '%s' に site_adapter または board_url が設定されていません", resolvedBoard.BoardName)
		}
		resolvedConfig.Boards = append(resolvedConfig.Boards, resolvedBoard)
	}

	return resolvedConfig, nil
}

func applyDefaults(cfg *Config) {
	if cfg.StorePath == "" {
		cfg.StorePath = DefaultStorePath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFilePath == "" {
		cfg.LogFilePath = DefaultLogFilePath
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.PendingTimeoutMillis <= 0 {
		cfg.PendingTimeoutMillis = DefaultPendingTimeoutMs
	}
	if cfg.MaxConcurrentBoards <= 0 {
		cfg.MaxConcurrentBoards = 4
	}
}

func applyBoardDefaults(b *Board) {
	if b.WatchIntervalMillis <= 0 {
		b.WatchIntervalMillis = DefaultWatchIntervalMs
	}
	if b.RetryCount < 0 {
		b.RetryCount = 0
	}
	if b.RetryWaitMillis <= 0 {
		b.RetryWaitMillis = DefaultRetryWaitMs
	}
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("不正な log_level '%s' です (debug, info, warn, error のいずれか)", level)
}

// applyPatch は、patchの非nilフィールドをtargetに上書きします。
func applyPatch(target *Board, patch *boardPatch) {
	target.UseTemplate = patch.UseTemplate
	if patch.Enabled != nil {
		target.Enabled = patch.Enabled
	}
	if patch.BoardName != nil {
		target.BoardName = *patch.BoardName
	}
	if patch.SiteAdapter != nil {
		target.SiteAdapter = *patch.SiteAdapter
	}
	if patch.BoardURL != nil {
		target.BoardURL = *patch.BoardURL
	}
	if patch.MediaURL != nil {
		target.MediaURL = *patch.MediaURL
	}
	if patch.Threads != nil {
		target.Threads = *patch.Threads
	}
	if patch.WatchIntervalMillis != nil {
		target.WatchIntervalMillis = *patch.WatchIntervalMillis
	}
	if patch.RetryCount != nil {
		target.RetryCount = *patch.RetryCount
	}
	if patch.RetryWaitMillis != nil {
		target.RetryWaitMillis = *patch.RetryWaitMillis
	}
	if patch.KeepDeleted != nil {
		target.KeepDeleted = *patch.KeepDeleted
	}
	if patch.FutabaCatalogSettings != nil {
		target.FutabaCatalogSettings = patch.FutabaCatalogSettings
	}
}

// computeLineAndColumn は、バイトオフセットから行番号と列番号（1始まり）を計算します。
func computeLineAndColumn(data []byte, offset int64) (int, int) {
	if offset < 0 || int(offset) > len(data) {
		return 0, 0
	}
	line := 1
	lastLineStart := 0
	for i, b := range data {
		if int64(i) == offset {
			return line, i - lastLineStart + 1
		}
		if b == '\n' {
			line++
			lastLineStart = i + 1
		}
	}
	return line, int(offset) - lastLineStart + 1
}
