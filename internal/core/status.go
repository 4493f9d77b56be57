// Package core は、スレッドの取得・差分適用・保存・投稿の照合を行うセッションを実装します。
package core

import (
	"fmt"
	"time"
)

// SessionState はセッションの状態を表すenumです。
type SessionState int

const (
	StateIdle       SessionState = iota // アイドル
	StateRefreshing                     // 取得中
	StateWatching                       // 監視中
	StateGone                           // スレッド消失
	StateError                          // エラー
)

// String は SessionState を人間可読な文字列に変換します。
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "アイドル"
	case StateRefreshing:
		return "取得中"
	case StateWatching:
		return "監視中"
	case StateGone:
		return "スレッド消失"
	case StateError:
		return "エラー"
	default:
		return "不明"
	}
}

// SessionStats はセッション統計情報を管理します。
type SessionStats struct {
	StartTime       time.Time // 開始時刻
	Refreshes       int       // 取得回数
	PostsAdded      int       // 追加されたレス数
	PostsRemoved    int       // 消えたレス数
	PostsChanged    int       // 内容が変わったレス数
	PendingResolved int       // 番号が判明した投稿数
	PendingExpired  int       // 期限切れで破棄した投稿数
}

// FormatSessionInfo はセッション統計情報を文字列にフォーマットします。
func (s SessionStats) FormatSessionInfo() string {
	uptime := time.Since(s.StartTime)
	hours := int(uptime.Hours())
	minutes := int(uptime.Minutes()) % 60

	return fmt.Sprintf("起動: %dh%dm | 取得: %d | 追加: %d | 削除: %d | 変更: %d | 照合: %d/%d",
		hours, minutes, s.Refreshes, s.PostsAdded, s.PostsRemoved, s.PostsChanged,
		s.PendingResolved, s.PendingResolved+s.PendingExpired)
}
