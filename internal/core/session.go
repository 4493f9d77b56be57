package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"GoImageBoardClient/internal/adapter"
	"GoImageBoardClient/internal/attachment"
	"GoImageBoardClient/internal/config"
	"GoImageBoardClient/internal/model"
	"GoImageBoardClient/internal/network"
	"GoImageBoardClient/internal/pending"
	"GoImageBoardClient/internal/similarity"
	"GoImageBoardClient/internal/store"
	"GoImageBoardClient/internal/thread"

	"github.com/go-playground/log"
)

// DefaultWatchInterval は、監視間隔が設定されていない場合の間隔です。
const DefaultWatchInterval = 30 * time.Second

// Fetcher はスレッドの取得元です。*network.Client が満たします。
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Stripper は、本文のプレーンテキスト化と投稿照合の両方で使う変換です。
type Stripper interface {
	StripMarkup(raw string) string
}

// SessionOptions は NewSession に渡す依存関係です。
// Store が nil の場合は保存を行いません。
type SessionOptions struct {
	Board          config.Board
	Thread         string
	Adapter        adapter.SiteAdapter
	Fetcher        Fetcher
	Store          *store.Store
	Matchers       []attachment.EmbedMatcher
	Keys           attachment.ThumbnailKeyResolver
	Stripper       Stripper
	Engine         similarity.Engine
	PendingTimeout time.Duration
	// Now はテスト用に時刻を差し替えるためのものです。
	Now func() time.Time
}

// Resolution は、照合により番号が判明した投稿です。
type Resolution struct {
	Key    string
	Number model.PostNumber
}

// RefreshResult は1回の取得の結果です。
type RefreshResult struct {
	Diff     Diff
	Resolved []Resolution
	Expired  []string
	// Gone はスレッドが 404/410 で消えたことを示します。
	Gone bool
}

type pendingEntry struct {
	post         pending.UserPost
	registeredAt time.Time
	lastExisting model.PostNumber
}

// Session は1つのスレッドの取得・差分適用・保存と、ユーザー投稿の照合を管理します。
type Session struct {
	opts      SessionOptions
	key       store.ThreadKey
	threadURL string
	number    model.PostNumber
	thread    *thread.Thread
	prefix    string

	// refreshMu は Refresh を直列化します。
	refreshMu sync.Mutex

	mu      sync.Mutex
	pending []pendingEntry
	state   SessionState
	stats   SessionStats
}

// NewSession は、板の設定とスレッド番号から Session を作成します。
// アダプタの Prepare は呼び出し側の責務です。
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Adapter == nil || opts.Fetcher == nil {
		return nil, errors.New("アダプタと取得元は必須です")
	}
	threadNumber, err := model.ParseThreadNumber(opts.Thread)
	if err != nil {
		return nil, fmt.Errorf("スレッド番号が不正です (board=%s): %w", opts.Board.BoardName, err)
	}
	major, _ := strconv.ParseUint(threadNumber, 10, 32)

	threadURL, err := opts.Adapter.BuildThreadURL(opts.Board.BoardURL, threadNumber)
	if err != nil {
		return nil, fmt.Errorf("スレッドURLの構築に失敗しました (board=%s, thread=%s): %w", opts.Board.BoardName, threadNumber, err)
	}
	locator, err := opts.Adapter.Locator(opts.Board.BoardURL)
	if err != nil {
		return nil, fmt.Errorf("Locatorの作成に失敗しました (board=%s): %w", opts.Board.BoardName, err)
	}
	if opts.Engine == nil {
		opts.Engine = similarity.NewJaccard(similarity.DefaultThreshold)
	}
	if opts.PendingTimeout <= 0 {
		opts.PendingTimeout = config.DefaultPendingTimeoutMs * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	factory := thread.ItemFactory{
		Obtainer: &attachment.Obtainer{Locator: locator, Matchers: opts.Matchers, Keys: opts.Keys},
	}
	if opts.Stripper != nil {
		factory.Stripper = opts.Stripper
	}

	key := store.ThreadKey{Board: opts.Board.BoardName, Thread: threadNumber}
	return &Session{
		opts:      opts,
		key:       key,
		threadURL: threadURL,
		number:    model.NewPostNumber(uint32(major)),
		thread:    thread.New(factory),
		prefix:    "[" + key.String() + "] ",
		stats:     SessionStats{StartTime: opts.Now()},
	}, nil
}

// Key は保存先のキーを返します。
func (s *Session) Key() store.ThreadKey { return s.key }

// ThreadURL は取得先のURLを返します。
func (s *Session) ThreadURL() string { return s.threadURL }

// Thread は、このセッションが所有するスレッドを返します。読み取り専用で使ってください。
func (s *Session) Thread() *thread.Thread { return s.thread }

// State は現在の状態を返します。
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats は統計情報のコピーを返します。
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Restore は、保存済みのレスがあればスレッドに読み込みます。
// 保存されていない場合は false を返します。
func (s *Session) Restore() (bool, error) {
	if s.opts.Store == nil {
		return false, nil
	}
	posts, skipped, err := s.opts.Store.LoadThread(s.key)
	if errors.Is(err, store.ErrThreadNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(skipped) > 0 {
		log.Warnf("%s読み込めないレスを %d 件読み飛ばしました: %v", s.prefix, len(skipped), skipped)
	}
	s.thread.Replace(posts)
	log.Debugf("%s保存済みのレス %d 件を読み込みました", s.prefix, len(posts))
	return true, nil
}

// ExpectReply は、投稿した返信を照合待ちとして登録します。
// 同じ単語構成の本文が既に登録されている場合は登録しません。
func (s *Session) ExpectReply(comment string, submittedAt time.Time) string {
	post := pending.NewSimilarComment(comment, submittedAt.UnixMilli(), s.opts.Engine, s.opts.Stripper)
	return s.expect(post)
}

// ExpectNewThread は、スレッドを立てたことを照合待ちとして登録します。
func (s *Session) ExpectNewThread() string {
	return s.expect(pending.NewThread{})
}

func (s *Session) expect(post pending.UserPost) string {
	entry := pendingEntry{post: post, registeredAt: s.opts.Now(), lastExisting: s.thread.LastNumber()}
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := make([]pending.UserPost, 0, len(s.pending)+1)
	for _, e := range s.pending {
		posts = append(posts, e.post)
	}
	if len(pending.Dedup(append(posts, post))) == len(posts) {
		log.Debugf("%s同じ内容の照合待ちが既にあります (key=%s)", s.prefix, post.Key())
		return post.Key()
	}
	s.pending = append(s.pending, entry)
	return post.Key()
}

// PendingCount は照合待ちの件数を返します。
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Refresh は、スレッドを取得して差分を適用し、保存と照合を行います。
func (s *Session) Refresh(ctx context.Context) (RefreshResult, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.setState(StateRefreshing)
	body, err := s.fetchWithRetry(ctx)
	if network.IsNotFound(err) {
		log.Infof("%sスレッドが消えました (url=%s)", s.prefix, s.threadURL)
		s.setState(StateGone)
		return RefreshResult{Gone: true}, nil
	}
	if err != nil {
		s.setState(StateError)
		return RefreshResult{}, fmt.Errorf("スレッドの取得に失敗しました (thread=%s): %w", s.key, err)
	}

	fetched, err := s.opts.Adapter.ParseThread(body, s.threadURL)
	if err != nil {
		s.setState(StateError)
		return RefreshResult{}, fmt.Errorf("スレッドの解析に失敗しました (thread=%s, size=%d bytes): %w", s.key, len(body), err)
	}

	old := s.thread.Posts()
	current := fetched
	if s.opts.Board.KeepDeleted {
		current = MergeDeleted(old, fetched)
	}
	result := RefreshResult{Diff: DiffPosts(old, current)}
	if !result.Diff.IsEmpty() {
		s.thread.Replace(current)
		log.Infof("%s追加 %d 件, 削除 %d 件, 変更 %d 件",
			s.prefix, len(result.Diff.Added), len(result.Diff.Removed), len(result.Diff.Changed))
		if s.opts.Store != nil {
			if err := s.opts.Store.SaveThread(s.key, current); err != nil {
				log.Warnf("%sスレッドの保存に失敗しました: %v", s.prefix, err)
			}
		}
	}

	result.Resolved, result.Expired = s.resolvePending(fetched)

	s.mu.Lock()
	s.state = StateIdle
	s.stats.Refreshes++
	s.stats.PostsAdded += len(result.Diff.Added)
	s.stats.PostsRemoved += len(result.Diff.Removed)
	s.stats.PostsChanged += len(result.Diff.Changed)
	s.stats.PendingResolved += len(result.Resolved)
	s.stats.PendingExpired += len(result.Expired)
	s.mu.Unlock()
	return result, nil
}

// resolvePending は、照合待ちの投稿を取得したレスと照合します。
// 見つからないものは期限まで残します。
func (s *Session) resolvePending(fetched []model.Post) ([]Resolution, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, nil
	}

	posts := append([]model.Post(nil), fetched...)
	firstIsOriginal := len(posts) > 0 && posts[0].Number() == s.number

	now := s.opts.Now()
	var (
		resolved []Resolution
		expired  []string
		remain   []pendingEntry
	)
	for _, e := range s.pending {
		snapshot := pending.Snapshot{Posts: posts, FirstIsOriginal: firstIsOriginal, LastExisting: e.lastExisting}
		if n, ok := e.post.Resolve(snapshot); ok {
			log.Infof("%s投稿の番号が判明しました (key=%s, number=%s)", s.prefix, e.post.Key(), n)
			resolved = append(resolved, Resolution{Key: e.post.Key(), Number: n})
			continue
		}
		if now.Sub(e.registeredAt) > s.opts.PendingTimeout {
			log.Warnf("%s照合待ちの投稿が期限切れになりました (key=%s)", s.prefix, e.post.Key())
			expired = append(expired, e.post.Key())
			continue
		}
		remain = append(remain, e)
	}
	s.pending = remain
	return resolved, expired
}

// fetchWithRetry は、リトライ可能なエラーの間だけ retry_count 回まで再試行します。
// 404などの恒久的なエラーの場合はリトライせず即座に失敗します。
func (s *Session) fetchWithRetry(ctx context.Context) ([]byte, error) {
	retryCount := s.opts.Board.RetryCount
	retryWait := s.opts.Board.RetryWait()
	var lastErr error
	for i := 0; i <= retryCount; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		body, err := s.opts.Fetcher.Get(ctx, s.threadURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var httpErr *network.HTTPError
		if errors.As(err, &httpErr) {
			if !httpErr.IsRetryable() {
				return nil, err
			}
			log.Warnf("%s取得失敗（リトライ可能、HTTP %d、試行 %d/%d）: %v", s.prefix, httpErr.StatusCode, i+1, retryCount+1, err)
		} else {
			log.Warnf("%s取得失敗（ネットワークエラー、試行 %d/%d）: %v", s.prefix, i+1, retryCount+1, err)
		}

		if i < retryCount {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryWait):
			}
		}
	}
	return nil, fmt.Errorf("取得がリトライ上限に達しました (url=%s, retry_count=%d): %w", s.threadURL, retryCount, lastErr)
}

// Watch は、スレッドが消えるか ctx が終了するまで、監視間隔ごとに Refresh を繰り返します。
// onRefresh が nil でなければ各取得の結果で呼び出されます。
func (s *Session) Watch(ctx context.Context, onRefresh func(RefreshResult)) error {
	interval := s.opts.Board.WatchInterval()
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	for {
		result, err := s.Refresh(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Errorf("%s%v。次のサイクルで再試行します。", s.prefix, err)
		} else if onRefresh != nil {
			onRefresh(result)
		}
		if result.Gone {
			return nil
		}

		s.setState(StateWatching)
		log.Debugf("%s次のチェックまで %v 待機します...", s.prefix, interval)
		select {
		case <-ctx.Done():
			s.setState(StateIdle)
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
