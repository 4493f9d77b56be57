package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"GoImageBoardClient/internal/adapter"
	"GoImageBoardClient/internal/attachment"
	"GoImageBoardClient/internal/config"
	"GoImageBoardClient/internal/network"
	"GoImageBoardClient/internal/similarity"
	"GoImageBoardClient/internal/store"

	"github.com/go-playground/log"
)

// Dependencies は、全てのセッションで共有するコンポーネントです。
type Dependencies struct {
	Client   *network.Client
	Store    *store.Store
	Matchers []attachment.EmbedMatcher
	Keys     attachment.ThumbnailKeyResolver
	Stripper Stripper
	Engine   similarity.Engine
}

// RunOptions は RunBoards の実行方法を指定します。
type RunOptions struct {
	// BoardName が空でなければ、その板だけを対象にします。
	BoardName string
	// Threads が空でなければ、設定のスレッド一覧の代わりに使います。
	Threads []string
	Watch   bool
	// Setup は、各セッションの最初の取得の前に呼び出されます。
	Setup func(*Session)
	// OnRefresh は、各取得の結果で呼び出されます。
	OnRefresh func(*Session, RefreshResult)
}

// NewBoardSession は、板の設定からアダプタを準備して Session を作成します。
func NewBoardSession(cfg *config.Config, board config.Board, threadNumber string, deps Dependencies) (*Session, error) {
	siteAdapter, err := adapter.GetAdapter(board.SiteAdapter)
	if err != nil {
		return nil, fmt.Errorf("サイトアダプタの取得に失敗しました (board=%s): %w", board.BoardName, err)
	}
	if err := siteAdapter.Prepare(deps.Client, board); err != nil {
		return nil, fmt.Errorf("サイト固有設定の適用に失敗しました (board=%s): %w", board.BoardName, err)
	}
	return NewSession(SessionOptions{
		Board:          board,
		Thread:         threadNumber,
		Adapter:        siteAdapter,
		Fetcher:        deps.Client,
		Store:          deps.Store,
		Matchers:       deps.Matchers,
		Keys:           deps.Keys,
		Stripper:       deps.Stripper,
		Engine:         deps.Engine,
		PendingTimeout: cfg.PendingTimeout(),
	})
}

// RunBoards は、有効な板の各スレッドについてセッションを作成し、並行して取得します。
// 同時に処理するスレッド数は max_concurrent_boards で制限されます。
func RunBoards(ctx context.Context, cfg *config.Config, deps Dependencies, opts RunOptions) (SessionStats, error) {
	type job struct {
		board  config.Board
		thread string
	}
	var jobs []job
	for _, board := range cfg.Boards {
		if opts.BoardName != "" && board.BoardName != opts.BoardName {
			continue
		}
		if !board.IsEnabled() && opts.BoardName == "" {
			log.Debugf("[%s] 無効な板のためスキップします", board.BoardName)
			continue
		}
		threads := board.Threads
		if len(opts.Threads) > 0 {
			threads = opts.Threads
		}
		for _, th := range threads {
			jobs = append(jobs, job{board: board, thread: th})
		}
	}
	if len(jobs) == 0 {
		return SessionStats{}, fmt.Errorf("対象のスレッドがありません (board=%q)", opts.BoardName)
	}

	limit := cfg.MaxConcurrentBoards
	if limit <= 0 {
		limit = 4
	}
	semaphore := make(chan struct{}, limit)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		total    = SessionStats{StartTime: time.Now()}
		failures int
	)
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			log.Info("シャットダウンシグナルにより、新規スレッドの処理を中止します。")
			goto wait
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			defer func() { <-semaphore }()

			stats, err := runSession(ctx, cfg, j.board, j.thread, deps, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				log.Errorf("[%s/%s] %v", j.board.BoardName, j.thread, err)
			}
			total.Refreshes += stats.Refreshes
			total.PostsAdded += stats.PostsAdded
			total.PostsRemoved += stats.PostsRemoved
			total.PostsChanged += stats.PostsChanged
			total.PendingResolved += stats.PendingResolved
			total.PendingExpired += stats.PendingExpired
		}(j)
	}
wait:
	wg.Wait()
	log.Infof("今回の実行が完了しました: %s", total.FormatSessionInfo())

	if failures > 0 {
		return total, fmt.Errorf("%d 件のスレッドの処理に失敗しました", failures)
	}
	return total, nil
}

func runSession(ctx context.Context, cfg *config.Config, board config.Board, threadNumber string, deps Dependencies, opts RunOptions) (SessionStats, error) {
	session, err := NewBoardSession(cfg, board, threadNumber, deps)
	if err != nil {
		return SessionStats{}, err
	}
	if _, err := session.Restore(); err != nil {
		log.Warnf("%s保存済みデータの読み込みに失敗しました: %v", session.prefix, err)
	}
	if opts.Setup != nil {
		opts.Setup(session)
	}

	var onRefresh func(RefreshResult)
	if opts.OnRefresh != nil {
		onRefresh = func(r RefreshResult) { opts.OnRefresh(session, r) }
	}

	if opts.Watch {
		err = session.Watch(ctx, onRefresh)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		return session.Stats(), err
	}

	result, err := session.Refresh(ctx)
	if err != nil {
		return session.Stats(), err
	}
	if onRefresh != nil {
		onRefresh(result)
	}
	return session.Stats(), nil
}
