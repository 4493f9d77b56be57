package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GoImageBoardClient/internal/config"
	"GoImageBoardClient/internal/core"
	"GoImageBoardClient/internal/embed"
	"GoImageBoardClient/internal/markup"
	"GoImageBoardClient/internal/network"
	"GoImageBoardClient/internal/similarity"
	"GoImageBoardClient/internal/store"

	"github.com/go-playground/log"
	"github.com/go-playground/log/handlers/console"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const defaultTimeFormat = "2006-01-02 15:04:05"

type options struct {
	configFile string
	board      string
	threads    []string
	watch      bool
	reply      string
	newThread  bool
	verify     bool
	repair     bool
}

// main関数はGIBCアプリケーションのエントリーポイントです。
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env が無くてもエラーにはしない
	_ = godotenv.Load()

	defaultConfig := os.Getenv("GIBC_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "config.json"
	}

	var opts options
	flagSet := pflag.NewFlagSet("gibc", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configFile, "config", "c", defaultConfig, "設定ファイルのパス (環境変数 GIBC_CONFIG)")
	flagSet.StringVarP(&opts.board, "board", "b", "", "対象の板名 (board_name)")
	flagSet.StringSliceVarP(&opts.threads, "thread", "t", nil, "対象のスレッド番号 (複数指定可)")
	flagSet.BoolVarP(&opts.watch, "watch", "w", false, "スレッドが消えるまで監視します")
	flagSet.StringVar(&opts.reply, "reply", "", "投稿した返信の本文。取得したレスと照合して番号を表示します")
	flagSet.BoolVar(&opts.newThread, "new-thread", false, "立てたスレッドを照合して番号を表示します")
	flagSet.BoolVar(&opts.verify, "verify", false, "保存済みのスレッドを検証します")
	flagSet.BoolVar(&opts.repair, "repair", false, "検証時に壊れたスレッドを再取得します")
	flagSet.BoolP("help", "h", false, "ヘルプを表示します")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if (opts.reply != "" || opts.newThread) && (opts.board == "" || len(opts.threads) != 1) {
		return fmt.Errorf("--reply と --new-thread には --board と1つの --thread が必要です")
	}

	cfg, err := config.LoadAndResolve(opts.configFile)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}
	closeLog, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps, closeDeps, err := newDependencies(cfg)
	if err != nil {
		return err
	}
	defer closeDeps()

	if opts.verify {
		result, err := core.RunVerification(ctx, cfg, deps, opts.board, opts.repair)
		if err != nil {
			return fmt.Errorf("検証中にエラーが発生しました: %w", err)
		}
		for _, detail := range result.Details {
			fmt.Println(detail)
		}
		return nil
	}

	submittedAt := time.Now()
	runOpts := core.RunOptions{
		BoardName: opts.board,
		Threads:   opts.threads,
		Watch:     opts.watch,
		Setup: func(s *core.Session) {
			if opts.newThread {
				s.ExpectNewThread()
			}
			if opts.reply != "" {
				s.ExpectReply(opts.reply, submittedAt)
			}
		},
		OnRefresh: func(s *core.Session, r core.RefreshResult) {
			for _, res := range r.Resolved {
				fmt.Printf("%s\t%s\n", s.Key(), res.Number)
			}
		},
	}

	log.Infof("実行を開始します (監視モード: %v)", opts.watch)
	stats, err := core.RunBoards(ctx, cfg, deps, runOpts)
	log.Infof("終了しました: %s", stats.FormatSessionInfo())
	return err
}

// newDependencies は、全てのセッションで共有するクライアントとデータベースを用意します。
func newDependencies(cfg *config.Config) (core.Dependencies, func(), error) {
	client, err := network.NewClient(cfg.Network)
	if err != nil {
		return core.Dependencies{}, nil, fmt.Errorf("ネットワーククライアントの初期化に失敗しました: %w", err)
	}
	matchers, err := embed.ByNames(cfg.Embeds)
	if err != nil {
		return core.Dependencies{}, nil, fmt.Errorf("埋め込みの設定が不正です: %w", err)
	}
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return core.Dependencies{}, nil, err
	}
	deps := core.Dependencies{
		Client:   client,
		Store:    st,
		Matchers: matchers,
		Stripper: markup.Stripper{},
		Engine:   similarity.NewJaccard(cfg.SimilarityThreshold),
	}
	return deps, func() { st.Close() }, nil
}

// setupLogger はコンソールへのログ出力を設定します。
// enable_log_file が true の場合はファイルにも出力します。
func setupLogger(cfg *config.Config) (func(), error) {
	cLog := console.New(true)
	cLog.SetTimestampFormat(defaultTimeFormat)

	closer := func() {}
	if cfg.EnableLogFile {
		f, err := os.OpenFile(cfg.LogFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("ログファイルを開けませんでした (path=%s): %w", cfg.LogFilePath, err)
		}
		cLog.SetDisplayColor(false)
		cLog.SetWriter(io.MultiWriter(os.Stderr, f))
		closer = func() { f.Close() }
	} else {
		cLog.SetWriter(os.Stderr)
	}

	log.AddHandler(cLog, levelsFrom(cfg.LogLevel)...)
	if cfg.EnableLogFile {
		log.Infof("ログ出力をファイル '%s' に開始しました", cfg.LogFilePath)
	}
	return closer, nil
}

// levelsFrom は、指定されたレベル以上のログレベルを返します。
func levelsFrom(name string) []log.Level {
	threshold := log.InfoLevel
	switch name {
	case "debug":
		threshold = log.DebugLevel
	case "warn":
		threshold = log.WarnLevel
	case "error":
		threshold = log.ErrorLevel
	}
	var levels []log.Level
	for _, lvl := range log.AllLevels {
		if lvl >= threshold {
			levels = append(levels, lvl)
		}
	}
	return levels
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `gibc: 画像掲示板のスレッドを取得・保存し、投稿したレスの番号を照合します。

Usage:
  gibc [flags]

Examples:
  gibc --board b --thread 123456789 --watch
  gibc --board b --thread 123456789 --reply "本文"
  gibc --verify --repair

Flags:
%s`, flagSet.FlagUsages())
}
