package core

import (
	"context"
	"fmt"

	"GoImageBoardClient/internal/config"
	"GoImageBoardClient/internal/model"
	"GoImageBoardClient/internal/store"

	"github.com/go-playground/log"
)

// VerificationResult は検証結果を表します。
type VerificationResult struct {
	TotalChecked  int
	TotalCorrupt  int
	TotalRepaired int
	TotalFailed   int
	Details       []string
}

// RunVerification は、保存済みの全スレッドを読み込み、読めないレコードや
// 設定にない板のスレッドを報告します。repair が true の場合は再取得して保存し直します。
func RunVerification(ctx context.Context, cfg *config.Config, deps Dependencies, boardName string, repair bool) (VerificationResult, error) {
	var result VerificationResult
	if deps.Store == nil {
		return result, fmt.Errorf("検証にはデータベースが必要です")
	}

	log.Info("検証モードを開始します...")
	if repair {
		log.Info("修復モード: 有効 (壊れたスレッドを再取得します)")
	}

	keys, err := deps.Store.Threads()
	if err != nil {
		return result, err
	}

	for _, key := range keys {
		if boardName != "" && key.Board != boardName {
			continue
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		result.TotalChecked++
		problem := verifyThread(deps.Store, key)
		if problem == "" {
			continue
		}
		result.TotalCorrupt++
		result.Details = append(result.Details, fmt.Sprintf("[%s] %s", key, problem))
		log.Warnf("[%s] %s", key, problem)

		if !repair {
			continue
		}
		if err := repairThread(ctx, cfg, deps, key); err != nil {
			result.TotalFailed++
			result.Details = append(result.Details, fmt.Sprintf("[%s] 修復失敗: %v", key, err))
			continue
		}
		result.TotalRepaired++
	}

	log.Infof("検証完了: チェック済み %d, 異常 %d, 修復 %d, 修復失敗 %d",
		result.TotalChecked, result.TotalCorrupt, result.TotalRepaired, result.TotalFailed)
	return result, nil
}

// verifyThread は、問題がなければ空文字を返します。
func verifyThread(st *store.Store, key store.ThreadKey) string {
	posts, skipped, err := st.LoadThread(key)
	if err != nil {
		return fmt.Sprintf("読み込み失敗: %v", err)
	}
	if len(skipped) > 0 {
		return fmt.Sprintf("読み込めないレス %d 件: %v", len(skipped), skipped)
	}
	if len(posts) == 0 {
		return "レスがありません"
	}
	if _, err := model.ParseThreadNumber(key.Thread); err != nil {
		return fmt.Sprintf("スレッド番号が不正です: %v", err)
	}
	return ""
}

func repairThread(ctx context.Context, cfg *config.Config, deps Dependencies, key store.ThreadKey) error {
	board, ok := cfg.FindBoard(key.Board)
	if !ok {
		return fmt.Errorf("板 '%s' が設定にありません", key.Board)
	}
	session, err := NewBoardSession(cfg, board, key.Thread, deps)
	if err != nil {
		return err
	}
	if _, err := session.Restore(); err != nil {
		return err
	}
	result, err := session.Refresh(ctx)
	if err != nil {
		return err
	}
	if result.Gone {
		return fmt.Errorf("スレッドは既に消えています")
	}
	// 差分がなくても読み飛ばしたレコードを消すために保存し直す
	return deps.Store.SaveThread(key, session.Thread().Posts())
}
