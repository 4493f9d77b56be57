// Package pending は、投稿直後にスレッドを再取得した際、
// どのレスがユーザー自身の投稿かを推定します。
package pending

import (
	"time"

	"GoImageBoardClient/internal/model"
	"GoImageBoardClient/internal/similarity"
)

// MarkupStripper は本文のマークアップを取り除きます。
type MarkupStripper interface {
	StripMarkup(raw string) string
}

// Snapshot は、推定に使うレス一覧の不変なスナップショットです。
// LastExisting がゼロ値の場合、全てのレスが候補になります。
type Snapshot struct {
	Posts           []model.Post
	FirstIsOriginal bool
	LastExisting    model.PostNumber
}

// UserPost は投稿されたレスの推定方法です。実装は NewThread と *SimilarComment に限られます。
type UserPost interface {
	// Resolve は、推定できた場合にレス番号と true を返します。
	Resolve(snapshot Snapshot) (model.PostNumber, bool)
	// Key は重複排除に使う値です。
	Key() string
	isUserPost()
}

// NewThread は、スレッドを新規作成した投稿です。
type NewThread struct{}

func (NewThread) isUserPost() {}

// Key は NewThread で共通の値を返します。
func (NewThread) Key() string { return "new-thread" }

// Resolve は、先頭のレスが親レスであると保証されている場合に限り、その番号を返します。
func (NewThread) Resolve(snapshot Snapshot) (model.PostNumber, bool) {
	if len(snapshot.Posts) == 0 || !snapshot.FirstIsOriginal {
		return model.PostNumber{}, false
	}
	return snapshot.Posts[0].Number(), true
}

// SimilarComment は、本文の類似度と投稿時刻の近さで自分のレスを探します。
type SimilarComment struct {
	signature   similarity.Signature
	submittedAt int64
	engine      similarity.Engine
	stripper    MarkupStripper
}

// NewSimilarComment は、comment のシグネチャを計算して SimilarComment を返します。
// submittedAt はミリ秒単位の UNIX 時刻です。stripper が nil の場合、本文をそのまま使います。
func NewSimilarComment(comment string, submittedAt int64, engine similarity.Engine, stripper MarkupStripper) *SimilarComment {
	if engine == nil {
		engine = similarity.NewJaccard(0)
	}
	return &SimilarComment{
		signature:   engine.WordSignature(comment),
		submittedAt: submittedAt,
		engine:      engine,
		stripper:    stripper,
	}
}

func (*SimilarComment) isUserPost() {}

// SubmittedAt は投稿時刻を返します。
func (s *SimilarComment) SubmittedAt() time.Time {
	return time.UnixMilli(s.submittedAt)
}

// Key は単語構成だけから求めるため、投稿時刻が異なっても同じ本文なら一致します。
func (s *SimilarComment) Key() string {
	return "similar:" + s.signature.Key()
}

// Equal は、単語構成が等しいかを返します。
func (s *SimilarComment) Equal(o *SimilarComment) bool {
	return s.signature.Equal(o.signature)
}

// Resolve は、LastExisting より新しいレスのうち本文が類似するものから、
// 投稿時刻との差が最も小さいレスを返します。差が等しい場合は先に現れたレスを選びます。
func (s *SimilarComment) Resolve(snapshot Snapshot) (model.PostNumber, bool) {
	var (
		best      model.PostNumber
		bestDelta int64
		found     bool
	)
	limited := !snapshot.LastExisting.IsZero()
	for _, p := range snapshot.Posts {
		if limited && !snapshot.LastExisting.Less(p.Number()) {
			continue
		}
		text := p.Comment()
		if s.stripper != nil {
			text = s.stripper.StripMarkup(text)
		}
		sig := s.engine.WordSignature(text)
		bothEmpty := len(sig) == 0 && len(s.signature) == 0
		if !bothEmpty && !s.engine.AreSimilar(s.signature, sig) {
			continue
		}
		delta := p.Timestamp() - s.submittedAt
		if delta < 0 {
			delta = -delta
		}
		if !found || delta < bestDelta {
			best, bestDelta, found = p.Number(), delta, true
		}
	}
	return best, found
}

// Dedup は、Key が等しい UserPost のうち最初のものだけを残します。
func Dedup(posts []UserPost) []UserPost {
	seen := make(map[string]struct{}, len(posts))
	out := posts[:0:0]
	for _, p := range posts {
		k := p.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
