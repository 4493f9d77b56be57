package pending

import (
	"strings"
	"testing"
	"unicode"

	"GoImageBoardClient/internal/model"
	"GoImageBoardClient/internal/similarity"
)

// bagEngine は、句読点を除いた単語の多重集合が等しい場合に類似と判定します。
type bagEngine struct{}

func (bagEngine) WordSignature(text string) similarity.Signature {
	words := strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	if len(words) == 0 {
		return nil
	}
	sig := make(similarity.Signature)
	for _, w := range words {
		sig[w]++
	}
	return sig
}

func (bagEngine) AreSimilar(a, b similarity.Signature) bool { return a.Equal(b) }

func post(major uint32, comment string, timestamp int64) model.Post {
	b := &model.Builder{Number: model.NewPostNumber(major), Comment: comment, Timestamp: timestamp}
	return b.Build(false)
}

func TestSimilarComment_PicksClosestTime(t *testing.T) {
	// Arrange
	resolver := NewSimilarComment("hello world", 1000, bagEngine{}, nil)
	snapshot := Snapshot{Posts: []model.Post{
		post(101, "off topic", 990),
		post(102, "hello world", 1010),
		post(103, "hello world!", 1200),
	}}

	// Act
	got, ok := resolver.Resolve(snapshot)

	// Assert
	if !ok || got != model.NewPostNumber(102) {
		t.Errorf("期待値: 102, 実際値: %v (ok=%v)", got, ok)
	}
}

func TestSimilarComment_RespectsLastExisting(t *testing.T) {
	resolver := NewSimilarComment("hello world", 1000, bagEngine{}, nil)
	snapshot := Snapshot{
		Posts: []model.Post{
			post(101, "off topic", 990),
			post(102, "hello world", 1010),
			post(103, "hello world!", 1200),
		},
		LastExisting: model.NewPostNumber(102),
	}

	got, ok := resolver.Resolve(snapshot)
	if !ok || got != model.NewPostNumber(103) {
		t.Errorf("期待値: 103, 実際値: %v (ok=%v)", got, ok)
	}

	snapshot.LastExisting = model.NewPostNumber(103)
	if got, ok := resolver.Resolve(snapshot); ok {
		t.Errorf("候補がない場合は推定できないはずです: %v", got)
	}
}

func TestSimilarComment_TieKeepsFirst(t *testing.T) {
	resolver := NewSimilarComment("same", 1000, bagEngine{}, nil)
	snapshot := Snapshot{Posts: []model.Post{
		post(5, "same", 900),
		post(6, "same", 1100),
	}}
	if got, _ := resolver.Resolve(snapshot); got != model.NewPostNumber(5) {
		t.Errorf("同じ時間差の場合は先のレスを選ぶべきです: %v", got)
	}
}

func TestSimilarComment_EmptyComments(t *testing.T) {
	resolver := NewSimilarComment("", 1000, bagEngine{}, nil)
	snapshot := Snapshot{Posts: []model.Post{
		post(1, "text", 1000),
		post(2, "", 5000),
	}}
	if got, ok := resolver.Resolve(snapshot); !ok || got != model.NewPostNumber(2) {
		t.Errorf("空の本文同士は一致するべきです: %v (ok=%v)", got, ok)
	}
}

func TestSimilarComment_UsesStripperAndDefaultEngine(t *testing.T) {
	resolver := NewSimilarComment("Hello World", 1000, nil, tagStripper{})
	snapshot := Snapshot{Posts: []model.Post{
		post(7, "<b>hello</b> <i>world</i>", 1500),
	}}
	if got, ok := resolver.Resolve(snapshot); !ok || got != model.NewPostNumber(7) {
		t.Errorf("マークアップを除いた本文で比較するべきです: %v (ok=%v)", got, ok)
	}
}

func TestNewThread_Resolve(t *testing.T) {
	posts := []model.Post{post(500, "op", 0), post(501, "reply", 0)}

	if got, ok := (NewThread{}).Resolve(Snapshot{Posts: posts, FirstIsOriginal: true}); !ok || got != model.NewPostNumber(500) {
		t.Errorf("期待値: 500, 実際値: %v", got)
	}
	if _, ok := (NewThread{}).Resolve(Snapshot{Posts: posts}); ok {
		t.Error("親レスの保証がない場合は推定できないはずです")
	}
	if _, ok := (NewThread{}).Resolve(Snapshot{FirstIsOriginal: true}); ok {
		t.Error("空のスナップショットでは推定できないはずです")
	}
}

func TestDedup(t *testing.T) {
	a := NewSimilarComment("hello world", 1000, nil, nil)
	b := NewSimilarComment("World, hello", 9000, nil, nil)
	c := NewSimilarComment("other", 1000, nil, nil)

	if !a.Equal(b) || a.Key() != b.Key() {
		t.Error("同じ単語構成の推定は等しいはずです")
	}
	got := Dedup([]UserPost{a, NewThread{}, b, c, NewThread{}})
	if len(got) != 3 || got[0] != UserPost(a) || got[2] != UserPost(c) {
		t.Errorf("重複排除の結果が不正です: %v", got)
	}
}

type tagStripper struct{}

func (tagStripper) StripMarkup(raw string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range raw {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
