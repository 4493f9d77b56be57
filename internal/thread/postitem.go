package thread

import (
	"slices"
	"strings"

	"GoImageBoardClient/internal/attachment"
	"GoImageBoardClient/internal/model"
)

// MarkupStripper は HTML の本文をプレーンテキストに変換します。
type MarkupStripper interface {
	StripMarkup(raw string) string
}

// ItemFactory は、Post から PostItem を生成するための依存関係をまとめたものです。
type ItemFactory struct {
	Obtainer *attachment.Obtainer
	Stripper MarkupStripper
}

// PostItem は、Post と、そこから一度だけ計算される派生情報を保持します。
// 生成後は変更されないため、複数の goroutine から参照できます。
type PostItem struct {
	post         model.Post
	referencesTo []model.PostNumber
	attachments  []attachment.Item
	plainComment string
	fullName     string
}

// Wrap は post の参照先・添付項目・プレーンテキストを計算して PostItem を返します。
func (f ItemFactory) Wrap(post model.Post) *PostItem {
	obtainer := f.Obtainer
	if obtainer == nil {
		obtainer = &attachment.Obtainer{}
	}
	plain := post.Comment()
	if f.Stripper != nil {
		plain = f.Stripper.StripMarkup(plain)
	}
	return &PostItem{
		post:         post,
		referencesTo: CollectReferences(post.Comment()),
		attachments:  obtainer.Obtain(post),
		plainComment: plain,
		fullName:     strings.TrimSpace(post.Name() + " " + post.Tripcode()),
	}
}

func (i *PostItem) Post() model.Post         { return i.post }
func (i *PostItem) Number() model.PostNumber { return i.post.Number() }
func (i *PostItem) Subject() string          { return i.post.Subject() }
func (i *PostItem) PlainComment() string     { return i.plainComment }
func (i *PostItem) FullName() string         { return i.fullName }

// HasAttachments は表示用項目を1つ以上持つかを返します。
func (i *PostItem) HasAttachments() bool {
	return len(i.attachments) > 0
}

// Attachments は表示用項目を返します。項目がない場合は nil です。
func (i *PostItem) Attachments() []attachment.Item {
	return slices.Clone(i.attachments)
}

// ReferencesTo は、このレスが引用しているレス番号を昇順で返します。
func (i *PostItem) ReferencesTo() []model.PostNumber {
	return slices.Clone(i.referencesTo)
}

// RefersTo は、このレスが n を引用しているかを返します。
func (i *PostItem) RefersTo(n model.PostNumber) bool {
	_, found := slices.BinarySearchFunc(i.referencesTo, n, func(a, b model.PostNumber) int { return a.Compare(b) })
	return found
}
