// Package gallery は、スレッド全体の画像・動画をレス番号順に並べ、
// ギャラリービューアで通し番号によりページ送りできるようにします。
package gallery

import (
	"sort"

	"GoImageBoardClient/internal/attachment"
	"GoImageBoardClient/internal/model"
)

// Item は、ギャラリーに表示される1つの添付ファイルです。
type Item struct {
	PostNumber model.PostNumber
	Attachment attachment.Item
}

// Indexed は FindIndex の対象となるレスです。
type Indexed interface {
	Number() model.PostNumber
	HasAttachments() bool
}

// Set は、レス番号からギャラリー項目への順序付きマップです。
// 同期は行わないため、所有するスレッドコンテナが排他制御を行います。
type Set struct {
	keys  []model.PostNumber
	items map[model.PostNumber][]Item
}

// NewSet は空の Set を返します。
func NewSet() *Set {
	return &Set{items: make(map[model.PostNumber][]Item)}
}

// Put は、ギャラリー表示かつ保存可能な項目だけを number に登録します。
// 該当する項目がない場合は何もしません。既存の登録も消さないため、
// 呼び出し側が Remove を呼ぶ必要があります。
func (s *Set) Put(number model.PostNumber, items []attachment.Item) {
	var filtered []Item
	for _, a := range items {
		if a.IsShowInGallery() && a.CanDownloadToStorage() {
			filtered = append(filtered, Item{PostNumber: number, Attachment: a})
		}
	}
	if len(filtered) == 0 {
		return
	}
	if s.items == nil {
		s.items = make(map[model.PostNumber][]Item)
	}
	if _, exists := s.items[number]; !exists {
		i := s.search(number)
		s.keys = append(s.keys, model.PostNumber{})
		copy(s.keys[i+1:], s.keys[i:])
		s.keys[i] = number
	}
	s.items[number] = filtered
}

// Remove は number の登録を削除します。
func (s *Set) Remove(number model.PostNumber) {
	if _, exists := s.items[number]; !exists {
		return
	}
	delete(s.items, number)
	i := s.search(number)
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
}

// Clear は全ての登録を削除します。
func (s *Set) Clear() {
	s.keys = nil
	s.items = make(map[model.PostNumber][]Item)
}

// Len は登録されている項目の総数を返します。
func (s *Set) Len() int {
	n := 0
	for _, list := range s.items {
		n += len(list)
	}
	return n
}

// Contains は number が登録されているかを返します。
func (s *Set) Contains(number model.PostNumber) bool {
	_, ok := s.items[number]
	return ok
}

// FindIndex は、target の最初の項目の通し番号を返します。
// target が添付ファイルを持たない場合、または登録されていない場合は -1 を返します。
func (s *Set) FindIndex(target Indexed) int {
	if !target.HasAttachments() {
		return -1
	}
	number := target.Number()
	index := 0
	for _, key := range s.keys {
		if key == number {
			return index
		}
		index += len(s.items[key])
	}
	return -1
}

// CreateList は全項目をレス番号順に平坦化した一覧を返します。
// 一覧の添字は FindIndex が返す通し番号と一致します。
func (s *Set) CreateList() []Item {
	list := make([]Item, 0, s.Len())
	for _, key := range s.keys {
		list = append(list, s.items[key]...)
	}
	return list
}

func (s *Set) search(number model.PostNumber) int {
	return sort.Search(len(s.keys), func(i int) bool { return !s.keys[i].Less(number) })
}
