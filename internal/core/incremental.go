package core

import (
	"bytes"
	"slices"

	"GoImageBoardClient/internal/model"
)

// Diff は、前回の取得内容と今回の取得内容の差分です。番号はいずれも昇順です。
type Diff struct {
	Added   []model.PostNumber
	Removed []model.PostNumber
	Changed []model.PostNumber
}

// IsEmpty は差分がないかを返します。
func (d Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffPosts は、old と current を番号で突き合わせて差分を返します。
// 両方にあるレスは、保存形式と削除状態が異なる場合に Changed となります。
func DiffPosts(old, current []model.Post) Diff {
	oldByNumber := make(map[model.PostNumber]model.Post, len(old))
	for _, p := range old {
		oldByNumber[p.Number()] = p
	}

	var d Diff
	seen := make(map[model.PostNumber]struct{}, len(current))
	for _, p := range current {
		n := p.Number()
		seen[n] = struct{}{}
		prev, exists := oldByNumber[n]
		if !exists {
			d.Added = append(d.Added, n)
			continue
		}
		if !samePost(prev, p) {
			d.Changed = append(d.Changed, n)
		}
	}
	for n := range oldByNumber {
		if _, ok := seen[n]; !ok {
			d.Removed = append(d.Removed, n)
		}
	}
	model.SortPostNumbers(d.Added)
	model.SortPostNumbers(d.Removed)
	model.SortPostNumbers(d.Changed)
	return d
}

func samePost(a, b model.Post) bool {
	if a.IsDeleted() != b.IsDeleted() {
		return false
	}
	da, errA := model.MarshalPost(a)
	db, errB := model.MarshalPost(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(da, db)
}

// MergeDeleted は、old にあって current から消えたレスを削除済みとして current に加えます。
// 戻り値は番号順に並びます。
func MergeDeleted(old, current []model.Post) []model.Post {
	present := make(map[model.PostNumber]struct{}, len(current))
	for _, p := range current {
		present[p.Number()] = struct{}{}
	}
	merged := append([]model.Post(nil), current...)
	for _, p := range old {
		if _, ok := present[p.Number()]; ok {
			continue
		}
		if !p.IsDeleted() {
			p = model.NewBuilder(p).Build(true)
		}
		merged = append(merged, p)
	}
	sortPosts(merged)
	return merged
}

func sortPosts(posts []model.Post) {
	slices.SortStableFunc(posts, func(a, b model.Post) int { return a.Number().Compare(b.Number()) })
}
