package thread

import (
	"sort"
	"sync"

	"GoImageBoardClient/internal/gallery"
	"GoImageBoardClient/internal/model"
)

// Thread は、1つのスレッドのレスと、被引用(referencesFrom)のマップ、
// ギャラリーの索引を所有するコンテナです。
// 書き込みは1つの呼び出し元から行い、読み取りは並行して行えます。
type Thread struct {
	factory ItemFactory

	mu             sync.RWMutex
	items          map[model.PostNumber]*PostItem
	order          []model.PostNumber
	referencesFrom map[model.PostNumber]map[model.PostNumber]struct{}
	gallery        *gallery.Set
}

// New は空の Thread を返します。
func New(factory ItemFactory) *Thread {
	return &Thread{
		factory:        factory,
		items:          make(map[model.PostNumber]*PostItem),
		referencesFrom: make(map[model.PostNumber]map[model.PostNumber]struct{}),
		gallery:        gallery.NewSet(),
	}
}

// Add は posts を追加します。同じ番号のレスが既にある場合は置き換え、
// 参照グラフとギャラリーを更新します。
func (t *Thread) Add(posts ...model.Post) []*PostItem {
	added := make([]*PostItem, 0, len(posts))
	for _, p := range posts {
		item := t.factory.Wrap(p)
		t.mu.Lock()
		t.putLocked(item)
		t.mu.Unlock()
		added = append(added, item)
	}
	return added
}

// Remove は numbers のレスを削除し、それらが張っていた参照を取り除きます。
// 削除されたレスへの被引用は残るため、同じ番号が再び追加されると復元されます。
func (t *Thread) Remove(numbers ...model.PostNumber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range numbers {
		t.removeLocked(n)
	}
}

// Replace は、スレッドの内容を posts で置き換え、参照グラフを作り直します。
// 全てのレスの被引用を消去してから、存在する全ての参照を追加し直します。
func (t *Thread) Replace(posts []model.Post) []*PostItem {
	items := make([]*PostItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, t.factory.Wrap(p))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for target := range t.referencesFrom {
		t.clearReferencesFromLocked(target)
	}
	t.items = make(map[model.PostNumber]*PostItem, len(items))
	t.order = t.order[:0]
	t.gallery.Clear()
	for _, item := range items {
		t.putLocked(item)
	}
	return items
}

func (t *Thread) putLocked(item *PostItem) {
	n := item.Number()
	if _, exists := t.items[n]; exists {
		t.removeLocked(n)
	}
	t.items[n] = item
	i := sort.Search(len(t.order), func(i int) bool { return !t.order[i].Less(n) })
	t.order = append(t.order, model.PostNumber{})
	copy(t.order[i+1:], t.order[i:])
	t.order[i] = n

	for _, target := range item.referencesTo {
		t.addReferenceFromLocked(target, n)
	}
	t.gallery.Put(n, item.attachments)
}

func (t *Thread) removeLocked(n model.PostNumber) {
	item, exists := t.items[n]
	if !exists {
		return
	}
	for _, target := range item.referencesTo {
		t.removeReferenceFromLocked(target, n)
	}
	delete(t.items, n)
	i := sort.Search(len(t.order), func(i int) bool { return !t.order[i].Less(n) })
	if i < len(t.order) && t.order[i] == n {
		t.order = append(t.order[:i], t.order[i+1:]...)
	}
	t.gallery.Remove(n)
}

// AddReferenceFrom は、from が target を引用していることを記録します。
func (t *Thread) AddReferenceFrom(target, from model.PostNumber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addReferenceFromLocked(target, from)
}

// RemoveReferenceFrom は、from から target への引用の記録を取り除きます。
func (t *Thread) RemoveReferenceFrom(target, from model.PostNumber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeReferenceFromLocked(target, from)
}

// ClearReferencesFrom は target の被引用を全て消去します。
func (t *Thread) ClearReferencesFrom(target model.PostNumber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearReferencesFromLocked(target)
}

func (t *Thread) addReferenceFromLocked(target, from model.PostNumber) {
	set, ok := t.referencesFrom[target]
	if !ok {
		set = make(map[model.PostNumber]struct{})
		t.referencesFrom[target] = set
	}
	set[from] = struct{}{}
}

func (t *Thread) removeReferenceFromLocked(target, from model.PostNumber) {
	set, ok := t.referencesFrom[target]
	if !ok {
		return
	}
	delete(set, from)
	if len(set) == 0 {
		delete(t.referencesFrom, target)
	}
}

func (t *Thread) clearReferencesFromLocked(target model.PostNumber) {
	delete(t.referencesFrom, target)
}

// ReferencesFrom は、target を引用しているレス番号を昇順で返します。
func (t *Thread) ReferencesFrom(target model.PostNumber) []model.PostNumber {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set := t.referencesFrom[target]
	if len(set) == 0 {
		return nil
	}
	numbers := make([]model.PostNumber, 0, len(set))
	for n := range set {
		numbers = append(numbers, n)
	}
	model.SortPostNumbers(numbers)
	return numbers
}

// Get は番号 n の PostItem を返します。
func (t *Thread) Get(n model.PostNumber) (*PostItem, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.items[n]
	return item, ok
}

// Len はレス数を返します。
func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Items は PostItem を番号順に返します。
func (t *Thread) Items() []*PostItem {
	t.mu.RLock()
	defer t.mu.RUnlock()
	items := make([]*PostItem, 0, len(t.order))
	for _, n := range t.order {
		items = append(items, t.items[n])
	}
	return items
}

// Posts は、現在のレスのスナップショットを番号順に返します。
// 返されたスライスはその後の変更の影響を受けません。
func (t *Thread) Posts() []model.Post {
	t.mu.RLock()
	defer t.mu.RUnlock()
	posts := make([]model.Post, 0, len(t.order))
	for _, n := range t.order {
		posts = append(posts, t.items[n].post)
	}
	return posts
}

// LastNumber は最大のレス番号を返します。空の場合はゼロ値です。
func (t *Thread) LastNumber() model.PostNumber {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.order) == 0 {
		return model.PostNumber{}
	}
	return t.order[len(t.order)-1]
}

// GalleryList はギャラリー項目の一覧を返します。
func (t *Thread) GalleryList() []gallery.Item {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gallery.CreateList()
}

// GalleryIndex は、レス n の最初のギャラリー項目の通し番号を返します。見つからない場合は -1 です。
func (t *Thread) GalleryIndex(n model.PostNumber) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.items[n]
	if !ok {
		return -1
	}
	return t.gallery.FindIndex(item)
}
