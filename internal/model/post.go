package model

import "slices"

// Flags は、レスの真偽値メタデータをまとめたビット集合です。
type Flags uint32

const (
	FlagSage Flags = 1 << iota
	FlagSticky
	FlagClosed
	FlagArchived
	FlagCyclical
	FlagPosterWarned
	FlagPosterBanned
	FlagOriginalPoster
	FlagDefaultName
	FlagBumpLimitReached
)

// Has は f に flag が立っているかを返します。
func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

// With は flag を value に設定した Flags を返します。
func (f Flags) With(flag Flags, value bool) Flags {
	if value {
		return f | flag
	}
	return f &^ flag
}

// Post は、スレッド内の1件のレスです。生成後に変更されることはなく、
// 複数の goroutine から安全に参照できます。生成は Builder を通して行います。
type Post struct {
	number        PostNumber
	deleted       bool
	flags         Flags
	timestamp     int64
	subject       string
	comment       string
	commentMarkup string
	name          string
	identifier    string
	tripcode      string
	capcode       string
	email         string
	attachments   []Attachment
	icons         []Icon
}

func (p Post) Number() PostNumber    { return p.number }
func (p Post) IsDeleted() bool       { return p.deleted }
func (p Post) Flags() Flags          { return p.flags }
func (p Post) Subject() string       { return p.subject }
func (p Post) Comment() string       { return p.comment }
func (p Post) CommentMarkup() string { return p.commentMarkup }
func (p Post) Name() string          { return p.name }
func (p Post) Identifier() string    { return p.identifier }
func (p Post) Tripcode() string      { return p.tripcode }
func (p Post) Capcode() string       { return p.capcode }
func (p Post) Email() string         { return p.email }

// Timestamp は投稿時刻をエポックからのミリ秒で返します。
func (p Post) Timestamp() int64 { return p.timestamp }

// Attachments は添付ファイルのコピーを返します。nil になることはありません。
func (p Post) Attachments() []Attachment {
	if p.attachments == nil {
		return []Attachment{}
	}
	return slices.Clone(p.attachments)
}

// Icons はアイコンのコピーを返します。nil になることはありません。
func (p Post) Icons() []Icon {
	if p.icons == nil {
		return []Icon{}
	}
	return slices.Clone(p.icons)
}

// HasAttachments は構造的な添付ファイルを1つ以上持つかを返します。
func (p Post) HasAttachments() bool {
	return len(p.attachments) > 0
}

func (p Post) IsSage() bool             { return p.flags.Has(FlagSage) }
func (p Post) IsSticky() bool           { return p.flags.Has(FlagSticky) }
func (p Post) IsClosed() bool           { return p.flags.Has(FlagClosed) }
func (p Post) IsArchived() bool         { return p.flags.Has(FlagArchived) }
func (p Post) IsCyclical() bool         { return p.flags.Has(FlagCyclical) }
func (p Post) IsPosterWarned() bool     { return p.flags.Has(FlagPosterWarned) }
func (p Post) IsPosterBanned() bool     { return p.flags.Has(FlagPosterBanned) }
func (p Post) IsOriginalPoster() bool   { return p.flags.Has(FlagOriginalPoster) }
func (p Post) IsDefaultName() bool      { return p.flags.Has(FlagDefaultName) }
func (p Post) IsBumpLimitReached() bool { return p.flags.Has(FlagBumpLimitReached) }

// Builder は Post のフィールドを組み立てます。ゼロ値のまま使用できます。
type Builder struct {
	Number        PostNumber
	Flags         Flags
	Timestamp     int64
	Subject       string
	Comment       string
	CommentMarkup string
	Name          string
	Identifier    string
	Tripcode      string
	Capcode       string
	Email         string
	Attachments   []Attachment
	Icons         []Icon
}

// NewBuilder は p と同じ内容を持つ Builder を返します。
func NewBuilder(p Post) *Builder {
	return &Builder{
		Number:        p.number,
		Flags:         p.flags,
		Timestamp:     p.timestamp,
		Subject:       p.subject,
		Comment:       p.comment,
		CommentMarkup: p.commentMarkup,
		Name:          p.name,
		Identifier:    p.identifier,
		Tripcode:      p.tripcode,
		Capcode:       p.capcode,
		Email:         p.email,
		Attachments:   p.Attachments(),
		Icons:         p.Icons(),
	}
}

// Flag は flag が立っているかを返します。
func (b *Builder) Flag(flag Flags) bool {
	return b.Flags.Has(flag)
}

// SetFlag は flag を value に設定します。
func (b *Builder) SetFlag(flag Flags, value bool) *Builder {
	b.Flags = b.Flags.With(flag, value)
	return b
}

func (b *Builder) SetSage(v bool) *Builder             { return b.SetFlag(FlagSage, v) }
func (b *Builder) SetSticky(v bool) *Builder           { return b.SetFlag(FlagSticky, v) }
func (b *Builder) SetClosed(v bool) *Builder           { return b.SetFlag(FlagClosed, v) }
func (b *Builder) SetArchived(v bool) *Builder         { return b.SetFlag(FlagArchived, v) }
func (b *Builder) SetCyclical(v bool) *Builder         { return b.SetFlag(FlagCyclical, v) }
func (b *Builder) SetPosterWarned(v bool) *Builder     { return b.SetFlag(FlagPosterWarned, v) }
func (b *Builder) SetPosterBanned(v bool) *Builder     { return b.SetFlag(FlagPosterBanned, v) }
func (b *Builder) SetOriginalPoster(v bool) *Builder   { return b.SetFlag(FlagOriginalPoster, v) }
func (b *Builder) SetDefaultName(v bool) *Builder      { return b.SetFlag(FlagDefaultName, v) }
func (b *Builder) SetBumpLimitReached(v bool) *Builder { return b.SetFlag(FlagBumpLimitReached, v) }

// Build は、現在の内容から Post を生成します。deleted が true の場合は削除済みレスになります。
// Builder のスライスはコピーされるため、Build 後に Builder を変更しても Post には影響しません。
func (b *Builder) Build(deleted bool) Post {
	attachments := make([]Attachment, 0, len(b.Attachments))
	for _, a := range b.Attachments {
		if a != nil {
			attachments = append(attachments, a)
		}
	}
	icons := make([]Icon, len(b.Icons))
	copy(icons, b.Icons)
	return Post{
		number:        b.Number,
		deleted:       deleted,
		flags:         b.Flags,
		timestamp:     b.Timestamp,
		subject:       b.Subject,
		comment:       b.Comment,
		commentMarkup: b.CommentMarkup,
		name:          b.Name,
		identifier:    b.Identifier,
		tripcode:      b.Tripcode,
		capcode:       b.Capcode,
		email:         b.Email,
		attachments:   attachments,
		icons:         icons,
	}
}
