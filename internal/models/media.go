package models

// MediaRole - роль загружаемого файла. Набор ролей фиксирован.
type MediaRole string

const (
	RoleAvatar     MediaRole = "avatar"
	RoleCoverImage MediaRole = "coverImage"
)

// String возвращает имя роли (совпадает с именем multipart-поля).
func (r MediaRole) String() string {
	return string(r)
}

// Valid сообщает, входит ли роль в допустимый набор.
func (r MediaRole) Valid() bool {
	return r == RoleAvatar || r == RoleCoverImage
}

// StagedFile - файл, временно размещённый на локальном диске до публикации.
// Живёт только в рамках запроса, который его создал.
type StagedFile struct {
	Role         MediaRole
	OriginalName string
	Path         string
	ContentType  string
	Size         int64
}

// Attachments - вложения запроса по ролям. Отсутствующая роль означает,
// что файл не передавался.
type Attachments map[MediaRole]*StagedFile

// Get возвращает файл для роли или nil.
func (a Attachments) Get(role MediaRole) *StagedFile {
	if a == nil {
		return nil
	}

	return a[role]
}

// Files возвращает все непустые вложения.
func (a Attachments) Files() []*StagedFile {
	out := make([]*StagedFile, 0, len(a))
	for _, f := range a {
		if f != nil {
			out = append(out, f)
		}
	}

	return out
}
