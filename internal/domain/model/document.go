// Пакет model — доменные модели Archive Module.
// DocumentRecord — маппинг таблицы document_registry.
// Статусы и роли определены здесь как канонический словарь:
// все сравнения статусов/ролей в остальных пакетах обязаны
// идти через типы Status и Role, а не через сырые строки.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Status — статус жизненного цикла документа.
type Status string

const (
	// StatusDraft — черновик (сохранён без отправки на согласование)
	StatusDraft Status = "draft"
	// StatusPending — ожидает решения approver
	StatusPending Status = "pending"
	// StatusApproved — согласован, готов к архивированию
	StatusApproved Status = "approved"
	// StatusArchived — помещён в архив (терминальный статус)
	StatusArchived Status = "archived"
	// StatusReject — отклонён (восстановимый: после правки возвращается в pending)
	StatusReject Status = "reject"
)

// validStatuses — полный набор допустимых статусов.
var validStatuses = map[Status]bool{
	StatusDraft:    true,
	StatusPending:  true,
	StatusApproved: true,
	StatusArchived: true,
	StatusReject:   true,
}

// IsValidStatus проверяет, является ли значение допустимым статусом.
func IsValidStatus(s Status) bool {
	return validStatuses[s]
}

// ParseStatus преобразует строку в Status.
// Устаревшее написание "archive" (встречается в старых клиентах)
// нормализуется в каноническое "archived".
func ParseStatus(s string) (Status, error) {
	normalized := Status(strings.ToLower(strings.TrimSpace(s)))
	if normalized == "archive" {
		normalized = StatusArchived
	}
	if !IsValidStatus(normalized) {
		return "", fmt.Errorf("недопустимый статус: %q, допустимые: draft, pending, approved, archived, reject", s)
	}
	return normalized, nil
}

// Role — роль пользователя консоли архива.
type Role string

const (
	// RoleAdmin — полный доступ ко всем операциям
	RoleAdmin Role = "admin"
	// RoleEditor — правка метаданных и повторная отправка отклонённых
	RoleEditor Role = "editor"
	// RoleApprover — согласование и отклонение документов
	RoleApprover Role = "approver"
	// RoleArchiviste — перемещение согласованных документов в архив
	RoleArchiviste Role = "archiviste"
)

// validRoles — полный набор допустимых ролей.
var validRoles = map[Role]bool{
	RoleAdmin:      true,
	RoleEditor:     true,
	RoleApprover:   true,
	RoleArchiviste: true,
}

// IsValidRole проверяет, является ли значение допустимой ролью.
func IsValidRole(r Role) bool {
	return validRoles[r]
}

// ParseRole преобразует строку в Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !IsValidRole(r) {
		return "", fmt.Errorf("недопустимая роль: %q, допустимые: admin, editor, approver, archiviste", s)
	}
	return r, nil
}

// DocumentRecord — запись документа в реестре document_registry.
type DocumentRecord struct {
	// ID — UUID документа (задаётся при регистрации, неизменяем)
	ID string
	// Title — название документа
	Title string
	// Author — автор документа
	Author string
	// Type — тип документа (pdf, doc, ...)
	Type string
	// Keywords — ключевые слова (свободный текст через запятую)
	Keywords string
	// Date — время создания записи (неизменяемо)
	Date time.Time
	// Status — статус жизненного цикла
	Status Status
	// Size — размер файла в байтах (производное от загруженного файла)
	Size int64
	// Extension — расширение файла без точки (производное, неизменяемо)
	Extension string
	// FileName — имя файла в хранилище (производное, неизменяемо)
	FileName string
	// UpdatedAt — время последнего обновления записи
	UpdatedAt time.Time
}

// MetadataPatch — частичное обновление изменяемых метаданных документа.
// nil-поле — значение не меняется. Неизменяемые поля
// (id, date, size, extension, fileName) патчем не охватываются.
type MetadataPatch struct {
	Title    *string
	Author   *string
	Type     *string
	Keywords *string
}

// IsEmpty сообщает, что патч не меняет ни одного поля.
func (p MetadataPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Type == nil && p.Keywords == nil
}

// ApplyTo применяет патч к копии записи и возвращает её.
// Исходная запись не изменяется.
func (p MetadataPatch) ApplyTo(rec DocumentRecord) DocumentRecord {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Author != nil {
		rec.Author = *p.Author
	}
	if p.Type != nil {
		rec.Type = *p.Type
	}
	if p.Keywords != nil {
		rec.Keywords = *p.Keywords
	}
	return rec
}
