// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — документ не найден в реестре.
	ErrNotFound = errors.New("документ не найден")
	// ErrConflict — конфликт (документ уже зарегистрирован).
	ErrConflict = errors.New("конфликт — документ уже зарегистрирован")
	// ErrInvalidTransition — недопустимый переход статуса.
	ErrInvalidTransition = errors.New("недопустимый переход статуса")
	// ErrPermissionDenied — операция запрещена для роли субъекта.
	ErrPermissionDenied = errors.New("операция запрещена для данной роли")
	// ErrEditRequired — переход требует правки метаданных.
	ErrEditRequired = errors.New("переход требует правки метаданных")
	// ErrSyncConflict — конфликт синхронизации: в реестре более свежая
	// версия записи, чем та, на основе которой клиент выполнял правку.
	ErrSyncConflict = errors.New("конфликт синхронизации с реестром")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)
