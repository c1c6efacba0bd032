package api

import (
	"errors"
	"fmt"
)

// ErrorKind классифицирует ошибку сервера для координатора синхронизации.
type ErrorKind int

const (
	// KindTransient — сеть недоступна, таймаут или 5xx: повтор на следующем проходе
	KindTransient ErrorKind = iota
	// KindAuth — 401/403: проход останавливается, остальные элементы упадут так же
	KindAuth
	// KindValidation — прочие 4xx: терминальная ошибка записи
	KindValidation
	// KindConflict — 409: сервер хранит более новую версию
	KindConflict
)

// Error is a classified failure of a sync endpoint call
type Error struct {
	Message    string
	Kind       ErrorKind
	StatusCode int
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("sync request failed: %s", e.Message)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// KindOf returns the classification of err, defaulting to transient for
// anything that is not an *Error (plain transport failures).
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}

// classifyStatus сопоставляет HTTP статус с ErrorKind
func classifyStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 409:
		return KindConflict
	case status == 429:
		// Rate limit пройдет сам, повтор на следующем проходе
		return KindTransient
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindTransient
	}
}
