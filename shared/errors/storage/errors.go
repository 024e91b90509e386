package storage

import "errors"

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
	ErrJournalUnavailable = errors.New("order journal unavailable")
)
