package postgres

import (
	"database/sql"

	"groupgate/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.CodeRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:             db,
		CodeRepository: NewCodeRepository(db),
	}
}
