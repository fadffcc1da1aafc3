package presets

import (
	"database/sql"
	"sync"
)

var (
	repo Repository
	hand RestHandler

	repoOnce sync.Once
	handOnce sync.Once
)

func Container(db *sql.DB) (RestHandler, error) {
	var err error

	repoOnce.Do(func() {
		repo, err = NewRepository(db)
	})
	if err != nil {
		return nil, err
	}

	handOnce.Do(func() {
		hand = NewRestHandler(repo)
	})
	return hand, nil
}
