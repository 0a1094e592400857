package auth

import (
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all auth repositories.
type RepositoryManager interface {
	Validate() error
	MustValidate()
	Users() Users
	ActionTokens() ActionTokens
}

type mngr struct {
	db           *bun.DB
	users        Users
	actionTokens ActionTokens
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:           db,
		users:        NewUsersRepository(db),
		actionTokens: NewActionTokensRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.actionTokens == nil {
		return errors.New("repository actionTokens should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) ActionTokens() ActionTokens {
	return m.actionTokens
}
