package tokenstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophpantry/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophpantry/internal/common"
	"github.com/dmitrijs2005/gophpantry/internal/dbx"
)

// SQLiteStore keeps the token in the metadata table of the local database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Load(ctx context.Context) (Record, bool, error) {
	repo := metadata.NewSQLiteRepository(s.db)

	token, ok, err := repo.Get(ctx, common.TokenStorageKey)
	if err != nil {
		return Record{}, false, fmt.Errorf("load token: %w", err)
	}
	if !ok || token == "" {
		return Record{}, false, nil
	}

	username, _, err := repo.Get(ctx, common.UsernameStorageKey)
	if err != nil {
		return Record{}, false, fmt.Errorf("load username: %w", err)
	}
	return Record{Token: token, Username: username}, true, nil
}

// Save writes token and username in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.TokenStorageKey, rec.Token); err != nil {
			return err
		}
		return repo.Set(ctx, common.UsernameStorageKey, rec.Username)
	})
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return metadata.NewSQLiteRepository(s.db).Delete(ctx, common.TokenStorageKey, common.UsernameStorageKey)
}
