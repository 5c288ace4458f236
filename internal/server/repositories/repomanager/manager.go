package repomanager

import (
	"context"
	"database/sql"

	"github.com/campusfeed/campusfeed/internal/dbx"
	"github.com/campusfeed/campusfeed/internal/server/repositories/notifications"
	"github.com/campusfeed/campusfeed/internal/server/repositories/posts"
	"github.com/campusfeed/campusfeed/internal/server/repositories/refreshtokens"
	"github.com/campusfeed/campusfeed/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Posts(db dbx.DBTX) posts.Repository
	Notifications(db dbx.DBTX) notifications.Repository
}
