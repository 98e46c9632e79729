// Package storage picks the repository and cache implementations named by the configuration.
package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/audit"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/student"
	"github.com/trezcool/inclusiva/core/workspace"
	"github.com/trezcool/inclusiva/storage/cache"
	"github.com/trezcool/inclusiva/storage/database"
	"github.com/trezcool/inclusiva/storage/database/inmem"
	"github.com/trezcool/inclusiva/storage/database/postgres"
)

const engineInmem = "inmem"

type Stores struct {
	Workspace workspace.Repository
	Member    member.Repository
	Student   student.Repository
	Audit     audit.Repository

	close func() error
}

// Open returns the repositories of the configured database engine. For postgres, the
// database is created if missing and migrated to the latest version.
func Open(ctx context.Context, conf *core.Config) (*Stores, error) {
	if conf.Database.Engine == engineInmem {
		db := inmemdb.Open()
		return &Stores{
			Workspace: inmemdb.NewWorkspaceRepository(db),
			Member:    inmemdb.NewMemberRepository(db),
			Student:   inmemdb.NewStudentRepository(db),
			Audit:     inmemdb.NewAuditRepository(db),
			close:     func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrating database")
	}
	return &Stores{
		Workspace: pgrepos.NewWorkspaceRepository(db),
		Member:    pgrepos.NewMemberRepository(db),
		Student:   pgrepos.NewStudentRepository(db),
		Audit:     pgrepos.NewAuditRepository(db),
		close:     db.Close,
	}, nil
}

func (s *Stores) Close() error {
	return s.close()
}

// OpenCache returns a Redis cache when a URL is configured, an in-process one otherwise.
// The returned func releases the connection.
func OpenCache(ctx context.Context, conf *core.Config) (core.Cache, func() error, error) {
	if conf.Cache.RedisURL == "" {
		return cache.NewMemory(), func() error { return nil }, nil
	}
	client, err := cache.OpenRedis(ctx, conf.Cache.RedisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening redis")
	}
	return cache.NewRedis(client), client.Close, nil
}
