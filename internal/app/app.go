// Package app wires stores and services from the environment. Both the HTTP
// server and accountctl build on it.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity"
	identityrepo "github.com/ovaphlow/pitchfork/service-accounts/internal/identity/repo"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/preference"
	preferencerepo "github.com/ovaphlow/pitchfork/service-accounts/internal/preference/repo"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/session"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/database"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/metrics"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/objectstore"
)

type Options struct {
	// Memory keeps everything in process; nothing survives a restart.
	Memory bool
	// Migrate applies pending schema migrations after connecting.
	Migrate bool
}

// OptionsFromEnv reads ACCOUNTS_STORAGE (postgres|memory) and
// DATABASE_AUTO_MIGRATE (default on).
func OptionsFromEnv() Options {
	return Options{
		Memory:  os.Getenv("ACCOUNTS_STORAGE") == "memory",
		Migrate: os.Getenv("DATABASE_AUTO_MIGRATE") != "0",
	}
}

type App struct {
	DB          *sqlx.DB
	Metrics     *metrics.Metrics
	Identities  *identity.Service
	Preferences *preference.Service
	Sessions    *session.Service
}

func New(ctx context.Context, logger *zap.SugaredLogger, opts Options) (*App, error) {
	a := &App{Metrics: metrics.New()}
	var (
		idStore   identity.Store
		prefStore preference.Store
	)
	if opts.Memory {
		logger.Warn("using in-memory storage; data is lost on exit")
		idStore = identityrepo.NewMemoryRepo()
		prefStore = preferencerepo.NewMemoryRepo()
	} else {
		db, err := database.Connect(database.ConfigFromEnv())
		if err != nil {
			return nil, err
		}
		a.DB = db
		if opts.Migrate {
			if err := database.Migrate(ctx, database.Raw(db)); err != nil {
				db.Close()
				return nil, err
			}
		}
		idStore = identityrepo.NewIdentityRepo(db)
		prefStore = preferencerepo.NewRepo(db)
	}

	idOpts := []identity.Option{
		identity.WithHasher(identity.BcryptHasher{Cost: identity.ConfigFromEnv().BcryptCost}),
		identity.WithMetrics(a.Metrics),
	}
	if s3cfg := objectstore.ConfigFromEnv(); s3cfg.Enabled() {
		store, err := objectstore.New(ctx, s3cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		idOpts = append(idOpts, identity.WithDocumentStorage(store))
	} else {
		logger.Info("S3_BUCKET not set; identity documents will not be stored")
	}

	ids, err := identity.NewService(idStore, logger, idOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("identity service: %w", err)
	}
	prefs := preference.NewService(prefStore, logger, preference.WithMetrics(a.Metrics))
	if opts.Memory {
		// postgres cascades through the foreign key
		ids.RegisterDependent(prefs)
	}

	scfg := session.ConfigFromEnv()
	if scfg.Ephemeral {
		logger.Warn("SESSION_SECRET not set; using a random key, sessions end on restart")
	}

	a.Identities = ids
	a.Preferences = prefs
	a.Sessions = session.NewService(scfg)
	return a, nil
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
