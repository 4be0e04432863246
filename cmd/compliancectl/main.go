package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/sitecompliance-backend/internal/avcbs"
	"github.com/angelmondragon/sitecompliance-backend/internal/cli"
	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/internal/conditionals"
	"github.com/angelmondragon/sitecompliance-backend/internal/licenses"
	"github.com/angelmondragon/sitecompliance-backend/internal/projects"
	"github.com/angelmondragon/sitecompliance-backend/internal/references"
	"github.com/angelmondragon/sitecompliance-backend/pkg/config"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	logg := logger.New(logger.Options{ServiceName: "compliancectl", Output: io.Discard})
	app := &cli.App{}

	// offline commands work without a complete environment
	cfg, cfgErr := config.Load()
	if cfgErr == nil {
		app.Options = compliance.OptionsFromConfig(cfg.Compliance)
	}

	app.Projects = func(ctx context.Context) (projects.Service, func(), error) {
		if cfgErr != nil {
			return nil, nil, cfgErr
		}
		dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
		if err != nil {
			return nil, nil, err
		}
		release := func() { _ = dbClient.Close() }

		conn := dbClient.DB()
		svc, err := projects.NewService(projects.ServiceParams{
			Repo:         projects.NewRepository(conn),
			Refs:         references.NewGormRegistry(conn),
			Licenses:     licenses.NewRepository(conn),
			Avcbs:        avcbs.NewRepository(conn),
			Conditionals: conditionals.NewRepository(conn),
			Engine:       compliance.NewEngine(app.Options),
			Logger:       logg,
		})
		if err != nil {
			release()
			return nil, nil, err
		}
		return svc, release, nil
	}

	return cli.NewRootCmd(app).ExecuteContext(context.Background())
}
