package container

import (
	"context"
	"fmt"

	"zootovary/crawler/internal/catalog"
	"zootovary/crawler/internal/client"
	"zootovary/crawler/internal/config"
	"zootovary/crawler/internal/export"
	"zootovary/crawler/internal/repository"
	"zootovary/crawler/internal/service"
	"zootovary/crawler/internal/state"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Client     client.ZooClient
	Repository repository.GoodsRepository
	Tracker    *state.Tracker
	Keys       *state.KeyRegistry

	Service  *service.Service
	Exporter *export.Writer

	db *pgxpool.Pool
}

// New creates a new container with all dependencies initialized
func New(cfg *config.Config) (*Container, error) {
	container := &Container{
		Config:  cfg,
		Tracker: state.NewTracker(),
		Keys:    state.NewKeyRegistry(),
	}

	container.Client = client.NewZooClient(cfg.Crawler)
	builder := catalog.NewBuilder(container.Client)

	if cfg.Database.Enabled {
		db, err := pgxpool.New(context.Background(),
			fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
				cfg.Database.Host,
				cfg.Database.Port,
				cfg.Database.User,
				cfg.Database.Password,
				cfg.Database.Name,
			))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		container.db = db
		container.Repository = repository.NewGoodsRepository(db)
		log.Info("✅ Connected to Postgres successfully")
	}

	container.Service = service.NewService(
		container.Client,
		builder,
		container.Repository,
		container.Tracker,
		container.Keys,
		cfg,
	)
	container.Exporter = export.NewWriter(cfg.Export.OutputDirectory, cfg.Crawler.BaseURL)

	return container, nil
}

// Run executes the crawl and exports whatever was accumulated, even after a
// failed or cancelled run — partial results are never thrown away.
func (c *Container) Run(ctx context.Context) error {
	runErr := c.Service.Run(ctx)

	if tree := c.Service.Tree(); tree != nil {
		err := c.Exporter.WriteAll(
			tree,
			c.Service.RequestedCategories(),
			c.Service.CategoryOrder(),
			c.Service.Products(),
		)
		if err != nil {
			log.Errorf("❌ Failed to export results: %v", err)
		}
	}

	return runErr
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")
	if c.db != nil {
		c.db.Close()
	}
	log.Info("Container shut down successfully")
	return nil
}
