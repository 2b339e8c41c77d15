package mongodb

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tigerroll/docschema/pkg/adapter/database"
	dbconfig "github.com/tigerroll/docschema/pkg/adapter/database/config"
	config "github.com/tigerroll/docschema/pkg/core/config"
	"github.com/tigerroll/docschema/pkg/support/util/logger"
)

// Connection is a named, live MongoDB client bound to one database.
type Connection struct {
	name   string
	client *mongo.Client
	db     *Database
	cfg    dbconfig.DatabaseConfig
}

// Type returns "mongodb".
func (c *Connection) Type() string {
	return dbconfig.TypeMongoDB
}

// Name returns the configured connection name.
func (c *Connection) Name() string {
	return c.name
}

// Database returns the handle for the configured database.
func (c *Connection) Database() database.Database {
	return c.db
}

// Config returns the settings the connection was opened with.
func (c *Connection) Config() dbconfig.DatabaseConfig {
	return c.cfg
}

// Close disconnects the client.
func (c *Connection) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Provider opens MongoDB connections from docschema.database and caches them by name.
type Provider struct {
	cfg         *config.Config
	connections map[string]*Connection
	mu          sync.Mutex
}

// NewProvider creates a Provider over the loaded configuration.
func NewProvider(cfg *config.Config) *Provider {
	return &Provider{
		cfg:         cfg,
		connections: make(map[string]*Connection),
	}
}

// Type returns "mongodb".
func (p *Provider) Type() string {
	return dbconfig.TypeMongoDB
}

// GetConnection returns the connection named name, opening and pinging it on first use.
func (p *Provider) GetConnection(ctx context.Context, name string) (database.DBConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}

	rawConfig, ok := p.cfg.Docschema.AdapterConfigs[name]
	if !ok {
		return nil, fmt.Errorf("database configuration '%s' not found in docschema.database", name)
	}
	dbCfg, err := dbconfig.Decode(rawConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
	}
	if err := dbCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config for '%s': %w", name, err)
	}

	conn, err := Connect(ctx, name, dbCfg)
	if err != nil {
		return nil, err
	}
	p.connections[name] = conn
	logger.Infof("Established MongoDB connection '%s' (database: %s)", name, dbCfg.Database)
	return conn, nil
}

// CloseAll disconnects every cached connection and returns the first error.
func (p *Provider) CloseAll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for name, conn := range p.connections {
		if err := conn.Close(ctx); err != nil {
			logger.Warnf("Failed to close MongoDB connection '%s': %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Debugf("Closed MongoDB connection '%s'", name)
	}
	p.connections = make(map[string]*Connection)
	return firstErr
}

// Connect opens a client for cfg and verifies it with a ping against the primary.
func Connect(ctx context.Context, name string, cfg dbconfig.DatabaseConfig) (*Connection, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}
	if d := cfg.ConnectTimeout(); d > 0 {
		opts.SetConnectTimeout(d)
	}
	if d := cfg.ServerSelectionTimeout(); d > 0 {
		opts.SetServerSelectionTimeout(d)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB for '%s': %w", name, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB for '%s': %w", name, err)
	}

	return &Connection{
		name:   name,
		client: client,
		db:     NewDatabase(client.Database(cfg.Database)),
		cfg:    cfg,
	}, nil
}

var (
	_ database.DBConnection = (*Connection)(nil)
	_ database.DBProvider   = (*Provider)(nil)
)
