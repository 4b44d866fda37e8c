package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agroweb-products/internal/config"

	"github.com/gocql/gocql"
	"go.uber.org/zap"
)

// ProductsTable is the wide-column table holding the catalog.
const ProductsTable = "products"

var cassandraTableDDL = []string{
	`CREATE TABLE IF NOT EXISTS products (
		product_id TEXT PRIMARY KEY,
		name TEXT,
		category TEXT,
		price DOUBLE,
		original_price DOUBLE,
		unit TEXT,
		image_url TEXT,
		in_stock BOOLEAN,
		stock INT,
		origin TEXT,
		description TEXT,
		created_at DATE,
		updated_at DATE,
		is_active BOOLEAN,
		is_organic BOOLEAN,
		is_best_seller BOOLEAN,
		free_shipping BOOLEAN,
		user_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS products_is_active_idx ON products (is_active)`,
	`CREATE INDEX IF NOT EXISTS products_user_id_idx ON products (user_id)`,
}

// CassandraSession lazily opens one session for the configured keyspace and
// hands the same session to every caller until it is closed.
type CassandraSession struct {
	cfg    config.CassandraConfig
	logger *zap.Logger

	mu      sync.Mutex
	session *gocql.Session
}

// NewCassandraSession does not connect; the first Session call does.
func NewCassandraSession(cfg config.CassandraConfig, logger *zap.Logger) *CassandraSession {
	return &CassandraSession{cfg: cfg, logger: logger}
}

// Session returns the memoized session, connecting and bootstrapping the
// schema first when there is none or the previous one was closed.
func (c *CassandraSession) Session(ctx context.Context) (*gocql.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && !c.session.Closed() {
		return c.session, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.bootstrapKeyspace(); err != nil {
		return nil, err
	}

	cluster, err := c.cluster(c.cfg.Keyspace)
	if err != nil {
		return nil, err
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to keyspace %s: %w", c.cfg.Keyspace, err)
	}

	for _, stmt := range cassandraTableDDL {
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			session.Close()
			return nil, fmt.Errorf("failed to create products schema: %w", err)
		}
	}

	c.logger.Info("Cassandra session established",
		zap.Strings("hosts", c.cfg.Hosts),
		zap.String("keyspace", c.cfg.Keyspace),
	)

	c.session = session
	return session, nil
}

// Health reports whether the cluster answers a trivial query.
func (c *CassandraSession) Health(ctx context.Context) map[string]string {
	stats := map[string]string{"backend": "cassandra"}

	session, err := c.Session(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	var version string
	if err := session.Query(`SELECT release_version FROM system.local`).WithContext(ctx).Scan(&version); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	stats["status"] = "up"
	stats["release_version"] = version
	return stats
}

// Close closes the current session, if any. A later Session call reconnects.
func (c *CassandraSession) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	return nil
}

// bootstrapKeyspace creates the keyspace through a keyspace-less session.
func (c *CassandraSession) bootstrapKeyspace() error {
	cluster, err := c.cluster("")
	if err != nil {
		return err
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to cassandra: %w", err)
	}
	defer session.Close()

	stmt := fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`,
		c.cfg.Keyspace,
	)
	if err := session.Query(stmt).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace %s: %w", c.cfg.Keyspace, err)
	}
	return nil
}

func (c *CassandraSession) cluster(keyspace string) (*gocql.ClusterConfig, error) {
	consistency, err := gocql.ParseConsistencyWrapper(c.cfg.Consistency)
	if err != nil {
		return nil, fmt.Errorf("invalid cassandra consistency %q: %w", c.cfg.Consistency, err)
	}

	cluster := gocql.NewCluster(c.cfg.Hosts...)
	cluster.Port = c.cfg.Port
	cluster.Keyspace = keyspace
	cluster.Consistency = consistency
	cluster.ConnectTimeout = c.cfg.ConnectTimeout
	cluster.Timeout = c.cfg.Timeout
	cluster.ReconnectInterval = time.Second
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	if c.cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: c.cfg.Username,
			Password: c.cfg.Password,
		}
	}

	return cluster, nil
}
