package testsuite

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/crud-services/pkg/db"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// BaseSuite starts Postgres, Kafka and Redis once per suite and applies the
// service migrations. Service suites embed it and build their own wiring on
// top of DbPool, KafkaBrokers and Redis.
type BaseSuite struct {
	suite.Suite
	PgContainer    *postgres.PostgresContainer
	KafkaContainer *kafka.KafkaContainer
	RedisContainer *tcredis.RedisContainer
	DbPool         *pgxpool.Pool
	DatabaseURL    string
	KafkaBrokers   []string
	Redis          *redis.Client
	Ctx            context.Context
}

func (s *BaseSuite) SetupInfrastructure(migrationsRelPath string) {
	s.Ctx = context.Background()

	var err error
	s.PgContainer, err = postgres.Run(
		s.Ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)

	s.DatabaseURL, err = s.PgContainer.ConnectionString(s.Ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.KafkaContainer, err = kafka.Run(
		s.Ctx,
		"confluentinc/cp-kafka:7.5.0",
		kafka.WithClusterID("test-cluster"),
	)
	s.Require().NoError(err)

	s.KafkaBrokers, err = s.KafkaContainer.Brokers(s.Ctx)
	s.Require().NoError(err)

	s.RedisContainer, err = tcredis.Run(s.Ctx, "redis:7-alpine")
	s.Require().NoError(err)

	redisURL, err := s.RedisContainer.ConnectionString(s.Ctx)
	s.Require().NoError(err)

	redisOpts, err := redis.ParseURL(redisURL)
	s.Require().NoError(err)
	s.Redis = redis.NewClient(redisOpts)

	log.Printf("running migrations from %s", migrationsRelPath)
	s.Require().NoError(db.RunMigrations(s.DatabaseURL, migrationsRelPath))

	s.DbPool, err = pgxpool.New(s.Ctx, s.DatabaseURL)
	s.Require().NoError(err)
}

func (s *BaseSuite) TearDownInfrastructure() {
	if s.DbPool != nil {
		s.DbPool.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}

	containers := []testcontainers.Container{}
	if s.PgContainer != nil {
		containers = append(containers, s.PgContainer)
	}
	if s.KafkaContainer != nil {
		containers = append(containers, s.KafkaContainer)
	}
	if s.RedisContainer != nil {
		containers = append(containers, s.RedisContainer)
	}

	for _, c := range containers {
		if err := c.Terminate(s.Ctx); err != nil {
			log.Printf("failed to terminate container: %v", err)
		}
	}
}

// TruncateTable empties the table. Sequences keep counting so event ids
// already on the Kafka topic are never reused by a later test.
func (s *BaseSuite) TruncateTable(tableName string) {
	_, err := s.DbPool.Exec(s.Ctx, fmt.Sprintf("TRUNCATE %s CASCADE", tableName))
	s.Require().NoError(err)
}

func (s *BaseSuite) FlushCache() {
	s.Require().NoError(s.Redis.FlushAll(s.Ctx).Err())
}

// CountRows returns the number of rows in table.
func (s *BaseSuite) CountRows(table string) int {
	var n int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// RequireEventPublished waits until the outbox worker has published the
// event of eventType for the aggregate.
func (s *BaseSuite) RequireEventPublished(aggregateID int64, eventType string) {
	query := `
		SELECT published_at
		FROM outbox
		WHERE aggregate_id = $1 AND event_type = $2
	`

	s.Require().Eventually(func() bool {
		var publishedAt *time.Time

		err := s.DbPool.QueryRow(s.Ctx, query, strconv.FormatInt(aggregateID, 10), eventType).Scan(&publishedAt)
		return err == nil && publishedAt != nil
	}, 10*time.Second, 100*time.Millisecond, "%s for %d was not published", eventType, aggregateID)
}
