package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"insight-survey-service/internal/app"
	"insight-survey-service/internal/domain"
	"insight-survey-service/internal/infra/memory"
	pgloader "insight-survey-service/internal/infra/postgres"
	pgmigrations "insight-survey-service/internal/infra/postgres/migrations"
	infraredis "insight-survey-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestSurveyFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestionSet(t, ctx, pgURL, customQuestionSet())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := memory.NewFallbackLoader(pgloader.NewQuestionLoader(pool), memory.NewStaticQuestionLoader(nil))

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	questionRepo := infraredis.NewQuestionRepository(redisClient, loader, 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewSurveyService(sessionStore, questionRepo, domain.DefaultCharacter("voice-1"), domain.Reward{})

	// game with a custom set stored in Postgres
	started, err := service.Start(ctx, app.StartRequest{UserID: "u1", GameID: "game-custom"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(started.Questions) != 2 || started.Questions[0].Text != "Favorite season?" {
		t.Fatalf("expected custom questions from postgres, got %+v", started.Questions)
	}

	result, err := service.SubmitAnswer(ctx, app.AnswerRequest{SurveyID: started.SurveyID, QuestionIndex: 0, Answer: "Summer"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Completed || result.NextQuestion == nil || result.NextQuestion.Index != 1 {
		t.Fatalf("expected next question, got %+v", result)
	}

	result, err = service.SubmitAnswer(ctx, app.AnswerRequest{SurveyID: started.SurveyID, QuestionIndex: 1, Answer: "Tea"})
	if err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	if !result.Completed || result.Reward == nil || result.Reward.Amount != 500 {
		t.Fatalf("expected completion with 500 reward, got %+v", result)
	}

	// unknown game falls back to the built-in sequence
	fallback, err := service.Start(ctx, app.StartRequest{UserID: "u2", GameID: "game-unknown"})
	if err != nil {
		t.Fatalf("start fallback: %v", err)
	}
	if len(fallback.Questions) != 3 {
		t.Fatalf("expected default questions, got %+v", fallback.Questions)
	}

	count, err := service.ActiveSessions(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 live sessions, got %d", count)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "survey", "POSTGRES_PASSWORD": "surveypass", "POSTGRES_DB": "surveydb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://survey:surveypass@%s:%s/surveydb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestionSet(t *testing.T, ctx context.Context, dsn string, set domain.QuestionSet) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal set: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_sets (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, set.ID, string(data)); err != nil {
		t.Fatalf("insert set: %v", err)
	}
}

func customQuestionSet() domain.QuestionSet {
	return domain.QuestionSet{
		ID: "game-custom",
		Questions: []domain.Question{
			{Text: "Favorite season?", Options: []string{"Spring", "Summer", "Autumn", "Winter"}},
			{Text: "Coffee or tea?", Options: []string{"Coffee", "Tea"}},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
