package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
)

// Config holds connection settings.
type Config struct {
	// DSN takes precedence over the individual fields when set.
	DSN string

	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ConnString returns the connection URL for cfg.
func (c Config) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=disable",
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	return u.String()
}

// Store is a PostgreSQL-backed storage that provides the course and
// document stores through wrapper types.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to PostgreSQL and applies the schema.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	pool, err := pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// CourseStore returns a CourseStore interface backed by this store.
func (s *Store) CourseStore() driven.CourseStore {
	return &courseStore{pool: s.pool}
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{pool: s.pool}
}

// ==================== Course Store ====================

type courseStore struct {
	pool *pgxpool.Pool
}

var _ driven.CourseStore = (*courseStore)(nil)

func (s *courseStore) EnsureCourse(ctx context.Context, course domain.Course) error {
	if course.Name == "" {
		course.Name = course.ID
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO courses (id, name, guardrails, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		course.ID, course.Name, course.Guardrails, course.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving course: %w", err)
	}
	return nil
}

func (s *courseStore) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(guardrails, ''), created_at FROM courses WHERE id = $1`, id)
	var c domain.Course
	if err := row.Scan(&c.ID, &c.Name, &c.Guardrails, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning course: %w", err)
	}
	return &c, nil
}

func (s *courseStore) ListCourses(ctx context.Context) ([]domain.Course, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, COALESCE(guardrails, ''), created_at FROM courses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying courses: %w", err)
	}
	courses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Course, error) {
		var c domain.Course
		err := row.Scan(&c.ID, &c.Name, &c.Guardrails, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning courses: %w", err)
	}
	return courses, nil
}

func (s *courseStore) UpdateCourse(
	ctx context.Context, id string, update domain.CourseUpdate,
) (*domain.Course, error) {
	if err := s.EnsureCourse(ctx, domain.Course{ID: id}); err != nil {
		return nil, err
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE courses SET
			name = COALESCE($2, name),
			guardrails = COALESCE($3, guardrails)
		WHERE id = $1`, id, update.Name, update.Guardrails)
	if err != nil {
		return nil, fmt.Errorf("updating course: %w", err)
	}
	return s.GetCourse(ctx, id)
}

// ==================== Document Store ====================

type documentStore struct {
	pool *pgxpool.Pool
}

var _ driven.DocumentStore = (*documentStore)(nil)

func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) (bool, error) {
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, course_id, filename, sha256, bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		doc.ID, doc.CourseID, doc.Filename, doc.SHA256, doc.Bytes, createdAt)
	if err != nil {
		return false, fmt.Errorf("saving document: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`
			INSERT INTO chunks (id, document_id, course_id, chunk_index, sha256, text)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING`,
			c.ID, c.DocumentID, c.CourseID, c.Index, c.SHA256, c.Text)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}
	return nil
}

func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, course_id, filename, sha256, bytes, created_at
		FROM documents WHERE id = $1`, id)
	var d domain.Document
	if err := row.Scan(&d.ID, &d.CourseID, &d.Filename, &d.SHA256, &d.Bytes, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &d, nil
}

func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, course_id, chunk_index, sha256, text
		FROM chunks WHERE document_id = $1 ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	chunks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Chunk, error) {
		var c domain.Chunk
		err := row.Scan(&c.ID, &c.DocumentID, &c.CourseID, &c.Index, &c.SHA256, &c.Text)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning chunks: %w", err)
	}
	return chunks, nil
}

func (s *documentStore) ListDocuments(ctx context.Context, courseID string) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, course_id, filename, sha256, bytes, created_at
		FROM documents WHERE course_id = $1 ORDER BY filename, id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Document, error) {
		var d domain.Document
		err := row.Scan(&d.ID, &d.CourseID, &d.Filename, &d.SHA256, &d.Bytes, &d.CreatedAt)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning documents: %w", err)
	}
	return docs, nil
}
