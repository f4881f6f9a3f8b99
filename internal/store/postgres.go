package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Experiences

func (s *PostgresStore) ListExperiences(ctx context.Context) ([]Experience, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, organization, period, location, description, type, created_at, updated_at
		FROM experiences
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list experiences: %w", err)
	}
	defer rows.Close()

	var items []Experience
	for rows.Next() {
		var item Experience
		if err := rows.Scan(&item.ID, &item.Role, &item.Organization, &item.Period, &item.Location, &item.Description, &item.Type, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) CreateExperience(ctx context.Context, item Experience) (Experience, error) {
	item.ID = uuid.NewString()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO experiences (id, role, organization, period, location, description, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, role, organization, period, location, description, type, created_at, updated_at
	`, item.ID, item.Role, item.Organization, item.Period, item.Location, item.Description, item.Type).
		Scan(&item.ID, &item.Role, &item.Organization, &item.Period, &item.Location, &item.Description, &item.Type, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Experience{}, fmt.Errorf("create experience: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) UpdateExperience(ctx context.Context, id string, item Experience) (Experience, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE experiences
		SET role=$2, organization=$3, period=$4, location=$5, description=$6, type=$7, updated_at=NOW()
		WHERE id=$1
		RETURNING id, role, organization, period, location, description, type, created_at, updated_at
	`, id, item.Role, item.Organization, item.Period, item.Location, item.Description, item.Type).
		Scan(&item.ID, &item.Role, &item.Organization, &item.Period, &item.Location, &item.Description, &item.Type, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Experience{}, fmt.Errorf("update experience: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteExperience(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "experiences", id)
}

// Skills

func (s *PostgresStore) ListSkills(ctx context.Context) ([]Skill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, level, type, created_at, updated_at
		FROM skills
		ORDER BY type ASC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()

	var items []Skill
	for rows.Next() {
		var item Skill
		if err := rows.Scan(&item.ID, &item.Name, &item.Level, &item.Type, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) CreateSkill(ctx context.Context, item Skill) (Skill, error) {
	item.ID = uuid.NewString()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO skills (id, name, level, type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, level, type, created_at, updated_at
	`, item.ID, item.Name, item.Level, item.Type).
		Scan(&item.ID, &item.Name, &item.Level, &item.Type, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Skill{}, fmt.Errorf("create skill: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) UpdateSkill(ctx context.Context, id string, item Skill) (Skill, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE skills
		SET name=$2, level=$3, type=$4, updated_at=NOW()
		WHERE id=$1
		RETURNING id, name, level, type, created_at, updated_at
	`, id, item.Name, item.Level, item.Type).
		Scan(&item.ID, &item.Name, &item.Level, &item.Type, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Skill{}, fmt.Errorf("update skill: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteSkill(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "skills", id)
}

// Projects. The tech list is stored as JSONB.

func (s *PostgresStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, image, github_url, live_url, tech, featured, category, created_at, updated_at
		FROM projects
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var items []Project
	for rows.Next() {
		item, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) CreateProject(ctx context.Context, item Project) (Project, error) {
	item.ID = uuid.NewString()
	tech, err := encodeStrings(item.Tech)
	if err != nil {
		return Project{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO projects (id, title, description, image, github_url, live_url, tech, featured, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, title, description, image, github_url, live_url, tech, featured, category, created_at, updated_at
	`, item.ID, item.Title, item.Description, item.Image, item.GithubURL, item.LiveURL, tech, item.Featured, item.Category)
	created, err := scanProject(row)
	if err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateProject(ctx context.Context, id string, item Project) (Project, error) {
	tech, err := encodeStrings(item.Tech)
	if err != nil {
		return Project{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE projects
		SET title=$2, description=$3, image=$4, github_url=$5, live_url=$6, tech=$7, featured=$8, category=$9, updated_at=NOW()
		WHERE id=$1
		RETURNING id, title, description, image, github_url, live_url, tech, featured, category, created_at, updated_at
	`, id, item.Title, item.Description, item.Image, item.GithubURL, item.LiveURL, tech, item.Featured, item.Category)
	updated, err := scanProject(row)
	if err != nil {
		return Project{}, fmt.Errorf("update project: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "projects", id)
}

// Competitions

func (s *PostgresStore) ListCompetitions(ctx context.Context) ([]Competition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, event_type, standing, date, location, team_size, organizer,
			technologies, images, project_url, certificate_url, featured, created_at, updated_at
		FROM competitions
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}
	defer rows.Close()

	var items []Competition
	for rows.Next() {
		item, err := scanCompetition(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) CreateCompetition(ctx context.Context, item Competition) (Competition, error) {
	item.ID = uuid.NewString()
	technologies, err := encodeStrings(item.Technologies)
	if err != nil {
		return Competition{}, err
	}
	images, err := encodeStrings(item.Images)
	if err != nil {
		return Competition{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO competitions (id, title, description, event_type, standing, date, location, team_size,
			organizer, technologies, images, project_url, certificate_url, featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, title, description, event_type, standing, date, location, team_size, organizer,
			technologies, images, project_url, certificate_url, featured, created_at, updated_at
	`, item.ID, item.Title, item.Description, item.EventType, item.Standing, item.Date, item.Location,
		item.TeamSize, item.Organizer, technologies, images, item.ProjectURL, item.CertificateURL, item.Featured)
	created, err := scanCompetition(row)
	if err != nil {
		return Competition{}, fmt.Errorf("create competition: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateCompetition(ctx context.Context, id string, item Competition) (Competition, error) {
	technologies, err := encodeStrings(item.Technologies)
	if err != nil {
		return Competition{}, err
	}
	images, err := encodeStrings(item.Images)
	if err != nil {
		return Competition{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE competitions
		SET title=$2, description=$3, event_type=$4, standing=$5, date=$6, location=$7, team_size=$8,
			organizer=$9, technologies=$10, images=$11, project_url=$12, certificate_url=$13, featured=$14,
			updated_at=NOW()
		WHERE id=$1
		RETURNING id, title, description, event_type, standing, date, location, team_size, organizer,
			technologies, images, project_url, certificate_url, featured, created_at, updated_at
	`, id, item.Title, item.Description, item.EventType, item.Standing, item.Date, item.Location,
		item.TeamSize, item.Organizer, technologies, images, item.ProjectURL, item.CertificateURL, item.Featured)
	updated, err := scanCompetition(row)
	if err != nil {
		return Competition{}, fmt.Errorf("update competition: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteCompetition(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "competitions", id)
}

// About is singleton-like: get returns the most recently updated row,
// update upserts.

func (s *PostgresStore) GetAbout(ctx context.Context) (*About, error) {
	var item About
	err := s.db.QueryRowContext(ctx, `
		SELECT id, content, updated_at
		FROM about
		ORDER BY updated_at DESC
		LIMIT 1
	`).Scan(&item.ID, &item.Content, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get about: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) UpsertAbout(ctx context.Context, content string) (About, error) {
	existing, err := s.GetAbout(ctx)
	if err != nil {
		return About{}, err
	}

	var item About
	if existing != nil {
		err = s.db.QueryRowContext(ctx, `
			UPDATE about SET content=$2, updated_at=NOW() WHERE id=$1
			RETURNING id, content, updated_at
		`, existing.ID, content).Scan(&item.ID, &item.Content, &item.UpdatedAt)
	} else {
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO about (id, content) VALUES ($1, $2)
			RETURNING id, content, updated_at
		`, uuid.NewString(), content).Scan(&item.ID, &item.Content, &item.UpdatedAt)
	}
	if err != nil {
		return About{}, fmt.Errorf("upsert about: %w", err)
	}
	return item, nil
}

// Resume files

func (s *PostgresStore) ListResumeFiles(ctx context.Context) ([]ResumeFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, file_url, file_size, mime_type, is_active, user_id, created_at, updated_at
		FROM resume_files
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list resume files: %w", err)
	}
	defer rows.Close()

	var items []ResumeFile
	for rows.Next() {
		var item ResumeFile
		if err := rows.Scan(&item.ID, &item.Filename, &item.FileURL, &item.FileSize, &item.MimeType, &item.IsActive, &item.UserID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan resume file: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetResumeFile(ctx context.Context, id string) (ResumeFile, error) {
	var item ResumeFile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, file_url, file_size, mime_type, is_active, user_id, created_at, updated_at
		FROM resume_files
		WHERE id=$1
	`, id).Scan(&item.ID, &item.Filename, &item.FileURL, &item.FileSize, &item.MimeType, &item.IsActive, &item.UserID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return ResumeFile{}, err
	}
	return item, nil
}

func (s *PostgresStore) GetActiveResume(ctx context.Context) (*ResumeFile, error) {
	var item ResumeFile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, file_url, file_size, mime_type, is_active, user_id, created_at, updated_at
		FROM resume_files
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&item.ID, &item.Filename, &item.FileURL, &item.FileSize, &item.MimeType, &item.IsActive, &item.UserID, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active resume: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) DeactivateResumes(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE resume_files SET is_active=FALSE, updated_at=NOW()
		WHERE user_id=$1 AND is_active=TRUE
	`, userID)
	if err != nil {
		return fmt.Errorf("deactivate resumes: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertResumeFile(ctx context.Context, item ResumeFile) (ResumeFile, error) {
	item.ID = uuid.NewString()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO resume_files (id, filename, file_url, file_size, mime_type, is_active, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, filename, file_url, file_size, mime_type, is_active, user_id, created_at, updated_at
	`, item.ID, item.Filename, item.FileURL, item.FileSize, item.MimeType, item.IsActive, item.UserID).
		Scan(&item.ID, &item.Filename, &item.FileURL, &item.FileSize, &item.MimeType, &item.IsActive, &item.UserID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return ResumeFile{}, fmt.Errorf("insert resume file: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteResumeFile(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "resume_files", id)
}

// Theme preferences, keyed by the anonymous visitor session id.

func (s *PostgresStore) GetThemePreference(ctx context.Context, userSession string) (string, error) {
	var theme string
	err := s.db.QueryRowContext(ctx, `
		SELECT theme FROM theme_preferences WHERE user_session=$1
	`, userSession).Scan(&theme)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get theme preference: %w", err)
	}
	return theme, nil
}

func (s *PostgresStore) SaveThemePreference(ctx context.Context, userSession, theme string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO theme_preferences (id, user_session, theme)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_session) DO UPDATE SET theme=EXCLUDED.theme
	`, uuid.NewString(), userSession, theme)
	if err != nil {
		return fmt.Errorf("save theme preference: %w", err)
	}
	return nil
}

// helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (Project, error) {
	var item Project
	var tech []byte
	if err := row.Scan(&item.ID, &item.Title, &item.Description, &item.Image, &item.GithubURL, &item.LiveURL, &tech, &item.Featured, &item.Category, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Project{}, err
	}
	if err := decodeStrings(tech, &item.Tech); err != nil {
		return Project{}, fmt.Errorf("decode project tech: %w", err)
	}
	return item, nil
}

func scanCompetition(row rowScanner) (Competition, error) {
	var item Competition
	var technologies, images []byte
	if err := row.Scan(&item.ID, &item.Title, &item.Description, &item.EventType, &item.Standing, &item.Date,
		&item.Location, &item.TeamSize, &item.Organizer, &technologies, &images, &item.ProjectURL,
		&item.CertificateURL, &item.Featured, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Competition{}, err
	}
	if err := decodeStrings(technologies, &item.Technologies); err != nil {
		return Competition{}, fmt.Errorf("decode competition technologies: %w", err)
	}
	if err := decodeStrings(images, &item.Images); err != nil {
		return Competition{}, fmt.Errorf("decode competition images: %w", err)
	}
	return item, nil
}

func encodeStrings(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode string list: %w", err)
	}
	return data, nil
}

func decodeStrings(data []byte, target *[]string) error {
	if len(data) == 0 {
		*target = []string{}
		return nil
	}
	return json.Unmarshal(data, target)
}

func (s *PostgresStore) deleteByID(ctx context.Context, table, id string) error {
	result, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, table), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
