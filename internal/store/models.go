package store

import "time"

type Experience struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	Organization string    `json:"organization"`
	Period       string    `json:"period"`
	Location     string    `json:"location"`
	Description  string    `json:"description"`
	Type         string    `json:"type"` // professional | leadership
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Skill struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Level     int       `json:"level"` // 0-100
	Type      string    `json:"type"`  // technical | soft
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	GithubURL   string    `json:"github_url"`
	LiveURL     *string   `json:"live_url,omitempty"`
	Tech        []string  `json:"tech"`
	Featured    bool      `json:"featured"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Competition struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	EventType      string    `json:"event_type"`
	Standing       string    `json:"standing"`
	Date           string    `json:"date"`
	Location       string    `json:"location"`
	TeamSize       int       `json:"team_size"`
	Organizer      string    `json:"organizer"`
	Technologies   []string  `json:"technologies"`
	Images         []string  `json:"images"`
	ProjectURL     *string   `json:"project_url,omitempty"`
	CertificateURL *string   `json:"certificate_url,omitempty"`
	Featured       bool      `json:"featured"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type About struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ResumeFile struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	FileURL   string    `json:"file_url"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	IsActive  bool      `json:"is_active"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ThemePreference struct {
	ID          string `json:"id"`
	UserSession string `json:"user_session"`
	Theme       string `json:"theme"` // light | dark
}
