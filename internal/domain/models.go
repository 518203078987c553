package domain

import (
	"slices"
	"strings"
	"sync"
	"time"
)

type TitleGroup string

var titleGroups = []TitleGroup{"GM", "WGM", "IM", "WIM", "FM", "WFM", "NM", "WNM", "CM", "WCM"}

func ParseTitleGroup(s string) (TitleGroup, bool) {
	t := TitleGroup(strings.ToUpper(strings.TrimSpace(s)))
	return t, slices.Contains(titleGroups, t)
}

type PlayerHandle struct {
	TitleGroup TitleGroup
	Username   string
	Position   int // index in the roster as published by the source
}

type PlayerProfile struct {
	PlayerID           int64    `json:"player_id"`
	ID                 string   `json:"@id"`
	URL                string   `json:"url"`
	Username           string   `json:"username"`
	Name               string   `json:"name"`
	Avatar             string   `json:"avatar"`
	Title              string   `json:"title"`
	Followers          int      `json:"followers"`
	Country            string   `json:"country"`
	Location           string   `json:"location"`
	LastOnline         int64    `json:"last_online"`
	Joined             int64    `json:"joined"`
	Status             string   `json:"status"`
	IsStreamer         bool     `json:"is_streamer"`
	Verified           bool     `json:"verified"`
	League             string   `json:"league"`
	StreamingPlatforms []string `json:"streaming_platforms"`
}

type GameSide struct {
	ID       string `json:"@id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}

type GameRecord struct {
	Player      string   `json:"-"` // username the game was fetched under
	URL         string   `json:"url"`
	EndTime     int64    `json:"end_time"`
	Rated       bool     `json:"rated"`
	TimeClass   string   `json:"time_class"`
	TimeControl string   `json:"time_control"`
	Rules       string   `json:"rules"`
	PGN         string   `json:"pgn"`
	ECO         string   `json:"eco"`
	White       GameSide `json:"white"`
	Black       GameSide `json:"black"`
}

type EntityKind string

const (
	KindRoster  EntityKind = "roster"
	KindPlayer  EntityKind = "player"
	KindProfile EntityKind = "profile"
	KindGame    EntityKind = "game"
)

type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSuccess   RunStatus = "success"
	StatusPartial   RunStatus = "partial"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

type Failure struct {
	Kind EntityKind
	Path string
	Err  error
}

// RunSummary is safe for concurrent use while a run is in progress.
type RunSummary struct {
	RunID      string
	TitleGroup TitleGroup
	StartedAt  time.Time
	FinishedAt time.Time

	mu       sync.Mutex
	status   RunStatus
	players  int
	profiles int
	games    int
	failures []Failure
}

func NewRunSummary(runID string, title TitleGroup) *RunSummary {
	return &RunSummary{
		RunID:      runID,
		TitleGroup: title,
		StartedAt:  time.Now(),
		status:     StatusRunning,
	}
}

func (s *RunSummary) AddLoaded(kind EntityKind, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case KindPlayer:
		s.players += n
	case KindProfile:
		s.profiles += n
	case KindGame:
		s.games += n
	}
}

func (s *RunSummary) AddFailure(f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
}

// Finish stamps the run and derives the terminal status. fatal marks a run
// that could not proceed at all; cancelled takes precedence over the counts.
func (s *RunSummary) Finish(fatal, cancelled bool) RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FinishedAt = time.Now()
	loaded := s.players + s.profiles + s.games
	switch {
	case cancelled:
		s.status = StatusCancelled
	case fatal:
		s.status = StatusFailed
	case len(s.failures) == 0:
		s.status = StatusSuccess
	case loaded > 0:
		s.status = StatusPartial
	default:
		s.status = StatusFailed
	}
	return s.status
}

func (s *RunSummary) Status() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *RunSummary) Players() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players
}

func (s *RunSummary) Profiles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles
}

func (s *RunSummary) Games() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.games
}

func (s *RunSummary) Loaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players + s.profiles + s.games
}

func (s *RunSummary) Failures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.failures)
}
