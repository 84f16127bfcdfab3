package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/markjakearzadon/apostas-gobackend/internal/models"
)

// FixtureCache is satisfied by cache.JSONCache.
type FixtureCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// FixtureQuery filters the fixtures listing. League or Date is required.
type FixtureQuery struct {
	League string
	Season string
	Date   string
}

var (
	leaguePattern = regexp.MustCompile(`^\d{1,6}$`)
	seasonPattern = regexp.MustCompile(`^\d{4}$`)
)

func (q FixtureQuery) validate() error {
	if q.League == "" && q.Date == "" {
		return fmt.Errorf("%w: league or date is required", ErrInvalidRequest)
	}
	if q.League != "" && !leaguePattern.MatchString(q.League) {
		return fmt.Errorf("%w: league must be numeric", ErrInvalidRequest)
	}
	if q.Season != "" && !seasonPattern.MatchString(q.Season) {
		return fmt.Errorf("%w: season must be a year", ErrInvalidRequest)
	}
	if q.Date != "" {
		if _, err := time.Parse("2006-01-02", q.Date); err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
		}
	}
	return nil
}

func (q FixtureQuery) values() url.Values {
	v := url.Values{}
	if q.League != "" {
		v.Set("league", q.League)
	}
	if q.Season != "" {
		v.Set("season", q.Season)
	}
	if q.Date != "" {
		v.Set("date", q.Date)
	}
	v.Set("timezone", "America/Sao_Paulo")
	return v
}

// FixtureService lists matches from API-Football, caching each query.
type FixtureService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   FixtureCache
	ttl     time.Duration
	log     *zap.Logger
}

// NewFixtureService builds the service. cache may be nil.
func NewFixtureService(apiKey, baseURL string, cache FixtureCache, ttl time.Duration, log *zap.Logger) *FixtureService {
	return &FixtureService{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		ttl:     ttl,
		log:     log,
	}
}

type apiFootballResponse struct {
	Errors   json.RawMessage `json:"errors"`
	Response []struct {
		Fixture struct {
			ID     int       `json:"id"`
			Date   time.Time `json:"date"`
			Status struct {
				Short string `json:"short"`
			} `json:"status"`
		} `json:"fixture"`
		League struct {
			Name  string `json:"name"`
			Round string `json:"round"`
		} `json:"league"`
		Teams struct {
			Home struct {
				Name string `json:"name"`
			} `json:"home"`
			Away struct {
				Name string `json:"name"`
			} `json:"away"`
		} `json:"teams"`
		Goals struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"goals"`
	} `json:"response"`
}

// ListFixtures returns the fixtures matching q, from the cache when
// possible. It returns ErrDisabled when no API key is configured.
func (s *FixtureService) ListFixtures(ctx context.Context, q FixtureQuery) ([]models.Fixture, error) {
	if s.apiKey == "" {
		return nil, ErrDisabled
	}
	if err := q.validate(); err != nil {
		return nil, err
	}

	values := q.values()
	key := values.Encode()
	if s.cache != nil {
		var cached []models.Fixture
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("fixtures cache read failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/fixtures?"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("x-apisports-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("fixtures request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: fixtures api status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out apiFootballResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode fixtures: %v", ErrUpstream, err)
	}
	if e := strings.TrimSpace(string(out.Errors)); e != "" && e != "[]" && e != "{}" && e != "null" {
		return nil, fmt.Errorf("%w: fixtures api: %s", ErrUpstream, e)
	}

	fixtures := make([]models.Fixture, 0, len(out.Response))
	for _, r := range out.Response {
		fixtures = append(fixtures, models.Fixture{
			ID:       r.Fixture.ID,
			Date:     r.Fixture.Date,
			Status:   r.Fixture.Status.Short,
			League:   r.League.Name,
			Round:    r.League.Round,
			Home:     r.Teams.Home.Name,
			Away:     r.Teams.Away.Name,
			HomeGoal: r.Goals.Home,
			AwayGoal: r.Goals.Away,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, fixtures, s.ttl); err != nil {
			s.log.Warn("fixtures cache write failed", zap.Error(err))
		}
	}
	return fixtures, nil
}
