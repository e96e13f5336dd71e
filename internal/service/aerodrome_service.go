package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/models"
	"github.com/wilheimcosta/adwrng2/internal/repository"
)

type IAerodromeService interface {
	ListFavorites(ctx context.Context) ([]models.FavoriteAerodrome, error)
	AddFavorite(ctx context.Context, icao, label string) (*models.FavoriteAerodrome, error)
	RemoveFavorite(ctx context.Context, icao string) (bool, error)
	GetStatus(icao string) *models.AerodromeStatus
	AllStatuses() []models.AerodromeStatus
}

// AerodromeService keeps the watch list (configured ICAOs plus favorites)
// and the latest flight-rule status of every watched aerodrome.
type AerodromeService struct {
	source    StatusSource
	favorites repository.IFavoriteRepository
	static    []string
	log       *logger.Logger

	statusMux sync.RWMutex
	status    map[string]*models.AerodromeStatus
}

func NewAerodromeService(source StatusSource, favorites repository.IFavoriteRepository, static []string, log *logger.Logger) *AerodromeService {
	return &AerodromeService{
		source:    source,
		favorites: favorites,
		static:    static,
		log:       log.With("aerodromes"),
		status:    make(map[string]*models.AerodromeStatus),
	}
}

func (s *AerodromeService) ListFavorites(ctx context.Context) ([]models.FavoriteAerodrome, error) {
	favs, err := s.favorites.List(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list favorites", Err: err}
	}
	return favs, nil
}

// AddFavorite stores icao (already validated by the caller) or relabels it.
func (s *AerodromeService) AddFavorite(ctx context.Context, icao, label string) (*models.FavoriteAerodrome, error) {
	fav := &models.FavoriteAerodrome{
		ICAO:  icao,
		Label: strings.TrimSpace(label),
	}
	if err := s.favorites.Upsert(ctx, fav); err != nil {
		return nil, &StoreError{Op: "save favorite", Err: err}
	}
	s.log.Info("Favorite %s saved", icao)
	return fav, nil
}

// RemoveFavorite reports false when icao was not a favorite.
func (s *AerodromeService) RemoveFavorite(ctx context.Context, icao string) (bool, error) {
	removed, err := s.favorites.Delete(ctx, icao)
	if err != nil {
		return false, &StoreError{Op: "delete favorite", Err: err}
	}
	if removed {
		s.statusMux.Lock()
		delete(s.status, icao)
		s.statusMux.Unlock()
		s.log.Info("Favorite %s removed", icao)
	}
	return removed, nil
}

// WatchList returns the configured ICAOs followed by favorites, deduplicated.
// When favorites cannot be read the configured list is still returned.
func (s *AerodromeService) WatchList(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	codes := make([]string, 0, len(s.static))
	add := func(code string) {
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		codes = append(codes, code)
	}

	for _, code := range s.static {
		add(code)
	}

	favs, err := s.favorites.List(ctx)
	if err != nil {
		return codes, &StoreError{Op: "list favorites", Err: err}
	}
	for _, fav := range favs {
		add(fav.ICAO)
	}
	return codes, nil
}

// RefreshStatus fetches and caches the flight-rule status of icao.
func (s *AerodromeService) RefreshStatus(ctx context.Context, icao string) (*models.AerodromeStatus, error) {
	status, err := s.source.FetchStatus(ctx, icao)
	if err != nil {
		return nil, &SourceFetchError{ICAO: icao, Err: fmt.Errorf("status: %w", err)}
	}

	s.statusMux.Lock()
	prev := s.status[icao]
	s.status[icao] = status
	s.statusMux.Unlock()

	if prev != nil && prev.FlightRule != status.FlightRule {
		s.log.Info("%s flight rule changed %s -> %s", icao, prev.FlightRule, status.FlightRule)
	}
	return status, nil
}

func (s *AerodromeService) GetStatus(icao string) *models.AerodromeStatus {
	s.statusMux.RLock()
	defer s.statusMux.RUnlock()
	return s.status[icao]
}

// AllStatuses returns the cached statuses ordered by ICAO.
func (s *AerodromeService) AllStatuses() []models.AerodromeStatus {
	s.statusMux.RLock()
	out := make([]models.AerodromeStatus, 0, len(s.status))
	for _, st := range s.status {
		out = append(out, *st)
	}
	s.statusMux.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ICAO < out[j].ICAO })
	return out
}

// PruneStale drops statuses not refreshed within maxAge.
func (s *AerodromeService) PruneStale(now time.Time, maxAge time.Duration) {
	s.statusMux.Lock()
	defer s.statusMux.Unlock()

	for icao, st := range s.status {
		if now.Sub(st.UpdatedAt) > maxAge {
			delete(s.status, icao)
			s.log.Debug("Removed stale status for %s", icao)
		}
	}
}
