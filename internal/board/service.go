package board

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"taskboard/api/internal/config"
	"taskboard/api/internal/rank"
	"taskboard/api/internal/search"
	"taskboard/api/internal/store"
)

type recordStore interface {
	GetRecord(context.Context, int64) (store.Record, error)
	ListRecords(context.Context, *rank.Lane) ([]store.Record, error)
	CountRecords(context.Context) (int, error)
	InsertRecord(context.Context, store.Record) error
	MoveRecord(context.Context, int64, rank.Move, rank.Policy) error
	Ping(ctx context.Context) error
}

type boardCache interface {
	GetBoard(context.Context) ([]store.Record, error)
	SetBoard(context.Context, []store.Record) error
	Invalidate(context.Context) error
	Ping(ctx context.Context) error
}

type snapshotLog interface {
	Record(board []store.Record, message string) (store.SnapshotInfo, error)
	History(limit int) ([]store.SnapshotInfo, error)
	Snapshot(hash string) ([]store.Record, store.SnapshotInfo, error)
}

type searcher interface {
	Search(q search.Query) search.Response
	IndexRecords(records []search.RecordDoc)
}

type Service struct {
	cfg     config.Config
	store   recordStore
	cache   boardCache
	history snapshotLog
	search  searcher
}

func New(cfg config.Config, recordStore *store.PostgresStore, history snapshotLog, searchService *search.Service) *Service {
	return &Service{
		cfg:     cfg,
		store:   recordStore,
		history: history,
		search:  searchService,
	}
}

// NewWithCache wires an optional Redis board cache in front of the full
// listing. The allocator path never reads from it.
func NewWithCache(cfg config.Config, recordStore *store.PostgresStore, cache boardCache, history snapshotLog, searchService *search.Service) *Service {
	service := New(cfg, recordStore, history, searchService)
	service.cache = cache
	return service
}

// Bootstrap seeds a demo board when the records table is empty. There is no
// creation endpoint, so this is the only path that inserts records.
func (s *Service) Bootstrap(ctx context.Context) error {
	count, err := s.store.CountRecords(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		seeds := []store.Record{
			{ID: 1, Title: "Intake call with Harford", Notes: "Collect signed engagement letter.", Lane: rank.LaneBacklog, Rank: 1},
			{ID: 2, Title: "Draft Q3 proposal", Notes: "Waiting on pricing sheet.", Lane: rank.LaneBacklog, Rank: 2},
			{ID: 3, Title: "Review MSA redlines", Notes: "", Lane: rank.LaneBacklog, Rank: 3},
			{ID: 4, Title: "Onboard Meridian account", Notes: "Kickoff scheduled.", Lane: rank.LaneInProgress, Rank: 1},
			{ID: 5, Title: "Migrate billing records", Notes: "", Lane: rank.LaneInProgress, Rank: 2},
			{ID: 6, Title: "Close out Vantage renewal", Notes: "Countersigned.", Lane: rank.LaneComplete, Rank: 1},
		}
		for _, seed := range seeds {
			if err := s.store.InsertRecord(ctx, seed); err != nil {
				return err
			}
		}
	}

	listing, err := s.store.ListRecords(ctx, nil)
	if err != nil {
		return err
	}
	s.indexListing(listing)
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) CacheConfigured() bool {
	return s.cache != nil
}

func (s *Service) CachePing(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Ping(ctx)
}

func (s *Service) GetRecord(ctx context.Context, id int64) (store.Record, error) {
	return s.store.GetRecord(ctx, id)
}

// ListRecords returns the board ordered by lane then rank. The unfiltered
// listing is served from the cache when one is wired and warm; a lane filter
// always reads through to the store.
func (s *Service) ListRecords(ctx context.Context, laneFilter string) ([]store.Record, error) {
	if laneFilter == "" {
		if s.cache != nil {
			if cached, err := s.cache.GetBoard(ctx); err != nil {
				log.Printf("cache: read board: %v", err)
			} else if cached != nil {
				return cached, nil
			}
		}
		listing, err := s.store.ListRecords(ctx, nil)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.SetBoard(ctx, listing); err != nil {
				log.Printf("cache: write board: %v", err)
			}
		}
		return listing, nil
	}

	lane, ok := rank.ParseLane(laneFilter)
	if !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "INVALID_LANE", fmt.Sprintf("lane must be one of backlog, inProgress, complete; got %q", laneFilter), nil)
	}
	return s.store.ListRecords(ctx, &lane)
}

// UpdateRecord moves a record to a new lane and/or rank and returns the full
// post-update listing. All input errors are reported before the store is
// touched; the move itself is one atomic transaction in the store.
func (s *Service) UpdateRecord(ctx context.Context, id int64, laneRaw *string, rankValue *int) ([]store.Record, error) {
	if laneRaw == nil && rankValue == nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "at least one of lane or rank is required", nil)
	}

	var lane rank.Lane
	if laneRaw != nil {
		parsed, ok := rank.ParseLane(*laneRaw)
		if !ok {
			return nil, domainError(http.StatusUnprocessableEntity, "INVALID_LANE", fmt.Sprintf("lane must be one of backlog, inProgress, complete; got %q", *laneRaw), nil)
		}
		lane = parsed
	}
	if rankValue != nil && *rankValue < 1 {
		return nil, domainError(http.StatusUnprocessableEntity, "INVALID_RANK", "rank must be a positive integer", nil)
	}

	var move rank.Move
	switch {
	case laneRaw != nil && rankValue != nil:
		move = rank.ChangeBoth{Lane: lane, Rank: *rankValue}
	case laneRaw != nil:
		move = rank.ChangeLane{Lane: lane}
	default:
		move = rank.ChangeRank{Rank: *rankValue}
	}

	if err := s.store.MoveRecord(ctx, id, move, rank.Policy{ClampRank: s.cfg.ClampRank}); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.Printf("cache: invalidate board: %v", err)
		}
	}

	listing, err := s.store.ListRecords(ctx, nil)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetBoard(ctx, listing); err != nil {
			log.Printf("cache: write board: %v", err)
		}
	}

	if s.history != nil {
		if _, err := s.history.Record(listing, moveMessage(id, move)); err != nil {
			log.Printf("history: snapshot after move of %d: %v", id, err)
		}
	}
	s.indexListing(listing)

	return listing, nil
}

func (s *Service) Search(ctx context.Context, q, laneFilter string, limit, offset int) (search.Response, error) {
	if laneFilter != "" {
		if _, ok := rank.ParseLane(laneFilter); !ok {
			return search.Response{}, domainError(http.StatusUnprocessableEntity, "INVALID_LANE", fmt.Sprintf("lane must be one of backlog, inProgress, complete; got %q", laneFilter), nil)
		}
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q}, nil
	}
	return s.search.Search(search.Query{
		Text:       q,
		FilterLane: laneFilter,
		Limit:      limit,
		Offset:     offset,
	}), nil
}

func (s *Service) History(limit int) ([]store.SnapshotInfo, error) {
	if s.history == nil {
		return []store.SnapshotInfo{}, nil
	}
	return s.history.History(limit)
}

func (s *Service) HistorySnapshot(hash string) ([]store.Record, store.SnapshotInfo, error) {
	if s.history == nil {
		return nil, store.SnapshotInfo{}, domainError(http.StatusNotFound, "NOT_FOUND", "history is not configured", nil)
	}
	return s.history.Snapshot(hash)
}

func (s *Service) indexListing(listing []store.Record) {
	if s.search == nil {
		return
	}
	docs := make([]search.RecordDoc, 0, len(listing))
	for _, item := range listing {
		docs = append(docs, search.RecordDoc{
			ID:    item.ID,
			Title: item.Title,
			Notes: item.Notes,
			Lane:  string(item.Lane),
			Rank:  item.Rank,
		})
	}
	s.search.IndexRecords(docs)
}

func moveMessage(id int64, move rank.Move) string {
	switch m := move.(type) {
	case rank.ChangeLane:
		return fmt.Sprintf("Move record %d to %s", id, m.Lane)
	case rank.ChangeRank:
		return fmt.Sprintf("Re-rank record %d to %d", id, m.Rank)
	case rank.ChangeBoth:
		return fmt.Sprintf("Move record %d to %s at rank %d", id, m.Lane, m.Rank)
	}
	return fmt.Sprintf("Update record %d", id)
}
