// Package history keeps an append-only log of board snapshots in a local git
// repository. Every successful move commits the full board as board.json;
// the log is read back for history listings and point-in-time views.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"taskboard/api/internal/store"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	boardFile  = "board.json"
	mainBranch = "main"
)

// ErrNotFound reports a snapshot hash that does not resolve to a commit.
var ErrNotFound = errors.New("snapshot not found")

// Archiver mirrors committed snapshots to offsite storage.
type Archiver interface {
	Archive(ctx context.Context, key string, payload []byte) error
}

type Service struct {
	baseDir string
	archive Archiver
	mu      sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{baseDir: baseDir}
}

// NewWithArchive also mirrors every committed snapshot to the archiver.
// Archive failures are logged, never surfaced: the git log is the source of
// truth.
func NewWithArchive(baseDir string, archive Archiver) *Service {
	return &Service{baseDir: baseDir, archive: archive}
}

// Record commits the board state to the snapshot log and returns the commit
// info.
func (s *Service) Record(board []store.Record, message string) (store.SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.openOrInit()
	if err != nil {
		return store.SnapshotInfo{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return store.SnapshotInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(board, "", "  ")
	if err != nil {
		return store.SnapshotInfo{}, fmt.Errorf("marshal board: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.baseDir, boardFile), append(payload, '\n'), 0o644); err != nil {
		return store.SnapshotInfo{}, fmt.Errorf("write board.json: %w", err)
	}
	if _, err := worktree.Add(boardFile); err != nil {
		return store.SnapshotInfo{}, fmt.Errorf("git add board.json: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  "Taskboard",
			Email: "taskboard@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return store.SnapshotInfo{}, fmt.Errorf("commit board: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return store.SnapshotInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	info := toSnapshotInfo(commitObj)

	if s.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.archive.Archive(ctx, hash.String()+".json", payload); err != nil {
			log.Printf("history: archive snapshot %s: %v", info.Hash, err)
		}
	}

	return info, nil
}

// History returns the most recent snapshots, newest first. A limit <= 0
// returns the whole log.
func (s *Service) History(limit int) ([]store.SnapshotInfo, error) {
	if limit < 0 {
		limit = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.baseDir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []store.SnapshotInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot repo: %w", err)
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(mainBranch), true)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", mainBranch, err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]store.SnapshotInfo, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toSnapshotInfo(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Snapshot returns the board as it was at the given commit hash.
func (s *Service) Snapshot(hash string) ([]store.Record, store.SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.baseDir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, store.SnapshotInfo{}, ErrNotFound
	}
	if err != nil {
		return nil, store.SnapshotInfo{}, fmt.Errorf("open snapshot repo: %w", err)
	}

	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return nil, store.SnapshotInfo{}, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return nil, store.SnapshotInfo{}, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}

	board, err := readBoardFromCommit(commitObj)
	if err != nil {
		return nil, store.SnapshotInfo{}, err
	}
	return board, toSnapshotInfo(commitObj), nil
}

func (s *Service) openOrInit() (*git.Repository, error) {
	repo, err := git.PlainOpen(s.baseDir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open snapshot repo: %w", err)
	}

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	repo, err = git.PlainInit(s.baseDir, false)
	if err != nil {
		return nil, fmt.Errorf("init snapshot repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(mainBranch))); err != nil {
		return nil, fmt.Errorf("set HEAD to %s: %w", mainBranch, err)
	}
	return repo, nil
}

func toSnapshotInfo(commitObj *object.Commit) store.SnapshotInfo {
	return store.SnapshotInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func readBoardFromCommit(commitObj *object.Commit) ([]store.Record, error) {
	file, err := commitObj.File(boardFile)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", boardFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open board reader: %w", err)
	}
	defer reader.Close()

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read board bytes: %w", err)
	}

	var board []store.Record
	if err := json.Unmarshal(payload, &board); err != nil {
		return nil, fmt.Errorf("decode board snapshot: %w", err)
	}
	return board, nil
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}
