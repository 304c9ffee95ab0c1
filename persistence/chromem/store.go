package chromem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/flarexio/vecview/vector"
)

// chromem-go writes each collection's name and metadata to this file.
const metadataFileName = "00000000"

var (
	ErrNoStoreFiles       = errors.New("no vector store files found")
	ErrMixedEncoding      = errors.New("mixed compressed and uncompressed collections")
	ErrStoreClosed        = errors.New("store closed")
	ErrInvalidEncryptKey  = errors.New("encryption key must be 32 bytes long")
	ErrSnapshotEncryption = errors.New("encryption key is only supported for snapshot files")
)

// NewStore opens a chromem-go store read-only. The location is, in order of
// precedence, a remote snapshot, a snapshot file, or a persistent directory.
func NewStore(ctx context.Context, cfg vector.Config) (vector.Store, error) {
	log := zap.L().With(
		zap.String("component", "chromem"),
	)

	if cfg.EncryptionKey != "" && len(cfg.EncryptionKey) != 32 {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, ErrInvalidEncryptKey)
	}

	var (
		db       *chromem.DB
		location string
		err      error
	)

	switch {
	case cfg.Remote.Enabled():
		location = cfg.Remote.Bucket + "/" + cfg.Remote.Object
		db, err = openRemoteSnapshot(ctx, cfg.Remote, cfg.EncryptionKey)

	default:
		location = cfg.Path
		db, err = openLocal(cfg)
	}

	if err != nil {
		return nil, err
	}

	log.Info("store opened", zap.String("location", location))

	return &store{
		db:       db,
		location: location,
		indexes:  make(map[string]*index),
		log:      log,
	}, nil
}

func openLocal(cfg vector.Config) (*chromem.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: path is empty", vector.ErrConnection)
	}

	path := filepath.Clean(cfg.Path)

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	if !fi.IsDir() {
		return openSnapshotFile(path, cfg.EncryptionKey)
	}

	if cfg.EncryptionKey != "" {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, ErrSnapshotEncryption)
	}

	compress, err := detectEncoding(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", vector.ErrConnection, path, err)
	}

	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	return db, nil
}

func openSnapshotFile(path string, encryptionKey string) (*chromem.DB, error) {
	db := chromem.NewDB()
	if err := db.ImportFromFile(path, encryptionKey); err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	return db, nil
}

// detectEncoding looks for collection metadata files under path and reports
// whether they are gzip compressed. A directory without any collection is
// not a store.
func detectEncoding(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}

	var plain, compressed bool
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(path, entry.Name())

		if exists(filepath.Join(dir, metadataFileName+".gob")) {
			plain = true
		}

		if exists(filepath.Join(dir, metadataFileName+".gob.gz")) {
			compressed = true
		}
	}

	switch {
	case plain && compressed:
		return false, ErrMixedEncoding
	case !plain && !compressed:
		return false, ErrNoStoreFiles
	}

	return compressed, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type store struct {
	db       *chromem.DB
	location string
	closed   bool

	indexes map[string]*index
	loads   singleflight.Group
	mu      sync.RWMutex

	log *zap.Logger
}

func (s *store) handle() (*chromem.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, ErrStoreClosed)
	}

	return s.db, nil
}

func (s *store) ListCollections(ctx context.Context) ([]string, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	collections := db.ListCollections()

	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}

	slices.Sort(names)
	return names, nil
}

func (s *store) Collection(ctx context.Context, name string) (vector.Collection, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: collection name is empty", vector.ErrInvalidArgument)
	}

	c := db.GetCollection(name, readOnlyEmbeddingFunc)
	if c == nil {
		return nil, fmt.Errorf("collection %q: %w", name, vector.ErrNotFound)
	}

	idx, err := s.index(ctx, db, name)
	if err != nil {
		return nil, err
	}

	return &collection{
		c:     c,
		index: idx,
		owner: s,
	}, nil
}

// index returns the cached index of a collection, building it at most once
// even under concurrent first opens.
func (s *store) index(ctx context.Context, db *chromem.DB, name string) (*index, error) {
	s.mu.RLock()
	idx, ok := s.indexes[name]
	s.mu.RUnlock()

	if ok {
		return idx, nil
	}

	v, err, _ := s.loads.Do(name, func() (any, error) {
		idx, err := buildIndex(ctx, db, name)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if !s.closed {
			s.indexes[name] = idx
		}
		s.mu.Unlock()

		s.log.Info("collection indexed",
			zap.String("collection", name),
			zap.Int("count", len(idx.ids)),
			zap.Int("dimension", idx.schema.Dimension),
		)

		return idx, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*index), nil
}

func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.db = nil
	s.indexes = make(map[string]*index)

	s.log.Info("store closed", zap.String("location", s.location))
	return nil
}

// chromem-go requires an embedding function per collection. The viewer
// never embeds through the store, so this one refuses.
func readOnlyEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("store is read-only, embeddings must be supplied by the caller")
}
