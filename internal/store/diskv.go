package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"studycycle/backend/internal/model"
)

// Disk persists records as JSON files below basePath, one directory per user.
type Disk struct {
	d        *diskv.Diskv
	basePath string
}

func NewDisk(basePath string) (*Disk, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, errors.New("store: base path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}
	return &Disk{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			CacheSizeMax:      256 * 1024,
		}),
		basePath: basePath,
	}, nil
}

func (s *Disk) LoadTimer(_ context.Context, userID string) (*model.TimerSnapshot, error) {
	data, err := s.read(toKey(userID, kindTimer))
	if err != nil {
		return nil, err
	}
	snap, err := decodeTimer(data)
	if err != nil {
		return nil, fmt.Errorf("store: decode timer: %w", err)
	}
	return snap, nil
}

func (s *Disk) SaveTimer(_ context.Context, userID string, snap *model.TimerSnapshot) error {
	data, err := encodeTimer(snap)
	if err != nil {
		return fmt.Errorf("store: encode timer: %w", err)
	}
	if err := s.d.Write(toKey(userID, kindTimer), data); err != nil {
		return fmt.Errorf("store: write timer: %w", err)
	}
	return nil
}

func (s *Disk) LoadCycle(_ context.Context, userID string) (*model.CycleRecord, error) {
	data, err := s.read(toKey(userID, kindCycle))
	if err != nil {
		return nil, err
	}
	rec, err := decodeCycle(data)
	if err != nil {
		return nil, fmt.Errorf("store: decode cycle: %w", err)
	}
	return rec, nil
}

func (s *Disk) SaveCycle(_ context.Context, userID string, rec *model.CycleRecord) error {
	data, err := encodeCycle(rec)
	if err != nil {
		return fmt.Errorf("store: encode cycle: %w", err)
	}
	if err := s.d.Write(toKey(userID, kindCycle), data); err != nil {
		return fmt.Errorf("store: write cycle: %w", err)
	}
	return nil
}

func (s *Disk) Clear(_ context.Context, userID string) error {
	for _, kind := range []string{kindTimer, kindCycle} {
		key := toKey(userID, kind)
		if !s.d.Has(key) {
			continue
		}
		if err := s.d.Erase(key); err != nil {
			return fmt.Errorf("store: erase %s: %w", kind, err)
		}
	}
	return nil
}

// Users lists every user with at least one record.
func (s *Disk) Users(ctx context.Context) []string {
	seen := make(map[string]struct{})
	users := make([]string, 0)
	for key := range s.d.Keys(ctx.Done()) {
		pk := keyToPathTransform(key)
		if len(pk.Path) == 0 {
			continue
		}
		raw, err := hex.DecodeString(pk.Path[0])
		if err != nil {
			continue
		}
		user := string(raw)
		if _, ok := seen[user]; ok {
			continue
		}
		seen[user] = struct{}{}
		users = append(users, user)
	}
	return users
}

func (s *Disk) read(key string) ([]byte, error) {
	if !s.d.Has(key) {
		return nil, ErrNotFound
	}
	data, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: read %s: %w", key, err)
	}
	return data, nil
}

// toKey makes `hex(user)-kind`; hex keeps the separator out of user ids.
func toKey(userID, kind string) string {
	return fmt.Sprintf("%s-%s", hex.EncodeToString([]byte(userID)), kind)
}

func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, "-")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return fmt.Sprintf("%s-%s", strings.Join(pathKey.Path, "-"), pathKey.FileName)
}
