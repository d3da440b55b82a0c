package modelstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/match-predictor/internal/ml/predictor"
	"github.com/riskibarqy/match-predictor/internal/usecase"
)

const latestFile = "latest.json"

var safeIDRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileStore keeps one JSON artifact per model id under dir plus a copy of the
// newest one in latest.json. Writes go through a temp file and rename so a
// reader never sees a partial artifact.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("%w: model dir is required", usecase.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Save(ctx context.Context, model *predictor.Model) error {
	if model == nil || !safeIDRegex.MatchString(model.ID) {
		return fmt.Errorf("%w: model id is missing or unsafe", usecase.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := sonic.ConfigStd.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model id=%s: %w", model.ID, err)
	}
	if err := s.writeAtomic(model.ID+".json", raw); err != nil {
		return err
	}
	return s.writeAtomic(latestFile, raw)
}

// Latest returns the newest saved model, or usecase.ErrNoModel.
func (s *FileStore) Latest(ctx context.Context) (*predictor.Model, error) {
	return s.read(ctx, latestFile)
}

func (s *FileStore) Get(ctx context.Context, id string) (*predictor.Model, error) {
	if !safeIDRegex.MatchString(id) {
		return nil, fmt.Errorf("%w: unsafe model id %q", usecase.ErrInvalidInput, id)
	}
	return s.read(ctx, id+".json")
}

func (s *FileStore) read(ctx context.Context, name string) (*predictor.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", usecase.ErrNoModel, name)
		}
		return nil, fmt.Errorf("read model %s: %w", name, err)
	}

	var model predictor.Model
	if err := sonic.ConfigStd.Unmarshal(raw, &model); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", name, err)
	}
	return &model, nil
}

func (s *FileStore) writeAtomic(name string, raw []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write model %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync model %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("publish model %s: %w", name, err)
	}
	return nil
}
