// pkg/registry/filestore.go

package registry

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileStore persists each key path as one YAML document under a root
// directory: path "apps/onedrive" -> <root>/apps/onedrive.yaml holding a
// name -> Value map.
type FileStore struct {
	Root string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Root: dir}
}

func (s *FileStore) keyFile(path string) (string, error) {
	cleaned := filepath.Clean(strings.TrimPrefix(path, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", cerr.Newf("registry: invalid key path %q", path)
	}
	return filepath.Join(s.Root, cleaned+".yaml"), nil
}

func (s *FileStore) load(path string) (map[string]Value, error) {
	file, err := s.keyFile(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, cerr.Wrapf(err, "registry: read key %q", path)
	}
	values := make(map[string]Value)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, cerr.Wrapf(err, "registry: parse key %q", path)
	}
	return values, nil
}

func (s *FileStore) save(path string, values map[string]Value) error {
	file, err := s.keyFile(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return cerr.Wrapf(err, "registry: create key dir for %q", path)
	}
	data, err := yaml.Marshal(values)
	if err != nil {
		return cerr.Wrapf(err, "registry: encode key %q", path)
	}
	return os.WriteFile(file, data, 0o644)
}

// Get returns the value stored at (path, name).
func (s *FileStore) Get(rc *iaso_io.RuntimeContext, path, name string) (Value, error) {
	values, err := s.load(path)
	if err != nil {
		return Value{}, err
	}
	value, ok := values[name]
	if !ok {
		return Value{}, ErrNotFound
	}
	return value, nil
}

// Set writes a typed value at (path, name).
func (s *FileStore) Set(rc *iaso_io.RuntimeContext, path, name string, value Value) error {
	logger := otelzap.Ctx(rc.Ctx)

	values, err := s.load(path)
	if err != nil {
		if !cerr.Is(err, ErrNotFound) {
			return err
		}
		values = make(map[string]Value)
	}
	values[name] = value

	if err := s.save(path, values); err != nil {
		return err
	}
	logger.Info("Registry value set",
		zap.String("path", path),
		zap.String("name", name),
		zap.String("kind", string(value.Kind)))
	return nil
}

// Delete removes the named value; missing values are a no-op.
func (s *FileStore) Delete(rc *iaso_io.RuntimeContext, path, name string) error {
	logger := otelzap.Ctx(rc.Ctx)

	values, err := s.load(path)
	if err != nil {
		if cerr.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if _, ok := values[name]; !ok {
		return nil
	}
	delete(values, name)

	if len(values) == 0 {
		return s.DeleteKey(rc, path)
	}
	if err := s.save(path, values); err != nil {
		return err
	}
	logger.Info("Registry value deleted",
		zap.String("path", path),
		zap.String("name", name))
	return nil
}

// KeyExists reports whether the key path holds any values.
func (s *FileStore) KeyExists(rc *iaso_io.RuntimeContext, path string) (bool, error) {
	_, err := s.load(path)
	if err != nil {
		if cerr.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteKey removes the whole key path. Missing keys are a no-op.
func (s *FileStore) DeleteKey(rc *iaso_io.RuntimeContext, path string) error {
	logger := otelzap.Ctx(rc.Ctx)

	file, err := s.keyFile(path)
	if err != nil {
		return err
	}
	if err := os.Remove(file); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return cerr.Wrapf(err, "registry: delete key %q", path)
	}
	logger.Info("Registry key deleted", zap.String("path", path))
	return nil
}
