package dict

import (
	"errors"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
)

func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file JSONFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return FromJSON(file)
}

// EnsureLoaded loads the model dictionary from path, or the builtin table
// when the path is empty.
func EnsureLoaded(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("dictionary path %s is a directory", path)
	}
	return Load(path)
}

var errEmptyPath = errors.New("empty dictionary path")

// MustPath behaves like EnsureLoaded but treats an empty path as an
// error, for callers that require an explicit file.
func MustPath(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errEmptyPath
	}
	return EnsureLoaded(path)
}
