package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

// WriteFile writes g to path, choosing GEXF or JSON by extension.
func WriteFile(path string, g Graph) error {
	var write func(*os.File) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gexf":
		write = func(f *os.File) error { return WriteGEXF(f, g) }
	case ".json":
		write = func(f *os.File) error { return WriteJSON(f, g) }
	default:
		return fmt.Errorf("%w '%s'", internalerr.ErrUnsupportedFormat, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write graph %s: %w", path, err)
	}
	return f.Close()
}
