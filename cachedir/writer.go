package cachedir

import (
	"os"
	"path/filepath"
)

// Writer stages content in a temporary file and moves it into place on
// Commit. A path never holds partially written content: either the old
// state is visible or the fully written new state is.
type Writer struct {
	file      *os.File
	tmpPath   string
	finalPath string
}

// Writer opens an atomic writer for path, creating intermediate
// directories as needed. The temporary file lives in the destination
// directory so the final rename stays on one filesystem.
func (d *Dir) Writer(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, d.dirPerm); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, ".depfetch-tmp-*")
	if err != nil {
		return nil, err
	}
	return &Writer{
		file:      tmp,
		tmpPath:   tmp.Name(),
		finalPath: path,
	}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

// Commit makes the staged content visible at the final path.
func (w *Writer) Commit() error {
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		_ = os.Remove(w.tmpPath)
		return err
	}
	if err := w.file.Close(); err != nil {
		_ = os.Remove(w.tmpPath)
		return err
	}
	if err := os.Chmod(w.tmpPath, defaultFilePerm); err != nil {
		_ = os.Remove(w.tmpPath)
		return err
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		_ = os.Remove(w.tmpPath)
		return err
	}
	return nil
}

// Discard abandons the staged content and removes the temporary file.
func (w *Writer) Discard() error {
	if w.file != nil {
		_ = w.file.Close()
	}
	err := os.Remove(w.tmpPath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
