package runlog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrLogDir   = errors.New("log directory unavailable")
	ErrLogWrite = errors.New("log write failed")
)

// WriteError reports a failed run-log write. Kind is ErrLogDir or
// ErrLogWrite and is matched by errors.Is.
type WriteError struct {
	Kind      error
	Dir       string
	TempPath  string
	FinalPath string
	Err       error
}

func (e *WriteError) Error() string {
	if errors.Is(e.Kind, ErrLogDir) {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Dir, e.Err)
	}
	return fmt.Sprintf("%v: temp=%s final=%s: %v", e.Kind, e.TempPath, e.FinalPath, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{e.Kind, e.Err} }

var (
	openFile = os.OpenFile
	rename   = os.Rename
	link     = os.Link
	remove   = os.Remove
)

// durableWrite publishes data at finalPath through a temp file created with
// O_EXCL in the same directory and an atomic rename. Nothing is ever visible
// under finalPath unless the whole payload was written and synced. With
// replace set, a rename refused because finalPath exists (EEXIST/EPERM on
// some platforms) is retried once after removing finalPath. Without it an
// existing finalPath is never replaced.
func durableWrite(finalPath string, data []byte, tempSuffix string, replace bool) error {
	dir := filepath.Dir(finalPath)
	tmp := filepath.Join(dir, "."+filepath.Base(finalPath)+"."+tempSuffix+".tmp")
	fail := func(err error) error {
		return &WriteError{Kind: ErrLogWrite, Dir: dir, TempPath: tmp, FinalPath: finalPath, Err: err}
	}

	f, err := openFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fail(err)
	}
	published := false
	defer func() {
		if !published {
			_ = remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fail(err)
	}
	if err := f.Close(); err != nil {
		return fail(err)
	}

	if replace {
		err = rename(tmp, finalPath)
		if err != nil && (errors.Is(err, fs.ErrExist) || errors.Is(err, fs.ErrPermission)) {
			_ = remove(finalPath)
			err = rename(tmp, finalPath)
		}
	} else {
		err = publishNoReplace(tmp, finalPath)
	}
	if err != nil {
		return fail(err)
	}
	published = true
	syncDir(dir)
	return nil
}

// publishNoReplace hard-links tmp to finalPath, which fails if finalPath
// exists, then drops tmp. Filesystems without hard links fall back to a
// rename guarded by an existence check.
func publishNoReplace(tmp, finalPath string) error {
	err := link(tmp, finalPath)
	if err == nil {
		_ = remove(tmp)
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return err
	}
	if _, lerr := os.Lstat(finalPath); lerr == nil {
		return &fs.PathError{Op: "publish", Path: finalPath, Err: fs.ErrExist}
	}
	return rename(tmp, finalPath)
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
