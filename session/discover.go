package session

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PreprocessedDir is the directory under each subject that holds sessions.
const PreprocessedDir = "preprocessed"

// Session is one session directory found on disk.
type Session struct {
	Name Name
	Dir  string
}

// KeysPath returns the path of the session's keys file.
func (s Session) KeysPath() string {
	return filepath.Join(s.Dir, s.Name.KeysFileName())
}

// Open returns the session stored in dir. The directory name must be a
// session name.
func Open(dir string) (Session, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Session{}, err
	}
	if !info.IsDir() {
		return Session{}, fmt.Errorf("%s: not a directory", dir)
	}
	name, err := ParseSessionName(filepath.Base(filepath.Clean(dir)))
	if err != nil {
		return Session{}, err
	}
	return Session{Name: name, Dir: dir}, nil
}

// Discover walks root and returns every session laid out as
// <root>/<subject>/preprocessed/<subject>-<date>/, in lexical order.
// Directories that do not fit the layout are skipped.
func Discover(root string) ([]Session, error) {
	var sessions []Session
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root || !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		switch len(parts) {
		case 1:
			return nil
		case 2:
			if parts[1] != PreprocessedDir {
				return filepath.SkipDir
			}
			return nil
		default:
			name, err := ParseSessionName(parts[2])
			if err == nil && name.Subject == parts[0] {
				sessions = append(sessions, Session{Name: name, Dir: path})
			}
			return filepath.SkipDir
		}
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
