// Package session locates recording sessions on disk, parses their experiment
// keys and turns them into dataset metadata.
//
// A session directory is named <subject>-<YYYY>-<MM>-<DD> and holds a keys file
// named <subject>_<YYYY>_<MM>_<DD>_keys.m.
package session

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Sentinel errors.
var (
	ErrInvalidSessionName = errors.New("invalid session name")
	ErrInvalidVocabulary  = errors.New("invalid vocabulary")
	ErrUnknownFieldValue  = errors.New("unknown field value")
)

const dateLayout = "2006-01-02"

var nameRE = regexp.MustCompile(`^([A-Za-z0-9_]+)-(\d{4}-\d{2}-\d{2})$`)

// Name identifies one session: a subject recorded on a calendar date.
type Name struct {
	Subject string
	Date    time.Time // midnight UTC
}

// ParseSessionName parses a directory name such as "M541-2024-08-20".
func ParseSessionName(s string) (Name, error) {
	m := nameRE.FindStringSubmatch(s)
	if m == nil {
		return Name{}, fmt.Errorf("%w: %q does not match <subject>-<YYYY>-<MM>-<DD>", ErrInvalidSessionName, s)
	}
	date, err := time.Parse(dateLayout, m[2])
	if err != nil {
		return Name{}, fmt.Errorf("%w: %q: %v", ErrInvalidSessionName, s, err)
	}
	return Name{Subject: m[1], Date: date}, nil
}

func (n Name) String() string {
	return n.Subject + "-" + n.Date.Format(dateLayout)
}

// ID returns the dataset session identifier, the date joined by '+'.
func (n Name) ID() string {
	return n.Date.Format("2006+01+02")
}

// KeysFileName returns the name of the session's experiment keys file.
func (n Name) KeysFileName() string {
	return n.Subject + "_" + n.Date.Format("2006_01_02") + "_keys.m"
}
