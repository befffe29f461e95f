package session

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/maurice/expkeys"
)

// UnknownFieldValueError reports a keys-file word that the vocabulary does
// not define. It wraps ErrUnknownFieldValue.
type UnknownFieldValueError struct {
	Field string
	Value string
	File  string
}

func (e *UnknownFieldValueError) Error() string {
	return fmt.Sprintf("unknown %s %q in %s", e.Field, e.Value, e.File)
}

func (e *UnknownFieldValueError) Unwrap() error { return ErrUnknownFieldValue }

// Subject describes the animal recorded in a session.
type Subject struct {
	ID      string `json:"subject_id" yaml:"subject_id"`
	Species string `json:"species" yaml:"species"`
	Strain  string `json:"strain,omitempty" yaml:"strain,omitempty"`
	Sex     string `json:"sex" yaml:"sex"`
}

// Metadata is the dataset description derived from one session's keys.
type Metadata struct {
	SessionID      string            `json:"session_id" yaml:"session_id"`
	Description    string            `json:"session_description" yaml:"session_description"`
	Experimenter   []string          `json:"experimenter" yaml:"experimenter"`
	StartTime      time.Time         `json:"session_start_time" yaml:"session_start_time"`
	Subject        Subject           `json:"subject" yaml:"subject"`
	ProbeLocations map[string]string `json:"probe_locations,omitempty" yaml:"probe_locations,omitempty"`
}

var probeIDRE = regexp.MustCompile(`^probe(\d+)_ID$`)

// Enrich derives session metadata from parsed keys. A nil vocabulary uses
// DefaultVocabulary.
func Enrich(keys *expkeys.Keys, name Name, vocab *Vocabulary) (*Metadata, error) {
	if keys == nil {
		return nil, expkeys.ErrNilInput
	}
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	file := name.KeysFileName()

	md := &Metadata{
		SessionID: name.ID(),
		StartTime: time.Date(name.Date.Year(), name.Date.Month(), name.Date.Day(), 0, 0, 0, 0, vocab.Location()),
	}

	if keys.Has("sessiontype") {
		types, err := keys.Strings("sessiontype")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		md.Description = strings.Join(types, " | ")
	}

	experimenter, err := keys.Text("experimenter")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	full, ok := vocab.Experimenters[experimenter]
	if !ok {
		return nil, &UnknownFieldValueError{Field: "experimenter", Value: experimenter, File: file}
	}
	md.Experimenter = []string{full}

	if md.Subject, err = subject(keys, vocab, file); err != nil {
		return nil, err
	}
	if md.ProbeLocations, err = probeLocations(keys, file); err != nil {
		return nil, err
	}
	return md, nil
}

func subject(keys *expkeys.Keys, vocab *Vocabulary, file string) (Subject, error) {
	var s Subject
	var err error
	if s.ID, err = keys.Text("subject"); err != nil {
		return s, fmt.Errorf("%s: %w", file, err)
	}

	species, err := keys.Text("species")
	if err != nil {
		return s, fmt.Errorf("%s: %w", file, err)
	}
	latin, ok := vocab.Species[species]
	if !ok {
		return s, &UnknownFieldValueError{Field: "species", Value: species, File: file}
	}
	s.Species = latin

	if keys.Has("genetics") {
		if s.Strain, err = keys.Text("genetics"); err != nil {
			return s, fmt.Errorf("%s: %w", file, err)
		}
	}

	sex, err := keys.Text("sex")
	if err != nil {
		return s, fmt.Errorf("%s: %w", file, err)
	}
	if code, ok := vocab.Sex[sex]; ok {
		s.Sex = code
	} else {
		s.Sex = sex
	}
	return s, nil
}

// probeLocations maps every probeN_ID to "<hemisphere> <location>", with the
// hemisphere lowercased.
func probeLocations(keys *expkeys.Keys, file string) (map[string]string, error) {
	type probe struct {
		index int
		key   string
	}
	var probes []probe
	for _, name := range keys.Names() {
		if m := probeIDRE.FindStringSubmatch(name); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", file, name, err)
			}
			probes = append(probes, probe{index: n, key: name})
		}
	}
	if len(probes) == 0 {
		return nil, nil
	}
	sort.Slice(probes, func(i, j int) bool { return probes[i].index < probes[j].index })

	out := make(map[string]string, len(probes))
	var errs error
	for _, p := range probes {
		prefix := "probe" + strconv.Itoa(p.index)
		id, err := keys.Text(p.key)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		hemisphere, err := keys.Text(prefix + "_hemisphere")
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		location, err := keys.Text(prefix + "_location")
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out[id] = strings.ToLower(hemisphere) + " " + location
	}
	if errs != nil {
		return nil, fmt.Errorf("%s: %w", file, errs)
	}
	return out, nil
}
