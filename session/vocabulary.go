package session

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
)

// Vocabulary maps the free-form words written in keys files to the terms
// used in dataset metadata.
type Vocabulary struct {
	TimeZone      string            `toml:"time_zone"`
	Experimenters map[string]string `toml:"experimenters"`
	Species       map[string]string `toml:"species"`
	Sex           map[string]string `toml:"sex"`

	location *time.Location
}

// DefaultVocabulary returns the lab's built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		TimeZone: "America/New_York",
		Experimenters: map[string]string{
			"Manish": "Mahopatra, Manish",
			"Kyoko":  "Leaman, Kyoko",
			"Mimi":   "Janssen, Miriam A.",
		},
		Species: map[string]string{
			"mouse": "Mus musculus",
			"rat":   "Rattus norvegicus",
		},
		Sex: map[string]string{
			"Male":   "M",
			"Female": "F",
			// M540-2024-08-20 records its date in the sex field.
			"2024-08-19": "U",
		},
	}
	if err := v.Validate(); err != nil {
		panic(err)
	}
	return v
}

// LoadVocabulary reads a TOML vocabulary from path. Entries in the file are
// merged over the defaults.
func LoadVocabulary(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	v, err := DecodeVocabulary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// DecodeVocabulary reads a TOML vocabulary from r and merges it over the
// defaults. Unknown keys are rejected.
func DecodeVocabulary(r io.Reader) (*Vocabulary, error) {
	var file Vocabulary
	md, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVocabulary, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidVocabulary, strings.Join(keys, ", "))
	}

	v := DefaultVocabulary()
	if file.TimeZone != "" {
		v.TimeZone = file.TimeZone
	}
	mergeInto(v.Experimenters, file.Experimenters)
	mergeInto(v.Species, file.Species)
	mergeInto(v.Sex, file.Sex)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func mergeInto(dst, src map[string]string) {
	for k, val := range src {
		dst[k] = val
	}
}

// Validate checks that the time zone resolves and that no term maps to an
// empty value.
func (v *Vocabulary) Validate() error {
	loc, err := time.LoadLocation(v.TimeZone)
	if err != nil {
		return fmt.Errorf("%w: time_zone %q: %v", ErrInvalidVocabulary, v.TimeZone, err)
	}
	for _, table := range []struct {
		name string
		m    map[string]string
	}{
		{"experimenters", v.Experimenters},
		{"species", v.Species},
		{"sex", v.Sex},
	} {
		for _, k := range sortedKeys(table.m) {
			if strings.TrimSpace(table.m[k]) == "" {
				return fmt.Errorf("%w: %s.%s is empty", ErrInvalidVocabulary, table.name, k)
			}
		}
	}
	v.location = loc
	return nil
}

// Location returns the time zone sessions were recorded in.
func (v *Vocabulary) Location() *time.Location {
	if v.location == nil {
		if loc, err := time.LoadLocation(v.TimeZone); err == nil {
			v.location = loc
		} else {
			return time.UTC
		}
	}
	return v.location
}

// Encode writes v as TOML.
func (v *Vocabulary) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(v)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
