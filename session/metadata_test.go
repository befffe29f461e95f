package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maurice/expkeys"
)

func mustName(t *testing.T, s string) Name {
	t.Helper()
	n, err := ParseSessionName(s)
	require.NoError(t, err)
	return n
}

func mustKeys(t *testing.T, src string) *expkeys.Keys {
	t.Helper()
	k, err := expkeys.ParseString(src)
	require.NoError(t, err)
	return k
}

const minimalKeys = `ExpKeys.subject = 'M540';
ExpKeys.experimenter = 'Kyoko';
ExpKeys.species = 'rat';
`

func TestEnrich(t *testing.T) {
	keys, err := expkeys.ParseFile("testdata/M541_2024_08_20_keys.m")
	require.NoError(t, err)

	md, err := Enrich(keys, mustName(t, "M541-2024-08-20"), nil)
	require.NoError(t, err)

	eastern, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	want := &Metadata{
		SessionID:    "2024+08+20",
		Description:  "odor | sequence",
		Experimenter: []string{"Mahopatra, Manish"},
		StartTime:    time.Date(2024, time.August, 20, 0, 0, 0, 0, eastern),
		Subject: Subject{
			ID:      "M541",
			Species: "Mus musculus",
			Strain:  "C57BL/6J",
			Sex:     "M",
		},
		ProbeLocations: map[string]string{
			"imec0": "left dCA1",
			"imec1": "right OFC",
		},
	}
	require.True(t, want.StartTime.Equal(md.StartTime), "start time %v", md.StartTime)
	md.StartTime = want.StartTime
	require.Equal(t, want, md)
}

func TestEnrich_Sex(t *testing.T) {
	tests := map[string]string{
		"Male":       "M",
		"Female":     "F",
		"2024-08-19": "U",
		"unknown":    "unknown",
	}
	for sex, want := range tests {
		t.Run(sex, func(t *testing.T) {
			keys := mustKeys(t, minimalKeys+"ExpKeys.sex = '"+sex+"';")
			md, err := Enrich(keys, mustName(t, "M540-2024-08-20"), nil)
			require.NoError(t, err)
			assert.Equal(t, want, md.Subject.Sex)
			assert.Equal(t, "Leaman, Kyoko", md.Experimenter[0])
			assert.Equal(t, "Rattus norvegicus", md.Subject.Species)
			assert.Empty(t, md.Description)
			assert.Nil(t, md.ProbeLocations)
		})
	}
}

func TestEnrich_SingleSessionType(t *testing.T) {
	keys := mustKeys(t, minimalKeys+"ExpKeys.sex = 'Female';\nExpKeys.sessiontype = 'odor';")
	md, err := Enrich(keys, mustName(t, "M540-2024-08-20"), nil)
	require.NoError(t, err)
	require.Equal(t, "odor", md.Description)
}

func TestEnrich_UnknownValues(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		value string
	}{
		{
			name:  "experimenter",
			src:   "ExpKeys.subject = 'M1'; ExpKeys.experimenter = 'Bob'; ExpKeys.species = 'mouse'; ExpKeys.sex = 'Male';",
			field: "experimenter",
			value: "Bob",
		},
		{
			name:  "species",
			src:   "ExpKeys.subject = 'M1'; ExpKeys.experimenter = 'Mimi'; ExpKeys.species = 'ferret'; ExpKeys.sex = 'Male';",
			field: "species",
			value: "ferret",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Enrich(mustKeys(t, tt.src), mustName(t, "M1-2024-01-02"), nil)
			require.ErrorIs(t, err, ErrUnknownFieldValue)

			var ufe *UnknownFieldValueError
			require.ErrorAs(t, err, &ufe)
			require.Equal(t, tt.field, ufe.Field)
			require.Equal(t, tt.value, ufe.Value)
			require.Equal(t, "M1_2024_01_02_keys.m", ufe.File)
		})
	}
}

func TestEnrich_CustomVocabulary(t *testing.T) {
	vocab, err := LoadVocabulary("testdata/vocabulary.toml")
	require.NoError(t, err)

	keys := mustKeys(t, "ExpKeys.subject = 'G7'; ExpKeys.experimenter = 'Ana'; ExpKeys.species = 'gerbil'; ExpKeys.sex = 'Female';")
	md, err := Enrich(keys, mustName(t, "G7-2025-03-30"), vocab)
	require.NoError(t, err)
	require.Equal(t, "Silva, Ana", md.Experimenter[0])
	require.Equal(t, "Meriones unguiculatus", md.Subject.Species)
	require.Equal(t, "Europe/Amsterdam", md.StartTime.Location().String())
	require.Equal(t, 0, md.StartTime.Hour())
}

func TestEnrich_MissingKeys(t *testing.T) {
	_, err := Enrich(mustKeys(t, "ExpKeys.subject = 'M1';"), mustName(t, "M1-2024-01-02"), nil)
	require.ErrorIs(t, err, expkeys.ErrKeyNotFound)

	src := minimalKeys + "ExpKeys.sex = 'Male';\nExpKeys.probe1_ID = 'imec0';\nExpKeys.probe1_location = 'dCA1';"
	_, err = Enrich(mustKeys(t, src), mustName(t, "M540-2024-08-20"), nil)
	require.ErrorIs(t, err, expkeys.ErrKeyNotFound)
	require.Contains(t, err.Error(), "probe1_hemisphere")

	_, err = Enrich(mustKeys(t, minimalKeys+"ExpKeys.sex = 3;"), mustName(t, "M540-2024-08-20"), nil)
	require.ErrorIs(t, err, expkeys.ErrTypeMismatch)

	_, err = Enrich(nil, mustName(t, "M540-2024-08-20"), nil)
	require.ErrorIs(t, err, expkeys.ErrNilInput)
}
