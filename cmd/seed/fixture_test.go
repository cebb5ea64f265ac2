package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReferenceFixtureIsValid(t *testing.T) {
	fx, err := loadFixture(filepath.Join("..", "..", "seeds", "reference.yaml"))
	require.NoError(t, err)
	require.NoError(t, fx.validate())
	require.Contains(t, fx.Paytypes, "credit")
	require.NotEmpty(t, fx.usernames())
}

func TestFixtureValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tags: [travel, Travel]\n"), 0o600))

	fx, err := loadFixture(path)
	require.NoError(t, err)
	require.ErrorContains(t, fx.validate(), "duplicate")

	fx.Tags = []string{"a-tag-name-that-is-far-too-long"}
	require.ErrorContains(t, fx.validate(), "longer than")
}

func TestFixtureValidation_SourceAbbrevs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	raw := "sources:\n  - {name: Acme Corp, abbrev: ACME}\n  - {name: Acme Holdings, abbrev: acme}\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	fx, err := loadFixture(path)
	require.NoError(t, err)
	require.ErrorContains(t, fx.validate(), "sources.abbrev[1]: duplicate")

	fx.Sources[1].Abbrev = ""
	require.ErrorContains(t, fx.validate(), "empty name")

	fx.Sources[1].Abbrev = "AH"
	require.NoError(t, fx.validate())
}
