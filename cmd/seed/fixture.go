package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Fixture is the reference data file layout.
type Fixture struct {
	Users []struct {
		Username string `yaml:"username"`
	} `yaml:"users"`
	Paytypes   []string `yaml:"paytypes"`
	Categories []struct {
		Catg        string `yaml:"catg"`
		Description string `yaml:"description"`
	} `yaml:"categories"`
	Tags    []string `yaml:"tags"`
	Sources []struct {
		Name   string `yaml:"name"`
		Abbrev string `yaml:"abbrev"`
	} `yaml:"sources"`
	Institutions []struct {
		Name   string `yaml:"name"`
		Abbrev string `yaml:"abbrev"`
	} `yaml:"institutions"`
}

func loadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// checkNames rejects blank, overlong and case-insensitively repeated names.
func checkNames(kind string, names []string, max int) error {
	seen := make(map[string]struct{}, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return fmt.Errorf("%s[%d]: empty name", kind, i)
		}
		if len(n) > max {
			return fmt.Errorf("%s[%d]: %q longer than %d characters", kind, i, n, max)
		}
		key := strings.ToLower(n)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%s[%d]: duplicate %q", kind, i, n)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (f *Fixture) usernames() []string {
	out := make([]string, len(f.Users))
	for i, u := range f.Users {
		out[i] = u.Username
	}
	return out
}

func (f *Fixture) catgs() []string {
	out := make([]string, len(f.Categories))
	for i, c := range f.Categories {
		out[i] = c.Catg
	}
	return out
}

func (f *Fixture) validate() error {
	if err := checkNames("users", f.usernames(), 150); err != nil {
		return err
	}
	if err := checkNames("paytypes", f.Paytypes, 20); err != nil {
		return err
	}
	if err := checkNames("categories", f.catgs(), 20); err != nil {
		return err
	}
	if err := checkNames("tags", f.Tags, 20); err != nil {
		return err
	}
	sources := make([][2]string, len(f.Sources))
	for i, s := range f.Sources {
		sources[i] = [2]string{s.Name, s.Abbrev}
	}
	if err := checkNamed("sources", sources); err != nil {
		return err
	}
	insts := make([][2]string, len(f.Institutions))
	for i, inst := range f.Institutions {
		insts[i] = [2]string{inst.Name, inst.Abbrev}
	}
	if err := checkNamed("institutions", insts); err != nil {
		return err
	}
	return nil
}

// checkNamed validates (name, abbrev) pairs; both columns are unique.
func checkNamed(kind string, rows [][2]string) error {
	names := make([]string, len(rows))
	abbrevs := make([]string, len(rows))
	for i, r := range rows {
		names[i], abbrevs[i] = r[0], r[1]
	}
	if err := checkNames(kind, names, 100); err != nil {
		return err
	}
	if err := checkNames(kind+".abbrev", abbrevs, 20); err != nil {
		return err
	}
	return nil
}
