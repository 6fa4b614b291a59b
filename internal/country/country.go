// Package country maps free-text country names and codes to lowercase
// ISO 3166-1 alpha-2 keys.
package country

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/DeafMist/geonews/backend/internal/models"
	"github.com/DeafMist/geonews/backend/internal/processing"
)

// ErrDataset reports an unusable country reference.
var ErrDataset = errors.New("country: invalid reference dataset")

//go:embed countries.json
var iso3166 []byte

var nonNameChars = regexp.MustCompile(`[^A-Za-z\s]`)

// Record is one country of the reference dataset.
type Record struct {
	Alpha2       string `json:"alpha2"`
	Alpha3       string `json:"alpha3"`
	Name         string `json:"name"`
	OfficialName string `json:"official_name,omitempty"`
	CommonName   string `json:"common_name,omitempty"`
}

// Reference supplies country records.
type Reference interface {
	Countries() ([]Record, error)
}

// Embedded is the ISO 3166-1 list compiled into the binary.
type Embedded struct{}

// Countries implements Reference.
func (Embedded) Countries() ([]Record, error) {
	var out []Record
	if err := json.Unmarshal(iso3166, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataset, err)
	}
	return out, nil
}

// Canonicalizer resolves country mentions by exact code or exact name only.
// It is read-only after construction and safe for concurrent use.
type Canonicalizer struct {
	byName   map[string]string
	byAlpha2 map[string]string
	byAlpha3 map[string]string
}

// New indexes every record's name, official name and common name.
// When two countries share a normalized name the first one wins.
func New(ref Reference) (*Canonicalizer, error) {
	records, err := ref.Countries()
	if err != nil {
		return nil, fmt.Errorf("load country reference: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no countries", ErrDataset)
	}

	c := &Canonicalizer{
		byName:   make(map[string]string, len(records)*2),
		byAlpha2: make(map[string]string, len(records)),
		byAlpha3: make(map[string]string, len(records)),
	}
	for _, r := range records {
		if len(r.Alpha2) != 2 {
			return nil, fmt.Errorf("%w: bad alpha2 %q for %q", ErrDataset, r.Alpha2, r.Name)
		}
		key := strings.ToLower(r.Alpha2)
		c.byAlpha2[strings.ToUpper(r.Alpha2)] = key
		if r.Alpha3 != "" {
			c.byAlpha3[strings.ToUpper(r.Alpha3)] = key
		}
		for _, v := range []string{r.Name, r.OfficialName, r.CommonName} {
			n := normName(v)
			if n == "" {
				continue
			}
			if _, taken := c.byName[n]; !taken {
				c.byName[n] = key
			}
		}
	}
	return c, nil
}

var (
	defaultOnce sync.Once
	defaultC    *Canonicalizer
	defaultErr  error
)

// Default returns the canonicalizer over the embedded dataset, built once.
func Default() (*Canonicalizer, error) {
	defaultOnce.Do(func() {
		defaultC, defaultErr = New(Embedded{})
	})
	return defaultC, defaultErr
}

// Key resolves text to an alpha-2 key. Two- and three-letter inputs (after
// dropping punctuation, so "U.S." and "U.S.A." count) are treated as codes;
// "UK" is accepted for "gb". Anything longer must equal a country name
// exactly, so "Salvador" does not match "El Salvador".
func (c *Canonicalizer) Key(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", false
	}

	collapsed := strings.ToUpper(processing.CollapseAbbrev(s))
	if collapsed == "UK" {
		return "gb", true
	}

	switch len(collapsed) {
	case 0:
		return "", false
	case 2:
		k, ok := c.byAlpha2[collapsed]
		return k, ok
	case 3:
		k, ok := c.byAlpha3[collapsed]
		return k, ok
	}

	k, ok := c.byName[normName(s)]
	return k, ok
}

// Apply derives the sorted, deduplicated country keys of a document from its
// place tags and georeference names, and fills in missing georeference
// country codes. The georeferences are returned as a new slice.
func (c *Canonicalizer) Apply(tags []string, georefs []models.Georeference) ([]string, []models.Georeference) {
	keys := make(map[string]struct{})

	for _, p := range tags {
		if cc, ok := c.Key(p); ok {
			keys[cc] = struct{}{}
		}
	}

	out := make([]models.Georeference, 0, len(georefs))
	for _, g := range georefs {
		if cc, ok := c.Key(g.Name); ok {
			keys[cc] = struct{}{}
			if g.CountryCode == nil {
				code := cc
				g.CountryCode = &code
			}
		}
		if g.CountryCode != nil {
			keys[*g.CountryCode] = struct{}{}
		}
		out = append(out, g)
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	return sorted, out
}

func normName(s string) string {
	return strings.ToLower(processing.CollapseSpace(nonNameChars.ReplaceAllString(s, " ")))
}
