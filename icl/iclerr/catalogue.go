package iclerr

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedErrorString indicates a wire error string was not of the form
// "[E];<code>;<message>".
var ErrMalformedErrorString = fmt.Errorf("icl: malformed error string, expected 3 ';'-separated fields")

//go:embed errors.json
var defaultCatalogueJSON []byte

type catalogueEntry struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Level  string `json:"level"`
}

type catalogueDocument struct {
	Errors []catalogueEntry `json:"errors"`
}

// Catalogue resolves numeric ICL error codes to their catalogued message
// and severity.
type Catalogue struct {
	byCode map[int]catalogueEntry
}

// NewDefaultCatalogue loads the catalogue embedded in this package.
func NewDefaultCatalogue() (*Catalogue, error) {
	return newCatalogueFromBytes(defaultCatalogueJSON)
}

// NewCatalogueFromFile loads a site-specific catalogue from path, in the
// same JSON shape as the embedded default.
func NewCatalogueFromFile(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("icl: reading error catalogue %s: %w", path, err)
	}
	return newCatalogueFromBytes(data)
}

func newCatalogueFromBytes(data []byte) (*Catalogue, error) {
	var doc catalogueDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("icl: parsing error catalogue: %w", err)
	}

	byCode := make(map[int]catalogueEntry, len(doc.Errors))
	for _, e := range doc.Errors {
		byCode[e.Number] = e
	}
	return &Catalogue{byCode: byCode}, nil
}

// ErrorFrom parses a wire error string of the form "[E];<code>;<message>"
// and resolves <code> against the catalogue. An error string with a
// catalogued code returns the catalogued text and severity; an unknown
// code synthesizes a Critical ICLError preserving the raw trailing text.
// A string that does not split into exactly three ';'-separated fields, or
// whose code is not an integer, returns ErrMalformedErrorString.
func (c *Catalogue) ErrorFrom(wire string) (*ICLError, error) {
	parts := strings.Split(wire, ";")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: got %d fields in %q", ErrMalformedErrorString, len(parts), wire)
	}

	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: code %q is not an integer", ErrMalformedErrorString, parts[1])
	}

	entry, found := c.byCode[code]
	if !found {
		return &ICLError{
			Code:     code,
			Message:  fmt.Sprintf("Unknown error: %s", parts[2]),
			Severity: Critical,
		}, nil
	}

	return &ICLError{
		Code:     code,
		Message:  entry.Text,
		Severity: severityFromString(entry.Level),
	}, nil
}
