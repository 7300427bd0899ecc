package simplemunki

import (
	"howett.net/plist"
)

// Well-known document kinds of a Munki repo. Manifests and pkgsinfo have
// a starter template; catalogs are generated by repo tooling and only
// read here. Any other kind string works as long as the repo has a
// directory for it.
const (
	KindManifests = "manifests"
	KindPkgsinfo  = "pkgsinfo"
	KindCatalogs  = "catalogs"
)

// Document is a parsed property list dictionary. Values follow the plist
// data model: strings, integers, reals, booleans, time.Time, []byte,
// arrays and nested dictionaries.
type Document map[string]interface{}

// manifestSections are the keys of a fresh manifest, each starting as an
// empty array.
var manifestSections = []string{
	"catalogs",
	"included_manifests",
	"managed_installs",
	"managed_uninstalls",
	"managed_updates",
	"optional_installs",
}

// DefaultDocument returns the starter document for kind. Kinds without a
// template get an empty document.
func DefaultDocument(kind string) Document {
	switch kind {
	case KindManifests:
		doc := Document{}
		for _, section := range manifestSections {
			doc[section] = []string{}
		}
		return doc
	case KindPkgsinfo:
		return Document{
			"name":         "ProductName",
			"display_name": "Display Name",
			"description":  "Product description",
			"version":      "1.0",
			"catalogs":     []string{"development"},
		}
	default:
		return Document{}
	}
}

// EncodeDocument serializes doc as an XML property list.
func EncodeDocument(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	return plist.MarshalIndent(doc, plist.XMLFormat, "\t")
}

// DecodeDocument parses property list data into a Document. XML and
// binary plists are both accepted.
func DecodeDocument(data []byte) (Document, error) {
	var doc Document
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}
