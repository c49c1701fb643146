// Package provenance encodes and decodes the synchronization record carried
// in publish-branch commit messages. The record tells a later run which
// source commit the publish branch tip corresponds to, so it can resume
// incrementally instead of rebuilding everything.
package provenance

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// CurrentSchemaVersion is written into every new record. Decoding accepts
// only versions up to the current one; anything else is treated as "no
// record found" so a future format change degrades to a full rebuild
// instead of failing the run.
const CurrentSchemaVersion = 1

// recordMarker separates the human-readable commit subject from the
// machine-readable YAML document that follows it.
const recordMarker = "--- pagesync record ---"

// legacyPattern matches the historical one-line record form. Kept so
// publish branches written before the structured record still resume
// incrementally.
var legacyPattern = regexp.MustCompile(`(?m)^synced ([0-9a-f]{7,40})(?:[ \t]+(.*))?$`)

// Record is a decoded synchronization record. PublishCommit is the hash of
// the publish commit that carried the record; it is filled in by the
// locator, not serialized.
type Record struct {
	SchemaVersion int    `yaml:"schema_version"`
	SourceCommit  string `yaml:"source_commit"`
	SourceSubject string `yaml:"source_subject,omitempty"`

	PublishCommit string `yaml:"-"`
}

// EncodeMessage builds the full commit message for a publish commit: a
// human-readable subject followed by the structured record.
func EncodeMessage(sourceHash, sourceSubject string) string {
	short := sourceHash
	if len(short) > 7 {
		short = short[:7]
	}

	rec := Record{
		SchemaVersion: CurrentSchemaVersion,
		SourceCommit:  sourceHash,
		SourceSubject: sourceSubject,
	}
	body, err := yaml.Marshal(&rec)
	if err != nil {
		// Record fields are plain strings; marshaling cannot fail in practice.
		body = []byte(fmt.Sprintf("schema_version: %d\nsource_commit: %s\n", CurrentSchemaVersion, sourceHash))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Publish docs: synced %s %s\n\n", short, sourceSubject)
	b.WriteString(recordMarker)
	b.WriteString("\n")
	b.Write(body)
	return b.String()
}

// DecodeMessage extracts a record from a commit message. It tries the
// structured form first, then the legacy one-line form. Malformed content
// of either kind yields (Record{}, false), never an error: a corrupted
// historical message must degrade to a full rebuild, not fail the run.
func DecodeMessage(message string) (Record, bool) {
	if rec, ok := decodeStructured(message); ok {
		return rec, true
	}
	return decodeLegacy(message)
}

func decodeStructured(message string) (Record, bool) {
	idx := strings.Index(message, recordMarker)
	if idx < 0 {
		return Record{}, false
	}
	doc := message[idx+len(recordMarker):]

	var rec Record
	if err := yaml.Unmarshal([]byte(doc), &rec); err != nil {
		return Record{}, false
	}
	if rec.SchemaVersion < 1 || rec.SchemaVersion > CurrentSchemaVersion {
		return Record{}, false
	}
	if !validHash(rec.SourceCommit) {
		return Record{}, false
	}
	return rec, true
}

func decodeLegacy(message string) (Record, bool) {
	m := legacyPattern.FindStringSubmatch(message)
	if m == nil {
		return Record{}, false
	}
	return Record{
		SchemaVersion: 0,
		SourceCommit:  m[1],
		SourceSubject: strings.TrimSpace(m[2]),
	}, true
}

// validHash accepts full hashes and prefixes long enough to be unambiguous
// in practice. Wrong length or non-hex content means the record cannot be
// trusted.
func validHash(s string) bool {
	if len(s) < 7 || len(s) > 40 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
