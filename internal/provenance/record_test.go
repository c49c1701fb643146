package provenance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullHash = "0123456789abcdef0123456789abcdef01234567"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := EncodeMessage(fullHash, "Fix broken anchor links")

	require.True(t, strings.HasPrefix(msg, "Publish docs: synced 0123456 Fix broken anchor links"),
		"unexpected subject: %q", msg[:60])

	rec, ok := DecodeMessage(msg)
	require.True(t, ok, "expected decode to succeed")
	assert.Equal(t, CurrentSchemaVersion, rec.SchemaVersion)
	assert.Equal(t, fullHash, rec.SourceCommit)
	assert.Equal(t, "Fix broken anchor links", rec.SourceSubject)
}

func TestDecodeLegacyForm(t *testing.T) {
	rec, ok := DecodeMessage("synced 0123456 Update the install guide\n")
	require.True(t, ok, "expected legacy decode to succeed")
	assert.Equal(t, 0, rec.SchemaVersion, "legacy records have schema version 0")
	assert.Equal(t, "0123456", rec.SourceCommit)
	assert.Equal(t, "Update the install guide", rec.SourceSubject)
}

func TestDecodeLegacyInsideBody(t *testing.T) {
	msg := "Regular subject\n\nsynced deadbeef00 nightly publish\n"
	rec, ok := DecodeMessage(msg)
	require.True(t, ok, "expected decode")
	assert.Equal(t, "deadbeef00", rec.SourceCommit)
}

func TestDecodeMalformedNeverErrors(t *testing.T) {
	cases := []string{
		"",
		"plain commit message",
		"synced xyz not hex",
		"synced abc123",                   // too short to trust
		"synced " + fullHash + "ff extra", // too long
		recordMarker + "\n\t{ not yaml",
		recordMarker + "\nschema_version: 99\nsource_commit: " + fullHash + "\n",
		recordMarker + "\nschema_version: 1\nsource_commit: not-hex-at-all\n",
		recordMarker + "\nschema_version: 1\n", // missing hash
	}
	for _, msg := range cases {
		rec, ok := DecodeMessage(msg)
		assert.False(t, ok, "message %q decoded unexpectedly: %+v", msg, rec)
	}
}

func TestDecodePrefersStructuredOverLegacy(t *testing.T) {
	// A structured record whose subject line also matches the legacy form.
	msg := EncodeMessage(fullHash, "release notes")
	rec, ok := DecodeMessage(msg)
	require.True(t, ok)
	assert.Equal(t, CurrentSchemaVersion, rec.SchemaVersion, "structured form not preferred")
}
