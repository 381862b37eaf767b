package server

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// uriToPath converts a file:// document URI to a filesystem path.
func uriToPath(uri protocol.DocumentUri) (string, error) {
	parsed, err := url.Parse(string(uri))
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", uri, err)
	}
	if parsed.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", parsed.Scheme)
	}
	return filepath.FromSlash(parsed.Path), nil
}

// pathToURI converts a filesystem path to a file:// document URI.
func pathToURI(path string) protocol.DocumentUri {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return protocol.DocumentUri(u.String())
}

// rangeToIndex maps a protocol range to byte offsets within content, for
// clients that send incremental edits despite the advertised full sync.
func rangeToIndex(content string, r protocol.Range) (int, int) {
	return positionToIndex(content, r.Start), positionToIndex(content, r.End)
}

func positionToIndex(content string, pos protocol.Position) int {
	offset := 0
	for line := uint32(0); line < pos.Line; line++ {
		next := strings.IndexByte(content[offset:], '\n')
		if next < 0 {
			return len(content)
		}
		offset += next + 1
	}
	offset += int(pos.Character)
	if offset > len(content) {
		return len(content)
	}
	return offset
}
