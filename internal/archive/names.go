package archive

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// decoderFor returns the decoder used for entry names that lack the zip UTF-8
// flag. A nil encoding means names are used as stored.
func decoderFor(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cp437":
		return charmap.CodePage437, nil
	case "shift_jis":
		return japanese.ShiftJIS, nil
	case "euc-jp":
		return japanese.EUCJP, nil
	case "utf-8":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported filename encoding %q", name)
	}
}

// decodeName returns the entry name to use on disk. Names that are valid UTF-8
// are kept even without the UTF-8 flag, since many archivers omit it; only
// byte sequences that cannot be UTF-8 go through the legacy decoder.
func decodeName(enc encoding.Encoding, raw string, nonUTF8 bool) string {
	if enc == nil || !nonUTF8 || utf8.ValidString(raw) {
		return raw
	}
	decoded, err := enc.NewDecoder().String(raw)
	if err != nil {
		return raw
	}
	return decoded
}
