package pricefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
)

const (
	fieldMetadata = "metadata"
	fieldItems    = "items"
)

var (
	// ErrNoMetadata is returned when the document has no top-level metadata object.
	ErrNoMetadata = errors.New("metadata field not found")
	// ErrNoItems is returned when the document has no top-level items array.
	ErrNoItems = errors.New("items field not found")
)

// ParseResult counts the outcome of a streamed parse.
type ParseResult struct {
	Valid   int
	Invalid int
	// Truncated is set when a syntax error inside items stopped the walk early.
	Truncated bool
}

// Total returns the number of items seen.
func (r ParseResult) Total() int {
	return r.Valid + r.Invalid
}

// ExtractMetadata decodes the top-level metadata object and stops reading there.
func ExtractMetadata(r io.Reader) (*Metadata, error) {
	dec := newDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != fieldMetadata {
			if err := skipValue(dec); err != nil {
				return nil, fmt.Errorf("failed to skip %q: %w", key, err)
			}
			continue
		}

		var meta Metadata
		if err := dec.Decode(&meta); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
		return &meta, nil
	}
	return nil, ErrNoMetadata
}

// ValidateStructure reports whether the document is an object with both a metadata
// object and an items array at the top level. Values are skipped token by token.
// A syntax error is returned alongside false.
func ValidateStructure(r io.Reader) (bool, error) {
	dec := newDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return false, fmt.Errorf("failed to read document: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return false, nil
	}

	var hasMetadata, hasItems bool
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return false, err
		}

		switch key {
		case fieldMetadata, fieldItems:
			want := json.Delim('{')
			if key == fieldItems {
				want = '['
			}
			tok, err := dec.Token()
			if err != nil {
				return false, fmt.Errorf("failed to read %q: %w", key, err)
			}
			d, ok := tok.(json.Delim)
			if !ok || d != want {
				return false, nil
			}
			if err := skipRest(dec, 1); err != nil {
				return false, fmt.Errorf("failed to scan %q: %w", key, err)
			}
			if key == fieldMetadata {
				hasMetadata = true
			} else {
				hasItems = true
			}
		default:
			if err := skipValue(dec); err != nil {
				return false, fmt.Errorf("failed to skip %q: %w", key, err)
			}
		}

		if hasMetadata && hasItems {
			return true, nil
		}
	}
	return false, nil
}

// ParseStream walks the items array one element at a time. Valid items go to onItem;
// items that fail to decode or validate go to onError as "item N: reason" and the walk
// continues. Errors before the items array is reached are returned.
//
// A JSON syntax error inside the array cannot be skipped: it is reported once through
// onError, the walk stops and the result is marked Truncated. Items after it are
// neither delivered nor reported. ValidateStructure rejects such files up front.
func ParseStream(r io.Reader, onItem func(PriceItem), onError func(string)) (ParseResult, error) {
	var result ParseResult

	dec, err := seekItems(r)
	if err != nil {
		return result, err
	}

	for index := 0; dec.More(); index++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			// The decoder cannot resynchronize after a syntax error.
			result.Invalid++
			result.Truncated = true
			if onError != nil {
				onError(fmt.Sprintf("item %d: malformed json: %v", index, err))
			}
			return result, nil
		}

		var item PriceItem
		if err := gojson.Unmarshal(raw, &item); err != nil {
			result.Invalid++
			if onError != nil {
				onError(fmt.Sprintf("item %d: %v", index, err))
			}
			continue
		}
		if err := item.Validate(); err != nil {
			result.Invalid++
			if onError != nil {
				onError(fmt.Sprintf("item %d: %v", index, err))
			}
			continue
		}

		result.Valid++
		if onItem != nil {
			onItem(item)
		}
	}
	return result, nil
}

// CountItems returns the number of elements of the items array. A syntax error
// inside the array is returned as an error.
func CountItems(r io.Reader) (int, error) {
	dec, err := seekItems(r)
	if err != nil {
		return 0, err
	}

	n := 0
	for dec.More() {
		if err := skipValue(dec); err != nil {
			return n, fmt.Errorf("failed to scan item %d: %w", n, err)
		}
		n++
	}
	return n, nil
}

// seekItems positions the decoder just inside the items array.
func seekItems(r io.Reader) (*json.Decoder, error) {
	dec := newDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != fieldItems {
			if err := skipValue(dec); err != nil {
				return nil, fmt.Errorf("failed to skip %q: %w", key, err)
			}
			continue
		}
		if err := expectDelim(dec, '['); err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		return dec, nil
	}
	return nil, ErrNoItems
}

func newDecoder(r io.Reader) *json.Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

// skipValue consumes the next value without materializing it.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
		return skipRest(dec, 1)
	}
	return nil
}

// skipRest consumes tokens until depth open containers are closed.
func skipRest(dec *json.Decoder, depth int) error {
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
