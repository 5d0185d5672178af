package parser

import (
	"bytes"
	"encoding/json"
	stderrors "errors" // Standard errors package
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matthewmueller/jsonc"

	"github.com/mcncl/jsonform/internal/errors" // Custom errors package
	"github.com/mcncl/jsonform/internal/models"
)

// Options tweak how text is accepted.
type Options struct {
	// Lenient accepts JSON with comments and trailing commas.
	Lenient bool
}

// Parse converts one JSON value from an io.Reader into a JSONValue, keeping
// object keys in the order they appear in the input.
func Parse(reader io.Reader) (*models.JSONValue, error) {
	return ParseWithOptions(reader, Options{})
}

// ParseWithOptions is Parse with explicit options.
func ParseWithOptions(reader io.Reader, opts Options) (*models.JSONValue, error) {
	if opts.Lenient {
		raw, err := io.ReadAll(reader)
		if err != nil {
			return nil, errors.NewInputError("failed to read input", err)
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		standard, err := jsonc.Standardize(raw)
		if err != nil {
			return nil, errors.NewParsingError(err.Error(), errors.ErrInvalidJSON)
		}
		reader = bytes.NewReader(standard)
	}

	decoder := json.NewDecoder(reader)
	decoder.UseNumber() // Keep the number text as typed

	root, err := decodeValue(decoder)
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		return nil, wrapDecodeError(err)
	}

	// Anything other than whitespace after the first value is rejected.
	if _, err := decoder.Token(); err != io.EOF {
		if err == nil {
			return nil, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
		}
		return nil, errors.NewParsingError("invalid trailing data after first JSON value", errors.ErrInvalidJSON)
	}

	return root, nil
}

func wrapDecodeError(err error) error {
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(
			fmt.Sprintf("%s at offset %d", syntaxError.Error(), syntaxError.Offset),
			errors.ErrInvalidJSON,
		)
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.NewParsingError("unexpected end of JSON input", errors.ErrInvalidJSON)
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.NewParsingError(err.Error(), errors.ErrInvalidJSON)
}

// decodeValue walks the token stream so that object member order survives.
func decodeValue(dec *json.Decoder) (*models.JSONValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (*models.JSONValue, error) {
	switch t := tok.(type) {
	case nil:
		return models.NewNull(), nil
	case bool:
		return models.NewBool(t), nil
	case json.Number:
		return models.NewNumber(t), nil
	case string:
		return models.NewString(t), nil
	case json.Delim:
		switch t {
		case '{':
			obj := models.NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, unexpectedEOF(err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, errors.NewParsingError(fmt.Sprintf("object key must be a string, got %v", keyTok), errors.ErrInvalidJSON)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, unexpectedEOF(err)
				}
				// Duplicate keys keep the first position and the last value.
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, unexpectedEOF(err)
			}
			return obj, nil
		case '[':
			arr := models.NewArray()
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return nil, unexpectedEOF(err)
				}
				arr.Items = append(arr.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, unexpectedEOF(err)
			}
			return arr, nil
		}
	}
	return nil, errors.NewParsingError(fmt.Sprintf("unexpected token %v", tok), errors.ErrInvalidJSON)
}

// unexpectedEOF turns an EOF inside a container into a syntax problem rather
// than an empty-input condition.
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (*models.JSONValue, error) {
	return ParseStringWithOptions(jsonString, Options{})
}

// ParseStringWithOptions parses JSON from a string with explicit options.
func ParseStringWithOptions(jsonString string, opts Options) (*models.JSONValue, error) {
	if strings.TrimSpace(jsonString) == "" {
		return nil, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return ParseWithOptions(strings.NewReader(jsonString), opts)
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string, opts Options) (*models.JSONValue, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, errors.NewInputError("file path is empty", errors.ErrFileNotFound)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(fmt.Sprintf("file '%s' not found", filePath), errors.ErrFileNotFound)
		}
		return nil, errors.NewInputError(fmt.Sprintf("failed to open file '%s'", filePath), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing file: %v\n", err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return nil, errors.NewInputError(fmt.Sprintf("failed to get file stats for '%s'", filePath), err)
	}
	if stat.Size() == 0 {
		return nil, errors.NewInputError(fmt.Sprintf("input file '%s' is empty", filePath), errors.ErrFileEmpty)
	}

	return ParseWithOptions(file, opts)
}
