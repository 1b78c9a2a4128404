package entity

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"mdqsync/internal/fingerprint"
)

// IdentifierAttr is the root attribute holding the entity identifier.
const IdentifierAttr = "entityID"

// Reason classifies why a document could not be turned into a Record.
type Reason string

const (
	ReasonMalformedXML      Reason = "malformed-xml"
	ReasonMissingIdentifier Reason = "missing-identifier"
	ReasonUnreadable        Reason = "unreadable"
)

// Record identifies one entity document.
type Record struct {
	FileName string
	EntityID string
	// Digest is the SHA-1 of EntityID, not of the file content.
	Digest string
}

// Failure describes a document that could not be read.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Result holds exactly one of Record or Failure.
type Result struct {
	Record  *Record
	Failure *Failure
}

// OK reports whether the document yielded a Record.
func (r Result) OK() bool { return r.Record != nil }

func failed(reason Reason, err error) Result {
	return Result{Failure: &Failure{Reason: reason, Err: err}}
}

// Read parses the document at path.
func Read(path string) Result {
	file, err := os.Open(path)
	if err != nil {
		return failed(ReasonUnreadable, err)
	}
	defer file.Close()

	res := Parse(file)
	if res.OK() {
		res.Record.FileName = filepath.Base(path)
	}
	return res
}

// utf8BOM may precede the XML declaration; encoding/xml reports it as text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads a complete XML document from r. The whole stream must be
// well-formed with a single root element. A leading UTF-8 byte order mark is
// skipped.
func Parse(r io.Reader) Result {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	decoder := xml.NewDecoder(br)
	decoder.CharsetReader = charsetReader

	var (
		entityID string
		found    bool
		rooted   bool
		depth    int
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return failed(ReasonMalformedXML, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if rooted {
					return failed(ReasonMalformedXML, errors.New("junk after document element"))
				}
				rooted = true
				entityID, found = rootIdentifier(t)
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && strings.TrimSpace(string(t)) != "" {
				return failed(ReasonMalformedXML, errors.New("text outside document element"))
			}
		}
	}
	if !rooted {
		return failed(ReasonMalformedXML, errors.New("no element found"))
	}
	if !found || entityID == "" {
		return failed(ReasonMissingIdentifier, fmt.Errorf("root element has no %s attribute", IdentifierAttr))
	}
	return Result{Record: &Record{
		EntityID: entityID,
		Digest:   fingerprint.DigestIdentifier(entityID),
	}}
}

func rootIdentifier(el xml.StartElement) (string, bool) {
	for _, attr := range el.Attr {
		if attr.Name.Space == "" && attr.Name.Local == IdentifierAttr {
			return attr.Value, true
		}
	}
	return "", false
}

// charsetReader decodes documents that declare a non UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("charset %q is not supported", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
