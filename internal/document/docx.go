package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxDocumentXML caps the decompressed size of word/document.xml.
const maxDocumentXML = 32 << 20

var ErrNotDocx = errors.New("not a docx archive")

// ReadDocxText returns the paragraphs of word/document.xml, one per line.
// Tabs and breaks inside a paragraph become a space and a newline.
func ReadDocxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("%w: word/document.xml not found", ErrNotDocx)
	}
	if docFile.UncompressedSize64 > maxDocumentXML {
		return "", fmt.Errorf("document.xml too large: %d bytes", docFile.UncompressedSize64)
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	return paragraphsFromXML(io.LimitReader(rc, maxDocumentXML))
}

func paragraphsFromXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var (
		paras   []string
		current strings.Builder
		inText  bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				current.Reset()
			case "t":
				inText = true
			case "tab":
				current.WriteByte(' ')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paras = append(paras, text)
				}
				current.Reset()
			}
		}
	}
	return strings.Join(paras, "\n"), nil
}
