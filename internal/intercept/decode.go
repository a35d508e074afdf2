package intercept

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ResponseType selects how a response body is decoded.
type ResponseType string

const (
	ResponseDefault     ResponseType = ""
	ResponseText        ResponseType = "text"
	ResponseJSON        ResponseType = "json"
	ResponseArrayBuffer ResponseType = "arraybuffer"
	ResponseBlob        ResponseType = "blob"
	ResponseDocument    ResponseType = "document"
)

// Blob is a typed byte payload.
type Blob struct {
	Type string
	Data []byte
}

// Node is an element of a parsed XML document.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []Node     `xml:",any"`
}

// Find returns the first descendant (or n itself) with the given local name.
func (n *Node) Find(local string) *Node {
	if n == nil {
		return nil
	}
	if n.XMLName.Local == local {
		return n
	}
	for i := range n.Children {
		if found := n.Children[i].Find(local); found != nil {
			return found
		}
	}
	return nil
}

// decode interprets resp.Body per t. The returned value is a string for
// text, the decoded JSON value, a []byte, a Blob, or a *Node.
func decode(t ResponseType, resp *Response) (any, error) {
	body := resp.Body
	switch t {
	case ResponseDefault, ResponseText:
		return string(body), nil
	case ResponseJSON:
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("decode json response: %w", err)
		}
		return v, nil
	case ResponseArrayBuffer:
		return bytes.Clone(body), nil
	case ResponseBlob:
		return Blob{Type: resp.Header.Get("Content-Type"), Data: bytes.Clone(body)}, nil
	case ResponseDocument:
		return parseDocument(body)
	default:
		return nil, fmt.Errorf("unsupported response type %q", t)
	}
}

func parseDocument(body []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var root Node
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode xml response: %w", err)
	}
	// anything after the root element other than whitespace, comments or
	// processing instructions makes the document invalid
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml response: %w", err)
		}
		switch tok := tok.(type) {
		case xml.CharData:
			if strings.TrimSpace(string(tok)) != "" {
				return nil, fmt.Errorf("decode xml response: trailing text")
			}
		case xml.StartElement:
			return nil, fmt.Errorf("decode xml response: multiple root elements")
		}
	}
	return &root, nil
}
