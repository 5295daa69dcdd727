package dav

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// maxPropfindBody bounds the size of a PROPFIND request body.
const maxPropfindBody = 1 << 20

// ErrInvalidPropfind is returned for a PROPFIND body that is not a
// well-formed DAV:propfind element.
var ErrInvalidPropfind = errors.New("invalid PROPFIND body")

// PropfindKind is what a PROPFIND asks for.
type PropfindKind int

const (
	// AllProp requests every live property (also used for an empty body).
	AllProp PropfindKind = iota
	// PropName requests the names of the properties only.
	PropName
	// Prop requests the listed properties.
	Prop
)

// Propfind is a parsed PROPFIND request body.
type Propfind struct {
	Kind  PropfindKind
	Names []xml.Name
}

type propfindBody struct {
	XMLName  xml.Name  `xml:"DAV: propfind"`
	AllProp  *struct{} `xml:"DAV: allprop"`
	PropName *struct{} `xml:"DAV: propname"`
	Prop     *struct {
		Names []struct {
			XMLName xml.Name
		} `xml:",any"`
	} `xml:"DAV: prop"`
}

// ParsePropfind reads a PROPFIND request body.
func ParsePropfind(r io.Reader) (Propfind, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxPropfindBody+1))
	if err != nil {
		return Propfind{}, fmt.Errorf("%w: %v", ErrInvalidPropfind, err)
	}
	if len(data) > maxPropfindBody {
		return Propfind{}, fmt.Errorf("%w: body too large", ErrInvalidPropfind)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Propfind{Kind: AllProp}, nil
	}

	var body propfindBody
	if err := xml.Unmarshal(data, &body); err != nil {
		return Propfind{}, fmt.Errorf("%w: %v", ErrInvalidPropfind, err)
	}

	switch {
	case body.AllProp != nil:
		return Propfind{Kind: AllProp}, nil
	case body.PropName != nil:
		return Propfind{Kind: PropName}, nil
	case body.Prop != nil:
		pf := Propfind{Kind: Prop}
		for _, n := range body.Prop.Names {
			pf.Names = append(pf.Names, n.XMLName)
		}
		return pf, nil
	}
	return Propfind{}, fmt.Errorf("%w: expected allprop, propname or prop", ErrInvalidPropfind)
}

// ============================================================================
// Multistatus responses
// ============================================================================

const davNS = "DAV:"

// liveProp is one property served for every item that has a value for it.
type liveProp struct {
	name  string
	value func(Item) (inner string, ok bool)
}

var liveProps = []liveProp{
	{"creationdate", func(it Item) (string, bool) {
		if it.Created.IsZero() {
			return "", false
		}
		return escape(FormatCreationDate(it.Created)), true
	}},
	{"displayname", func(it Item) (string, bool) {
		return escape(it.Name), it.Name != ""
	}},
	{"getcontentlength", func(it Item) (string, bool) {
		if it.Size == nil {
			return "", false
		}
		return strconv.FormatInt(*it.Size, 10), true
	}},
	{"getcontenttype", func(it Item) (string, bool) {
		return escape(it.ContentType), it.ContentType != ""
	}},
	{"getetag", func(it Item) (string, bool) {
		return escape(it.ETag), it.ETag != ""
	}},
	{"getlastmodified", func(it Item) (string, bool) {
		if it.Modified.IsZero() {
			return "", false
		}
		return escape(FormatModifiedDate(it.Modified)), true
	}},
	{"resourcetype", func(it Item) (string, bool) {
		if it.Collection {
			return "<D:collection/>", true
		}
		return "", true
	}},
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

type multistatus struct {
	XMLName   xml.Name   `xml:"D:multistatus"`
	XMLNS     string     `xml:"xmlns:D,attr"`
	Responses []response `xml:"D:response"`
}

type response struct {
	Href      string     `xml:"D:href"`
	Propstats []propstat `xml:"D:propstat"`
}

type propstat struct {
	Props  []property `xml:"D:prop>_"`
	Status string     `xml:"D:status"`
}

type property struct {
	XMLName xml.Name
	Inner   string `xml:",innerxml"`
}

const (
	statusOK       = "HTTP/1.1 200 OK"
	statusNotFound = "HTTP/1.1 404 Not Found"
)

func davProp(local, inner string) property {
	return property{XMLName: xml.Name{Local: "D:" + local}, Inner: inner}
}

func responseFor(it Item, pf Propfind) response {
	resp := response{Href: it.Href()}

	switch pf.Kind {
	case AllProp, PropName:
		var found []property
		for _, lp := range liveProps {
			inner, ok := lp.value(it)
			if !ok {
				continue
			}
			if pf.Kind == PropName {
				inner = ""
			}
			found = append(found, davProp(lp.name, inner))
		}
		resp.Propstats = []propstat{{Props: found, Status: statusOK}}

	case Prop:
		var found, missing []property
		for _, name := range pf.Names {
			if p, ok := lookupLive(it, name); ok {
				found = append(found, p)
				continue
			}
			missing = append(missing, property{XMLName: name})
		}
		if len(found) > 0 {
			resp.Propstats = append(resp.Propstats, propstat{Props: found, Status: statusOK})
		}
		if len(missing) > 0 {
			resp.Propstats = append(resp.Propstats, propstat{Props: missing, Status: statusNotFound})
		}
	}

	return resp
}

func lookupLive(it Item, name xml.Name) (property, bool) {
	if name.Space != davNS {
		return property{}, false
	}
	for _, lp := range liveProps {
		if lp.name != name.Local {
			continue
		}
		inner, ok := lp.value(it)
		if !ok {
			return property{}, false
		}
		return davProp(lp.name, inner), true
	}
	return property{}, false
}

// WriteMultistatus writes the 207 Multi-Status body describing items.
func WriteMultistatus(w io.Writer, items []Item, pf Propfind) error {
	ms := multistatus{XMLNS: davNS, Responses: make([]response, 0, len(items))}
	for _, it := range items {
		ms.Responses = append(ms.Responses, responseFor(it, pf))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if err := enc.Encode(ms); err != nil {
		return fmt.Errorf("encode multistatus: %w", err)
	}
	return enc.Close()
}
