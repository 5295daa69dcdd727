package dav

import (
	"bytes"
	"encoding/xml"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePropfind(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Propfind
	}{
		{"Empty", "", Propfind{Kind: AllProp}},
		{"Whitespace", "  \n\t", Propfind{Kind: AllProp}},
		{"AllProp", `<?xml version="1.0"?><propfind xmlns="DAV:"><allprop/></propfind>`, Propfind{Kind: AllProp}},
		{"PrefixedAllProp", `<D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`, Propfind{Kind: AllProp}},
		{"PropName", `<propfind xmlns="DAV:"><propname/></propfind>`, Propfind{Kind: PropName}},
		{
			"Prop",
			`<propfind xmlns="DAV:" xmlns:x="urn:x"><prop><getetag/><x:color/></prop></propfind>`,
			Propfind{Kind: Prop, Names: []xml.Name{{Space: "DAV:", Local: "getetag"}, {Space: "urn:x", Local: "color"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePropfind(strings.NewReader(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePropfindInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"Malformed":      `<propfind xmlns="DAV:"><allprop>`,
		"WrongNamespace": `<propfind xmlns="urn:other"><allprop/></propfind>`,
		"WrongRoot":      `<lockinfo xmlns="DAV:"/>`,
		"NoRequest":      `<propfind xmlns="DAV:"></propfind>`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePropfind(strings.NewReader(body))
			assert.ErrorIs(t, err, ErrInvalidPropfind)
		})
	}
}

// parsedResponse is a reader-side view of one multistatus response.
type parsedResponse struct {
	Href      string `xml:"href"`
	Propstats []struct {
		Prop struct {
			Props []struct {
				XMLName xml.Name
				Inner   string `xml:",innerxml"`
			} `xml:",any"`
		} `xml:"prop"`
		Status string `xml:"status"`
	} `xml:"propstat"`
}

func decodeMultistatus(t *testing.T, body []byte) []parsedResponse {
	t.Helper()
	var ms struct {
		XMLName   xml.Name         `xml:"DAV: multistatus"`
		Responses []parsedResponse `xml:"DAV: response"`
	}
	require.NoError(t, xml.Unmarshal(body, &ms))
	return ms.Responses
}

func props(r parsedResponse, status string) map[string]string {
	out := make(map[string]string)
	for _, ps := range r.Propstats {
		if ps.Status != status {
			continue
		}
		for _, p := range ps.Prop.Props {
			out[p.XMLName.Space+" "+p.XMLName.Local] = p.Inner
		}
	}
	return out
}

func TestWriteMultistatus(t *testing.T) {
	modified := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	download, _ := url.Parse("https://dandiarchive.s3.amazonaws.com/blobs/x")

	folder := Item{Path: "/dandisets/000001/draft/my dir/", Name: "my dir", Collection: true, Modified: modified}
	file := Item{
		Path:        "/dandisets/000001/draft/a&b.nii",
		Name:        "a&b.nii",
		Size:        sizeOf(100),
		Created:     modified,
		Modified:    modified,
		ETag:        `"abc"`,
		ContentType: DefaultContentType,
		Redirect:    download,
	}

	t.Run("AllProp", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteMultistatus(&buf, []Item{folder, file}, Propfind{Kind: AllProp}))
		assert.True(t, strings.HasPrefix(buf.String(), xml.Header))
		assert.Contains(t, buf.String(), `xmlns:D="DAV:"`)

		rs := decodeMultistatus(t, buf.Bytes())
		require.Len(t, rs, 2)

		assert.Equal(t, "/dandisets/000001/draft/my%20dir/", rs[0].Href)
		fp := props(rs[0], statusOK)
		assert.Equal(t, "my dir", fp["DAV: displayname"])
		assert.Equal(t, "Fri, 01 Mar 2024 10:00:00 GMT", fp["DAV: getlastmodified"])
		assert.Contains(t, fp["DAV: resourcetype"], "collection")
		assert.NotContains(t, fp, "DAV: getcontentlength")
		assert.NotContains(t, fp, "DAV: getetag")
		assert.NotContains(t, fp, "DAV: creationdate")

		assert.Equal(t, "/dandisets/000001/draft/a%26b.nii", rs[1].Href)
		ip := props(rs[1], statusOK)
		assert.Equal(t, "100", ip["DAV: getcontentlength"])
		assert.Equal(t, "&#34;abc&#34;", ip["DAV: getetag"])
		assert.Equal(t, "a&amp;b.nii", ip["DAV: displayname"])
		assert.Equal(t, DefaultContentType, ip["DAV: getcontenttype"])
		assert.Equal(t, "2024-03-01T10:00:00Z", ip["DAV: creationdate"])
		assert.Equal(t, "", ip["DAV: resourcetype"])
	})

	t.Run("PropName", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteMultistatus(&buf, []Item{file}, Propfind{Kind: PropName}))

		rs := decodeMultistatus(t, buf.Bytes())
		require.Len(t, rs, 1)
		ip := props(rs[0], statusOK)
		assert.Len(t, ip, 7)
		for name, inner := range ip {
			assert.Empty(t, inner, name)
		}
	})

	t.Run("Prop", func(t *testing.T) {
		pf := Propfind{Kind: Prop, Names: []xml.Name{
			{Space: "DAV:", Local: "getetag"},
			{Space: "DAV:", Local: "getcontentlength"},
			{Space: "urn:x", Local: "color"},
		}}

		var buf bytes.Buffer
		require.NoError(t, WriteMultistatus(&buf, []Item{folder, file}, pf))
		rs := decodeMultistatus(t, buf.Bytes())
		require.Len(t, rs, 2)

		// A collection has neither an etag nor a length.
		assert.Empty(t, props(rs[0], statusOK))
		missing := props(rs[0], statusNotFound)
		assert.Contains(t, missing, "DAV: getetag")
		assert.Contains(t, missing, "DAV: getcontentlength")
		assert.Contains(t, missing, "urn:x color")

		found := props(rs[1], statusOK)
		assert.Len(t, found, 2)
		assert.Equal(t, "100", found["DAV: getcontentlength"])
		assert.Equal(t, map[string]string{"urn:x color": ""}, props(rs[1], statusNotFound))
	})

	t.Run("NoItems", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteMultistatus(&buf, nil, Propfind{Kind: AllProp}))
		assert.Empty(t, decodeMultistatus(t, buf.Bytes()))
	})
}
